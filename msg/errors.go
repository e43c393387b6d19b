// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package msg

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	// ErrUnknownKind indicates the wire message's tag is not registered.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrMissingTag indicates the wire message carries no "name" field.
	ErrMissingTag = errors.New("message tag missing")

	// ErrKindRegistered indicates Register was called twice for one kind.
	ErrKindRegistered = errors.New("message kind already registered")
)

// DecodeError reports a wire message that could not be decoded. The failed
// text is preserved for logging; the message must be dropped, never
// partially applied.
type DecodeError struct {
	// Kind is the tag read from the message, empty when the tag itself
	// was unreadable.
	Kind Kind

	// Text is the raw wire text that failed to decode.
	Text string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }
