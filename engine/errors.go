// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrAlreadyActive indicates a live session exists for the identity.
	// The engine never decides close-vs-focus for the caller.
	ErrAlreadyActive = errors.New("session already active for artifact")

	// ErrInvalidArtifact indicates the artifact failed precondition
	// checks before any process was spawned.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrHandshakeFailed indicates spawn or handshake failed before
	// Ready; the spawned process, if any, was killed.
	ErrHandshakeFailed = errors.New("analyzer handshake failed")

	// ErrRegisterAfterStart indicates Register was called after a
	// session had already been started.
	ErrRegisterAfterStart = errors.New("renderer kinds must be registered before any session starts")

	// ErrKindRegistered indicates a duplicate renderer kind registration.
	ErrKindRegistered = errors.New("renderer kind already registered")

	// ErrEngineClosed indicates the engine was shut down.
	ErrEngineClosed = errors.New("engine closed")
)
