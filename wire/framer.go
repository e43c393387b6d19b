// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Delim terminates every frame. JSON payloads never contain it, so it is a
// reserved separator rather than an escape.
const Delim = '$'

// RejectSentinel is the literal payload the analyzer writes when it refuses
// a request. It is not a tagged message and must never reach the decoder.
const RejectSentinel = "REJECT"

// ErrRejected indicates the analyzer refused a request with the reject
// sentinel. Fatal to the session.
var ErrRejected = errors.New("request rejected by analyzer")

// Framer reassembles complete frames from arbitrary-sized stream chunks.
//
// Description:
//
//	Chunks are appended to an internal buffer. Everything up to the last
//	delimiter is split into frames and emitted in order; a trailing
//	segment with no terminating delimiter is retained for the next Push.
//
// Thread Safety:
//
//	Not safe for concurrent use. Each session owns one framer and feeds
//	it from its single read loop.
type Framer struct {
	buf strings.Builder
}

// NewFramer creates an empty framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push consumes one chunk and returns every frame completed by it.
//
// Inputs:
//
//	chunk - Raw bytes read from the socket, any size including empty.
//
// Outputs:
//
//	[]string - Complete frame texts in emission order, delimiter stripped.
//	           Empty segments (bare delimiters) are skipped.
//	error - ErrRejected (wrapped) if a frame equals the reject sentinel.
//	        Frames preceding the sentinel are still returned.
func (f *Framer) Push(chunk string) ([]string, error) {
	if chunk == "" {
		return nil, nil
	}
	f.buf.WriteString(chunk)

	data := f.buf.String()
	last := strings.LastIndexByte(data, Delim)
	if last < 0 {
		// No complete frame yet.
		return nil, nil
	}

	rest := data[last+1:]
	f.buf.Reset()
	f.buf.WriteString(rest)

	var frames []string
	for _, seg := range strings.Split(data[:last], string(Delim)) {
		if seg == "" {
			continue
		}
		if seg == RejectSentinel {
			return frames, fmt.Errorf("%w", ErrRejected)
		}
		frames = append(frames, seg)
	}
	return frames, nil
}

// Pending returns the retained partial frame, for diagnostics.
func (f *Framer) Pending() string {
	return f.buf.String()
}
