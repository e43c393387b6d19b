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
	"fmt"
	"io"
	"sync"
)

// Writer frames outbound payloads onto a stream.
//
// Description:
//
//	Appends the delimiter to each payload and writes the frame in one
//	critical section, so concurrent senders never interleave partial
//	writes. The underlying writer's own blocking provides backpressure:
//	a frame the transport cannot immediately accept blocks here and later
//	frames queue behind it in call order.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for framed output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes one payload followed by the delimiter.
func (w *Writer) WriteFrame(payload []byte) error {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, Delim)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
