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
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestWriter_WriteFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteFrame([]byte(`{"name":"StatisticReq"}`)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if got, want := buf.String(), `{"name":"StatisticReq"}$`; got != want {
		t.Errorf("WriteFrame() wrote %q, want %q", got, want)
	}
}

// chunkRecorder records every Write call it receives.
type chunkRecorder struct {
	mu     sync.Mutex
	chunks []string
}

func (r *chunkRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, string(p))
	return len(p), nil
}

// TestWriter_NoInterleave checks that concurrent writers never tear each
// other's frames apart on the wire.
func TestWriter_NoInterleave(t *testing.T) {
	rec := &chunkRecorder{}
	w := NewWriter(rec)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				payload := fmt.Sprintf(`{"writer":%d,"seq":%d}`, id, j)
				if err := w.WriteFrame([]byte(payload)); err != nil {
					t.Errorf("WriteFrame() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if got := len(rec.chunks); got != writers*perWriter {
		t.Fatalf("got %d write calls, want %d", got, writers*perWriter)
	}
	for _, chunk := range rec.chunks {
		if !strings.HasSuffix(chunk, string(Delim)) {
			t.Errorf("chunk %q does not end with the delimiter", chunk)
		}
		if strings.Count(chunk, string(Delim)) != 1 {
			t.Errorf("chunk %q contains a torn frame", chunk)
		}
	}
}
