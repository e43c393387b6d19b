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
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// DecodeFunc turns one complete wire text into a typed message. The text is
// guaranteed to carry the tag the function was registered under.
type DecodeFunc func(text string) (Message, error)

// Catalog maps message tags to decoding routines.
//
// Description:
//
//	A catalog is populated once at startup via Register and is read-only
//	afterwards. Decode reads the tag field first and dispatches to the
//	registered routine; an unknown tag is a DecodeError, never a panic
//	propagated into the transport layer.
//
// Thread Safety:
//
//	Safe for concurrent use after registration completes. Register and
//	Decode may also race safely, though registration at init time is the
//	expected pattern.
type Catalog struct {
	mu      sync.RWMutex
	decoder map[Kind]DecodeFunc
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{decoder: make(map[Kind]DecodeFunc)}
}

// Register adds a decoding routine for a kind.
//
// Outputs:
//
//	error - ErrKindRegistered if the kind is already present.
func (c *Catalog) Register(kind Kind, fn DecodeFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.decoder[kind]; ok {
		return fmt.Errorf("%w: %s", ErrKindRegistered, kind)
	}
	c.decoder[kind] = fn
	return nil
}

// Kinds returns the registered kinds in sorted order.
func (c *Catalog) Kinds() []Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]Kind, 0, len(c.decoder))
	for k := range c.decoder {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Decode turns one complete wire text into a typed message.
//
// Description:
//
//	Reads the "name" tag first, then dispatches to the registered routine.
//	Decoding is pure: no I/O, no mutation of shared state.
//
// Inputs:
//
//	text - One complete frame, delimiter already stripped.
//
// Outputs:
//
//	Message - The decoded value, nil on failure.
//	error - A *DecodeError when the tag is missing, unknown, or the body
//	        does not parse. Decoding fails closed: no partial values.
func (c *Catalog) Decode(text string) (Message, error) {
	var probe struct {
		Name Kind `json:"name"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, &DecodeError{Text: text, Err: err}
	}
	if probe.Name == "" {
		return nil, &DecodeError{Text: text, Err: ErrMissingTag}
	}

	c.mu.RLock()
	fn, ok := c.decoder[probe.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{Kind: probe.Name, Text: text, Err: ErrUnknownKind}
	}

	m, err := fn(text)
	if err != nil {
		return nil, &DecodeError{Kind: probe.Name, Text: text, Err: err}
	}
	return m, nil
}

// decodeAs unmarshals text into T and returns it by value.
func decodeAs[T Message](text string) (Message, error) {
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Default returns a catalog with every response kind registered.
//
// Description:
//
//	This is the catalog sessions use. Registration cannot fail here since
//	the kind set is fixed and disjoint.
func Default() *Catalog {
	c := NewCatalog()
	register := func(kind Kind, fn DecodeFunc) {
		if err := c.Register(kind, fn); err != nil {
			// Unreachable with the fixed kind set.
			panic(err)
		}
	}
	register(KindDiagnostic, decodeAs[Diagnostic])
	register(KindCommandLine, decodeAs[CommandLine])
	register(KindStatistic, decodeAs[Statistic])
	register(KindFileList, decodeAs[FileList])
	register(KindFunctionList, decodeAs[FunctionList])
	register(KindLoopTree, decodeAs[LoopTree])
	register(KindCalleeFuncList, decodeAs[CalleeFuncList])
	register(KindAliasTree, decodeAs[AliasTree])
	return c
}
