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
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// REQUESTS
// =============================================================================

// Request is an outbound query to the analyzer. Requests share the response
// kinds' tags: the analyzer answers a request with a filled-in message of
// the same kind. Requests are encoded but never decoded.
type Request interface {
	// RequestKind returns the tag the request is encoded under.
	RequestKind() Kind
}

// StatisticRequest asks for the per-artifact counters.
type StatisticRequest struct{}

// RequestKind implements Request.
func (StatisticRequest) RequestKind() Kind { return KindStatistic }

// FileListRequest asks for the analyzer's file list.
type FileListRequest struct{}

// RequestKind implements Request.
func (FileListRequest) RequestKind() Kind { return KindFileList }

// FunctionListRequest asks for the artifact's function snapshot.
type FunctionListRequest struct{}

// RequestKind implements Request.
func (FunctionListRequest) RequestKind() Kind { return KindFunctionList }

// LoopTreeRequest asks for one function's loop tree.
type LoopTreeRequest struct {
	// FunctionID identifies the function to expand.
	FunctionID int `json:"FunctionID"`
}

// RequestKind implements Request.
func (LoopTreeRequest) RequestKind() Kind { return KindLoopTree }

// CalleeFuncListRequest asks for the callees reachable from a scope,
// filtered by trait attributes.
type CalleeFuncListRequest struct {
	// FuncID identifies the function whose scope is queried.
	FuncID int `json:"FuncID"`

	// LoopID narrows the scope to a loop, 0 for the whole function.
	LoopID int `json:"LoopID"`

	// Attr lists trait attributes to filter on.
	Attr []string `json:"Attr"`
}

// RequestKind implements Request.
func (CalleeFuncListRequest) RequestKind() Kind { return KindCalleeFuncList }

// AliasTreeRequest asks for the alias tree of a scope.
type AliasTreeRequest struct {
	// FuncID identifies the function whose scope is queried.
	FuncID int `json:"FuncID"`

	// LoopID narrows the scope to a loop, 0 for the whole function.
	LoopID int `json:"LoopID"`
}

// RequestKind implements Request.
func (AliasTreeRequest) RequestKind() Kind { return KindAliasTree }

// CommandLineRequest fetches or replaces the analyzer's command line.
// A zero value fetches; a populated value replaces.
type CommandLineRequest struct {
	Args   []string `json:"Args,omitempty"`
	Input  string   `json:"Input,omitempty"`
	Output string   `json:"Output,omitempty"`
	Error  string   `json:"Error,omitempty"`
	Query  string   `json:"Query,omitempty"`
}

// RequestKind implements Request.
func (CommandLineRequest) RequestKind() Kind { return KindCommandLine }

// =============================================================================
// ENCODING
// =============================================================================

// encodeTagged marshals v and splices the "name" tag in front of its fields.
func encodeTagged(kind Kind, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("marshal %s: non-object payload", kind)
	}
	tag, _ := json.Marshal(string(kind))

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 9)
	buf.WriteString(`{"name":`)
	buf.Write(tag)
	if !bytes.Equal(body, []byte("{}")) {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// EncodeRequest serializes an outbound request, without the frame delimiter.
func EncodeRequest(r Request) ([]byte, error) {
	return encodeTagged(r.RequestKind(), r)
}

// Encode serializes a message the same way the analyzer does, tag first.
// Round-tripping through Decode yields the original value for every
// response kind.
func Encode(m Message) ([]byte, error) {
	return encodeTagged(m.MsgKind(), m)
}
