// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"log/slog"
	"sync"

	"github.com/AleutianAI/traitscope/msg"
)

// FunctionListState caches the function snapshot and the per-function loop
// subtrees merged into it.
//
// Freshness rules: the function list is valid until a fresh FunctionList
// arrives (snapshot kind); a loop subtree is valid until that function's
// subtree is explicitly refreshed (incremental kind, merge key FunctionID).
// Collapse flags are keyed by the function's numeric ID so they survive
// cache replacement.
type FunctionListState struct {
	base

	cacheMu   sync.Mutex
	functions *msg.FunctionList
	loops     map[int][]msg.Loop
	collapsed map[int]bool
}

// NewFunctionListState builds the function list provider.
func NewFunctionListState(req Requester, logger *slog.Logger) Provider {
	return &FunctionListState{
		base:      newBase(msg.KindFunctionList, req, logger),
		loops:     make(map[int][]msg.Loop),
		collapsed: make(map[int]bool),
	}
}

// Kinds implements Provider.
func (s *FunctionListState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindFunctionList, msg.KindLoopTree}
}

// OnMessage implements Provider.
func (s *FunctionListState) OnMessage(m msg.Message) error {
	switch v := m.(type) {
	case msg.FunctionList:
		s.cacheMu.Lock()
		s.functions = &v
		// Loop subtrees for vanished functions are dropped; surviving
		// functions keep theirs until explicitly refreshed.
		known := make(map[int]bool, len(v.Functions))
		for _, fn := range v.Functions {
			known[fn.ID] = true
		}
		for id := range s.loops {
			if !known[id] {
				delete(s.loops, id)
			}
		}
		s.cacheMu.Unlock()
	case msg.LoopTree:
		s.cacheMu.Lock()
		s.loops[v.FunctionID] = v.Loops
		s.cacheMu.Unlock()
	default:
		// Not ours.
		return nil
	}
	s.redraw()
	return nil
}

// Actual implements Provider.
func (s *FunctionListState) Actual(r msg.Request) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	switch req := r.(type) {
	case msg.FunctionListRequest:
		return s.functions != nil
	case msg.LoopTreeRequest:
		_, ok := s.loops[req.FunctionID]
		return ok
	}
	return false
}

// Functions returns the cached snapshot, nil when none arrived yet.
func (s *FunctionListState) Functions() *msg.FunctionList {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.functions
}

// LoopsOf returns the cached loop subtree for a function, nil when absent.
func (s *FunctionListState) LoopsOf(functionID int) []msg.Loop {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.loops[functionID]
}

// SetCollapsed records the collapse flag for a function's subtree.
func (s *FunctionListState) SetCollapsed(functionID int, collapsed bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if collapsed {
		s.collapsed[functionID] = true
	} else {
		delete(s.collapsed, functionID)
	}
}

// Collapsed reports the collapse flag for a function's subtree.
func (s *FunctionListState) Collapsed(functionID int) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.collapsed[functionID]
}

// Dispose implements Provider.
func (s *FunctionListState) Dispose() {
	s.cacheMu.Lock()
	s.functions = nil
	s.loops = make(map[int][]msg.Loop)
	s.collapsed = make(map[int]bool)
	s.cacheMu.Unlock()
	s.dispose()
}
