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

// AliasTreeState caches alias trees per queried (function, loop) scope.
// Each scope's tree is a snapshot: a new AliasTree for the same scope
// replaces the old one outright.
type AliasTreeState struct {
	base

	cacheMu   sync.Mutex
	trees     map[scopeKey]*msg.AliasTree
	collapsed map[int]bool
}

// NewAliasTreeState builds the alias tree provider.
func NewAliasTreeState(req Requester, logger *slog.Logger) Provider {
	return &AliasTreeState{
		base:      newBase(msg.KindAliasTree, req, logger),
		trees:     make(map[scopeKey]*msg.AliasTree),
		collapsed: make(map[int]bool),
	}
}

// Kinds implements Provider.
func (s *AliasTreeState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindAliasTree}
}

// OnMessage implements Provider.
func (s *AliasTreeState) OnMessage(m msg.Message) error {
	v, ok := m.(msg.AliasTree)
	if !ok {
		return nil
	}
	s.cacheMu.Lock()
	s.trees[scopeKey{v.FuncID, v.LoopID}] = &v
	s.cacheMu.Unlock()
	s.redraw()
	return nil
}

// Actual implements Provider.
func (s *AliasTreeState) Actual(r msg.Request) bool {
	req, ok := r.(msg.AliasTreeRequest)
	if !ok {
		return false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	_, ok = s.trees[scopeKey{req.FuncID, req.LoopID}]
	return ok
}

// Tree returns the cached tree for a scope, nil when absent.
func (s *AliasTreeState) Tree(funcID, loopID int) *msg.AliasTree {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.trees[scopeKey{funcID, loopID}]
}

// SetCollapsed records the collapse flag for a node by its analyzer ID.
func (s *AliasTreeState) SetCollapsed(nodeID int, collapsed bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if collapsed {
		s.collapsed[nodeID] = true
	} else {
		delete(s.collapsed, nodeID)
	}
}

// Collapsed reports the collapse flag for a node.
func (s *AliasTreeState) Collapsed(nodeID int) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.collapsed[nodeID]
}

// Dispose implements Provider.
func (s *AliasTreeState) Dispose() {
	s.cacheMu.Lock()
	s.trees = make(map[scopeKey]*msg.AliasTree)
	s.collapsed = make(map[int]bool)
	s.cacheMu.Unlock()
	s.dispose()
}
