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
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/traitscope/msg"
)

// PathKey identifies a node in the merged call graph by the chain of
// numeric IDs from the root scope down to the node. Two same-named callees
// at different call depths get distinct keys, and the key survives cache
// replacement since it is built from analyzer IDs, not object identity.
type PathKey string

// scopeKey names a queried (function, loop) scope.
type scopeKey struct {
	funcID int
	loopID int
}

// rootPath builds the path key of a scope's root node.
func rootPath(funcID, loopID int) PathKey {
	if loopID == 0 {
		return PathKey(strconv.Itoa(funcID))
	}
	return PathKey(strconv.Itoa(funcID) + "/" + strconv.Itoa(loopID))
}

// Child extends a path key with one callee ID.
func (p PathKey) Child(calleeID int) PathKey {
	return PathKey(string(p) + "/" + strconv.Itoa(calleeID))
}

// Depth is the number of IDs along the path.
func (p PathKey) Depth() int {
	return strings.Count(string(p), "/") + 1
}

// CalleeNode is one merged call-graph node.
type CalleeNode struct {
	// Path is the node's collision-free identity.
	Path PathKey

	// Info is the analyzer's callee record.
	Info msg.CalleeFunc

	// Label is the display name, resolved from the function list when the
	// callee record carries no name.
	Label string
}

// CalleeFuncState merges incremental CalleeFuncList responses into a call
// graph keyed by path.
//
// Cross-kind dependency: labeling a node requires the function list. When a
// CalleeFuncList arrives before any FunctionList, the provider issues the
// auxiliary FunctionListRequest itself and defers labeling until the
// response arrives; the original subtree is merged immediately so no
// intent is lost.
type CalleeFuncState struct {
	base

	cacheMu sync.Mutex
	nodes   map[PathKey]*CalleeNode
	scopes  map[scopeKey]bool
	names   map[int]string
	// unlabeled holds paths waiting for the function list.
	unlabeled []PathKey
	// namesRequested dedups the auxiliary request.
	namesRequested bool
	expanded       map[PathKey]bool
}

// NewCalleeFuncState builds the call graph provider.
func NewCalleeFuncState(req Requester, logger *slog.Logger) Provider {
	return &CalleeFuncState{
		base:     newBase(msg.KindCalleeFuncList, req, logger),
		nodes:    make(map[PathKey]*CalleeNode),
		scopes:   make(map[scopeKey]bool),
		names:    make(map[int]string),
		expanded: make(map[PathKey]bool),
	}
}

// Kinds implements Provider. The function list is owned as an auxiliary
// kind for labeling.
func (s *CalleeFuncState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindCalleeFuncList, msg.KindFunctionList}
}

// OnMessage implements Provider.
func (s *CalleeFuncState) OnMessage(m msg.Message) error {
	switch v := m.(type) {
	case msg.CalleeFuncList:
		if err := s.merge(v); err != nil {
			return err
		}
	case msg.FunctionList:
		s.applyNames(v)
	default:
		return nil
	}
	s.redraw()
	return nil
}

// merge attaches one response's callees under the scope that requested
// them and schedules labeling for nodes without a name.
func (s *CalleeFuncState) merge(v msg.CalleeFuncList) error {
	s.cacheMu.Lock()
	root := rootPath(v.FuncID, v.LoopID)
	s.scopes[scopeKey{v.FuncID, v.LoopID}] = true

	needNames := false
	for _, fn := range v.Functions {
		path := root.Child(fn.CalleeID)
		if fn.Kind != msg.CalleeFunction {
			// Control-flow exits carry no callee ID; the kind name keeps
			// them distinct within the scope.
			path = PathKey(string(root) + "/" + string(fn.Kind))
		}
		node := &CalleeNode{Path: path, Info: fn, Label: fn.Name}
		if node.Label == "" && fn.Kind == msg.CalleeFunction {
			if name, ok := s.names[fn.CalleeID]; ok {
				node.Label = name
			} else {
				s.unlabeled = append(s.unlabeled, path)
				needNames = true
			}
		}
		s.nodes[path] = node
	}

	request := needNames && !s.namesRequested
	if request {
		s.namesRequested = true
	}
	s.cacheMu.Unlock()

	if request && s.req != nil {
		if err := s.req.Send(msg.FunctionListRequest{}); err != nil {
			s.cacheMu.Lock()
			s.namesRequested = false
			s.cacheMu.Unlock()
			return err
		}
	}
	return nil
}

// applyNames resolves deferred labels from a function list.
func (s *CalleeFuncState) applyNames(v msg.FunctionList) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	for _, fn := range v.Functions {
		s.names[fn.ID] = fn.Name
	}

	pending := s.unlabeled
	s.unlabeled = nil
	for _, path := range pending {
		node, ok := s.nodes[path]
		if !ok {
			continue
		}
		if name, ok := s.names[node.Info.CalleeID]; ok {
			node.Label = name
		} else {
			s.unlabeled = append(s.unlabeled, path)
		}
	}
	s.namesRequested = false
}

// Actual implements Provider. A callee query is redundant once its scope
// was merged; the auxiliary function list is redundant once names exist.
func (s *CalleeFuncState) Actual(r msg.Request) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	switch req := r.(type) {
	case msg.CalleeFuncListRequest:
		return s.scopes[scopeKey{req.FuncID, req.LoopID}]
	case msg.FunctionListRequest:
		return len(s.names) > 0
	}
	return false
}

// Node returns the merged node for a path, nil when absent.
func (s *CalleeFuncState) Node(path PathKey) *CalleeNode {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.nodes[path]
}

// UnlabeledCount reports nodes still waiting for the function list.
func (s *CalleeFuncState) UnlabeledCount() int {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return len(s.unlabeled)
}

// SetExpanded records the expansion flag for a node.
func (s *CalleeFuncState) SetExpanded(path PathKey, expanded bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if expanded {
		s.expanded[path] = true
	} else {
		delete(s.expanded, path)
	}
}

// Expanded reports the expansion flag for a node.
func (s *CalleeFuncState) Expanded(path PathKey) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.expanded[path]
}

// Dispose implements Provider. The name cache depends on another kind's
// data and is unsafe to keep, so everything goes.
func (s *CalleeFuncState) Dispose() {
	s.cacheMu.Lock()
	s.nodes = make(map[PathKey]*CalleeNode)
	s.scopes = make(map[scopeKey]bool)
	s.names = make(map[int]string)
	s.unlabeled = nil
	s.namesRequested = false
	s.expanded = make(map[PathKey]bool)
	s.cacheMu.Unlock()
	s.dispose()
}
