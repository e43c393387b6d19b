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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/traitscope/msg"
)

// fakeRequester records outbound requests.
type fakeRequester struct {
	sent []msg.Request
	err  error
}

func (f *fakeRequester) Send(r msg.Request) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r)
	return nil
}

func TestBaseLifecycle(t *testing.T) {
	p := NewStatisticState(&fakeRequester{}, nil)
	assert.Equal(t, StateInactive, p.State())

	renders := 0
	p.(*StatisticState).SetRender(func() { renders++ })

	p.Activate()
	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, 1, renders, "activation renders")

	// Re-entrant activation renders again.
	p.Activate()
	assert.Equal(t, 2, renders)

	p.Deactivate()
	assert.Equal(t, StateInactive, p.State())

	p.Dispose()
	assert.Equal(t, StateDisposed, p.State())

	// Activation after disposal is a no-op.
	p.Activate()
	assert.Equal(t, StateDisposed, p.State())
	assert.Equal(t, 2, renders)
}

func TestInactiveProviderCachesWithoutRendering(t *testing.T) {
	p := NewStatisticState(&fakeRequester{}, nil).(*StatisticState)
	renders := 0
	p.SetRender(func() { renders++ })

	require.NoError(t, p.OnMessage(msg.Statistic{Loops: 5}))
	assert.Equal(t, 0, renders, "inactive provider must not render")
	require.NotNil(t, p.Statistic())
	assert.Equal(t, 5, p.Statistic().Loops)

	// Activation presents the already-cached data.
	p.Activate()
	assert.Equal(t, 1, renders)
	assert.True(t, p.Actual(msg.StatisticRequest{}), "cache survives inactivity")
}

func TestOnMessageIgnoresForeignKinds(t *testing.T) {
	p := NewStatisticState(&fakeRequester{}, nil).(*StatisticState)
	require.NoError(t, p.OnMessage(msg.FileList{Files: []msg.File{{ID: 1}}}))
	assert.Nil(t, p.Statistic(), "foreign kind must not touch the cache")
}

func TestFunctionListState(t *testing.T) {
	p := NewFunctionListState(&fakeRequester{}, nil).(*FunctionListState)

	snapshot := msg.FunctionList{Functions: []msg.Function{
		{ID: 1, Name: "main"},
		{ID: 2, Name: "helper"},
	}}
	require.NoError(t, p.OnMessage(snapshot))
	require.NoError(t, p.OnMessage(msg.LoopTree{FunctionID: 1, Loops: []msg.Loop{{ID: 10, Level: 1}}}))
	require.NoError(t, p.OnMessage(msg.LoopTree{FunctionID: 2, Loops: []msg.Loop{{ID: 20, Level: 1}}}))

	assert.True(t, p.Actual(msg.FunctionListRequest{}))
	assert.True(t, p.Actual(msg.LoopTreeRequest{FunctionID: 1}))
	assert.False(t, p.Actual(msg.LoopTreeRequest{FunctionID: 3}))

	p.SetCollapsed(1, true)

	// A fresh snapshot drops function 2; function 1 keeps its subtree and
	// its collapse flag.
	require.NoError(t, p.OnMessage(msg.FunctionList{Functions: []msg.Function{{ID: 1, Name: "main"}}}))
	assert.NotNil(t, p.LoopsOf(1), "surviving function keeps its loop subtree")
	assert.Nil(t, p.LoopsOf(2), "vanished function loses its loop subtree")
	assert.True(t, p.Collapsed(1), "collapse flag keyed by ID survives replacement")

	p.Dispose()
	assert.Nil(t, p.Functions())
	assert.False(t, p.Collapsed(1))
}

func TestCalleeFuncState_Merge(t *testing.T) {
	req := &fakeRequester{}
	p := NewCalleeFuncState(req, nil).(*CalleeFuncState)

	require.NoError(t, p.OnMessage(msg.CalleeFuncList{
		FuncID: 7,
		Functions: []msg.CalleeFunc{
			{Kind: msg.CalleeFunction, CalleeID: 9, Name: "helper"},
			{Kind: msg.CalleeGoto},
			{Kind: msg.CalleeReturn},
		},
	}))

	assert.True(t, p.Actual(msg.CalleeFuncListRequest{FuncID: 7}))
	assert.False(t, p.Actual(msg.CalleeFuncListRequest{FuncID: 7, LoopID: 3}))

	node := p.Node(PathKey("7").Child(9))
	require.NotNil(t, node)
	assert.Equal(t, "helper", node.Label)

	// Non-function entries share CalleeID 0 yet must keep distinct keys.
	assert.NotNil(t, p.Node(PathKey("7/Goto")))
	assert.NotNil(t, p.Node(PathKey("7/Return")))

	assert.Empty(t, req.sent, "named callees need no auxiliary request")
}

func TestCalleeFuncState_DeferredLabels(t *testing.T) {
	req := &fakeRequester{}
	p := NewCalleeFuncState(req, nil).(*CalleeFuncState)

	// Callee arrives unnamed before any function list is known.
	require.NoError(t, p.OnMessage(msg.CalleeFuncList{
		FuncID: 7,
		LoopID: 2,
		Functions: []msg.CalleeFunc{
			{Kind: msg.CalleeFunction, CalleeID: 9},
		},
	}))

	require.Len(t, req.sent, 1, "auxiliary function list request issued")
	assert.Equal(t, msg.FunctionListRequest{}, req.sent[0])
	assert.Equal(t, 1, p.UnlabeledCount())

	path := rootPath(7, 2).Child(9)
	require.NotNil(t, p.Node(path), "subtree merged before labels resolve")
	assert.Empty(t, p.Node(path).Label)

	// A second unnamed batch does not duplicate the auxiliary request.
	require.NoError(t, p.OnMessage(msg.CalleeFuncList{
		FuncID: 7,
		Functions: []msg.CalleeFunc{
			{Kind: msg.CalleeFunction, CalleeID: 11},
		},
	}))
	assert.Len(t, req.sent, 1)

	// The function list resolves what it can.
	require.NoError(t, p.OnMessage(msg.FunctionList{Functions: []msg.Function{
		{ID: 9, Name: "worker"},
	}}))
	assert.Equal(t, "worker", p.Node(path).Label)
	assert.Equal(t, 1, p.UnlabeledCount(), "unknown callee stays deferred")
	assert.True(t, p.Actual(msg.FunctionListRequest{}), "names cached")
}

func TestCalleeFuncState_AuxiliaryRequestFailure(t *testing.T) {
	req := &fakeRequester{err: errors.New("session stopped")}
	p := NewCalleeFuncState(req, nil).(*CalleeFuncState)

	err := p.OnMessage(msg.CalleeFuncList{
		FuncID:    7,
		Functions: []msg.CalleeFunc{{Kind: msg.CalleeFunction, CalleeID: 9}},
	})
	require.Error(t, err)

	// The merge itself still happened.
	assert.NotNil(t, p.Node(rootPath(7, 0).Child(9)))

	// The request flag resets so a later merge can retry.
	req.err = nil
	require.NoError(t, p.OnMessage(msg.CalleeFuncList{
		FuncID:    8,
		Functions: []msg.CalleeFunc{{Kind: msg.CalleeFunction, CalleeID: 12}},
	}))
	assert.Len(t, req.sent, 1)
}

func TestPathKey(t *testing.T) {
	root := rootPath(7, 0)
	assert.Equal(t, PathKey("7"), root)
	assert.Equal(t, PathKey("7/2"), rootPath(7, 2))
	assert.Equal(t, PathKey("7/2/9"), rootPath(7, 2).Child(9))
	assert.Equal(t, 3, rootPath(7, 2).Child(9).Depth())

	// Same callee at different depths keeps distinct identities.
	assert.NotEqual(t, root.Child(9), root.Child(5).Child(9))
}

func TestAliasTreeState(t *testing.T) {
	p := NewAliasTreeState(&fakeRequester{}, nil).(*AliasTreeState)

	require.NoError(t, p.OnMessage(msg.AliasTree{
		FuncID: 7,
		LoopID: 1,
		Nodes:  []msg.AliasNode{{ID: 100, Kind: msg.AliasTop}},
	}))
	assert.True(t, p.Actual(msg.AliasTreeRequest{FuncID: 7, LoopID: 1}))
	assert.False(t, p.Actual(msg.AliasTreeRequest{FuncID: 7}))

	p.SetCollapsed(100, true)

	// A refreshed tree for the same scope replaces the old snapshot; the
	// collapse flag keyed by node ID survives.
	require.NoError(t, p.OnMessage(msg.AliasTree{
		FuncID: 7,
		LoopID: 1,
		Nodes:  []msg.AliasNode{{ID: 100, Kind: msg.AliasTop}, {ID: 101, Kind: msg.AliasUnknown}},
	}))
	tree := p.Tree(7, 1)
	require.NotNil(t, tree)
	assert.Len(t, tree.Nodes, 2)
	assert.True(t, p.Collapsed(100))
}

func TestMainState(t *testing.T) {
	p := NewMainState(&fakeRequester{}, nil).(*MainState)

	require.NoError(t, p.OnMessage(msg.Diagnostic{Status: msg.StatusError, Error: []string{"bad flag"}}))
	require.NotNil(t, p.LastDiagnostic())
	assert.Equal(t, msg.StatusError, p.LastDiagnostic().Status)

	require.NoError(t, p.OnMessage(msg.CommandLine{Args: []string{"tsar-server"}}))
	assert.True(t, p.Actual(msg.CommandLineRequest{}), "pure fetch is redundant")
	assert.False(t, p.Actual(msg.CommandLineRequest{Query: "loops"}), "update always goes out")
}

func TestOnConnectionClosed(t *testing.T) {
	active := NewStatisticState(&fakeRequester{}, nil).(*StatisticState)
	hidden := NewFileListState(&fakeRequester{}, nil).(*FileListState)

	activeRenders, hiddenRenders := 0, 0
	active.SetRender(func() { activeRenders++ })
	hidden.SetRender(func() { hiddenRenders++ })
	active.Activate()
	activeRenders = 0

	active.OnConnectionClosed()
	hidden.OnConnectionClosed()

	assert.Equal(t, 1, activeRenders, "visible provider surfaces the loss")
	assert.Equal(t, 0, hiddenRenders, "hidden provider stays quiet")
	assert.True(t, active.ConnectionClosed())
	assert.True(t, hidden.ConnectionClosed())
}
