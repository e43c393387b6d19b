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

// =============================================================================
// ACTIVATION STATE
// =============================================================================

// State is a provider's activation state.
type State int

const (
	// StateInactive means the provider owns no visible UI.
	StateInactive State = iota

	// StateActive means the provider currently owns visible UI.
	StateActive

	// StateDisposed means the provider was torn down with its session.
	StateDisposed
)

// String returns a human-readable state name.
func (s State) String() string {
	names := []string{"inactive", "active", "disposed"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// =============================================================================
// CONTRACT
// =============================================================================

// Requester sends requests on a provider's behalf. Satisfied by
// session.Session; kept abstract so providers are testable in isolation.
type Requester interface {
	Send(r msg.Request) error
}

// RenderFunc is invoked whenever an active provider should redraw. The
// provider's cached data is safe to read synchronously during the call.
type RenderFunc func()

// Provider is the renderer state contract.
//
// Description:
//
//	An abstract state machine, one instance per (session x kind). The
//	session forwards every decoded message to every attached provider in
//	registration order; each provider decides whether the message is its
//	own and whether to redraw.
//
// Thread Safety:
//
//	Implementations are safe for concurrent use: the session's read loop
//	delivers messages while editor-driven calls toggle activation.
type Provider interface {
	// Kind is the renderer kind this provider was registered under.
	Kind() msg.Kind

	// Kinds is the set of message kinds the provider consumes.
	Kinds() []msg.Kind

	// OnMessage applies one decoded message. Messages outside Kinds must
	// be ignored without side effects. An error aborts nothing beyond
	// this provider; the session logs it and continues dispatch.
	OnMessage(m msg.Message) error

	// Actual reports whether sending the candidate request would be
	// redundant given the current cache.
	Actual(r msg.Request) bool

	// Activate transitions to Active and triggers a render pass.
	Activate()

	// Deactivate transitions to Inactive, discarding volatile UI
	// resources while retaining still-valid cached data.
	Deactivate()

	// Dispose tears the provider down with its session, clearing every
	// cache including cross-kind dependent ones. Idempotent.
	Dispose()

	// State returns the current activation state.
	State() State

	// OnConnectionClosed surfaces the session's transport loss. Only the
	// currently visible provider renders the condition.
	OnConnectionClosed()
}

// Factory builds a provider bound to a session's requester.
type Factory func(req Requester, logger *slog.Logger) Provider

// =============================================================================
// SHARED MACHINERY
// =============================================================================

// base carries the activation machinery shared by the concrete states.
type base struct {
	kind   msg.Kind
	req    Requester
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	render     RenderFunc
	connClosed bool
}

func newBase(kind msg.Kind, req Requester, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		kind:   kind,
		req:    req,
		logger: logger.With(slog.String("provider", string(kind))),
	}
}

// Kind implements Provider.
func (b *base) Kind() msg.Kind { return b.kind }

// State implements Provider.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetRender installs the render hook. Nil disables redraws.
func (b *base) SetRender(fn RenderFunc) {
	b.mu.Lock()
	b.render = fn
	b.mu.Unlock()
}

// Activate implements Provider. Re-entrant: activating twice renders twice.
func (b *base) Activate() {
	b.mu.Lock()
	if b.state == StateDisposed {
		b.mu.Unlock()
		return
	}
	b.state = StateActive
	fn := b.render
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Deactivate implements Provider. Cached data is retained; only the visible
// surface is dropped.
func (b *base) Deactivate() {
	b.mu.Lock()
	if b.state == StateActive {
		b.state = StateInactive
	}
	b.mu.Unlock()
}

// dispose marks the provider disposed; concrete states clear their caches
// around this call.
func (b *base) dispose() {
	b.mu.Lock()
	b.state = StateDisposed
	b.render = nil
	b.mu.Unlock()
}

// OnConnectionClosed implements Provider.
func (b *base) OnConnectionClosed() {
	b.mu.Lock()
	b.connClosed = true
	active := b.state == StateActive
	fn := b.render
	b.mu.Unlock()

	b.logger.Warn("connection to analyzer closed")
	if active && fn != nil {
		fn()
	}
}

// ConnectionClosed reports whether the session's transport was lost.
func (b *base) ConnectionClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connClosed
}

// redraw renders if and only if the provider is currently active.
func (b *base) redraw() {
	b.mu.Lock()
	active := b.state == StateActive
	fn := b.render
	b.mu.Unlock()

	if active && fn != nil {
		fn()
	}
}

// ownsKind reports membership of k in kinds.
func ownsKind(k msg.Kind, kinds []msg.Kind) bool {
	for _, own := range kinds {
		if own == k {
			return true
		}
	}
	return false
}
