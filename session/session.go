// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/traitscope/msg"
	"github.com/AleutianAI/traitscope/provider"
	"github.com/AleutianAI/traitscope/wire"
)

// outboundDepth is the request queue capacity. Senders block once the
// analyzer stops draining, which is the backpressure contract.
const outboundDepth = 64

// Registration pairs a renderer kind with its provider factory. The
// engine's registration order is the dispatch order.
type Registration struct {
	Kind    msg.Kind
	Factory provider.Factory
}

// Session supervises one analyzer connection for one artifact.
//
// Description:
//
//	Owns the outbound request queue, the inbound decoded-message stream,
//	the append-only response log, and the provider states attached to
//	the session. Created by the engine on successful handshake only.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Session struct {
	identity string
	conn     io.ReadWriteCloser
	catalog  *msg.Catalog
	logger   *slog.Logger

	// regs is the kind snapshot taken at creation, in registration order.
	regs []Registration

	statesMu sync.Mutex
	states   map[msg.Kind]provider.Provider

	outbound chan []byte
	writer   *wire.Writer

	logMu       sync.Mutex
	responseLog []msg.Message

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// onStop lets the engine unregister the identity and reap the
	// analyzer process. Called exactly once.
	onStop func(*Session)
}

// New creates a session over an established, handshaken connection and
// starts its writer and read loops.
//
// Inputs:
//
//	identity - Canonical artifact identity (registry key).
//	conn - The connected analyzer transport.
//	catalog - Decode catalog for inbound frames.
//	regs - Renderer kinds registered with the engine, snapshot order.
//	logger - Logging context; nil falls back to slog.Default().
//	onStop - Engine teardown hook, may be nil in tests.
func New(identity string, conn io.ReadWriteCloser, catalog *msg.Catalog, regs []Registration, logger *slog.Logger, onStop func(*Session)) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = msg.Default()
	}
	s := &Session{
		identity: identity,
		conn:     conn,
		catalog:  catalog,
		logger:   logger.With(slog.String("component", "session"), slog.String("artifact", identity)),
		regs:     regs,
		states:   make(map[msg.Kind]provider.Provider),
		outbound: make(chan []byte, outboundDepth),
		writer:   wire.NewWriter(conn),
		done:     make(chan struct{}),
		onStop:   onStop,
	}
	_ = initMetrics()
	sessionsActive.Inc()

	s.wg.Add(2)
	go s.writeLoop()
	go s.readLoop()
	return s
}

// Identity returns the artifact identity this session serves.
func (s *Session) Identity() string { return s.identity }

// Stopped reports whether Stop has begun.
func (s *Session) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// =============================================================================
// SEND
// =============================================================================

// Send encodes a request and queues it for the analyzer.
//
// Description:
//
//	Requests are written in queue order by a single writer goroutine, so
//	concurrent senders never interleave partial writes and backpressure
//	never drops or reorders a request. After Stop, Send is a silent
//	no-op: queued writes die with the session instead of leaking into a
//	successor session for the same identity.
//
// Outputs:
//
//	error - Encoding failure only. Transport failures surface through
//	        the session's own teardown, not through Send.
func (s *Session) Send(r msg.Request) error {
	if s.Stopped() {
		return nil
	}
	payload, err := msg.EncodeRequest(r)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	select {
	case s.outbound <- payload:
		requestsSentTotal.WithLabelValues(string(r.RequestKind())).Inc()
		return nil
	case <-s.done:
		return nil
	}
}

// writeLoop drains the outbound queue onto the transport.
func (s *Session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.outbound:
			if err := s.writer.WriteFrame(payload); err != nil {
				if s.Stopped() {
					return
				}
				s.logger.Error("transport write failed", slog.String("error", err.Error()))
				s.teardown(err)
				return
			}
		}
	}
}

// =============================================================================
// RECEIVE & DISPATCH
// =============================================================================

// readLoop feeds the framer and decoder and dispatches typed messages.
// Framing and dispatch are strictly sequential, preserving emission order.
func (s *Session) readLoop() {
	defer s.wg.Done()

	framer := wire.NewFramer()
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			frames, ferr := framer.Push(string(buf[:n]))
			for _, frame := range frames {
				framesTotal.Inc()
				s.decodeAndDispatch(frame)
				if s.Stopped() {
					return
				}
			}
			if ferr != nil {
				s.logger.Error("analyzer rejected request", slog.String("error", ferr.Error()))
				s.teardown(ferr)
				return
			}
		}
		if err != nil {
			if !s.Stopped() {
				s.logger.Warn("analyzer connection closed", slog.String("error", err.Error()))
				s.teardown(ErrConnectionClosed)
			}
			return
		}
	}
}

// decodeAndDispatch decodes one frame and fans it out. A decode failure is
// logged and the frame dropped without touching any provider state; it is
// fatal to the session like any other protocol error.
func (s *Session) decodeAndDispatch(frame string) {
	m, err := s.catalog.Decode(frame)
	if err != nil {
		kind := ""
		if derr, ok := err.(*msg.DecodeError); ok {
			kind = string(derr.Kind)
		}
		decodeFailuresTotal.WithLabelValues(kind).Inc()
		s.logger.Error("dropping undecodable frame",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		s.teardown(err)
		return
	}
	s.dispatch(m)
}

// dispatch appends to the response log and forwards the message to every
// attached provider in registration order. One provider's failure must not
// starve the others. After Stop, a frame still in flight is dropped rather
// than delivered to disposed providers.
func (s *Session) dispatch(m msg.Message) {
	if s.Stopped() {
		return
	}
	s.logMu.Lock()
	s.responseLog = append(s.responseLog, m)
	s.logMu.Unlock()

	start := time.Now()
	for _, reg := range s.regs {
		s.statesMu.Lock()
		st := s.states[reg.Kind]
		s.statesMu.Unlock()
		if st == nil {
			continue
		}
		s.deliver(st, m)
	}
	recordDispatch(context.Background(), string(m.MsgKind()), time.Since(start))
}

// deliver hands one message to one provider, isolating its failures.
func (s *Session) deliver(st provider.Provider, m msg.Message) {
	defer func() {
		if r := recover(); r != nil {
			dispatchErrorsTotal.WithLabelValues(string(st.Kind())).Inc()
			s.logger.Error("provider panicked",
				slog.String("provider", string(st.Kind())),
				slog.Any("panic", r),
			)
		}
	}()
	if err := st.OnMessage(m); err != nil {
		dispatchErrorsTotal.WithLabelValues(string(st.Kind())).Inc()
		s.logger.Error("provider handler failed",
			slog.String("provider", string(st.Kind())),
			slog.String("error", err.Error()),
		)
	}
}

// Notify injects a locally originated message into the normal dispatch
// path. The engine uses it for conditions it detects itself (e.g. the
// artifact changing on disk), keeping "diagnostics are data" true for
// client-side observations too. No-op after Stop.
func (s *Session) Notify(m msg.Message) {
	if s.Stopped() {
		return
	}
	s.dispatch(m)
}

// =============================================================================
// PROVIDER STATES
// =============================================================================

// ProviderState attaches or fetches the provider state for a kind.
//
// Outputs:
//
//	provider.Provider - The state, created empty on first attach.
//	error - ErrKindNotRegistered if the kind was never registered with
//	        the engine before this session was created.
func (s *Session) ProviderState(kind msg.Kind) (provider.Provider, error) {
	var reg *Registration
	for i := range s.regs {
		if s.regs[i].Kind == kind {
			reg = &s.regs[i]
			break
		}
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}

	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	if st, ok := s.states[kind]; ok {
		return st, nil
	}
	st := reg.Factory(s, s.logger)
	s.states[kind] = st
	return st, nil
}

// attachedStates returns the attached providers in registration order.
func (s *Session) attachedStates() []provider.Provider {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	out := make([]provider.Provider, 0, len(s.states))
	for _, reg := range s.regs {
		if st, ok := s.states[reg.Kind]; ok {
			out = append(out, st)
		}
	}
	return out
}

// =============================================================================
// RESPONSE LOG
// =============================================================================

// Responses returns a copy of the append-only response log.
func (s *Session) Responses() []msg.Message {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]msg.Message, len(s.responseLog))
	copy(out, s.responseLog)
	return out
}

// ResponseCount returns the response log length.
func (s *Session) ResponseCount() int {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return len(s.responseLog)
}

// =============================================================================
// STOP
// =============================================================================

// Stop tears the session down.
//
// Description:
//
//	Idempotent. Closes the outbound queue, closes the transport,
//	disposes every provider state, and (via the engine hook) removes
//	the session from the registry and reaps the analyzer process.
//	Subsequent Send and inbound data are silent no-ops.
func (s *Session) Stop() {
	s.stop(nil)
}

// teardown is the failure path: the condition is surfaced to providers
// (only the visible one renders it) before disposal.
func (s *Session) teardown(cause error) {
	s.stop(cause)
}

func (s *Session) stop(cause error) {
	s.stopOnce.Do(func() {
		if cause != nil {
			for _, st := range s.attachedStates() {
				st.OnConnectionClosed()
			}
		}

		close(s.done)
		_ = s.conn.Close()

		if s.onStop != nil {
			s.onStop(s)
		}

		for _, st := range s.attachedStates() {
			st.Dispose()
		}

		sessionsActive.Dec()
		if cause != nil {
			s.logger.Warn("session stopped", slog.String("cause", cause.Error()))
		} else {
			s.logger.Info("session stopped")
		}
	})
}

// Wait blocks until the session's loops have exited. Test helper and
// shutdown aid; Stop does not wait.
func (s *Session) Wait() {
	s.wg.Wait()
}
