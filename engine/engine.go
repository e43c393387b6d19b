// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/traitscope/config"
	"github.com/AleutianAI/traitscope/msg"
	"github.com/AleutianAI/traitscope/provider"
	"github.com/AleutianAI/traitscope/session"
)

// Engine is the session registry and process supervisor.
//
// Description:
//
//	Holds the identity map (at most one live session per artifact
//	identity) and the renderer kind registrations every future session
//	snapshots. The identity map mutates at exactly two points: insert on
//	successful handshake, remove on stop.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Engine struct {
	cfg     *config.Config
	catalog *msg.Catalog
	logger  *slog.Logger

	regsMu  sync.Mutex
	regs    []session.Registration
	started bool

	sessionsMu sync.Mutex
	sessions   map[string]*session.Session
	procs      map[string]*analyzerProc
	watchers   map[string]*artifactWatcher
	closed     bool

	// sf collapses racing Start calls for one identity into one spawn.
	sf singleflight.Group

	// spawnFn launches one analyzer process. Swapped in tests.
	spawnFn func(identity, dir string, cfg *config.Config, logger *slog.Logger) (*analyzerProc, error)
}

// New creates an engine.
//
// Inputs:
//
//	cfg - Validated configuration.
//	logger - Logging context; nil falls back to slog.Default().
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		catalog:  msg.Default(),
		logger:   logger.With(slog.String("component", "engine")),
		sessions: make(map[string]*session.Session),
		procs:    make(map[string]*analyzerProc),
		watchers: make(map[string]*artifactWatcher),
		spawnFn:  spawn,
	}
}

// Register declares a renderer kind attachable to every future session.
//
// Description:
//
//	Must be called before any session starts: sessions snapshot the
//	registered kinds at creation, so late registrations would split the
//	world into sessions with different kind sets.
//
// Outputs:
//
//	error - ErrRegisterAfterStart or ErrKindRegistered.
func (e *Engine) Register(kind msg.Kind, factory provider.Factory) error {
	e.regsMu.Lock()
	defer e.regsMu.Unlock()
	if e.started {
		return fmt.Errorf("%w: %s", ErrRegisterAfterStart, kind)
	}
	for _, reg := range e.regs {
		if reg.Kind == kind {
			return fmt.Errorf("%w: %s", ErrKindRegistered, kind)
		}
	}
	e.regs = append(e.regs, session.Registration{Kind: kind, Factory: factory})
	return nil
}

// registrations snapshots the kind set and freezes registration.
func (e *Engine) registrations() []session.Registration {
	e.regsMu.Lock()
	defer e.regsMu.Unlock()
	e.started = true
	out := make([]session.Registration, len(e.regs))
	copy(out, e.regs)
	return out
}

// Lookup returns the live session for an artifact, nil when none.
func (e *Engine) Lookup(artifact string) *session.Session {
	identity, err := Identity(artifact)
	if err != nil {
		return nil
	}
	e.sessionsMu.Lock()
	defer e.sessionsMu.Unlock()
	return e.sessions[identity]
}

// Start spawns the analyzer for an artifact and registers the session.
//
// Description:
//
//	Precondition failures reject synchronously before any spawn. A live
//	session for the identity yields ErrAlreadyActive: the caller decides
//	between closing the existing session and focusing it, never the
//	engine. Racing Start calls for one identity are collapsed so exactly
//	one live session results; both callers receive it.
//
// Outputs:
//
//	*session.Session - Live session, inserted into the registry only
//	                   after the handshake reached Ready.
//	error - ErrInvalidArtifact, ErrAlreadyActive, ErrHandshakeFailed, or
//	        ErrEngineClosed.
func (e *Engine) Start(ctx context.Context, artifact string) (*session.Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	identity, err := Identity(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := checkArtifact(identity, e.cfg); err != nil {
		return nil, err
	}

	e.sessionsMu.Lock()
	if e.closed {
		e.sessionsMu.Unlock()
		return nil, ErrEngineClosed
	}
	if _, live := e.sessions[identity]; live {
		e.sessionsMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, identity)
	}
	e.sessionsMu.Unlock()

	v, err, _ := e.sf.Do(identity, func() (interface{}, error) {
		// Re-check under the flight: the winner may have registered
		// between the check above and this closure running.
		if s := e.liveSession(identity); s != nil {
			return s, nil
		}
		return e.startOne(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

// liveSession fetches a registered session.
func (e *Engine) liveSession(identity string) *session.Session {
	e.sessionsMu.Lock()
	defer e.sessionsMu.Unlock()
	return e.sessions[identity]
}

// startOne runs spawn + handshake + registration for one identity.
func (e *Engine) startOne(ctx context.Context, identity string) (*session.Session, error) {
	ctx, span := startSpan(ctx, "Engine.Start", identity)
	defer span.End()

	logger := e.logger.With(slog.String("artifact", identity))

	dir, err := workDir(identity, e.cfg)
	if err != nil {
		return nil, err
	}

	proc, err := e.spawnFn(identity, dir, e.cfg, logger)
	if err != nil {
		spawnFailuresTotal.Inc()
		return nil, err
	}
	spawnsTotal.Inc()

	conn, err := handshake(ctx, proc, e.cfg.StartupTimeout.Std(), logger)
	if err != nil {
		proc.kill()
		_ = proc.reap()
		return nil, err
	}

	sess := session.New(identity, conn, e.catalog, e.registrations(), e.logger, e.onSessionStop)

	watcher, werr := watchArtifact(identity, sess, logger)
	if werr != nil {
		// Watching is best effort; the session works without it.
		logger.Warn("artifact watch unavailable", slog.String("error", werr.Error()))
	}

	if err := e.register(identity, sess, proc, watcher); err != nil {
		return nil, err
	}

	go e.monitorExit(identity, sess, proc)

	logger.Info("session ready")
	return sess, nil
}

// register inserts one handshaken session into the identity map.
//
// Description:
//
//	The session's read loop is already running, so the analyzer may die
//	and self-stop before the insert happens. In that case onSessionStop
//	already ran against an empty map, so the insert is backed out here:
//	otherwise the dead session would hold the identity forever. The
//	same back-out covers an engine closed mid-start, where the process
//	and watcher were never handed to onSessionStop either.
func (e *Engine) register(identity string, sess *session.Session, proc *analyzerProc, watcher *artifactWatcher) error {
	e.sessionsMu.Lock()
	if e.closed {
		e.sessionsMu.Unlock()
		sess.Stop()
		if watcher != nil {
			watcher.close()
		}
		proc.kill()
		return ErrEngineClosed
	}
	e.sessions[identity] = sess
	e.procs[identity] = proc
	if watcher != nil {
		e.watchers[identity] = watcher
	}
	stopped := sess.Stopped()
	if stopped {
		delete(e.sessions, identity)
		delete(e.procs, identity)
		delete(e.watchers, identity)
	}
	e.sessionsMu.Unlock()

	if stopped {
		if watcher != nil {
			watcher.close()
		}
		proc.kill()
		return fmt.Errorf("%w: analyzer exited during startup", ErrHandshakeFailed)
	}
	return nil
}

// monitorExit logs unexpected analyzer exits. The session notices the
// loss itself through the closing socket; restarting is user-initiated
// only, so nothing is retried here.
func (e *Engine) monitorExit(identity string, sess *session.Session, proc *analyzerProc) {
	err := proc.reap()
	if sess.Stopped() {
		return
	}
	e.logger.Warn("analyzer exited unexpectedly",
		slog.String("artifact", identity),
		slog.String("exit", exitName(err)),
	)
}

// onSessionStop is the session teardown hook: the registry's only remove
// point, plus process reaping.
func (e *Engine) onSessionStop(s *session.Session) {
	identity := s.Identity()

	e.sessionsMu.Lock()
	delete(e.sessions, identity)
	proc := e.procs[identity]
	delete(e.procs, identity)
	watcher := e.watchers[identity]
	delete(e.watchers, identity)
	e.sessionsMu.Unlock()

	if watcher != nil {
		watcher.close()
	}
	if proc != nil {
		proc.kill()
	}
}

// Stop tears down the session for an artifact. No-op when none exists.
func (e *Engine) Stop(artifact string) {
	if s := e.Lookup(artifact); s != nil {
		s.Stop()
	}
}

// StopAll stops every live session and closes the engine.
func (e *Engine) StopAll() {
	e.sessionsMu.Lock()
	e.closed = true
	live := make([]*session.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		live = append(live, s)
	}
	e.sessionsMu.Unlock()

	for _, s := range live {
		s.Stop()
	}
}
