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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// =============================================================================
// HANDSHAKE PHASES
// =============================================================================

// Phase is a step of the handshake state machine. No session is ever
// inserted into the registry in a phase other than Ready.
type Phase int

const (
	// PhaseSpawning means the process is being started.
	PhaseSpawning Phase = iota

	// PhaseWaitingForListen means the engine awaits the LISTENING signal.
	PhaseWaitingForListen

	// PhaseConnecting means the engine is dialing the data socket.
	PhaseConnecting

	// PhaseWaitingForAccept means the engine awaits the CONNECTED signal.
	PhaseWaitingForAccept

	// PhaseReady means both ends are joined; the session may register.
	PhaseReady

	// PhaseFailed means the handshake aborted; the process was killed.
	PhaseFailed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	names := []string{"spawning", "waiting_for_listen", "connecting", "waiting_for_accept", "ready", "failed"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// Control side-channel signals, one per line on the analyzer's stdout.
const (
	controlListening = "LISTENING"
	controlConnected = "CONNECTED"
	controlError     = "ERROR"
)

// controlEvent is one parsed side-channel line.
type controlEvent struct {
	signal string
	detail string
	err    error // read failure or process exit
}

// handshake drives the control side-channel until the data socket is
// connected and acknowledged.
//
// Description:
//
//	Spawning happened already; this runs WaitingForListen -> Connecting
//	-> WaitingForAccept -> Ready. Any unexpected control message, read
//	failure, process exit, timeout, or context cancellation fails the
//	handshake; the caller kills the process.
//
// Outputs:
//
//	net.Conn - The connected data transport, nil on failure.
//	error - Wrapped ErrHandshakeFailed on any pre-Ready fault.
func handshake(ctx context.Context, p *analyzerProc, timeout time.Duration, logger *slog.Logger) (net.Conn, error) {
	events := make(chan controlEvent, 8)
	go readControl(p, events)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	phase := PhaseWaitingForListen
	var conn net.Conn

	fail := func(format string, args ...interface{}) (net.Conn, error) {
		go drainEvents(events)
		if conn != nil {
			_ = conn.Close()
		}
		logger.Warn("handshake failed",
			slog.String("phase", phase.String()),
			slog.String("reason", fmt.Sprintf(format, args...)),
		)
		return nil, fmt.Errorf("%w: %s: %s", ErrHandshakeFailed, phase, fmt.Sprintf(format, args...))
	}

	for {
		select {
		case <-ctx.Done():
			return fail("cancelled: %v", ctx.Err())
		case <-deadline.C:
			return fail("timeout after %s", timeout)
		case ev := <-events:
			if ev.err != nil {
				return fail("control channel: %v", ev.err)
			}
			switch {
			case ev.signal == controlError:
				return fail("analyzer error: %s", ev.detail)

			case ev.signal == controlListening && phase == PhaseWaitingForListen:
				phase = PhaseConnecting
				var err error
				conn, err = net.Dial("unix", p.socketPath)
				if err != nil {
					return fail("dial %s: %v", p.socketPath, err)
				}
				phase = PhaseWaitingForAccept

			case ev.signal == controlConnected && phase == PhaseWaitingForAccept:
				phase = PhaseReady
				logger.Info("handshake complete", slog.String("socket", p.socketPath))
				go drainEvents(events)
				return conn, nil

			default:
				return fail("unexpected control message %q", ev.signal)
			}
		}
	}
}

// drainEvents consumes control events once the handshake no longer needs
// them, so readControl's tee into the stdout file keeps flowing for the
// process's whole life. Returns on readControl's terminal error event.
func drainEvents(events <-chan controlEvent) {
	for ev := range events {
		if ev.err != nil {
			return
		}
	}
}

// readControl parses side-channel lines, teeing them into the redirected
// stdout file. Ends with a read error or EOF (process exit).
func readControl(p *analyzerProc, events chan<- controlEvent) {
	scanner := bufio.NewScanner(p.control)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if p.stdout != nil {
			fmt.Fprintln(p.stdout, line)
		}
		if line == "" {
			continue
		}
		signal, detail, _ := strings.Cut(line, " ")
		events <- controlEvent{signal: signal, detail: detail}
	}
	err := scanner.Err()
	if err == nil {
		err = fmt.Errorf("process closed control channel")
	}
	events <- controlEvent{err: err}
}
