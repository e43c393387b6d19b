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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/AleutianAI/traitscope/config"
)

// analyzerProc is one spawned analyzer process with its redirected output.
type analyzerProc struct {
	cmd     *exec.Cmd
	control io.ReadCloser
	stdout  *os.File
	stderr  *os.File

	// socketPath is where the analyzer listens once it signals LISTENING.
	socketPath string

	// sessionLog is the analyzer-side log file passed on the command line.
	sessionLog string
}

// spawn starts the analyzer for an artifact.
//
// Description:
//
//	The process runs in the artifact's directory with the computed
//	compiler environment merged over the client's. Its stdout doubles as
//	the handshake control side-channel and is teed into the working
//	directory; stderr is redirected there outright. The process gets its
//	own group so kill reaps compiler children too.
func spawn(identity, dir string, cfg *config.Config, logger *slog.Logger) (*analyzerProc, error) {
	path, err := exec.LookPath(cfg.ServerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: analyzer not installed: %v", ErrHandshakeFailed, err)
	}

	p := &analyzerProc{
		socketPath: filepath.Join(dir, "analyzer.sock"),
		sessionLog: filepath.Join(dir, "session-"+uuid.NewString()+".log"),
	}
	// A stale socket from a crashed run would break bind.
	_ = os.Remove(p.socketPath)

	args := append([]string{}, cfg.ServerArgs...)
	args = append(args, "-socket", p.socketPath, "-log", p.sessionLog)

	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(identity)
	cmd.Env = buildEnv(cfg)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	p.stdout, err = os.Create(filepath.Join(dir, "analyzer.out"))
	if err != nil {
		return nil, fmt.Errorf("%w: redirect stdout: %v", ErrHandshakeFailed, err)
	}
	p.stderr, err = os.Create(filepath.Join(dir, "analyzer.err"))
	if err != nil {
		p.stdout.Close()
		return nil, fmt.Errorf("%w: redirect stderr: %v", ErrHandshakeFailed, err)
	}
	cmd.Stderr = p.stderr

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		p.closeFiles()
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrHandshakeFailed, err)
	}
	p.control = pipe
	p.cmd = cmd

	if err := cmd.Start(); err != nil {
		p.closeFiles()
		return nil, fmt.Errorf("%w: start process: %v", ErrHandshakeFailed, err)
	}

	logger.Info("analyzer spawned",
		slog.String("path", path),
		slog.Int("pid", cmd.Process.Pid),
		slog.String("socket", p.socketPath),
	)
	return p, nil
}

// kill terminates the analyzer's whole process group.
func (p *analyzerProc) kill() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	pgid, err := unix.Getpgid(p.cmd.Process.Pid)
	if err == nil && pgid > 0 {
		_ = unix.Kill(-pgid, unix.SIGKILL)
		return
	}
	_ = p.cmd.Process.Kill()
}

// closeFiles closes the redirected output files.
func (p *analyzerProc) closeFiles() {
	if p.stdout != nil {
		_ = p.stdout.Close()
	}
	if p.stderr != nil {
		_ = p.stderr.Close()
	}
}

// reap waits for process exit and releases the output files.
func (p *analyzerProc) reap() error {
	if p.cmd == nil {
		p.closeFiles()
		return nil
	}
	err := p.cmd.Wait()
	p.closeFiles()
	return err
}

// exitName renders a process exit for logging, naming the signal when the
// process died from one.
func exitName(err error) string {
	if err == nil {
		return "exit 0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return "signal " + unix.SignalName(ws.Signal())
		}
		return exitErr.String()
	}
	return err.Error()
}

// buildEnv merges the configured compiler environment over the client's.
func buildEnv(cfg *config.Config) []string {
	env := os.Environ()
	if len(cfg.Environment.IncludePaths) > 0 {
		joined := strings.Join(cfg.Environment.IncludePaths, string(os.PathListSeparator))
		env = append(env,
			"C_INCLUDE_PATH="+prependPathList(joined, os.Getenv("C_INCLUDE_PATH")),
			"CPLUS_INCLUDE_PATH="+prependPathList(joined, os.Getenv("CPLUS_INCLUDE_PATH")),
		)
	}
	for k, v := range cfg.Environment.Vars {
		env = append(env, k+"="+v)
	}
	return env
}

// prependPathList joins extra before existing, dropping an empty tail.
func prependPathList(extra, existing string) string {
	if existing == "" {
		return extra
	}
	return extra + string(os.PathListSeparator) + existing
}
