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
// STATISTIC
// =============================================================================

// StatisticState caches the latest per-artifact counters. Pure snapshot
// kind: each Statistic replaces the previous one.
type StatisticState struct {
	base

	cacheMu sync.Mutex
	stat    *msg.Statistic
}

// NewStatisticState builds the statistic provider.
func NewStatisticState(req Requester, logger *slog.Logger) Provider {
	return &StatisticState{base: newBase(msg.KindStatistic, req, logger)}
}

// Kinds implements Provider.
func (s *StatisticState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindStatistic}
}

// OnMessage implements Provider.
func (s *StatisticState) OnMessage(m msg.Message) error {
	v, ok := m.(msg.Statistic)
	if !ok {
		return nil
	}
	s.cacheMu.Lock()
	s.stat = &v
	s.cacheMu.Unlock()
	s.redraw()
	return nil
}

// Actual implements Provider.
func (s *StatisticState) Actual(r msg.Request) bool {
	if _, ok := r.(msg.StatisticRequest); !ok {
		return false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.stat != nil
}

// Statistic returns the cached counters, nil when none arrived yet.
func (s *StatisticState) Statistic() *msg.Statistic {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.stat
}

// Dispose implements Provider.
func (s *StatisticState) Dispose() {
	s.cacheMu.Lock()
	s.stat = nil
	s.cacheMu.Unlock()
	s.dispose()
}

// =============================================================================
// FILE LIST
// =============================================================================

// FileListState caches the analyzer's file list. Pure snapshot kind.
type FileListState struct {
	base

	cacheMu sync.Mutex
	files   *msg.FileList
}

// NewFileListState builds the file list provider.
func NewFileListState(req Requester, logger *slog.Logger) Provider {
	return &FileListState{base: newBase(msg.KindFileList, req, logger)}
}

// Kinds implements Provider.
func (s *FileListState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindFileList}
}

// OnMessage implements Provider.
func (s *FileListState) OnMessage(m msg.Message) error {
	v, ok := m.(msg.FileList)
	if !ok {
		return nil
	}
	s.cacheMu.Lock()
	s.files = &v
	s.cacheMu.Unlock()
	s.redraw()
	return nil
}

// Actual implements Provider.
func (s *FileListState) Actual(r msg.Request) bool {
	if _, ok := r.(msg.FileListRequest); !ok {
		return false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.files != nil
}

// Files returns the cached list, nil when none arrived yet.
func (s *FileListState) Files() *msg.FileList {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.files
}

// Dispose implements Provider.
func (s *FileListState) Dispose() {
	s.cacheMu.Lock()
	s.files = nil
	s.cacheMu.Unlock()
	s.dispose()
}

// =============================================================================
// MAIN (DIAGNOSTICS + COMMAND LINE)
// =============================================================================

// MainState is the session's primary surface: it consumes diagnostics and
// the analyzer command line. Diagnostics are data, not exceptions; error
// and invalid statuses arrive here through the normal dispatch path.
type MainState struct {
	base

	cacheMu sync.Mutex
	last    *msg.Diagnostic
	cmdline *msg.CommandLine
}

// NewMainState builds the main provider.
func NewMainState(req Requester, logger *slog.Logger) Provider {
	return &MainState{base: newBase(msg.KindDiagnostic, req, logger)}
}

// Kinds implements Provider.
func (s *MainState) Kinds() []msg.Kind {
	return []msg.Kind{msg.KindDiagnostic, msg.KindCommandLine}
}

// OnMessage implements Provider.
func (s *MainState) OnMessage(m msg.Message) error {
	switch v := m.(type) {
	case msg.Diagnostic:
		s.cacheMu.Lock()
		s.last = &v
		s.cacheMu.Unlock()
		if v.Status != msg.StatusSuccess {
			s.logger.Warn("analyzer diagnostic",
				slog.String("status", string(v.Status)),
				slog.Int("errors", len(v.Error)),
				slog.Int("warnings", len(v.Warning)),
			)
		}
	case msg.CommandLine:
		s.cacheMu.Lock()
		s.cmdline = &v
		s.cacheMu.Unlock()
	default:
		return nil
	}
	s.redraw()
	return nil
}

// Actual implements Provider. A command line fetch is redundant while one
// is cached; diagnostics are never requested.
func (s *MainState) Actual(r msg.Request) bool {
	req, ok := r.(msg.CommandLineRequest)
	if !ok {
		return false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	// An update request always goes out; only a pure fetch can be cached.
	fetch := len(req.Args) == 0 && req.Query == "" &&
		req.Input == "" && req.Output == "" && req.Error == ""
	return fetch && s.cmdline != nil
}

// LastDiagnostic returns the most recent diagnostic, nil when none.
func (s *MainState) LastDiagnostic() *msg.Diagnostic {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.last
}

// CommandLine returns the cached command line, nil when none.
func (s *MainState) CommandLine() *msg.CommandLine {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cmdline
}

// Dispose implements Provider.
func (s *MainState) Dispose() {
	s.cacheMu.Lock()
	s.last = nil
	s.cmdline = nil
	s.cacheMu.Unlock()
	s.dispose()
}
