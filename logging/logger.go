// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides the structured logging context for TraitScope.
//
// Built on slog. A Logger is constructed once at startup and handed to
// every component that writes diagnostics; there is no process-wide
// mutable logging state beyond slog's own default, which this package
// never touches. Default output is stderr (text when stderr is a
// terminal, JSON otherwise); file logging is optional and always JSON.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
)

// =============================================================================
// LEVELS
// =============================================================================

// Level is the minimum severity a logger emits.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for recoverable, unexpected situations.
	LevelWarn

	// LevelError is for failed operations the client survives.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown strings get Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// CONFIG
// =============================================================================

// Config configures a Logger. The zero value writes Info+ to stderr.
type Config struct {
	// Level is the minimum emitted severity.
	Level Level

	// LogDir enables file logging when set. The file is named
	// "{Service}_{YYYY-MM-DD}.log" and always JSON formatted.
	LogDir string

	// Service is attached to every entry as the "service" attribute.
	Service string

	// JSON forces JSON stderr output. Default: text on a terminal,
	// JSON otherwise.
	JSON *bool

	// Quiet disables stderr output entirely.
	Quiet bool
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger is the logging context handed to components.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New creates a logger from config.
//
// Outputs:
//
//	*Logger - Never nil; file-logging failures degrade to stderr only.
//	error - Non-nil when LogDir was set but unusable.
func New(cfg Config) (*Logger, error) {
	var handlers []slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlog()}

	if !cfg.Quiet {
		useJSON := !isatty.IsTerminal(os.Stderr.Fd())
		if cfg.JSON != nil {
			useJSON = *cfg.JSON
		}
		if useJSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	l := &Logger{}
	if cfg.LogDir != "" {
		dir, err := expandHome(cfg.LogDir)
		if err != nil {
			return fallback(cfg, handlers), err
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fallback(cfg, handlers), fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", serviceOr(cfg.Service), time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return fallback(cfg, handlers), fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
	}

	l.slog = build(cfg, handlers)
	return l, nil
}

// Default returns a stderr-only Info logger.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// build assembles the slog.Logger with the service attribute attached.
func build(cfg Config, handlers []slog.Handler) *slog.Logger {
	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.NewTextHandler(io.Discard, nil)
	case 1:
		h = handlers[0]
	default:
		h = multiHandler(handlers)
	}
	logger := slog.New(h)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger
}

// fallback degrades to the stderr handlers when file setup failed.
func fallback(cfg Config, handlers []slog.Handler) *Logger {
	return &Logger{slog: build(cfg, handlers)}
}

// Slog exposes the underlying slog.Logger for injection into components
// that take the standard type.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// With returns a child slog.Logger carrying extra attributes.
func (l *Logger) With(args ...any) *slog.Logger { return l.slog.With(args...) }

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// serviceOr defaults the file name stem.
func serviceOr(s string) string {
	if s == "" {
		return "traitscope"
	}
	return s
}

// expandHome resolves a leading ~ in a path.
func expandHome(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
