// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for DriftMap components.
//
// The design is layered for both CLI usage and long-lived deployments:
//
//   - Default: stderr output for CLI compatibility (Unix conventions)
//   - Optional: JSON file logging with automatic directory creation
//
// # Basic Usage
//
// For simple CLI usage with stderr output:
//
//	logger := logging.Default()
//	logger.Info("bundle loaded", "execution_id", executionID)
//
// # File Logging
//
// To enable file logging alongside stderr:
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.driftmap/logs",
//	    Service: "driftmap",
//	})
//	defer logger.Close()
//
// This creates log files named {service}_{date}.log in JSON format.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must ensure tokens and secrets are not logged.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operations (state changes, query timing).
	LevelInfo

	// LevelWarn is for recoverable issues (reload failures, degraded mode).
	LevelWarn

	// LevelError is for operation failures the process survives.
	LevelError
)

// slogLevel maps our Level to the slog equivalent.
func (l Level) slogLevel() slog.Level {
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

// ParseLevel converts a config string to a Level. Unknown strings map
// to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level

	// LogDir enables JSON file logging when non-empty. Supports a
	// leading ~ for the home directory. Created if missing.
	LogDir string

	// Service names the log file ({service}_{date}.log). Default: "driftmap".
	Service string
}

// Logger wraps slog with optional file output.
//
// # Thread Safety
//
//	Safe for concurrent use. Close is idempotent.
type Logger struct {
	*slog.Logger

	mu        sync.Mutex
	file      *os.File
	closeOnce sync.Once
}

// Default returns a stderr-only logger at Info level.
func Default() *Logger {
	logger, _ := New(Config{Level: LevelInfo})
	return logger
}

// New builds a logger from config.
//
// Description:
//
//	Always writes human-readable text to stderr. When LogDir is set, a
//	JSON file handler is added alongside it; file open failures degrade
//	to stderr-only rather than failing the caller outright, but the
//	error is returned so the caller can decide to surface it.
func New(cfg Config) (*Logger, error) {
	if cfg.Service == "" {
		cfg.Service = "driftmap"
	}
	level := cfg.Level.slogLevel()

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	logger := &Logger{}
	var openErr error
	if cfg.LogDir != "" {
		file, err := openLogFile(cfg.LogDir, cfg.Service)
		if err != nil {
			openErr = err
		} else {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		}
	}

	if len(handlers) == 1 {
		logger.Logger = slog.New(handlers[0])
	} else {
		logger.Logger = slog.New(&multiHandler{handlers: handlers})
	}
	return logger, openErr
}

// Close flushes and closes the log file, if any. Idempotent.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
			l.file = nil
		}
	})
	return err
}

// openLogFile creates the log directory and opens today's log file in
// append mode.
func openLogFile(dir, service string) (*os.File, error) {
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expanding log dir %q: %w", dir, err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %q: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, nil
}

// multiHandler fans a record out to every handler. A record is emitted
// when any handler is enabled for its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multi handler: %v", errs)
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
