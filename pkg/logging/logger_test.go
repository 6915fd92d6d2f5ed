// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"  error  ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelSlogMapping(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.slogLevel(); got != tt.want {
			t.Errorf("slogLevel(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	if logger == nil || logger.Logger == nil {
		t.Fatal("Default() returned nil logger")
	}
	defer logger.Close()

	// stderr-only logger must still log without panicking
	logger.Info("default logger works")
}

func TestNewWithFileLogging(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: LevelDebug, LogDir: dir, Service: "testsvc"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.Info("file target test", "key", "value", "count", 3)

	name := fmt.Sprintf("testsvc_%s.log", time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		t.Fatal("log file is empty")
	}
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "file target test" {
		t.Errorf("msg = %v, want %q", entry["msg"], "file target test")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestNewDefaultsServiceName(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{LogDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()
	logger.Info("named by default")

	matches, err := filepath.Glob(filepath.Join(dir, "driftmap_*.log"))
	if err != nil || len(matches) != 1 {
		t.Errorf("expected one driftmap_*.log file, got %v (err %v)", matches, err)
	}
}

func TestNewCreatesLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := New(Config{LogDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

func TestNewDegradesOnUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	parent := t.TempDir()
	if err := os.Chmod(parent, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(parent, 0o755)

	logger, err := New(Config{LogDir: filepath.Join(parent, "denied")})
	if err == nil {
		t.Error("expected error for unwritable log dir")
	}
	if logger == nil || logger.Logger == nil {
		t.Fatal("logger must degrade to stderr-only, not nil")
	}
	defer logger.Close()

	// Degraded logger still works.
	logger.Warn("degraded to stderr")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: LevelWarn, LogDir: dir, Service: "filter"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.Debug("below-threshold-debug")
	logger.Info("below-threshold-info")
	logger.Warn("kept")

	name := fmt.Sprintf("filter_%s.log", time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "below-threshold") {
		t.Errorf("below-level records written: %s", content)
	}
	if !strings.Contains(content, "kept") {
		t.Errorf("warn record missing: %s", content)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger, err := New(Config{LogDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMultiHandlerWithAttrsAndGroups(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{LogDir: dir, Service: "attrs"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	scoped := logger.With("component", "blast").WithGroup("query")
	scoped.Info("scoped entry", "depth", 5)

	name := fmt.Sprintf("attrs_%s.log", time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.SplitN(string(data), "\n", 2)[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "blast" {
		t.Errorf("component = %v, want %q", entry["component"], "blast")
	}
	group, ok := entry["query"].(map[string]any)
	if !ok {
		t.Fatalf("query group missing: %v", entry)
	}
	if group["depth"] != float64(5) {
		t.Errorf("query.depth = %v, want 5", group["depth"])
	}
}

func TestMultiHandlerEnabled(t *testing.T) {
	m := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}

	if !m.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled should be true when any handler accepts the level")
	}
}
