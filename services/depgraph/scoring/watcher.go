// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RuleWatcher hot-reloads a scoring rules file into an engine.
//
// # Description
//
// Watches the directory containing the config file (editors typically
// replace files via rename, which drops a direct file watch) and reloads
// after a debounce window. A reload that fails to parse or validate keeps
// the previous rule set and logs the error; the engine never observes a
// partial rule set.
//
// # Thread Safety
//
// Safe for concurrent use.
type RuleWatcher struct {
	path     string
	engine   *Engine
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// RuleWatcherOptions configures the RuleWatcher.
type RuleWatcherOptions struct {
	// DebounceWindow is how long to wait for further writes before
	// reloading. Default: 250ms.
	DebounceWindow time.Duration

	// Logger receives reload outcomes. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultRuleWatcherOptions returns sensible defaults.
func DefaultRuleWatcherOptions() RuleWatcherOptions {
	return RuleWatcherOptions{
		DebounceWindow: 250 * time.Millisecond,
		Logger:         slog.Default(),
	}
}

// NewRuleWatcher creates a watcher that reloads path into engine.
func NewRuleWatcher(path string, engine *Engine, opts *RuleWatcherOptions) (*RuleWatcher, error) {
	if opts == nil {
		defaults := DefaultRuleWatcherOptions()
		opts = &defaults
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &RuleWatcher{
		path:     filepath.Clean(path),
		engine:   engine,
		watcher:  watcher,
		debounce: opts.DebounceWindow,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The initial file content is loaded immediately;
// an unreadable initial file is an error, later failures only log.
func (w *RuleWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	cfg, err := LoadConfig(w.path)
	if err != nil {
		return err
	}
	w.engine.SetRules(cfg.Rules)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Idempotent.
func (w *RuleWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *RuleWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// loop debounces fsnotify events and reloads the rule set.
func (w *RuleWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rule watcher error", "path", w.path, "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

// reload loads the file and swaps the engine rules on success.
func (w *RuleWatcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("rule reload failed, keeping previous rules",
			"path", w.path, "error", err)
		return
	}
	w.engine.SetRules(cfg.Rules)
	w.logger.Info("scoring rules reloaded",
		"path", w.path, "rules", len(cfg.Rules))
}
