// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DriftMapHQ/driftmap/services/depgraph/scoring"
	"github.com/DriftMapHQ/driftmap/services/depgraph/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var serveAddr string

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a long-lived analysis process",
	Long: `Load the scan bundle and stay resident, exposing /metrics and
/healthz. When scoring_config points at a rules file, edits to it are
hot-reloaded without a restart.

Examples:
  driftmap serve --bundle scan.json --addr :9102`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9102",
		"Listen address for the metrics endpoint")

	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildSession(ctx)
	if err != nil {
		fail("loading scan bundle", err)
	}

	if config.ScoringConfig != "" {
		watcher, err := scoring.NewRuleWatcher(config.ScoringConfig, s.scorer, nil)
		if err != nil {
			fail("creating rule watcher", err)
		}
		if err := watcher.Start(ctx); err != nil {
			fail("starting rule watcher", err)
		}
		defer watcher.Stop()
		slog.Info("watching scoring rules", "path", config.ScoringConfig)
	}

	mux := http.NewServeMux()
	if handler := telemetry.MetricsHandler(); handler != nil {
		mux.Handle("/metrics", handler)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok execution=%s\n", s.executionID)
	})

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("serving", "addr", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown", "error", err)
	}
	slog.Info("stopped")
}
