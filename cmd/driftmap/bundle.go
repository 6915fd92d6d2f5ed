// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/DriftMapHQ/driftmap/pkg/validation"
	"github.com/DriftMapHQ/driftmap/services/depgraph/blast"
	"github.com/DriftMapHQ/driftmap/services/depgraph/graph"
	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
	"github.com/DriftMapHQ/driftmap/services/depgraph/rollup"
	"github.com/DriftMapHQ/driftmap/services/depgraph/scoring"
)

// maxBundleSize bounds scan bundle reads. Large estates produce big
// bundles but anything beyond this is almost certainly a mistake.
const maxBundleSize = 512 * 1024 * 1024

// ScanBundle is the JSON hand-off from the DriftMap parsers.
type ScanBundle struct {
	// ExecutionID identifies the scan. Generated when absent.
	ExecutionID string `json:"execution_id"`

	// Repos maps repository ids to display names.
	Repos map[string]string `json:"repos,omitempty"`

	// Nodes and Edges are the parsed graph.
	Nodes []model.Node `json:"nodes"`
	Edges []model.Edge `json:"edges"`

	// Evidence maps edge ids to the evidence supporting them.
	Evidence map[string][]model.Evidence `json:"evidence,omitempty"`

	// MergedNodes carries cross-repository identity merges for rollup
	// bundles.
	MergedNodes []model.MergedNode `json:"merged_nodes,omitempty"`
}

// LoadBundle reads and decodes a scan bundle.
func LoadBundle(path string) (*ScanBundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat bundle %s: %w", path, err)
	}
	if info.Size() > maxBundleSize {
		return nil, fmt.Errorf("bundle %s exceeds %d bytes", path, maxBundleSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %s: %w", path, err)
	}
	var b ScanBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing bundle %s: %w", path, err)
	}
	if b.ExecutionID == "" {
		b.ExecutionID = uuid.NewString()
	}
	if err := validation.ValidateID(b.ExecutionID); err != nil {
		return nil, fmt.Errorf("bundle %s: execution id: %w", path, err)
	}
	return &b, nil
}

// session holds the engines assembled for one command invocation.
type session struct {
	bundle      *ScanBundle
	tenantID    string
	executionID string
	graphs      *graph.Engine
	blaster     *blast.Engine
	scorer      *scoring.Engine
}

// buildSession loads the bundle, scores unscored edges from evidence,
// applies cross-repository rollup when merged nodes are present, and
// registers the graph with both engines.
func buildSession(ctx context.Context) (*session, error) {
	path, err := resolveBundlePath()
	if err != nil {
		return nil, err
	}
	b, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}

	scorer, err := buildScorer()
	if err != nil {
		return nil, err
	}
	scoreEdges(scorer, b)

	nodes, edges := b.Nodes, b.Edges
	if len(b.MergedNodes) > 0 {
		idx, err := rollup.NewMergeIndex(b.MergedNodes)
		if err != nil {
			return nil, fmt.Errorf("building merge index: %w", err)
		}
		nodes, edges = rollup.Unify(idx, nodes, edges)
		slog.Debug("applied rollup", "merged_identities", idx.Len())
	}

	registry := graph.NewRegistry()
	g, err := graph.Assemble(b.ExecutionID, nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("assembling graph: %w", err)
	}
	registry.Register(config.TenantID, g)

	blaster := blast.NewEngine()
	if err := blaster.RegisterGraph(ctx, config.TenantID, b.ExecutionID, nodes, edges, b.Repos); err != nil {
		return nil, err
	}

	slog.Info("loaded scan bundle",
		"execution_id", b.ExecutionID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())

	return &session{
		bundle:      b,
		tenantID:    config.TenantID,
		executionID: b.ExecutionID,
		graphs:      graph.NewEngine(registry),
		blaster:     blaster,
		scorer:      scorer,
	}, nil
}

// buildScorer returns a scoring engine using the configured rules file
// or the embedded defaults.
func buildScorer() (*scoring.Engine, error) {
	if config.ScoringConfig == "" {
		return scoring.NewEngine(scoring.DefaultConfig()), nil
	}
	cfg, err := scoring.LoadConfig(config.ScoringConfig)
	if err != nil {
		return nil, fmt.Errorf("loading scoring config: %w", err)
	}
	return scoring.NewEngine(cfg), nil
}

// scoreEdges fills in confidence for edges that arrived unscored but
// carry evidence. Edges with neither keep their parser confidence.
func scoreEdges(scorer *scoring.Engine, b *ScanBundle) {
	scored := 0
	for i := range b.Edges {
		e := &b.Edges[i]
		if e.Confidence > 0 {
			continue
		}
		evidence, ok := b.Evidence[e.ID]
		if !ok || len(evidence) == 0 {
			continue
		}
		score := scorer.Calculate(evidence)
		e.Confidence = score.Value
		scored++
	}
	if scored > 0 {
		slog.Debug("scored edges from evidence", "count", scored)
	}
}
