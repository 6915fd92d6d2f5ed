// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriftMapHQ/driftmap/pkg/validation"
	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
	"github.com/DriftMapHQ/driftmap/services/depgraph/scoring"
)

// writeBundle writes a bundle JSON document to a temp file.
func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalBundle = `{
  "execution_id": "exec-test-1",
  "repos": {"repo-1": "platform-core"},
  "nodes": [
    {"id": "a", "original_id": "aws_vpc.main", "type": "terraform_resource", "name": "main",
     "repo_id": "repo-1", "location": {"file_path": "vpc.tf", "start_line": 1}},
    {"id": "b", "original_id": "aws_subnet.web", "type": "terraform_resource", "name": "web",
     "repo_id": "repo-1", "location": {"file_path": "vpc.tf", "start_line": 12}}
  ],
  "edges": [
    {"id": "b->a", "from_id": "b", "to_id": "a", "type": "resource_ref", "confidence": 85}
  ]
}`

func TestLoadBundle(t *testing.T) {
	path := writeBundle(t, minimalBundle)

	b, err := LoadBundle(path)
	require.NoError(t, err)

	assert.Equal(t, "exec-test-1", b.ExecutionID)
	assert.Equal(t, "platform-core", b.Repos["repo-1"])
	require.Len(t, b.Nodes, 2)
	assert.Equal(t, model.NodeTypeTerraformResource, b.Nodes[0].Type)
	require.Len(t, b.Edges, 1)
	assert.Equal(t, model.EdgeTypeResourceRef, b.Edges[0].Type)
	assert.Equal(t, 85, b.Edges[0].Confidence)
}

func TestLoadBundleGeneratesExecutionID(t *testing.T) {
	path := writeBundle(t, `{"nodes": [], "edges": []}`)

	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ExecutionID)
	assert.NoError(t, validation.ValidateID(b.ExecutionID))
}

func TestLoadBundleErrors(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	_, err = LoadBundle(writeBundle(t, `{not json`))
	assert.Error(t, err)

	_, err = LoadBundle(writeBundle(t, `{"execution_id": "bad id with spaces"}`))
	assert.Error(t, err)
}

func TestScoreEdgesFillsUnscored(t *testing.T) {
	scorer := scoring.NewEngine(scoring.DefaultConfig())
	b := &ScanBundle{
		Edges: []model.Edge{
			{ID: "scored", FromID: "a", ToID: "b", Type: model.EdgeTypeDependsOn, Confidence: 85},
			{ID: "unscored", FromID: "b", ToID: "c", Type: model.EdgeTypeAttributeRef},
			{ID: "no-evidence", FromID: "c", ToID: "d", Type: model.EdgeTypeAttributeRef},
		},
		Evidence: map[string][]model.Evidence{
			"scored": {
				{Type: model.EvidenceTypeDependsOnDecl, Category: model.EvidenceCategoryExplicit, Confidence: 95},
			},
			"unscored": {
				{Type: model.EvidenceTypeAttributeRef, Category: model.EvidenceCategorySemantic, Confidence: 80},
			},
		},
	}

	scoreEdges(scorer, b)

	// Parser-scored edges keep their confidence.
	assert.Equal(t, 85, b.Edges[0].Confidence)
	// Unscored edges with evidence are filled in.
	assert.Greater(t, b.Edges[1].Confidence, 0)
	// No evidence means nothing to score from.
	assert.Equal(t, 0, b.Edges[2].Confidence)
}

func TestLoadCLIConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tenant_id: Acme-Prod
bundle: /data/scan.json
log_level: debug
telemetry:
  enabled: true
  environment: staging
`), 0o644))

	cfg, err := LoadCLIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-prod", cfg.TenantID)
	assert.Equal(t, "/data/scan.json", cfg.Bundle)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "staging", cfg.Telemetry.Environment)
}

func TestLoadCLIConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.TenantID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadCLIConfigRejectsBadTenant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tenant_id: bad_tenant!\n"), 0o644))

	_, err := LoadCLIConfig(path)
	assert.Error(t, err)
}

func TestLevelCeiling(t *testing.T) {
	tests := []struct {
		level model.ConfidenceLevel
		want  int
	}{
		{model.ConfidenceLevelCertain, 100},
		{model.ConfidenceLevelHigh, 94},
		{model.ConfidenceLevelMedium, 79},
		{model.ConfidenceLevelLow, 59},
		{model.ConfidenceLevelUncertain, 39},
		{model.ConfidenceLevel("bogus"), -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levelCeiling(tt.level), "level %s", tt.level)
	}
}
