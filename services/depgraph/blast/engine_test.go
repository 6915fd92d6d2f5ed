// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// blastNode builds a terraform resource node in the given repository.
func blastNode(id, repoID string) model.Node {
	return model.Node{
		ID:     id,
		Type:   model.NodeTypeTerraformResource,
		Name:   id,
		RepoID: repoID,
		Location: model.SourceLocation{
			FilePath:  "main.tf",
			StartLine: 1,
		},
	}
}

// blastEdge builds an edge of the given type.
func blastEdge(from, to string, t model.EdgeType) model.Edge {
	return model.Edge{
		ID:         from + "->" + to,
		FromID:     from,
		ToID:       to,
		Type:       t,
		Confidence: 90,
	}
}

// newChainEngine registers a -> b -> c -> d (depends_on) under tenant-a.
func newChainEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	err := e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{
			blastNode("a", "repo-1"), blastNode("b", "repo-1"),
			blastNode("c", "repo-1"), blastNode("d", "repo-1"),
		},
		[]model.Edge{
			blastEdge("a", "b", model.EdgeTypeDependsOn),
			blastEdge("b", "c", model.EdgeTypeDependsOn),
			blastEdge("c", "d", model.EdgeTypeDependsOn),
		},
		map[string]string{"repo-1": "platform-core"},
	)
	require.NoError(t, err)
	return e
}

func defaultQuery(nodeIDs ...string) Query {
	return Query{
		NodeIDs:         nodeIDs,
		MaxDepth:        5,
		IncludeIndirect: true,
	}
}

// =============================================================================
// Analysis Tests
// =============================================================================

func TestAnalyzeChainDecay(t *testing.T) {
	e := newChainEngine(t)

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	// depends_on weight 10 decayed per hop: 10 + 7 + 4.9.
	assert.Equal(t, 21.9, result.ImpactScore)
	assert.Equal(t, 3, result.TotalImpacted)
	assert.Equal(t, []string{"a"}, result.SourceNodeIDs)
	assert.False(t, result.Truncated)

	require.Len(t, result.Direct, 1)
	assert.Equal(t, "b", result.Direct[0].Node.ID)
	assert.Equal(t, 10.0, result.Direct[0].Score)
	assert.Equal(t, 0, result.Direct[0].Depth)

	require.Len(t, result.Indirect, 2)
	assert.Equal(t, "c", result.Indirect[0].Node.ID)
	assert.Equal(t, 7.0, result.Indirect[0].Score)
	assert.Equal(t, []string{"a", "b", "c"}, result.Indirect[0].Path)
	assert.Equal(t, "d", result.Indirect[1].Node.ID)
	assert.Equal(t, 4.9, result.Indirect[1].Score)
	assert.Equal(t, []string{"a", "b", "c", "d"}, result.Indirect[1].Path)

	assert.Equal(t, RiskMedium, result.RiskLevel)
}

func TestAnalyzeFanOut(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", ""), blastNode("x", ""), blastNode("y", "")},
		[]model.Edge{
			blastEdge("a", "x", model.EdgeTypeDependsOn),
			blastEdge("a", "y", model.EdgeTypeDependsOn),
		}, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	assert.Equal(t, 20.0, result.ImpactScore)
	assert.Equal(t, 2, result.TotalImpacted)
	assert.Len(t, result.Direct, 2)
	assert.Empty(t, result.Indirect)
}

func TestAnalyzeConvergingPathsAccumulate(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{
			blastNode("a", ""), blastNode("b", ""),
			blastNode("c", ""), blastNode("d", ""),
		},
		[]model.Edge{
			blastEdge("a", "b", model.EdgeTypeDependsOn),
			blastEdge("a", "c", model.EdgeTypeDependsOn),
			blastEdge("b", "d", model.EdgeTypeDependsOn),
			blastEdge("c", "d", model.EdgeTypeDependsOn),
		}, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	// d is reached through b and through c; contributions add up.
	require.Len(t, result.Indirect, 1)
	assert.Equal(t, "d", result.Indirect[0].Node.ID)
	assert.Equal(t, 14.0, result.Indirect[0].Score)
	assert.Equal(t, 1, result.Indirect[0].Depth)
	assert.Equal(t, 34.0, result.ImpactScore)
}

func TestAnalyzeTerminatesOnCycle(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", ""), blastNode("b", "")},
		[]model.Edge{
			blastEdge("a", "b", model.EdgeTypeDependsOn),
			blastEdge("b", "a", model.EdgeTypeDependsOn),
		}, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	// The path a -> b -> a is cut; the source never scores itself.
	assert.Equal(t, 10.0, result.ImpactScore)
	assert.Equal(t, 1, result.TotalImpacted)
}

func TestAnalyzeDirectOnly(t *testing.T) {
	e := newChainEngine(t)

	q := defaultQuery("a")
	q.IncludeIndirect = false

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", q)
	require.NoError(t, err)

	assert.Equal(t, 10.0, result.ImpactScore)
	assert.Len(t, result.Direct, 1)
	assert.Empty(t, result.Indirect)
	assert.Equal(t, RiskLow, result.RiskLevel)
}

func TestAnalyzeEdgeTypeFilter(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", ""), blastNode("b", ""), blastNode("c", "")},
		[]model.Edge{
			blastEdge("a", "b", model.EdgeTypeDependsOn),
			blastEdge("a", "c", model.EdgeTypeModuleOutput),
		}, nil))

	q := defaultQuery("a")
	q.EdgeTypes = []model.EdgeType{model.EdgeTypeDependsOn}

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", q)
	require.NoError(t, err)

	require.Len(t, result.Direct, 1)
	assert.Equal(t, "b", result.Direct[0].Node.ID)
	assert.Equal(t, 1, result.TotalImpacted)
}

func TestAnalyzeMultiSource(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{
			blastNode("a", ""), blastNode("b", ""),
			blastNode("x", ""), blastNode("y", ""),
		},
		[]model.Edge{
			blastEdge("a", "x", model.EdgeTypeDependsOn),
			blastEdge("b", "y", model.EdgeTypeDependsOn),
		}, nil))

	// Duplicated and unordered sources normalize to the same analysis.
	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("b", "a", "b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, result.SourceNodeIDs)
	assert.Equal(t, 20.0, result.ImpactScore)
	assert.Equal(t, 2, result.TotalImpacted)
}

func TestAnalyzeCrossRepo(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", "repo-1"), blastNode("b", "repo-2")},
		[]model.Edge{blastEdge("a", "b", model.EdgeTypeRemoteState)},
		map[string]string{"repo-2": "networking"}))

	q := defaultQuery("a")
	q.IncludeCrossRepo = true

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", q)
	require.NoError(t, err)

	require.Len(t, result.CrossRepo, 1)
	assert.Equal(t, "b", result.CrossRepo[0].NodeID)
	assert.Equal(t, "repo-2", result.CrossRepo[0].RepoID)
	assert.Equal(t, "networking", result.CrossRepo[0].RepoName)
	assert.Equal(t, 8.0, result.CrossRepo[0].Score)

	// A single cross-repo impact already lifts the risk to medium.
	assert.Equal(t, RiskMedium, result.RiskLevel)
}

func TestAnalyzeCrossRepoCountWithoutList(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", "repo-1"), blastNode("b", "repo-2")},
		[]model.Edge{blastEdge("a", "b", model.EdgeTypeDependsOn)}, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	// The list is opt-in but the count still feeds risk classification.
	assert.Empty(t, result.CrossRepo)
	assert.Equal(t, RiskMedium, result.RiskLevel)
}

func TestAnalyzeDepthClamp(t *testing.T) {
	e := newChainEngine(t)

	q := defaultQuery("a")
	q.MaxDepth = 2

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", q)
	require.NoError(t, err)

	// Two hops reach b and c only.
	assert.Equal(t, 17.0, result.ImpactScore)
	assert.Equal(t, 2, result.TotalImpacted)
}

// =============================================================================
// Validation and Lifecycle Tests
// =============================================================================

func TestAnalyzeValidation(t *testing.T) {
	e := newChainEngine(t)
	ctx := context.Background()

	_, err := e.Analyze(ctx, "tenant-a", "", defaultQuery("a"))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Analyze(ctx, "tenant-a", "exec-1", Query{MaxDepth: 5, IncludeIndirect: true})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Analyze(ctx, "tenant-a", "exec-1", Query{NodeIDs: []string{"a"}})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	q := defaultQuery("a")
	q.EdgeTypes = []model.EdgeType{"made_up"}
	_, err = e.Analyze(ctx, "tenant-a", "exec-1", q)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestAnalyzeMissingSourceNodes(t *testing.T) {
	e := newChainEngine(t)

	_, err := e.Analyze(context.Background(), "tenant-a", "exec-1",
		defaultQuery("ghost-2", "a", "ghost-1"))
	require.ErrorIs(t, err, ErrNodesNotFound)

	var bre *BlastRadiusError
	require.ErrorAs(t, err, &bre)
	assert.Equal(t, []string{"ghost-1", "ghost-2"}, bre.NodeIDs)
	assert.Equal(t, CodeNotFound, bre.Code)
}

func TestAnalyzeUnknownExecution(t *testing.T) {
	e := NewEngine()

	_, err := e.Analyze(context.Background(), "tenant-a", "nope", defaultQuery("a"))
	assert.ErrorIs(t, err, ErrExecutionNotRegistered)
}

func TestAnalyzeTenantIsolation(t *testing.T) {
	e := newChainEngine(t)

	_, err := e.Analyze(context.Background(), "tenant-b", "exec-1", defaultQuery("a"))
	assert.ErrorIs(t, err, ErrExecutionNotRegistered)
}

func TestClearGraphData(t *testing.T) {
	e := newChainEngine(t)
	ctx := context.Background()

	_, err := e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	require.NoError(t, e.ClearGraphData(ctx, "tenant-a", "exec-1"))

	_, err = e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	assert.ErrorIs(t, err, ErrExecutionNotRegistered)

	// Cached results do not outlive the graph.
	_, ok := e.GetCached("tenant-a", "exec-1", []string{"a"})
	assert.False(t, ok)

	err = e.ClearGraphData(ctx, "tenant-a", "exec-1")
	assert.ErrorIs(t, err, ErrExecutionNotRegistered)
}

func TestRegisterGraphInvalidatesCache(t *testing.T) {
	e := newChainEngine(t)
	ctx := context.Background()

	first, err := e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalImpacted)

	// Re-register with the chain cut after b.
	require.NoError(t, e.RegisterGraph(ctx, "tenant-a", "exec-1",
		[]model.Node{blastNode("a", "repo-1"), blastNode("b", "repo-1")},
		[]model.Edge{blastEdge("a", "b", model.EdgeTypeDependsOn)}, nil))

	second, err := e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalImpacted)
}

func TestRegisterGraphRejectsInvalidInput(t *testing.T) {
	e := NewEngine()

	err := e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", "")},
		[]model.Edge{blastEdge("a", "ghost", model.EdgeTypeDependsOn)}, nil)
	require.Error(t, err)

	// Nothing is registered on failure.
	_, err = e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	assert.ErrorIs(t, err, ErrExecutionNotRegistered)
}

func TestAnalyzeCaches(t *testing.T) {
	e := newChainEngine(t)
	ctx := context.Background()

	first, err := e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)

	second, err := e.Analyze(ctx, "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Source order does not fragment the cache.
	cached, ok := e.GetCached("tenant-a", "exec-1", []string{"a"})
	require.True(t, ok)
	assert.Same(t, first, cached)
}

func TestCustomWeightsAndDecay(t *testing.T) {
	e := NewEngine(
		WithWeights(WeightTable{model.EdgeTypeDependsOn: 4}),
		WithDecayFactor(0.5),
	)
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1",
		[]model.Node{blastNode("a", ""), blastNode("b", ""), blastNode("c", "")},
		[]model.Edge{
			blastEdge("a", "b", model.EdgeTypeDependsOn),
			blastEdge("b", "c", model.EdgeTypeDependsOn),
		}, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("a"))
	require.NoError(t, err)
	assert.Equal(t, 6.0, result.ImpactScore) // 4 + 4*0.5
}

func TestMaxFrontierTruncation(t *testing.T) {
	nodes := []model.Node{blastNode("src", "")}
	var edges []model.Edge
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		nodes = append(nodes, blastNode(id, ""))
		edges = append(edges, blastEdge("src", id, model.EdgeTypeDependsOn))
	}

	e := NewEngine(WithMaxFrontier(3))
	require.NoError(t, e.RegisterGraph(context.Background(), "tenant-a", "exec-1", nodes, edges, nil))

	result, err := e.Analyze(context.Background(), "tenant-a", "exec-1", defaultQuery("src"))
	require.NoError(t, err)

	// Scoring still covers every direct edge; only deeper expansion is cut.
	assert.True(t, result.Truncated)
	assert.Equal(t, 10, result.TotalImpacted)
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		impacted  int
		crossRepo int
		want      RiskLevel
	}{
		{name: "critical_by_score", score: 120, impacted: 1, crossRepo: 0, want: RiskCritical},
		{name: "critical_by_count", score: 5, impacted: 60, crossRepo: 0, want: RiskCritical},
		{name: "critical_by_cross_repo", score: 5, impacted: 1, crossRepo: 12, want: RiskCritical},
		{name: "high_by_score", score: 55, impacted: 1, crossRepo: 0, want: RiskHigh},
		{name: "high_by_cross_repo", score: 5, impacted: 1, crossRepo: 5, want: RiskHigh},
		{name: "medium_by_score", score: 20, impacted: 1, crossRepo: 0, want: RiskMedium},
		{name: "medium_by_count", score: 5, impacted: 5, crossRepo: 0, want: RiskMedium},
		{name: "low", score: 5, impacted: 2, crossRepo: 0, want: RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRisk(tt.score, tt.impacted, tt.crossRepo))
		})
	}
}
