// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// testNode builds a terraform resource node at main.tf:line.
func testNode(id string, line int) model.Node {
	return model.Node{
		ID:   id,
		Type: model.NodeTypeTerraformResource,
		Name: id,
		Location: model.SourceLocation{
			FilePath:  "main.tf",
			StartLine: line,
		},
	}
}

// testEdge builds a depends_on edge with confidence 90.
func testEdge(from, to string) model.Edge {
	return model.Edge{
		ID:         fmt.Sprintf("%s->%s", from, to),
		FromID:     from,
		ToID:       to,
		Type:       model.EdgeTypeDependsOn,
		Confidence: 90,
	}
}

// mustAssemble assembles a graph and fails the test on error.
func mustAssemble(t *testing.T, nodes []model.Node, edges []model.Edge) *Graph {
	t.Helper()
	g, err := Assemble("exec-1", nodes, edges)
	require.NoError(t, err)
	return g
}

// chainGraph builds a -> b -> c -> d.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	return mustAssemble(t,
		[]model.Node{testNode("a", 1), testNode("b", 2), testNode("c", 3), testNode("d", 4)},
		[]model.Edge{testEdge("a", "b"), testEdge("b", "c"), testEdge("c", "d")},
	)
}

// diamondGraph builds a -> {b, c} -> d.
func diamondGraph(t *testing.T) *Graph {
	t.Helper()
	return mustAssemble(t,
		[]model.Node{testNode("a", 1), testNode("b", 2), testNode("c", 3), testNode("d", 4)},
		[]model.Edge{
			testEdge("a", "b"),
			testEdge("a", "c"),
			testEdge("b", "d"),
			testEdge("c", "d"),
		},
	)
}

// =============================================================================
// Assembly Tests
// =============================================================================

func TestAssembleBuildsAdjacency(t *testing.T) {
	g := diamondGraph(t)

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())

	a, ok := g.GetNode("a")
	require.True(t, ok)
	assert.Len(t, a.Outgoing, 2)
	assert.Empty(t, a.Incoming)

	d, ok := g.GetNode("d")
	require.True(t, ok)
	assert.Empty(t, d.Outgoing)
	assert.Len(t, d.Incoming, 2)

	e, ok := g.GetEdge("a->b")
	require.True(t, ok)
	assert.Equal(t, "a", e.FromID)
	assert.Equal(t, "b", e.ToID)
	assert.Equal(t, 90, e.Confidence())
}

func TestAssembleRequiresExecutionID(t *testing.T) {
	_, err := Assemble("", []model.Node{testNode("a", 1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestAssembleRejectsDuplicateNodeID(t *testing.T) {
	_, err := Assemble("exec-1",
		[]model.Node{testNode("a", 1), testNode("a", 2)}, nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestAssembleRejectsEmptyNodeID(t *testing.T) {
	n := testNode("", 1)
	n.Name = "anonymous"
	_, err := Assemble("exec-1", []model.Node{n}, nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)
	assert.Contains(t, err.Error(), "anonymous")
}

func TestAssembleRejectsDanglingEdge(t *testing.T) {
	nodes := []model.Node{testNode("a", 1)}

	_, err := Assemble("exec-1", nodes, []model.Edge{testEdge("a", "ghost")})
	assert.ErrorIs(t, err, ErrDanglingEdge)

	_, err = Assemble("exec-1", nodes, []model.Edge{testEdge("ghost", "a")})
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestAssembleEnforcesCapacityLimits(t *testing.T) {
	nodes := []model.Node{testNode("a", 1), testNode("b", 2)}
	edges := []model.Edge{testEdge("a", "b")}

	_, err := Assemble("exec-1", nodes, edges, WithMaxNodes(1))
	assert.ErrorIs(t, err, ErrMaxNodesExceeded)

	nodes = append(nodes, testNode("c", 3))
	edges = append(edges, testEdge("b", "c"))
	_, err = Assemble("exec-1", nodes, edges, WithMaxEdges(1))
	assert.ErrorIs(t, err, ErrMaxEdgesExceeded)
}

func TestAssembleClampsConfidence(t *testing.T) {
	over := testEdge("a", "b")
	over.Confidence = 250
	under := testEdge("b", "a")
	under.Confidence = -10

	g := mustAssemble(t,
		[]model.Node{testNode("a", 1), testNode("b", 2)},
		[]model.Edge{over, under},
	)

	e, ok := g.GetEdge("a->b")
	require.True(t, ok)
	assert.Equal(t, 100, e.Confidence())

	e, ok = g.GetEdge("b->a")
	require.True(t, ok)
	assert.Equal(t, 0, e.Confidence())
}

func TestAssembleSynthesizesMissingEdgeID(t *testing.T) {
	e := testEdge("a", "b")
	e.ID = ""

	g := mustAssemble(t,
		[]model.Node{testNode("a", 1), testNode("b", 2)},
		[]model.Edge{e},
	)

	edge, ok := g.GetEdge("a->b#0")
	require.True(t, ok)
	assert.Equal(t, "a", edge.FromID)
}

func TestNodesOrderedByLocation(t *testing.T) {
	n1 := testNode("z-last", 5)
	n2 := testNode("a-first", 1)
	n3 := model.Node{
		ID:       "other-file",
		Type:     model.NodeTypeTerraformModule,
		Name:     "other-file",
		Location: model.SourceLocation{FilePath: "modules/vpc.tf", StartLine: 1},
	}

	g := mustAssemble(t, []model.Node{n1, n2, n3}, nil)

	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "a-first", nodes[0].ID)
	assert.Equal(t, "z-last", nodes[1].ID)
	assert.Equal(t, "other-file", nodes[2].ID)
}

func TestUpdateEdgeConfidence(t *testing.T) {
	g := chainGraph(t)

	require.NoError(t, g.UpdateEdgeConfidence("a->b", 42))
	e, ok := g.GetEdge("a->b")
	require.True(t, ok)
	assert.Equal(t, 42, e.Confidence())

	// Stored values are clamped like assembly-time confidences.
	require.NoError(t, g.UpdateEdgeConfidence("a->b", 500))
	assert.Equal(t, 100, e.Confidence())

	err := g.UpdateEdgeConfidence("missing", 50)
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}
