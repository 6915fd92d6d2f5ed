// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

func TestConnectedComponentsPartition(t *testing.T) {
	// Component 1: a -> b -> c. Component 2: x -> y. Singleton: lone.
	g := mustAssemble(t,
		[]model.Node{
			testNode("a", 1), testNode("b", 2), testNode("c", 3),
			testNode("x", 4), testNode("y", 5),
			testNode("lone", 6),
		},
		[]model.Edge{testEdge("a", "b"), testEdge("b", "c"), testEdge("x", "y")},
	)

	components, err := g.ConnectedComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 3)

	// Ordered by size descending.
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(components[0]))
	assert.Equal(t, []string{"x", "y"}, nodeIDs(components[1]))
	assert.Equal(t, []string{"lone"}, nodeIDs(components[2]))

	total := 0
	for _, c := range components {
		total += len(c)
	}
	assert.Equal(t, g.NodeCount(), total)
}

func TestConnectedComponentsIgnoreDirection(t *testing.T) {
	// b -> a and b -> c share a component despite a and c having no
	// outgoing edges toward each other.
	g := mustAssemble(t,
		[]model.Node{testNode("a", 1), testNode("b", 2), testNode("c", 3)},
		[]model.Edge{testEdge("b", "a"), testEdge("b", "c")},
	)

	components, err := g.ConnectedComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Len(t, components[0], 3)
}

func TestConnectedComponentsEmptyGraph(t *testing.T) {
	g := mustAssemble(t, nil, nil)

	components, err := g.ConnectedComponents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestConnectedComponentsSizeTieBreak(t *testing.T) {
	g := mustAssemble(t,
		[]model.Node{testNode("m", 1), testNode("k", 2)},
		nil,
	)

	components, err := g.ConnectedComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 2)

	// Equal sizes fall back to first node id.
	assert.Equal(t, "k", components[0][0].ID)
	assert.Equal(t, "m", components[1][0].ID)
}
