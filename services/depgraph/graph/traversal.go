// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"time"
)

// Traversal limits.
const (
	// MaxTraversalDepth is the hard cap on any traversal depth.
	MaxTraversalDepth = 100

	// ShortestPathDepthCap bounds shortest-path search.
	ShortestPathDepthCap = 20

	// MaxAllPaths caps the number of paths AllPaths enumerates.
	MaxAllPaths = 100

	// MaxCycles caps the number of cycles DetectCycles reports.
	MaxCycles = 50

	// contextCheckInterval is how many nodes to process between context
	// cancellation checks.
	contextCheckInterval = 100
)

// direction selects edge orientation for a traversal.
type direction int

const (
	directionDownstream direction = iota
	directionUpstream
)

// Downstream returns all nodes forward-reachable from nodeID within
// maxDepth hops.
//
// # Description
//
// Breadth-first expansion over outgoing edges. Each node appears once at
// its minimal depth, which also de-duplicates diamond shapes; results
// are ordered by (file, line). The start node itself is not included.
//
// # Inputs
//
//	ctx - Checked between frontier expansions for cancellation.
//	nodeID - The start node. Must exist in the graph.
//	maxDepth - Maximum hop count, 1..MaxTraversalDepth (higher values
//	are clamped).
//
// # Outputs
//
//	[]*Node - Reachable nodes, ordered by (file, line).
//	error - ErrNodeNotFound, ErrInvalidQuery, or a context error.
func (g *Graph) Downstream(ctx context.Context, nodeID string, maxDepth int) ([]*Node, error) {
	return g.reachable(ctx, nodeID, maxDepth, directionDownstream)
}

// Upstream returns all nodes that can reach nodeID within maxDepth hops.
//
// Symmetric to Downstream over incoming edges.
func (g *Graph) Upstream(ctx context.Context, nodeID string, maxDepth int) ([]*Node, error) {
	return g.reachable(ctx, nodeID, maxDepth, directionUpstream)
}

// reachable implements depth-bounded BFS in either direction.
func (g *Graph) reachable(ctx context.Context, nodeID string, maxDepth int, dir direction) ([]*Node, error) {
	start := time.Now()
	op := "downstream"
	if dir == directionUpstream {
		op = "upstream"
	}

	if maxDepth <= 0 {
		return nil, &InvalidQueryError{
			ExecutionID: g.ExecutionID,
			Reason:      "maxDepth must be positive",
		}
	}
	if maxDepth > MaxTraversalDepth {
		maxDepth = MaxTraversalDepth
	}

	startNode, ok := g.nodes[nodeID]
	if !ok {
		return nil, newNodeNotFound("", g.ExecutionID, nodeID)
	}

	visited := map[string]struct{}{nodeID: {}}
	frontier := []*Node{startNode}
	var result []*Node

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []*Node
		processed := 0
		for _, n := range frontier {
			processed++
			if processed%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			for _, neighbor := range g.neighbors(n, dir) {
				if _, seen := visited[neighbor.ID]; seen {
					continue
				}
				visited[neighbor.ID] = struct{}{}
				result = append(result, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	sortNodes(result)
	recordTraversal(op, time.Since(start), len(result))
	return result, nil
}

// neighbors returns the adjacent nodes in the given direction.
func (g *Graph) neighbors(n *Node, dir direction) []*Node {
	var edges []*Edge
	if dir == directionDownstream {
		edges = n.Outgoing
	} else {
		edges = n.Incoming
	}

	out := make([]*Node, 0, len(edges))
	for _, e := range edges {
		id := e.ToID
		if dir == directionUpstream {
			id = e.FromID
		}
		if neighbor, ok := g.nodes[id]; ok {
			out = append(out, neighbor)
		}
	}
	return out
}
