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

// Path is an ordered node/edge sequence between two nodes.
type Path struct {
	// Nodes is the node sequence, source first, target last.
	Nodes []*Node

	// Edges is the edge sequence; Edges[i] connects Nodes[i] to Nodes[i+1].
	Edges []*Edge

	// Length is the number of edges in the path.
	Length int
}

// PathsResult wraps path enumeration output with a truncation indicator.
type PathsResult struct {
	// Paths contains the enumerated paths.
	Paths []Path

	// Truncated is true when MaxAllPaths was reached and more paths may
	// exist. Truncation is not a failure.
	Truncated bool
}

// ShortestPath finds a minimum edge-count path from fromID to toID.
//
// # Description
//
// Breadth-first search bounded at ShortestPathDepthCap hops. Among paths
// of minimal length the first one discovered wins (BFS expansion order
// follows edge input order). When source equals target the result is a
// zero-length path containing only that node.
//
// # Outputs
//
//	*Path - The shortest path.
//	error - ErrNodeNotFound when either endpoint is absent, ErrNoPath
//	when the nodes are not connected within the cap, or a context error.
func (g *Graph) ShortestPath(ctx context.Context, fromID, toID string) (*Path, error) {
	start := time.Now()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return nil, newNodeNotFound("", g.ExecutionID, fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil, newNodeNotFound("", g.ExecutionID, toID)
	}

	if fromID == toID {
		return &Path{Nodes: []*Node{fromNode}, Length: 0}, nil
	}

	// parent links for path reconstruction
	type link struct {
		prevNode string
		viaEdge  *Edge
	}
	parents := map[string]link{fromID: {}}
	frontier := []string{fromID}

	for depth := 0; depth < ShortestPathDepthCap && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			node := g.nodes[id]
			for _, e := range node.Outgoing {
				if _, seen := parents[e.ToID]; seen {
					continue
				}
				parents[e.ToID] = link{prevNode: id, viaEdge: e}
				if e.ToID == toID {
					path := g.buildPath(fromID, toID, func(id string) (string, *Edge) {
						l := parents[id]
						return l.prevNode, l.viaEdge
					})
					recordTraversal("shortest_path", time.Since(start), path.Length)
					return path, nil
				}
				next = append(next, e.ToID)
			}
		}
		frontier = next
	}

	return nil, &NotFoundError{
		ExecutionID: g.ExecutionID,
		NodeID:      toID,
		sentinel:    ErrNoPath,
	}
}

// buildPath reconstructs a path from parent links, target back to source.
func (g *Graph) buildPath(fromID, toID string, parent func(string) (string, *Edge)) *Path {
	var nodes []*Node
	var edges []*Edge

	for id := toID; ; {
		nodes = append(nodes, g.nodes[id])
		if id == fromID {
			break
		}
		prev, via := parent(id)
		edges = append(edges, via)
		id = prev
	}

	// Reverse into source-first order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	return &Path{Nodes: nodes, Edges: edges, Length: len(edges)}
}

// AllPaths enumerates simple paths from fromID to toID.
//
// # Description
//
// Depth-first enumeration of paths without repeated nodes, bounded by
// maxDepth hops and capped at MaxAllPaths results. Hitting the cap sets
// Truncated instead of failing.
//
// # Inputs
//
//	ctx - Checked periodically for cancellation.
//	fromID, toID - Path endpoints. Both must exist.
//	maxDepth - Maximum hop count, 1..MaxTraversalDepth (clamped).
//
// # Outputs
//
//	*PathsResult - Paths found plus the truncation indicator. An empty
//	Paths slice is success, not failure.
//	error - ErrNodeNotFound, ErrInvalidQuery, or a context error.
func (g *Graph) AllPaths(ctx context.Context, fromID, toID string, maxDepth int) (*PathsResult, error) {
	start := time.Now()

	if maxDepth <= 0 {
		return nil, &InvalidQueryError{
			ExecutionID: g.ExecutionID,
			Reason:      "maxDepth must be positive",
		}
	}
	if maxDepth > MaxTraversalDepth {
		maxDepth = MaxTraversalDepth
	}

	if _, ok := g.nodes[fromID]; !ok {
		return nil, newNodeNotFound("", g.ExecutionID, fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil, newNodeNotFound("", g.ExecutionID, toID)
	}

	result := &PathsResult{}
	onPath := map[string]struct{}{fromID: {}}
	var nodePath []*Node
	var edgePath []*Edge
	nodePath = append(nodePath, g.nodes[fromID])

	steps := 0
	var walk func(current string, depth int) error
	walk = func(current string, depth int) error {
		steps++
		if steps%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if current == toID {
			path := Path{
				Nodes:  append([]*Node(nil), nodePath...),
				Edges:  append([]*Edge(nil), edgePath...),
				Length: len(edgePath),
			}
			result.Paths = append(result.Paths, path)
			return nil
		}
		if depth >= maxDepth || len(result.Paths) >= MaxAllPaths {
			return nil
		}

		for _, e := range g.nodes[current].Outgoing {
			if len(result.Paths) >= MaxAllPaths {
				result.Truncated = true
				return nil
			}
			if _, cycle := onPath[e.ToID]; cycle {
				continue
			}

			onPath[e.ToID] = struct{}{}
			nodePath = append(nodePath, g.nodes[e.ToID])
			edgePath = append(edgePath, e)

			if err := walk(e.ToID, depth+1); err != nil {
				return err
			}

			delete(onPath, e.ToID)
			nodePath = nodePath[:len(nodePath)-1]
			edgePath = edgePath[:len(edgePath)-1]
		}
		return nil
	}

	// A zero-length self path is only meaningful for ShortestPath; for
	// enumeration the self case yields the trivial path as well.
	if fromID == toID {
		result.Paths = append(result.Paths, Path{Nodes: []*Node{g.nodes[fromID]}, Length: 0})
		recordTraversal("all_paths", time.Since(start), 1)
		return result, nil
	}

	if err := walk(fromID, 0); err != nil {
		return nil, err
	}

	recordTraversal("all_paths", time.Since(start), len(result.Paths))
	return result, nil
}
