// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Cycle is an elementary dependency cycle.
type Cycle struct {
	// Nodes is the cycle's node sequence in traversal order. The closing
	// edge back to Nodes[0] is implied.
	Nodes []*Node

	// Length is the number of nodes in the cycle.
	Length int
}

// CyclesResult wraps cycle detection output with a truncation indicator.
type CyclesResult struct {
	// Cycles contains the detected cycles, ordered by length ascending.
	Cycles []Cycle

	// Truncated is true when MaxCycles was reached.
	Truncated bool
}

// DetectCycles finds elementary cycles in the graph.
//
// # Description
//
// For every edge (u, v) the search expands forward from v looking for
// the shortest way back to u; finding one closes the cycle u -> v -> ...
// -> u. Cycles discovered through different edges of the same loop
// normalize to one entry (deduplicated by canonical rotation). A
// self-loop yields a one-node cycle. Results are capped at MaxCycles and
// ordered by length ascending.
//
// An acyclic graph returns an empty result; that is success, not failure.
//
// # Outputs
//
//	*CyclesResult - Detected cycles plus the truncation indicator.
//	error - A context error when cancelled mid-search.
func (g *Graph) DetectCycles(ctx context.Context) (*CyclesResult, error) {
	start := time.Now()
	result := &CyclesResult{}
	seen := make(map[string]struct{})

	edges := g.edges
	for i, e := range edges {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(result.Cycles) >= MaxCycles {
			result.Truncated = true
			break
		}

		cycleIDs := g.closeCycle(e)
		if cycleIDs == nil {
			continue
		}

		key := canonicalCycleKey(cycleIDs)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		nodes := make([]*Node, len(cycleIDs))
		for j, id := range cycleIDs {
			nodes[j] = g.nodes[id]
		}
		result.Cycles = append(result.Cycles, Cycle{Nodes: nodes, Length: len(nodes)})
	}

	sort.SliceStable(result.Cycles, func(i, j int) bool {
		return result.Cycles[i].Length < result.Cycles[j].Length
	})

	recordTraversal("detect_cycles", time.Since(start), len(result.Cycles))
	return result, nil
}

// closeCycle searches for the shortest path from e.ToID back to e.FromID
// and returns the cycle's node ids starting at e.FromID, or nil when the
// edge closes no cycle within ShortestPathDepthCap hops.
func (g *Graph) closeCycle(e *Edge) []string {
	if e.FromID == e.ToID {
		return []string{e.FromID}
	}

	parents := map[string]string{e.ToID: ""}
	frontier := []string{e.ToID}

	for depth := 0; depth < ShortestPathDepthCap && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, out := range g.nodes[id].Outgoing {
				if _, visited := parents[out.ToID]; visited {
					continue
				}
				parents[out.ToID] = id
				if out.ToID == e.FromID {
					// Reconstruct v .. u, then rotate u to the front.
					var back []string
					for cur := id; cur != ""; cur = parents[cur] {
						back = append(back, cur)
					}
					cycle := []string{e.FromID}
					for k := len(back) - 1; k >= 0; k-- {
						cycle = append(cycle, back[k])
					}
					return cycle
				}
				next = append(next, out.ToID)
			}
		}
		frontier = next
	}
	return nil
}

// canonicalCycleKey normalizes a cycle to a rotation-independent key by
// rotating the smallest node id to the front.
func canonicalCycleKey(ids []string) string {
	minIdx := 0
	for i, id := range ids {
		if id < ids[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(ids))
	rotated = append(rotated, ids[minIdx:]...)
	rotated = append(rotated, ids[:minIdx]...)
	return strings.Join(rotated, "\x00")
}

// hasCycle reports whether any cycle exists, via iterative three-color
// DFS. Cheaper than DetectCycles when only the boolean is needed.
func (g *Graph) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	type frame struct {
		id      string
		edgeIdx int
	}

	for id := range g.nodes {
		if color[id] != white {
			continue
		}
		stack := []frame{{id: id}}
		color[id] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := g.nodes[top.id]

			if top.edgeIdx < len(node.Outgoing) {
				next := node.Outgoing[top.edgeIdx].ToID
				top.edgeIdx++
				switch color[next] {
				case gray:
					return true
				case white:
					color[next] = gray
					stack = append(stack, frame{id: next})
				}
				continue
			}

			color[top.id] = black
			stack = stack[:len(stack)-1]
		}
	}
	return false
}
