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
	"time"
)

// TransitiveImpact is an upstream node tagged with the deepest level at
// which it reaches the analysis target.
type TransitiveImpact struct {
	// Node is the impacted node.
	Node *Node

	// Depth is the maximum depth (hops from the target, direct = 1) at
	// which this node reaches the target, bounded by the query maxDepth.
	Depth int
}

// ImpactAnalysis is the result of AnalyzeImpact.
type ImpactAnalysis struct {
	// Direct contains nodes with an edge straight into the target.
	Direct []*Node

	// Transitive contains further upstream nodes, excluding Direct and
	// the target itself.
	Transitive []TransitiveImpact

	// ImpactedEdges contains edges whose source is in the impacted set or
	// whose target is the analysis target.
	ImpactedEdges []*Edge

	// Depth is the deepest level reached by the analysis.
	Depth int
}

// AnalyzeImpact computes which nodes would be affected by a change to
// nodeID.
//
// # Description
//
// Impact flows against edge direction: whoever depends on the target is
// impacted. Direct impact is one hop; transitive impact expands upstream
// wave by wave up to maxDepth. A node reachable through several upstream
// routes is tagged with the deepest route (bounded by maxDepth, so
// cyclic regions terminate).
//
// # Inputs
//
//	ctx - Checked between waves for cancellation.
//	nodeID - The change target. Must exist.
//	maxDepth - Maximum upstream depth, 1..MaxTraversalDepth (clamped).
//
// # Outputs
//
//	*ImpactAnalysis - Direct and transitive impact plus affected edges.
//	error - ErrNodeNotFound, ErrInvalidQuery, or a context error.
func (g *Graph) AnalyzeImpact(ctx context.Context, nodeID string, maxDepth int) (*ImpactAnalysis, error) {
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

	target, ok := g.nodes[nodeID]
	if !ok {
		return nil, newNodeNotFound("", g.ExecutionID, nodeID)
	}

	// Wave 1: direct impact.
	directSet := make(map[string]*Node)
	for _, e := range target.Incoming {
		if e.FromID == nodeID {
			continue // self-loop: the target is not its own impact
		}
		if n, exists := g.nodes[e.FromID]; exists {
			directSet[n.ID] = n
		}
	}

	// Waves 2..maxDepth: transitive impact with max-depth tagging. A node
	// already reached may be reached again one wave deeper; the wave bound
	// keeps cyclic regions finite.
	maxDepthByID := make(map[string]int)
	frontier := make(map[string]struct{}, len(directSet))
	for id := range directSet {
		maxDepthByID[id] = 1
		frontier[id] = struct{}{}
	}

	reachedDepth := 0
	if len(directSet) > 0 {
		reachedDepth = 1
	}

	for depth := 2; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := make(map[string]struct{})
		for id := range frontier {
			for _, e := range g.nodes[id].Incoming {
				upID := e.FromID
				if upID == nodeID {
					continue
				}
				if prev, seen := maxDepthByID[upID]; seen && prev >= depth {
					continue
				}
				maxDepthByID[upID] = depth
				next[upID] = struct{}{}
			}
		}
		if len(next) > 0 {
			reachedDepth = depth
		}
		frontier = next
	}

	analysis := &ImpactAnalysis{Depth: reachedDepth}

	for _, n := range directSet {
		analysis.Direct = append(analysis.Direct, n)
	}
	sortNodes(analysis.Direct)

	for id, depth := range maxDepthByID {
		// Direct nodes stay in Direct even when also reachable deeper.
		if _, isDirect := directSet[id]; isDirect {
			continue
		}
		analysis.Transitive = append(analysis.Transitive, TransitiveImpact{
			Node:  g.nodes[id],
			Depth: depth,
		})
	}
	sort.Slice(analysis.Transitive, func(i, j int) bool {
		a, b := analysis.Transitive[i], analysis.Transitive[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Node.ID < b.Node.ID
	})

	// Impacted edges: source in the impacted set, or target is the node
	// under analysis.
	impacted := func(id string) bool {
		if _, ok := directSet[id]; ok {
			return true
		}
		_, ok := maxDepthByID[id]
		return ok
	}
	for _, e := range g.edges {
		if e.ToID == nodeID || impacted(e.FromID) {
			analysis.ImpactedEdges = append(analysis.ImpactedEdges, e)
		}
	}

	recordTraversal("analyze_impact", time.Since(start), len(directSet)+len(analysis.Transitive))
	return analysis, nil
}

// Statistics summarizes graph shape.
type Statistics struct {
	// NodeCount is the number of nodes.
	NodeCount int `json:"node_count"`

	// EdgeCount is the number of edges.
	EdgeCount int `json:"edge_count"`

	// AvgOutDegree is EdgeCount / NodeCount.
	AvgOutDegree float64 `json:"avg_out_degree"`

	// MaxDepth is the deepest BFS level reachable from any root
	// (in-degree-0) node; 0 for an empty or rootless graph.
	MaxDepth int `json:"max_depth"`

	// ComponentCount is the number of undirected connected components.
	ComponentCount int `json:"component_count"`

	// HasCycles reports whether the graph contains any directed cycle.
	HasCycles bool `json:"has_cycles"`
}

// Statistics computes summary statistics for the graph.
func (g *Graph) Statistics(ctx context.Context) (*Statistics, error) {
	start := time.Now()

	stats := &Statistics{
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
	}
	if stats.NodeCount > 0 {
		stats.AvgOutDegree = float64(stats.EdgeCount) / float64(stats.NodeCount)
	}

	components, err := g.ConnectedComponents(ctx)
	if err != nil {
		return nil, err
	}
	stats.ComponentCount = len(components)
	stats.HasCycles = g.hasCycle()

	maxDepth, err := g.maxRootDepth(ctx)
	if err != nil {
		return nil, err
	}
	stats.MaxDepth = maxDepth

	recordTraversal("statistics", time.Since(start), stats.NodeCount)
	return stats, nil
}

// maxRootDepth returns the deepest BFS level reachable from any
// in-degree-0 node.
func (g *Graph) maxRootDepth(ctx context.Context) (int, error) {
	maxDepth := 0
	processed := 0

	for _, root := range g.nodes {
		if len(root.Incoming) > 0 {
			continue
		}

		visited := map[string]struct{}{root.ID: {}}
		frontier := []*Node{root}
		depth := 0

		for len(frontier) > 0 && depth < MaxTraversalDepth {
			processed++
			if processed%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return 0, err
				}
			}

			var next []*Node
			for _, n := range frontier {
				for _, neighbor := range g.neighbors(n, directionDownstream) {
					if _, seen := visited[neighbor.ID]; seen {
						continue
					}
					visited[neighbor.ID] = struct{}{}
					next = append(next, neighbor)
				}
			}
			if len(next) > 0 {
				depth++
			}
			frontier = next
		}

		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth, nil
}

// FanEntry pairs a node with its fan-in or fan-out count.
type FanEntry struct {
	// Node is the ranked node.
	Node *Node

	// Count is the degree that put it over the threshold.
	Count int
}

// HighFanOut returns nodes whose out-degree meets threshold, sorted by
// count descending (node id as tie-break).
func (g *Graph) HighFanOut(threshold int) ([]FanEntry, error) {
	return g.highFan(threshold, directionDownstream)
}

// HighFanIn returns nodes whose in-degree meets threshold, sorted by
// count descending (node id as tie-break).
func (g *Graph) HighFanIn(threshold int) ([]FanEntry, error) {
	return g.highFan(threshold, directionUpstream)
}

func (g *Graph) highFan(threshold int, dir direction) ([]FanEntry, error) {
	if threshold < 1 {
		return nil, &InvalidQueryError{
			ExecutionID: g.ExecutionID,
			Reason:      "threshold must be at least 1",
		}
	}

	var entries []FanEntry
	for _, n := range g.nodes {
		count := len(n.Outgoing)
		if dir == directionUpstream {
			count = len(n.Incoming)
		}
		if count >= threshold {
			entries = append(entries, FanEntry{Node: n, Count: count})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Node.ID < entries[j].Node.ID
	})
	return entries, nil
}
