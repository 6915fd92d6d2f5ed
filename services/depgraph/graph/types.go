// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// Default capacity limits for graph assembly.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// Node is an assembled graph node with its adjacency.
//
// The embedded model.Node MUST NOT be mutated after assembly.
type Node struct {
	model.Node

	// Outgoing contains edges where this node is the source, in input order.
	Outgoing []*Edge

	// Incoming contains edges where this node is the target, in input order.
	Incoming []*Edge
}

// Edge is an assembled graph edge.
//
// Confidence is the only mutable field; updates are atomic per edge and
// carry no cross-edge invariant.
type Edge struct {
	// ID is the edge identifier, unique within the graph.
	ID string

	// FromID is the source node id.
	FromID string

	// ToID is the target node id.
	ToID string

	// Type is the dependency relationship kind.
	Type model.EdgeType

	// Implicit is true for inferred (non-syntactic) relationships.
	Implicit bool

	// Label is the optional display label or referenced attribute.
	Label string

	// Metadata carries parser-specific attributes.
	Metadata map[string]any

	confidence atomic.Int32
}

// Confidence returns the edge's current confidence (0-100).
func (e *Edge) Confidence() int {
	return int(e.confidence.Load())
}

// setConfidence stores a clamped confidence value.
func (e *Edge) setConfidence(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	e.confidence.Store(int32(v))
}

// GraphOptions configures assembly limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph assembly.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring assembly.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		if n > 0 {
			o.MaxNodes = n
		}
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		if n > 0 {
			o.MaxEdges = n
		}
	}
}

// Graph is the assembled dependency graph for one execution.
//
// # Lifecycle
//
// A Graph is produced fully formed by Assemble and never grows or shrinks
// afterwards. Rebuilding an execution means assembling a new Graph and
// registering it, replacing the old one wholesale.
//
// # Thread Safety
//
// Safe for unlimited concurrent readers. UpdateEdgeConfidence is the only
// mutation and is atomic per edge.
type Graph struct {
	// ExecutionID keys the graph to exactly one detection run.
	ExecutionID string

	nodes     map[string]*Node
	edges     []*Edge
	edgesByID map[string]*Edge

	options GraphOptions

	// AssembledAtMilli is the Unix timestamp in milliseconds when assembly
	// completed.
	AssembledAtMilli int64
}

// Assemble builds an immutable graph from parser output.
//
// # Description
//
// Validates the input before constructing adjacency: duplicate node ids,
// edges referencing nodes outside the input set, and capacity overruns
// all fail assembly (the engine never holds a partially valid graph).
// Edge confidences are clamped into [0, 100]. Edge ids left empty by the
// producer are synthesized from the endpoints and position.
//
// # Inputs
//
//	executionID - The scan/execution the graph belongs to. Required.
//	nodes - Parser-emitted nodes. The slice and elements are not retained.
//	edges - Parser-emitted edges.
//	opts - Optional capacity limits.
//
// # Outputs
//
//	*Graph - The assembled read-only graph.
//	error - Non-nil when validation fails; no graph is returned.
func Assemble(executionID string, nodes []model.Node, edges []model.Edge, opts ...GraphOption) (*Graph, error) {
	if executionID == "" {
		return nil, &InvalidQueryError{Reason: "execution id is required"}
	}

	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if len(nodes) > options.MaxNodes {
		return nil, fmt.Errorf("%w: %d > %d", ErrMaxNodesExceeded, len(nodes), options.MaxNodes)
	}
	if len(edges) > options.MaxEdges {
		return nil, fmt.Errorf("%w: %d > %d", ErrMaxEdgesExceeded, len(edges), options.MaxEdges)
	}

	start := time.Now()

	g := &Graph{
		ExecutionID: executionID,
		nodes:       make(map[string]*Node, len(nodes)),
		edges:       make([]*Edge, 0, len(edges)),
		edgesByID:   make(map[string]*Edge, len(edges)),
		options:     options,
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node with empty id (%s)", ErrDuplicateNode, n.Name)
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		g.nodes[n.ID] = &Node{Node: n}
	}

	for i, e := range edges {
		from, ok := g.nodes[e.FromID]
		if !ok {
			return nil, fmt.Errorf("%w: edge[%d] source %q", ErrDanglingEdge, i, e.FromID)
		}
		to, ok := g.nodes[e.ToID]
		if !ok {
			return nil, fmt.Errorf("%w: edge[%d] target %q", ErrDanglingEdge, i, e.ToID)
		}

		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s->%s#%d", e.FromID, e.ToID, i)
		}

		edge := &Edge{
			ID:       id,
			FromID:   e.FromID,
			ToID:     e.ToID,
			Type:     e.Type,
			Implicit: e.Implicit,
			Label:    e.Label,
			Metadata: e.Metadata,
		}
		edge.setConfidence(e.Confidence)

		g.edges = append(g.edges, edge)
		g.edgesByID[id] = edge
		from.Outgoing = append(from.Outgoing, edge)
		to.Incoming = append(to.Incoming, edge)
	}

	g.AssembledAtMilli = time.Now().UnixMilli()
	recordAssembly(time.Since(start), len(nodes), len(edges))
	return g, nil
}

// GetNode returns the node with the given id.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GetEdge returns the edge with the given id.
func (g *Graph) GetEdge(id string) (*Edge, bool) {
	e, ok := g.edgesByID[id]
	return e, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all nodes ordered by (file, line, id).
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

// Edges returns all edges in input order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// UpdateEdgeConfidence stores a new confidence for one edge.
//
// This is the only permitted post-assembly mutation. The store is atomic;
// concurrent traversals observe either the old or the new value.
func (g *Graph) UpdateEdgeConfidence(edgeID string, confidence int) error {
	edge, ok := g.edgesByID[edgeID]
	if !ok {
		return fmt.Errorf("%w: %q (execution %q)", ErrEdgeNotFound, edgeID, g.ExecutionID)
	}
	edge.setConfidence(confidence)
	return nil
}

// sortNodes orders nodes by (file, line), with id as the final tie-break
// so ordering is deterministic.
func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Location.FilePath != b.Location.FilePath {
			return a.Location.FilePath < b.Location.FilePath
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		return a.ID < b.ID
	})
}
