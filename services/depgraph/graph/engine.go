// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine exposes the traversal operations scoped by (tenant, execution).
//
// # Description
//
// Every operation resolves the registered graph for its key first and
// fails with a NotFoundError when none exists. Operations are pure
// readers; calls against different executions never block each other.
// Failures are local to the request and never affect the registered
// graph.
//
// # Thread Safety
//
// Safe for concurrent use.
type Engine struct {
	registry *Registry
}

// NewEngine creates a traversal engine over the given registry.
//
// The registry is injected explicitly; there is deliberately no
// process-wide default instance.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the engine's graph registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// resolve looks up the graph and starts a span for the operation.
func (e *Engine) resolve(ctx context.Context, op, tenantID, executionID string) (context.Context, trace.Span, *Graph, error) {
	ctx, span := tracer.Start(ctx, "graph."+op, trace.WithAttributes(
		attribute.String("execution_id", executionID),
	))

	g, err := e.registry.Get(tenantID, executionID)
	if err != nil {
		span.SetStatus(codes.Error, "graph not registered")
		span.End()
		return ctx, nil, nil, err
	}
	return ctx, span, g, nil
}

// finish closes the span, tagging tenant context onto typed errors.
func finish(span trace.Span, tenantID string, err error) error {
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) && nf.TenantID == "" {
			nf.TenantID = tenantID
		}
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}

// Downstream returns nodes forward-reachable from nodeID within maxDepth.
func (e *Engine) Downstream(ctx context.Context, tenantID, executionID, nodeID string, maxDepth int) ([]*Node, error) {
	ctx, span, g, err := e.resolve(ctx, "downstream", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	nodes, err := g.Downstream(ctx, nodeID, maxDepth)
	return nodes, finish(span, tenantID, err)
}

// Upstream returns nodes that reach nodeID within maxDepth.
func (e *Engine) Upstream(ctx context.Context, tenantID, executionID, nodeID string, maxDepth int) ([]*Node, error) {
	ctx, span, g, err := e.resolve(ctx, "upstream", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	nodes, err := g.Upstream(ctx, nodeID, maxDepth)
	return nodes, finish(span, tenantID, err)
}

// ShortestPath returns a minimum edge-count path between two nodes.
func (e *Engine) ShortestPath(ctx context.Context, tenantID, executionID, fromID, toID string) (*Path, error) {
	ctx, span, g, err := e.resolve(ctx, "shortest_path", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	path, err := g.ShortestPath(ctx, fromID, toID)
	return path, finish(span, tenantID, err)
}

// AllPaths enumerates simple paths between two nodes.
func (e *Engine) AllPaths(ctx context.Context, tenantID, executionID, fromID, toID string, maxDepth int) (*PathsResult, error) {
	ctx, span, g, err := e.resolve(ctx, "all_paths", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	result, err := g.AllPaths(ctx, fromID, toID, maxDepth)
	return result, finish(span, tenantID, err)
}

// DetectCycles finds elementary cycles in the execution's graph.
func (e *Engine) DetectCycles(ctx context.Context, tenantID, executionID string) (*CyclesResult, error) {
	ctx, span, g, err := e.resolve(ctx, "detect_cycles", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	result, err := g.DetectCycles(ctx)
	return result, finish(span, tenantID, err)
}

// ConnectedComponents partitions the graph by undirected reachability.
func (e *Engine) ConnectedComponents(ctx context.Context, tenantID, executionID string) ([][]*Node, error) {
	ctx, span, g, err := e.resolve(ctx, "connected_components", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	components, err := g.ConnectedComponents(ctx)
	return components, finish(span, tenantID, err)
}

// AnalyzeImpact computes direct and transitive upstream impact of a node.
func (e *Engine) AnalyzeImpact(ctx context.Context, tenantID, executionID, nodeID string, maxDepth int) (*ImpactAnalysis, error) {
	ctx, span, g, err := e.resolve(ctx, "analyze_impact", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	analysis, err := g.AnalyzeImpact(ctx, nodeID, maxDepth)
	return analysis, finish(span, tenantID, err)
}

// Statistics summarizes the execution's graph shape.
func (e *Engine) Statistics(ctx context.Context, tenantID, executionID string) (*Statistics, error) {
	ctx, span, g, err := e.resolve(ctx, "statistics", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	stats, err := g.Statistics(ctx)
	return stats, finish(span, tenantID, err)
}

// HighFanOut ranks nodes by out-degree at or above threshold.
func (e *Engine) HighFanOut(ctx context.Context, tenantID, executionID string, threshold int) ([]FanEntry, error) {
	_, span, g, err := e.resolve(ctx, "high_fan_out", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	entries, err := g.HighFanOut(threshold)
	return entries, finish(span, tenantID, err)
}

// HighFanIn ranks nodes by in-degree at or above threshold.
func (e *Engine) HighFanIn(ctx context.Context, tenantID, executionID string, threshold int) ([]FanEntry, error) {
	_, span, g, err := e.resolve(ctx, "high_fan_in", tenantID, executionID)
	if err != nil {
		return nil, err
	}
	entries, err := g.HighFanIn(threshold)
	return entries, finish(span, tenantID, err)
}

// UpdateEdgeConfidence stores a re-scored confidence on one edge.
func (e *Engine) UpdateEdgeConfidence(ctx context.Context, tenantID, executionID, edgeID string, confidence int) error {
	_, span, g, err := e.resolve(ctx, "update_edge_confidence", tenantID, executionID)
	if err != nil {
		return err
	}
	return finish(span, tenantID, g.UpdateEdgeConfidence(edgeID, confidence))
}
