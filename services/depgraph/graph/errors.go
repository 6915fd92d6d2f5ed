// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph holds the in-memory dependency graph and its traversal
// engine.
//
// A Graph is assembled once per execution from parser output and is
// immutable afterwards, with one exception: per-edge confidence may be
// updated on re-score. Graphs are registered in a Registry keyed by
// (tenant, execution); registering again replaces the previous graph
// wholesale, so a concurrent reader sees either the old or the new graph,
// never a partial rebuild.
//
// # Thread Safety
//
// Assembled graphs are read-only and safe for unlimited concurrent
// readers. Edge confidence updates are atomic per edge. All traversal
// operations are pure readers.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrGraphNotRegistered is returned when no graph exists for the given
	// (tenant, execution) pair.
	ErrGraphNotRegistered = errors.New("graph not registered")

	// ErrNodeNotFound is returned when a referenced node id is absent from
	// the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when a referenced edge id is absent from
	// the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrInvalidQuery is returned for malformed query parameters, such as
	// a non-positive maxDepth.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDuplicateNode is returned at assembly when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDanglingEdge is returned at assembly when an edge references a
	// node that is not part of the same graph.
	ErrDanglingEdge = errors.New("edge references missing node")

	// ErrMaxNodesExceeded is returned at assembly when the input exceeds
	// the configured node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned at assembly when the input exceeds
	// the configured edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrNoPath is returned by ShortestPath when no path connects the two
	// nodes within the depth cap.
	ErrNoPath = errors.New("no path between nodes")
)

// NotFoundError carries structured context for a missing graph or node.
type NotFoundError struct {
	TenantID    string
	ExecutionID string
	NodeID      string
	sentinel    error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%v: node %q (tenant %q, execution %q)",
			e.sentinel, e.NodeID, e.TenantID, e.ExecutionID)
	}
	return fmt.Sprintf("%v: tenant %q, execution %q",
		e.sentinel, e.TenantID, e.ExecutionID)
}

// Unwrap exposes the underlying sentinel for errors.Is checks.
func (e *NotFoundError) Unwrap() error {
	return e.sentinel
}

// newGraphNotFound builds a NotFoundError for a missing registration.
func newGraphNotFound(tenantID, executionID string) *NotFoundError {
	return &NotFoundError{
		TenantID:    tenantID,
		ExecutionID: executionID,
		sentinel:    ErrGraphNotRegistered,
	}
}

// newNodeNotFound builds a NotFoundError for a missing node.
func newNodeNotFound(tenantID, executionID, nodeID string) *NotFoundError {
	return &NotFoundError{
		TenantID:    tenantID,
		ExecutionID: executionID,
		NodeID:      nodeID,
		sentinel:    ErrNodeNotFound,
	}
}

// InvalidQueryError carries structured context for a rejected query.
type InvalidQueryError struct {
	ExecutionID string
	Reason      string
}

// Error implements the error interface.
func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("%v: %s (execution %q)", ErrInvalidQuery, e.Reason, e.ExecutionID)
}

// Unwrap exposes ErrInvalidQuery for errors.Is checks.
func (e *InvalidQueryError) Unwrap() error {
	return ErrInvalidQuery
}
