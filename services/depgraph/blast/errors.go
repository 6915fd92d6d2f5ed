// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package blast computes cross-repository blast radius: the set of nodes
// transitively impacted by a change to one or more source nodes, with a
// decayed, edge-type-weighted impact score per node and an aggregate
// risk classification.
//
// Results are cached per (tenant, execution, sorted source set) with a
// TTL. Failures are request-local: they never corrupt the registered
// graph or the cache, and Analyze never returns a partial result.
package blast

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for blast radius analysis.
var (
	// ErrExecutionNotRegistered is returned when no graph is registered
	// for the requested execution.
	ErrExecutionNotRegistered = errors.New("execution has no registered graph")

	// ErrNodesNotFound is returned when requested source nodes are absent
	// from the registered graph.
	ErrNodesNotFound = errors.New("source nodes not found")

	// ErrInvalidQuery is returned for malformed queries.
	ErrInvalidQuery = errors.New("invalid blast radius query")
)

// ErrorCode classifies a BlastRadiusError.
type ErrorCode string

const (
	// CodeNotFound covers missing executions and missing source nodes.
	CodeNotFound ErrorCode = "not_found"

	// CodeInvalidQuery covers malformed query parameters.
	CodeInvalidQuery ErrorCode = "invalid_query"

	// CodeInternal covers unexpected faults.
	CodeInternal ErrorCode = "internal"
)

// BlastRadiusError carries structured context for a failed analysis.
type BlastRadiusError struct {
	// Code classifies the failure.
	Code ErrorCode

	// TenantID is the tenant the request ran under.
	TenantID string

	// ExecutionID is the execution the request targeted.
	ExecutionID string

	// NodeIDs lists the offending node ids, when the failure concerns
	// specific nodes.
	NodeIDs []string

	// Reason is a human-readable description.
	Reason string

	sentinel error
}

// Error implements the error interface.
func (e *BlastRadiusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "blast radius %s: %s (execution %q", e.Code, e.Reason, e.ExecutionID)
	if len(e.NodeIDs) > 0 {
		fmt.Fprintf(&b, ", nodes %s", strings.Join(e.NodeIDs, ","))
	}
	b.WriteString(")")
	return b.String()
}

// Unwrap exposes the underlying sentinel for errors.Is checks.
func (e *BlastRadiusError) Unwrap() error {
	return e.sentinel
}

func newExecutionNotFound(tenantID, executionID string) *BlastRadiusError {
	return &BlastRadiusError{
		Code:        CodeNotFound,
		TenantID:    tenantID,
		ExecutionID: executionID,
		Reason:      "no graph registered",
		sentinel:    ErrExecutionNotRegistered,
	}
}

func newNodesNotFound(tenantID, executionID string, nodeIDs []string) *BlastRadiusError {
	return &BlastRadiusError{
		Code:        CodeNotFound,
		TenantID:    tenantID,
		ExecutionID: executionID,
		NodeIDs:     nodeIDs,
		Reason:      "source nodes absent from graph",
		sentinel:    ErrNodesNotFound,
	}
}

func newInvalidQuery(tenantID, executionID, reason string) *BlastRadiusError {
	return &BlastRadiusError{
		Code:        CodeInvalidQuery,
		TenantID:    tenantID,
		ExecutionID: executionID,
		Reason:      reason,
		sentinel:    ErrInvalidQuery,
	}
}
