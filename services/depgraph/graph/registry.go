// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "sync"

// registryKey scopes a registered graph to one tenant and execution.
// Tenant isolation is structural: tenant A's executions are unreachable
// through tenant B's keys.
type registryKey struct {
	tenantID    string
	executionID string
}

// Registry holds registered graphs keyed by (tenant, execution).
//
// # Description
//
// Register replaces any previous graph for the same key wholesale: the
// map swap happens under the write lock while graphs themselves are
// immutable, so a concurrent reader observes either the fully-old or the
// fully-new graph. Readers of different executions never block each
// other beyond the map lock.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	graphs map[registryKey]*Graph
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		graphs: make(map[registryKey]*Graph),
	}
}

// Register stores g under (tenantID, executionID), replacing any
// previous registration for that key.
func (r *Registry) Register(tenantID string, g *Graph) {
	key := registryKey{tenantID: tenantID, executionID: g.ExecutionID}
	r.mu.Lock()
	r.graphs[key] = g
	size := len(r.graphs)
	r.mu.Unlock()
	recordRegistration(size)
}

// Get returns the graph for (tenantID, executionID).
func (r *Registry) Get(tenantID, executionID string) (*Graph, error) {
	r.mu.RLock()
	g, ok := r.graphs[registryKey{tenantID: tenantID, executionID: executionID}]
	r.mu.RUnlock()
	if !ok {
		return nil, newGraphNotFound(tenantID, executionID)
	}
	return g, nil
}

// Remove drops the registration for (tenantID, executionID) and reports
// whether one existed.
func (r *Registry) Remove(tenantID, executionID string) bool {
	key := registryKey{tenantID: tenantID, executionID: executionID}
	r.mu.Lock()
	_, ok := r.graphs[key]
	delete(r.graphs, key)
	r.mu.Unlock()
	return ok
}

// Len returns the number of registered graphs across all tenants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}
