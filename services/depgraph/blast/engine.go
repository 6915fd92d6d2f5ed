// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"

	"github.com/DriftMapHQ/driftmap/services/depgraph/graph"
	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// contextCheckInterval is how many frontier entries are processed
// between context cancellation checks.
const contextCheckInterval = 100

var queryValidator = validator.New()

// Options configures a blast radius engine.
type Options struct {
	// Weights is the edge-type weight table. Default: DefaultWeights().
	Weights WeightTable

	// DecayFactor attenuates contributions per hop beyond the first.
	// Default: 0.7
	DecayFactor float64

	// MaxFrontier caps live traversal paths. Default: DefaultMaxFrontier.
	MaxFrontier int

	// CacheTTL is how long results stay fresh. Default: DefaultCacheTTL.
	CacheTTL time.Duration

	// CacheCapacity bounds cached results. Default: DefaultCacheCapacity.
	CacheCapacity int
}

// Option is a functional option for configuring the engine.
type Option func(*Options)

// WithWeights replaces the edge-type weight table.
func WithWeights(w WeightTable) Option {
	return func(o *Options) {
		if len(w) > 0 {
			o.Weights = w
		}
	}
}

// WithDecayFactor sets the per-hop decay factor (0 < f <= 1).
func WithDecayFactor(f float64) Option {
	return func(o *Options) {
		if f > 0 && f <= 1 {
			o.DecayFactor = f
		}
	}
}

// WithMaxFrontier caps the number of live traversal paths.
func WithMaxFrontier(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxFrontier = n
		}
	}
}

// WithCacheTTL sets the result cache freshness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.CacheTTL = ttl
		}
	}
}

// WithCacheCapacity bounds the number of cached results.
func WithCacheCapacity(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheCapacity = n
		}
	}
}

type graphKey struct {
	tenantID    string
	executionID string
}

// registeredGraph pairs an assembled graph with its repository name
// index. Immutable after registration; replacement is wholesale.
type registeredGraph struct {
	graph     *graph.Graph
	repoNames map[string]string // repo id -> display name
}

// Engine computes blast radius over registered graphs.
//
// # Thread Safety
//
//	Safe for concurrent use. Registration replaces a graph atomically
//	under a write lock; analyses hold only a read lock while resolving
//	the graph and then traverse immutable structures.
type Engine struct {
	mu          sync.RWMutex
	graphs      map[graphKey]*registeredGraph
	cache       *resultCache
	weights     WeightTable
	decay       float64
	maxFrontier int
	logger      *slog.Logger
}

// NewEngine returns a blast radius engine with the given options.
func NewEngine(opts ...Option) *Engine {
	o := Options{
		Weights:       DefaultWeights(),
		DecayFactor:   defaultDecayFactor,
		MaxFrontier:   DefaultMaxFrontier,
		CacheTTL:      DefaultCacheTTL,
		CacheCapacity: DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		graphs:      make(map[graphKey]*registeredGraph),
		cache:       newResultCache(o.CacheCapacity, o.CacheTTL),
		weights:     o.Weights,
		decay:       o.DecayFactor,
		maxFrontier: o.MaxFrontier,
		logger:      slog.Default().With("component", "blast"),
	}
}

// RegisterGraph assembles and registers the graph for an execution,
// replacing any previous registration wholesale. Cached results for the
// execution are invalidated so stale analyses cannot outlive the data
// they were computed from.
//
// repoNames maps repository ids to display names and may be nil.
func (e *Engine) RegisterGraph(ctx context.Context, tenantID, executionID string, nodes []model.Node, edges []model.Edge, repoNames map[string]string) error {
	_, span := startSpan(ctx, "register_graph", executionID)
	defer span.End()

	g, err := graph.Assemble(executionID, nodes, edges)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("registering blast graph for execution %q: %w", executionID, err)
	}

	names := make(map[string]string, len(repoNames))
	for id, name := range repoNames {
		names[id] = name
	}

	key := graphKey{tenantID: tenantID, executionID: executionID}
	e.mu.Lock()
	e.graphs[key] = &registeredGraph{graph: g, repoNames: names}
	e.mu.Unlock()
	e.cache.purgeExecution(tenantID, executionID)

	e.logger.InfoContext(ctx, "registered blast graph",
		"execution_id", executionID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	return nil
}

// ClearGraphData removes the registered graph for an execution and
// purges its cached results. Subsequent analyses fail with not_found.
func (e *Engine) ClearGraphData(ctx context.Context, tenantID, executionID string) error {
	_, span := startSpan(ctx, "clear_graph_data", executionID)
	defer span.End()

	key := graphKey{tenantID: tenantID, executionID: executionID}
	e.mu.Lock()
	_, ok := e.graphs[key]
	delete(e.graphs, key)
	e.mu.Unlock()
	if !ok {
		return newExecutionNotFound(tenantID, executionID)
	}
	e.cache.purgeExecution(tenantID, executionID)
	e.logger.InfoContext(ctx, "cleared blast graph", "execution_id", executionID)
	return nil
}

// GetCached returns the cached result for a source set without
// computing on miss.
func (e *Engine) GetCached(tenantID, executionID string, nodeIDs []string) (*Result, bool) {
	return e.cache.get(cacheKey(tenantID, executionID, nodeIDs))
}

// ClearCache drops every cached result across all executions.
func (e *Engine) ClearCache() {
	e.cache.clear()
}

// Analyze computes the blast radius of the query's source nodes, using
// a cached result when one is fresh. Errors never yield partial
// results.
func (e *Engine) Analyze(ctx context.Context, tenantID, executionID string, q Query) (*Result, error) {
	ctx, span := startSpan(ctx, "analyze", executionID)
	defer span.End()
	start := time.Now()

	if err := validateQuery(tenantID, executionID, q); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.mu.RLock()
	rg, ok := e.graphs[graphKey{tenantID: tenantID, executionID: executionID}]
	e.mu.RUnlock()
	if !ok {
		err := newExecutionNotFound(tenantID, executionID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var missing []string
	for _, id := range q.NodeIDs {
		if _, found := rg.graph.GetNode(id); !found {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		err := newNodesNotFound(tenantID, executionID, missing)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	key := cacheKey(tenantID, executionID, q.NodeIDs)
	result, hit, err := e.cache.getOrCompute(ctx, key, func(ctx context.Context) (*Result, error) {
		return e.compute(ctx, rg, executionID, q)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	recordAnalysis(ctx, time.Since(start), result, hit)
	return result, nil
}

// validateQuery rejects malformed parameters before any graph work.
func validateQuery(tenantID, executionID string, q Query) error {
	if executionID == "" {
		return newInvalidQuery(tenantID, executionID, "execution id must not be empty")
	}
	if err := queryValidator.Struct(q); err != nil {
		return newInvalidQuery(tenantID, executionID, err.Error())
	}
	for _, t := range q.EdgeTypes {
		if !t.Valid() {
			return newInvalidQuery(tenantID, executionID, fmt.Sprintf("unknown edge type %q", t))
		}
	}
	return nil
}

// frontierEntry is one live traversal path. The path carries every node
// id from its source inclusive, so a path never revisits its own nodes
// while distinct paths may still reach the same node independently.
type frontierEntry struct {
	nodeID string
	path   []string
}

// compute runs the multi-source decayed traversal. The receiver's graph
// structures are immutable, so no locks are held here.
func (e *Engine) compute(ctx context.Context, rg *registeredGraph, executionID string, q Query) (*Result, error) {
	sources := uniqueSorted(q.NodeIDs)
	sourceSet := make(map[string]struct{}, len(sources))
	sourceRepos := make(map[string]struct{}, len(sources))
	for _, id := range sources {
		sourceSet[id] = struct{}{}
		if node, ok := rg.graph.GetNode(id); ok && node.RepoID != "" {
			sourceRepos[node.RepoID] = struct{}{}
		}
	}

	var edgeFilter map[model.EdgeType]struct{}
	if len(q.EdgeTypes) > 0 {
		edgeFilter = make(map[model.EdgeType]struct{}, len(q.EdgeTypes))
		for _, t := range q.EdgeTypes {
			edgeFilter[t] = struct{}{}
		}
	}

	maxDepth := q.MaxDepth
	if maxDepth > MaxBlastDepth {
		maxDepth = MaxBlastDepth
	}
	if !q.IncludeIndirect {
		// Only the first hop is reported, so deeper traversal is wasted.
		maxDepth = 1
	}

	scores := make(map[string]float64)
	firstDepth := make(map[string]int)
	firstPath := make(map[string][]string)
	totalScore := 0.0
	truncated := false

	frontier := make([]frontierEntry, 0, len(sources))
	for _, id := range sources {
		frontier = append(frontier, frontierEntry{nodeID: id, path: []string{id}})
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decay := math.Pow(e.decay, float64(depth))
		next := make([]frontierEntry, 0, len(frontier))
		for i, entry := range frontier {
			if i > 0 && i%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			node, ok := rg.graph.GetNode(entry.nodeID)
			if !ok {
				continue
			}
			for _, edge := range node.Outgoing {
				if edgeFilter != nil {
					if _, allowed := edgeFilter[edge.Type]; !allowed {
						continue
					}
				}
				dest := edge.ToID
				if containsID(entry.path, dest) {
					continue
				}
				contribution := e.weights.Weight(edge.Type) * decay
				scores[dest] += contribution
				totalScore += contribution
				if _, seen := firstDepth[dest]; !seen {
					firstDepth[dest] = depth
					if depth > 0 {
						firstPath[dest] = appendPath(entry.path, dest)
					}
				}
				if len(next) >= e.maxFrontier {
					truncated = true
					continue
				}
				next = append(next, frontierEntry{nodeID: dest, path: appendPath(entry.path, dest)})
			}
		}
		frontier = next
	}

	result := &Result{
		ExecutionID:   executionID,
		SourceNodeIDs: sources,
		ImpactScore:   roundScore(totalScore),
		TotalImpacted: len(scores),
		Truncated:     truncated,
		ComputedAt:    time.Now().UTC(),
	}

	crossRepoCount := 0
	for id, score := range scores {
		node, ok := rg.graph.GetNode(id)
		if !ok {
			continue
		}
		impacted := ImpactedNode{
			Node:  node.Node,
			Score: roundScore(score),
			Depth: firstDepth[id],
		}
		if impacted.Depth == 0 {
			result.Direct = append(result.Direct, impacted)
		} else {
			impacted.Path = firstPath[id]
			result.Indirect = append(result.Indirect, impacted)
		}
		if node.RepoID != "" {
			if _, own := sourceRepos[node.RepoID]; !own {
				crossRepoCount++
				if q.IncludeCrossRepo {
					result.CrossRepo = append(result.CrossRepo, CrossRepoImpact{
						NodeID:   id,
						RepoID:   node.RepoID,
						RepoName: rg.repoNames[node.RepoID],
						Score:    roundScore(score),
					})
				}
			}
		}
	}

	sortImpacted(result.Direct)
	sortImpacted(result.Indirect)
	sort.Slice(result.CrossRepo, func(i, j int) bool {
		if result.CrossRepo[i].Score != result.CrossRepo[j].Score {
			return result.CrossRepo[i].Score > result.CrossRepo[j].Score
		}
		return result.CrossRepo[i].NodeID < result.CrossRepo[j].NodeID
	})

	result.RiskLevel = classifyRisk(result.ImpactScore, result.TotalImpacted, crossRepoCount)
	return result, nil
}

// sortImpacted orders nodes by descending score, then id for stability.
func sortImpacted(nodes []ImpactedNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Score != nodes[j].Score {
			return nodes[i].Score > nodes[j].Score
		}
		return nodes[i].Node.ID < nodes[j].Node.ID
	})
}

// roundScore trims float noise to two decimals so equal analyses
// serialize identically.
func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func containsID(path []string, id string) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}

// appendPath copies before appending so sibling paths never share a
// backing array.
func appendPath(path []string, id string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = id
	return out
}
