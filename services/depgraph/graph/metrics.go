// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("driftmap.graph")
	meter  = otel.Meter("driftmap.graph")
)

// Metrics for graph assembly and traversal.
var (
	assembleLatency  metric.Float64Histogram
	assembleTotal    metric.Int64Counter
	nodesAssembled   metric.Int64Histogram
	edgesAssembled   metric.Int64Histogram
	traversalLatency metric.Float64Histogram
	traversalResults metric.Int64Histogram
	registeredGraphs metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		assembleLatency, err = meter.Float64Histogram(
			"graph_assemble_duration_seconds",
			metric.WithDescription("Duration of graph assembly"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		assembleTotal, err = meter.Int64Counter(
			"graph_assemble_total",
			metric.WithDescription("Total number of graph assemblies"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesAssembled, err = meter.Int64Histogram(
			"graph_nodes_assembled",
			metric.WithDescription("Nodes per assembled graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesAssembled, err = meter.Int64Histogram(
			"graph_edges_assembled",
			metric.WithDescription("Edges per assembled graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		traversalLatency, err = meter.Float64Histogram(
			"graph_traversal_duration_seconds",
			metric.WithDescription("Duration of traversal operations by operation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		traversalResults, err = meter.Int64Histogram(
			"graph_traversal_results",
			metric.WithDescription("Result sizes of traversal operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		registeredGraphs, err = meter.Int64Gauge(
			"graph_registered",
			metric.WithDescription("Currently registered graphs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAssembly records one graph assembly.
func recordAssembly(elapsed time.Duration, nodes, edges int) {
	if initMetrics() != nil {
		return
	}
	ctx := context.Background()
	assembleLatency.Record(ctx, elapsed.Seconds())
	assembleTotal.Add(ctx, 1)
	nodesAssembled.Record(ctx, int64(nodes))
	edgesAssembled.Record(ctx, int64(edges))
}

// recordTraversal records one traversal operation.
func recordTraversal(op string, elapsed time.Duration, results int) {
	if initMetrics() != nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("operation", op))
	traversalLatency.Record(ctx, elapsed.Seconds(), attrs)
	traversalResults.Record(ctx, int64(results), attrs)
}

// recordRegistration records the current registry size.
func recordRegistration(count int) {
	if initMetrics() != nil {
		return
	}
	registeredGraphs.Record(context.Background(), int64(count))
}
