// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("driftmap.blast")

// Cache counters are Prometheus-native so the cache can be watched on a
// dashboard without an OTel pipeline.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftmap_blast_cache_hits_total",
		Help: "Number of blast radius cache hits.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftmap_blast_cache_misses_total",
		Help: "Number of blast radius cache misses.",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftmap_blast_cache_evictions_total",
		Help: "Number of blast radius cache entries evicted by capacity pressure.",
	})
	cacheExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftmap_blast_cache_expirations_total",
		Help: "Number of blast radius cache entries dropped after TTL expiry.",
	})
	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftmap_blast_cache_entries",
		Help: "Current number of cached blast radius results.",
	})
)

var (
	metricsOnce sync.Once

	analyzeDuration metric.Float64Histogram
	analyzeTotal    metric.Int64Counter
	impactedNodes   metric.Int64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("driftmap.blast")
		var err error
		analyzeDuration, err = meter.Float64Histogram(
			"blast_analyze_duration_seconds",
			metric.WithDescription("Wall time of blast radius computation, excluding cache hits"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
		analyzeTotal, err = meter.Int64Counter(
			"blast_analyze_total",
			metric.WithDescription("Blast radius analyses by risk level and cache outcome"),
		)
		if err != nil {
			otel.Handle(err)
		}
		impactedNodes, err = meter.Int64Histogram(
			"blast_impacted_nodes",
			metric.WithDescription("Distinct nodes impacted per analysis"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

func recordAnalysis(ctx context.Context, elapsed time.Duration, result *Result, cacheHit bool) {
	initMetrics()
	attrs := metric.WithAttributes(
		attribute.String("risk_level", string(result.RiskLevel)),
		attribute.Bool("cache_hit", cacheHit),
		attribute.Bool("truncated", result.Truncated),
	)
	if analyzeTotal != nil {
		analyzeTotal.Add(ctx, 1, attrs)
	}
	if cacheHit {
		return
	}
	if analyzeDuration != nil {
		analyzeDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if impactedNodes != nil {
		impactedNodes.Record(ctx, int64(result.TotalImpacted), attrs)
	}
}

func startSpan(ctx context.Context, op, executionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "blast."+op, trace.WithAttributes(
		attribute.String("execution_id", executionID),
	))
}
