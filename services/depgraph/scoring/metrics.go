// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for scoring operations.
var meter = otel.Meter("driftmap.scoring")

// Metrics for scoring operations.
var (
	calcLatency   metric.Float64Histogram
	calcTotal     metric.Int64Counter
	scoreValues   metric.Int64Histogram
	evidenceCount metric.Int64Histogram
	ruleMatches   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		calcLatency, err = meter.Float64Histogram(
			"scoring_calc_duration_seconds",
			metric.WithDescription("Duration of confidence calculations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		calcTotal, err = meter.Int64Counter(
			"scoring_calc_total",
			metric.WithDescription("Total number of confidence calculations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scoreValues, err = meter.Int64Histogram(
			"scoring_value",
			metric.WithDescription("Distribution of computed confidence values"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evidenceCount, err = meter.Int64Histogram(
			"scoring_evidence_items",
			metric.WithDescription("Evidence items per calculation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		ruleMatches, err = meter.Int64Counter(
			"scoring_rule_matches_total",
			metric.WithDescription("Custom rule matches by rule name"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCalculation records one Calculate invocation.
func recordCalculation(elapsed time.Duration, value, items int) {
	if initMetrics() != nil {
		return
	}
	ctx := context.Background()
	calcLatency.Record(ctx, elapsed.Seconds())
	calcTotal.Add(ctx, 1)
	scoreValues.Record(ctx, int64(value))
	evidenceCount.Record(ctx, int64(items))
}

// recordRuleMatch records matches for one rule.
func recordRuleMatch(rule string, matches int) {
	if initMetrics() != nil {
		return
	}
	ruleMatches.Add(context.Background(), int64(matches),
		metric.WithAttributes(attribute.String("rule", rule)))
}
