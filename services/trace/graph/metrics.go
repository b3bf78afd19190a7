// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for chain building.
var (
	tracer = otel.Tracer("callchain.graph")
	meter  = otel.Meter("callchain.graph")
)

var (
	buildLatency metric.Float64Histogram
	chainsBuilt  metric.Int64Counter
	chainNodes   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"callchain_chain_build_duration_seconds",
			metric.WithDescription("Duration of chain build phases"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainsBuilt, err = meter.Int64Counter(
			"callchain_chains_total",
			metric.WithDescription("Total number of chains built"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainNodes, err = meter.Int64Histogram(
			"callchain_chain_nodes",
			metric.WithDescription("Number of nodes per chain"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a build phase.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats) {
	if err := initMetrics(); err != nil {
		return
	}
	buildLatency.Record(ctx, duration.Seconds())
	chainsBuilt.Add(ctx, int64(stats.Chains),
		metric.WithAttributes(attribute.Bool("cross_service", false)))
	chainsBuilt.Add(ctx, int64(stats.CrossServiceChains),
		metric.WithAttributes(attribute.Bool("cross_service", true)))
}

// recordChainNodes records the size of one chain.
func recordChainNodes(ctx context.Context, nodes int) {
	if err := initMetrics(); err != nil {
		return
	}
	chainNodes.Record(ctx, int64(nodes))
}

// startBuildSpan creates a span for a build phase.
func startBuildSpan(ctx context.Context, entryCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ChainBuilder.Build",
		trace.WithAttributes(
			attribute.Int("chain.entry_count", entryCount),
		),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, stats BuildStats) {
	span.SetAttributes(
		attribute.Int("chain.count", stats.Chains),
		attribute.Int("chain.cross_service", stats.CrossServiceChains),
		attribute.Int("chain.remote_unresolved", stats.RemoteUnresolved),
	)
}
