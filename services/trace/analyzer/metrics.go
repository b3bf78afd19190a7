// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package analyzer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("callchain.analyzer")
	meter  = otel.Meter("callchain.analyzer")
)

var (
	phaseLatency metric.Float64Histogram
	filesTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		phaseLatency, err = meter.Float64Histogram(
			"callchain_analysis_phase_duration_seconds",
			metric.WithDescription("Duration of analysis phases"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesTotal, err = meter.Int64Counter(
			"callchain_analysis_files_total",
			metric.WithDescription("Source files processed, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordPhase(ctx context.Context, phase Phase, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	phaseLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase.String()),
	))
}

func recordFiles(ctx context.Context, ok, failed int) {
	if err := initMetrics(); err != nil {
		return
	}
	filesTotal.Add(ctx, int64(ok), metric.WithAttributes(attribute.String("outcome", "ok")))
	filesTotal.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))
}

func startAnalyzeSpan(ctx context.Context, paths int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "analyzer.Analyze",
		trace.WithAttributes(attribute.Int("analyzer.paths", paths)),
	)
}

func startPhaseSpan(ctx context.Context, phase Phase) (context.Context, trace.Span) {
	return tracer.Start(ctx, "analyzer."+phase.String())
}

func setAnalyzeSpanResult(span trace.Span, r *Result) {
	counts := r.Store.Counts()
	span.SetAttributes(
		attribute.Int("analyzer.services", counts.Services),
		attribute.Int("analyzer.classes", counts.Classes),
		attribute.Int("analyzer.methods", counts.Methods),
		attribute.Int("analyzer.edges", counts.Edges),
		attribute.Int("analyzer.chains", counts.Chains),
		attribute.Int("analyzer.file_errors", len(r.FileErrors)),
	)
}
