// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("callchain.registry")
	meter  = otel.Meter("callchain.registry")
)

// Resolution outcomes.
const (
	outcomeHit       = "hit"
	outcomeMiss      = "miss"
	outcomeAmbiguous = "ambiguous"
)

var (
	resolutionTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		resolutionTotal, metricsErr = meter.Int64Counter(
			"callchain_registry_resolutions_total",
			metric.WithDescription("Remote interface resolutions by outcome"),
		)
	})
	return metricsErr
}

// recordResolution counts one resolution. Resolution carries no context, so
// the measurement is recorded against the background context.
func recordResolution(outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	resolutionTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

func startBuildSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Registry.Build")
}

func setBuildSpanResult(span trace.Span, providers int) {
	span.SetAttributes(attribute.Int("registry.providers", providers))
}
