// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package telemetry installs the OpenTelemetry providers used by callchain.
//
// Packages create their own tracer and meter with otel.Tracer and
// otel.Meter. Until Init installs real providers those are no-ops, so
// libraries and tests pay nothing for instrumentation.
//
// # Exporters
//
// Traces: "stdout", "otlp" (gRPC) or "none".
// Metrics: "stdout", "prometheus" or "none". With Prometheus the /metrics
// handler is available from MetricsHandler.
//
// # Logging
//
// LoggerWithTrace adds trace_id and span_id to a logger when the context
// carries a recording span.
//
// # Thread Safety
//
// Init is called once at startup. Everything else is safe for concurrent
// use.
package telemetry
