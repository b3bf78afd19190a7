// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package telemetry

import (
	"context"
	"log/slog"
)

// LoggerWithTrace returns logger with trace_id and span_id attributes taken
// from ctx. The logger is returned unchanged when ctx carries no valid span
// context. A nil logger falls back to slog.Default().
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}
	traceID := TraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With(
		slog.String("trace_id", traceID),
		slog.String("span_id", SpanID(ctx)),
	)
}
