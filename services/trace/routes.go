// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package callchain

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/callchain/services/trace/telemetry"
)

// RegisterRoutes registers all /v1/callchain routes.
//
// Endpoints:
//
//	GET /v1/callchain/health - Health and result counts
//	GET /v1/callchain/services - Scanned services
//	GET /v1/callchain/classes/:id - Class with its methods
//	GET /v1/callchain/methods/:id - Method with its outgoing calls
//	GET /v1/callchain/chains - Chain summaries (cross_service, service, limit)
//	GET /v1/callchain/chains/:id - Chain with expanded nodes
//	GET /v1/callchain/registry - Remote provider registry
//	GET /v1/callchain/snapshots/:id/chains - Chain summaries of a snapshot
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cc := rg.Group("/callchain")
	{
		cc.GET("/health", handlers.HandleHealth)
		cc.GET("/services", handlers.HandleServices)
		cc.GET("/classes/:id", handlers.HandleClass)
		cc.GET("/methods/:id", handlers.HandleMethod)
		cc.GET("/chains", handlers.HandleChains)
		cc.GET("/chains/:id", handlers.HandleChain)
		cc.GET("/registry", handlers.HandleRegistry)
		cc.GET("/snapshots/:id/chains", handlers.HandleSnapshotChains)
	}
}

// NewRouter builds the gin engine with recovery, request logging and
// OpenTelemetry middleware. /metrics is mounted when the Prometheus
// exporter is active.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("callchain"))
	router.Use(requestLogger(handlers.logger))

	if metrics := telemetry.MetricsHandler(); metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		telemetry.LoggerWithTrace(c.Request.Context(), logger).Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
		)
	}
}
