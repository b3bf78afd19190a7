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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/snapshot"
	"github.com/AleutianAI/callchain/services/trace/telemetry"
)

// DefaultChainLimit caps GET /chains when no limit is given.
const DefaultChainLimit = 100

// Handlers contains the HTTP handlers.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, logger: svc.logger}
}

// HandleHealth handles GET /v1/callchain/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:          "healthy",
		Version:         ServiceVersion,
		CachedSnapshots: h.svc.CachedSnapshots(),
	}
	if v, err := h.svc.Current(); err == nil {
		counts := v.Store.Counts()
		resp.Counts = &counts
	} else {
		resp.Status = "empty"
	}
	c.JSON(http.StatusOK, resp)
}

// HandleServices handles GET /v1/callchain/services.
func (h *Handlers) HandleServices(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	services := v.Store.Services()
	resp := ServicesResponse{Services: make([]ServiceInfo, 0, len(services))}
	for _, svc := range services {
		resp.Services = append(resp.Services, ServiceInfo{Service: svc, Classes: len(v.Store.ClassesOf(svc.ID))})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleClass handles GET /v1/callchain/classes/:id.
//
// Response:
//
//	200 OK: ClassResponse
//	404 Not Found: Unknown class id
func (h *Handlers) HandleClass(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	cls, found := v.Store.Class(c.Param("id"))
	if !found {
		notFound(c, "class")
		return
	}
	resp := ClassResponse{Class: cls, Methods: v.Store.MethodsOf(cls.ID)}
	if svc, ok := v.Store.Service(cls.ServiceID); ok {
		resp.Service = svc
	}
	c.JSON(http.StatusOK, resp)
}

// HandleMethod handles GET /v1/callchain/methods/:id.
//
// Response:
//
//	200 OK: MethodResponse with the outgoing call edges
//	404 Not Found: Unknown method id
func (h *Handlers) HandleMethod(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	m, found := v.Store.Method(c.Param("id"))
	if !found {
		notFound(c, "method")
		return
	}
	resp := MethodResponse{Method: m, Calls: v.Store.EdgesFrom(m.ID)}
	if resp.Calls == nil {
		resp.Calls = []*model.CallEdge{}
	}
	if cls, ok := v.Store.Class(m.ClassID); ok {
		resp.Class = cls
	}
	c.JSON(http.StatusOK, resp)
}

// HandleChains handles GET /v1/callchain/chains.
//
// Query Parameters:
//
//	cross_service: only chains spanning services (optional)
//	service: service name or id (optional)
//	limit: maximum number of chains (optional, default 100)
//
// Response:
//
//	200 OK: ChainsResponse
//	400 Bad Request: Invalid limit
func (h *Handlers) HandleChains(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	h.writeChains(c, v)
}

// HandleChain handles GET /v1/callchain/chains/:id.
//
// Response:
//
//	200 OK: ChainDetail with every node expanded
//	404 Not Found: Unknown chain id
func (h *Handlers) HandleChain(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	chain, found := v.Store.Chain(c.Param("id"))
	if !found {
		notFound(c, "chain")
		return
	}
	c.JSON(http.StatusOK, Expand(v.Store, chain))
}

// HandleRegistry handles GET /v1/callchain/registry.
func (h *Handlers) HandleRegistry(c *gin.Context) {
	v, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, RegistryListing(v.Registry))
}

// HandleSnapshotChains handles GET /v1/callchain/snapshots/:id/chains.
//
// Description:
//
//	Lists the chains of a stored snapshot with the same filters as
//	HandleChains. Snapshots are served from the view cache after the
//	first request.
//
// Response:
//
//	200 OK: ChainsResponse
//	404 Not Found: Unknown snapshot
//	501 Not Implemented: Snapshots disabled
func (h *Handlers) HandleSnapshotChains(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	ctx := c.Request.Context()
	logger := telemetry.LoggerWithTrace(ctx, h.logger).With(
		slog.String("request_id", requestID),
		slog.String("handler", "HandleSnapshotChains"),
	)

	id := c.Param("id")
	v, err := h.svc.Snapshot(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrSnapshotsDisabled):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: err.Error(), Code: "SNAPSHOTS_DISABLED"})
		return
	case errors.Is(err, snapshot.ErrSnapshotNotFound):
		notFound(c, "snapshot")
		return
	default:
		logger.Error("loading snapshot failed", slog.String("snapshot_id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SNAPSHOT_LOAD_FAILED"})
		return
	}
	h.writeChains(c, v)
}

func (h *Handlers) writeChains(c *gin.Context, v *View) {
	limit := DefaultChainLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_PARAMETER"})
			return
		}
		limit = n
	}

	chains, total := FilterChains(v.Store, ChainFilter{
		CrossServiceOnly: parseBool(c.Query("cross_service")),
		Service:          c.Query("service"),
		Limit:            limit,
	})
	resp := ChainsResponse{Chains: make([]ChainSummary, 0, len(chains)), Total: total}
	for _, chain := range chains {
		resp.Chains = append(resp.Chains, Summarize(v.Store, chain))
	}
	c.JSON(http.StatusOK, resp)
}

// current writes 503 and returns false when no result is loaded.
func (h *Handlers) current(c *gin.Context) (*View, bool) {
	v, err := h.svc.Current()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "NO_RESULT"})
		return nil, false
	}
	return v, true
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: what + " " + ErrNotFound.Error(), Code: "NOT_FOUND"})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
