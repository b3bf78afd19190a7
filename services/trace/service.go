// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package callchain serves analysis results over HTTP.
//
// The service holds the current result (replaced atomically in watch mode)
// and loads stored snapshots on demand through an LRU cache. Handlers are
// read-only; every response is derived from an immutable view.
package callchain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callchain/services/trace/registry"
	"github.com/AleutianAI/callchain/services/trace/snapshot"
	"github.com/AleutianAI/callchain/services/trace/store"
	"github.com/AleutianAI/callchain/services/trace/telemetry"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// DefaultCacheSize is the number of snapshot views kept in memory.
const DefaultCacheSize = 16

const tracerName = "callchain.api"

// View pairs a store with the registry rebuilt from it.
type View struct {
	Store    *store.Store
	Registry *registry.Registry

	// SnapshotID is empty for the live result.
	SnapshotID string
}

// NewView builds the provider registry for s.
func NewView(ctx context.Context, s *store.Store) *View {
	reg := registry.New()
	reg.Build(ctx, s)
	return &View{Store: s, Registry: reg}
}

// ServiceConfig configures the HTTP service.
type ServiceConfig struct {
	// CacheSize bounds the snapshot view cache.
	// Default: 16
	CacheSize int

	// Snapshots loads stored snapshots. Nil disables the snapshot routes.
	Snapshots *snapshot.Manager

	Logger *slog.Logger
}

// DefaultServiceConfig returns the defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheSize: DefaultCacheSize,
		Logger:    slog.Default(),
	}
}

// Service holds the live result and the snapshot cache.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	mu      sync.RWMutex
	current *View

	snapshots *snapshot.Manager
	cache     *lru.Cache[string, *View]
	logger    *slog.Logger
}

// NewService creates a Service. A nil current view is allowed; the result
// routes answer 503 until SetResult is called.
func NewService(current *View, cfg ServiceConfig) (*Service, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cache, err := lru.New[string, *View](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %w", err)
	}
	return &Service{
		current:   current,
		snapshots: cfg.Snapshots,
		cache:     cache,
		logger:    cfg.Logger,
	}, nil
}

// SetResult replaces the live view.
func (s *Service) SetResult(v *View) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
}

// Current returns the live view or ErrNoResult.
func (s *Service) Current() (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoResult
	}
	return s.current, nil
}

// Snapshot returns the view of a stored snapshot, loading it on a cache
// miss.
func (s *Service) Snapshot(ctx context.Context, id string) (*View, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	if v, ok := s.cache.Get(id); ok {
		return v, nil
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "api.LoadSnapshot",
		trace.WithAttributes(attribute.String("snapshot.id", id)),
	)
	defer span.End()

	st, _, err := s.snapshots.Load(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	v := NewView(ctx, st)
	v.SnapshotID = id
	s.cache.Add(id, v)

	telemetry.LoggerWithTrace(ctx, s.logger).Debug("snapshot cached",
		slog.String("snapshot_id", id),
		slog.Int("chains", len(st.Chains())),
	)
	return v, nil
}

// CachedSnapshots returns the number of snapshot views in memory.
func (s *Service) CachedSnapshots() int {
	return s.cache.Len()
}
