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
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/callchain/services/trace/classify"
	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// Default builder configuration values.
const (
	// DefaultMaxLevel is the deepest level a chain may reach below its
	// entry node.
	DefaultMaxLevel = 20

	// DefaultWorkerCount builds chains sequentially.
	DefaultWorkerCount = 1
)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// MaxLevel is the level ceiling. A chain holds at most MaxLevel+1
	// nodes.
	// Default: 20
	MaxLevel int

	// WorkerCount is the number of chains built in parallel.
	// Default: 1
	WorkerCount int

	// Logger receives debug output for skipped remote edges.
	Logger *slog.Logger
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxLevel:    DefaultMaxLevel,
		WorkerCount: DefaultWorkerCount,
		Logger:      slog.Default(),
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithMaxLevel sets the level ceiling.
func WithMaxLevel(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxLevel = n
	}
}

// WithWorkerCount sets the number of chains built in parallel.
func WithWorkerCount(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.WorkerCount = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Builder constructs call chains from entry points.
//
// The builder is stateless and can be reused across builds.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each chain is walked with its own
//	visited set and only reads the store and the resolver.
type Builder struct {
	options  BuilderOptions
	resolver Resolver
}

// NewBuilder creates a Builder that crosses services through resolver.
//
// Example:
//
//	reg := registry.New()
//	reg.Build(ctx, s)
//	builder := graph.NewBuilder(reg, graph.WithWorkerCount(4))
//	result, err := builder.Build(ctx, s)
func NewBuilder(resolver Resolver, opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxLevel < 0 {
		options.MaxLevel = 0
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = DefaultWorkerCount
	}
	return &Builder{options: options, resolver: resolver}
}

// EntryPoints returns every request-mapped method of every controller
// class, in store order.
func (b *Builder) EntryPoints(s *store.Store) []Entry {
	var entries []Entry
	for _, cls := range s.Classes() {
		if cls.Role != model.RoleController {
			continue
		}
		for _, m := range s.MethodsOf(cls.ID) {
			if classify.IsEntryPoint(m) {
				entries = append(entries, Entry{Method: m, Class: cls, Route: classify.Route(m, cls)})
			}
		}
	}
	return entries
}

// Build discovers entry points and builds one chain per entry.
//
// Description:
//
//	Chains are built by up to WorkerCount goroutines and returned in entry
//	discovery order. The store is not modified; callers add the chains.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked before each chain starts; a
//	      chain in progress always completes.
//	s - Completed store with linked local edges. Must not be nil.
//
// Outputs:
//
//	*BuildResult - Chains and statistics. Partial when ctx is canceled.
//	error - ErrNilStore, ErrNilResolver, or the context error.
func (b *Builder) Build(ctx context.Context, s *store.Store) (*BuildResult, error) {
	if s == nil {
		return nil, ErrNilStore
	}
	if b.resolver == nil {
		return nil, ErrNilResolver
	}

	start := time.Now()
	entries := b.EntryPoints(s)

	ctx, span := startBuildSpan(ctx, len(entries))
	defer span.End()

	chains := make([]*model.Chain, len(entries))
	perChain := make([]chainStats, len(entries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.WorkerCount)
	for i, entry := range entries {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			chains[i], perChain[i] = b.buildChain(s, entry)
			return nil
		})
	}
	err := g.Wait()

	result := &BuildResult{Chains: make([]*model.Chain, 0, len(chains))}
	result.Stats.EntryPoints = len(entries)
	for i, c := range chains {
		if c == nil {
			continue
		}
		result.Chains = append(result.Chains, c)
		result.Stats.merge(perChain[i])
		if c.CrossService {
			result.Stats.CrossServiceChains++
		} else {
			result.Stats.Chains++
		}
		if c.MaxDepth > result.Stats.LongestChain {
			result.Stats.LongestChain = c.MaxDepth
		}
		recordChainNodes(ctx, c.MaxDepth)
	}
	result.Stats.DurationMilli = time.Since(start).Milliseconds()

	setBuildSpanResult(span, result.Stats)
	recordBuildMetrics(ctx, time.Since(start), result.Stats)

	if err == nil {
		err = ctx.Err()
	}
	return result, err
}

// BuildChain walks a single entry point.
func (b *Builder) BuildChain(s *store.Store, entry Entry) *model.Chain {
	c, _ := b.buildChain(s, entry)
	return c
}

// walk is the private state of one chain traversal.
type walk struct {
	s        *store.Store
	chain    *model.Chain
	visited  map[string]bool
	maxNodes int
	stats    chainStats
}

func (b *Builder) buildChain(s *store.Store, entry Entry) (*model.Chain, chainStats) {
	root := model.ChainNode{
		Level:     0,
		MethodID:  entry.Method.ID,
		ClassID:   entry.Class.ID,
		ServiceID: entry.Class.ServiceID,
		Route:     entry.Route,
	}

	w := &walk{
		s: s,
		chain: &model.Chain{
			ID:    model.NewID(),
			Entry: root,
			Nodes: []model.ChainNode{root},
		},
		visited:  map[string]bool{entry.Method.ID: true},
		maxNodes: b.options.MaxLevel + 1,
	}

	b.traverse(w, entry.Method.ID, 0)
	w.chain.Finalize()
	return w.chain, w.stats
}

// traverse appends the callees of methodID depth-first in edge order.
func (b *Builder) traverse(w *walk, methodID string, level int) {
	edges := w.s.EdgesFrom(methodID)
	if len(edges) == 0 {
		return
	}
	if level >= b.options.MaxLevel {
		w.stats.truncated = true
		return
	}

	for _, e := range edges {
		if len(w.chain.Nodes) >= w.maxNodes {
			w.stats.truncated = true
			return
		}

		t, ok := b.targetOf(w, e)
		if !ok || w.visited[t.method.ID] {
			continue
		}
		w.visited[t.method.ID] = true

		w.chain.Nodes = append(w.chain.Nodes, model.ChainNode{
			Level:     level + 1,
			MethodID:  t.method.ID,
			ClassID:   t.classID,
			ServiceID: t.serviceID,
			Kind:      e.Kind,
		})
		b.traverse(w, t.method.ID, level+1)
	}
}

// targetOf resolves the method a call edge leads to.
func (b *Builder) targetOf(w *walk, e *model.CallEdge) (target, bool) {
	if e.Kind == model.CallRemote && e.CrossService {
		return b.remoteTarget(w, e)
	}
	if !e.IsResolved() {
		return target{}, false
	}

	m, ok := w.s.Method(e.TargetMethodID)
	if !ok {
		return target{}, false
	}
	cls, ok := w.s.Class(m.ClassID)
	if !ok {
		return target{}, false
	}
	return target{method: m, classID: cls.ID, serviceID: cls.ServiceID}, true
}

func (b *Builder) remoteTarget(w *walk, e *model.CallEdge) (target, bool) {
	iface, method, ok := e.SplitTarget()
	if !ok {
		b.skipRemote(w, e, "malformed target")
		return target{}, false
	}

	binding, ok := b.resolver.ResolveTagged(iface, e.Version, e.Group)
	if !ok {
		b.skipRemote(w, e, "no provider")
		return target{}, false
	}

	m, ok := w.s.FindMethod(binding.ClassID, method)
	if !ok {
		b.skipRemote(w, e, "provider has no such method")
		return target{}, false
	}

	w.stats.remoteResolved++
	return target{method: m, classID: binding.ClassID, serviceID: binding.ServiceID}, true
}

func (b *Builder) skipRemote(w *walk, e *model.CallEdge, reason string) {
	w.stats.remoteUnresolved++
	b.options.Logger.Debug("skipping remote call",
		slog.String("target", e.TargetQualified),
		slog.String("reason", reason),
		slog.Int("line", e.Line),
	)
}
