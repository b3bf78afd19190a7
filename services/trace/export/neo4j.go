// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/callchain/services/trace/store"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 500

// runFunc executes one Cypher statement.
type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Neo4jLoader loads an analysis store into Neo4j with batched UNWIND
// queries. Loads are idempotent: every node and relationship is merged on
// its id.
type Neo4jLoader struct {
	driver    neo4j.DriverWithContext
	run       runFunc
	batchSize int
	logger    *slog.Logger
}

// LoaderOption configures a Neo4jLoader.
type LoaderOption func(*Neo4jLoader)

// WithBatchSize sets the number of rows per statement.
func WithBatchSize(n int) LoaderOption {
	return func(l *Neo4jLoader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Neo4jLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewNeo4jLoader connects to Neo4j and verifies connectivity.
func NewNeo4jLoader(ctx context.Context, uri, user, password string, opts ...LoaderOption) (*Neo4jLoader, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", uri, err)
	}

	l := newLoader(func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer)
		return err
	}, opts...)
	l.driver = driver
	return l, nil
}

func newLoader(run runFunc, opts ...LoaderOption) *Neo4jLoader {
	l := &Neo4jLoader{
		run:       run,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases the driver.
func (l *Neo4jLoader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Neo4jLoader) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX callchain_service_id IF NOT EXISTS FOR (n:Service) ON (n.id)",
		"CREATE INDEX callchain_class_id IF NOT EXISTS FOR (n:Class) ON (n.id)",
		"CREATE INDEX callchain_method_id IF NOT EXISTS FOR (n:Method) ON (n.id)",
		"CREATE INDEX callchain_chain_id IF NOT EXISTS FOR (n:Chain) ON (n.id)",
	}
	for _, q := range indexes {
		if err := l.run(ctx, q, nil); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Statements used by Load, in execution order.
const (
	mergeServices = `UNWIND $batch AS row
MERGE (s:Service {id: row.id})
SET s.name = row.name, s.groupId = row.groupId, s.artifactId = row.artifactId, s.version = row.version`

	mergeClasses = `UNWIND $batch AS row
MERGE (c:Class {id: row.id})
SET c.name = row.name, c.qualifiedName = row.qualifiedName, c.type = row.type, c.filePath = row.filePath
WITH c, row
MATCH (s:Service {id: row.serviceId})
MERGE (s)-[:HAS_CLASS]->(c)`

	mergeMethods = `UNWIND $batch AS row
MERGE (m:Method {id: row.id})
SET m.name = row.name, m.signature = row.signature, m.returnType = row.returnType, m.lineStart = row.lineStart
WITH m, row
MATCH (c:Class {id: row.classId})
MERGE (c)-[:HAS_METHOD]->(m)`

	mergeCalls = `UNWIND $batch AS row
MATCH (src:Method {id: row.source}), (dst:Method {id: row.target})
MERGE (src)-[r:CALLS {id: row.id}]->(dst)
SET r.callType = row.callType, r.crossService = row.crossService, r.line = row.line`

	mergeChains = `UNWIND $batch AS row
MERGE (ch:Chain {id: row.id})
SET ch.route = row.route, ch.maxDepth = row.maxDepth, ch.crossService = row.crossService, ch.services = row.services
WITH ch, row
MATCH (m:Method {id: row.entry})
MERGE (ch)-[:STARTS_AT]->(m)`

	mergeChainSteps = `UNWIND $batch AS row
MATCH (ch:Chain {id: row.chain}), (m:Method {id: row.method})
MERGE (ch)-[r:STEP {position: row.position}]->(m)
SET r.level = row.level, r.callType = row.callType`
)

// LoadStats counts the rows sent per statement kind.
type LoadStats struct {
	Services   int
	Classes    int
	Methods    int
	Calls      int
	Chains     int
	ChainSteps int
}

// Load upserts the whole store.
//
// Calls are loaded only when they have a resolved target; remote hops are
// represented by chain steps.
func (l *Neo4jLoader) Load(ctx context.Context, s *store.Store) (LoadStats, error) {
	var stats LoadStats

	services := s.Services()
	rows := make([]map[string]any, 0, len(services))
	for _, svc := range services {
		rows = append(rows, map[string]any{
			"id": svc.ID, "name": svc.Name, "groupId": svc.GroupID,
			"artifactId": svc.ArtifactID, "version": svc.Version,
		})
	}
	if err := l.batched(ctx, "services", mergeServices, rows); err != nil {
		return stats, err
	}
	stats.Services = len(rows)

	classes := s.Classes()
	rows = make([]map[string]any, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, map[string]any{
			"id": c.ID, "serviceId": c.ServiceID, "name": c.ClassName,
			"qualifiedName": c.QualifiedName, "type": c.Role.String(), "filePath": c.FilePath,
		})
	}
	if err := l.batched(ctx, "classes", mergeClasses, rows); err != nil {
		return stats, err
	}
	stats.Classes = len(rows)

	methods := s.Methods()
	rows = make([]map[string]any, 0, len(methods))
	for _, m := range methods {
		rows = append(rows, map[string]any{
			"id": m.ID, "classId": m.ClassID, "name": m.Name,
			"signature": m.Signature, "returnType": m.ReturnType, "lineStart": m.LineStart,
		})
	}
	if err := l.batched(ctx, "methods", mergeMethods, rows); err != nil {
		return stats, err
	}
	stats.Methods = len(rows)

	rows = nil
	for _, e := range s.Edges() {
		if !e.IsResolved() {
			continue
		}
		rows = append(rows, map[string]any{
			"id": e.ID, "source": e.SourceMethodID, "target": e.TargetMethodID,
			"callType": e.Kind.String(), "crossService": e.CrossService, "line": e.Line,
		})
	}
	if err := l.batched(ctx, "calls", mergeCalls, rows); err != nil {
		return stats, err
	}
	stats.Calls = len(rows)

	chains := s.Chains()
	rows = make([]map[string]any, 0, len(chains))
	var steps []map[string]any
	for _, ch := range chains {
		rows = append(rows, map[string]any{
			"id": ch.ID, "route": ch.Entry.Route, "maxDepth": ch.MaxDepth,
			"crossService": ch.CrossService, "services": ch.InvolvedServices,
			"entry": ch.Entry.MethodID,
		})
		for i, n := range ch.Nodes {
			steps = append(steps, map[string]any{
				"chain": ch.ID, "method": n.MethodID, "position": i,
				"level": n.Level, "callType": n.Kind.String(),
			})
		}
	}
	if err := l.batched(ctx, "chains", mergeChains, rows); err != nil {
		return stats, err
	}
	stats.Chains = len(rows)
	if err := l.batched(ctx, "chain steps", mergeChainSteps, steps); err != nil {
		return stats, err
	}
	stats.ChainSteps = len(steps)

	l.logger.Info("loaded analysis into neo4j",
		slog.Int("services", stats.Services),
		slog.Int("classes", stats.Classes),
		slog.Int("methods", stats.Methods),
		slog.Int("calls", stats.Calls),
		slog.Int("chains", stats.Chains),
	)
	return stats, nil
}

// batched runs cypher once per batchSize rows.
func (l *Neo4jLoader) batched(ctx context.Context, what, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+l.batchSize, len(rows))
		if err := l.run(ctx, cypher, map[string]any{"batch": rows[start:end]}); err != nil {
			return fmt.Errorf("loading %s: %w", what, err)
		}
	}
	l.logger.Debug("loaded batch", slog.String("kind", what), slog.Int("rows", len(rows)))
	return nil
}
