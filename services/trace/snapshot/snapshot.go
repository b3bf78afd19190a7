// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package snapshot saves analysis results into BadgerDB and loads them
// back.
//
// Each snapshot is the gzip-compressed JSON document produced by the
// export package plus a small metadata record used for listing.
//
// Key Schema:
//
//	callchain:snap:{projectHash}:{snapshotID}:data → gzip(JSON(export.Document))
//	callchain:snap:{projectHash}:{snapshotID}:meta → JSON(Metadata)
//	callchain:snap:{projectHash}:latest            → snapshotID
//	callchain:snap:index:{snapshotID}              → projectHash
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/callchain/services/trace/export"
	"github.com/AleutianAI/callchain/services/trace/model"
	badgerstore "github.com/AleutianAI/callchain/services/trace/storage/badger"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// SchemaVersion is written into every snapshot's metadata.
const SchemaVersion = "1"

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

const (
	keyPrefixSnap      = "callchain:snap:"
	keyPrefixSnapIndex = "callchain:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

var (
	// ErrSnapshotNotFound indicates an unknown snapshot id or a project
	// without snapshots.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrIntegrity indicates a payload whose hash does not match its
	// metadata.
	ErrIntegrity = errors.New("snapshot integrity check failed")
)

// Metadata describes a saved snapshot.
type Metadata struct {
	ID             string       `json:"id"`
	Label          string       `json:"label,omitempty"`
	ProjectName    string       `json:"project_name"`
	ProjectHash    string       `json:"project_hash"`
	CreatedAtMilli int64        `json:"created_at_milli"`
	Counts         store.Counts `json:"counts"`
	SchemaVersion  string       `json:"schema_version"`
	CompressedSize int64        `json:"compressed_size"`
	ContentHash    string       `json:"content_hash"`
}

// CreatedAt returns the creation time in UTC.
func (m *Metadata) CreatedAt() time.Time {
	return time.UnixMilli(m.CreatedAtMilli).UTC()
}

// Manager saves and loads snapshots.
//
// Thread Safety: Safe for concurrent use. BadgerDB handles its own
// concurrency control.
type Manager struct {
	db     *badgerstore.DB
	logger *slog.Logger
}

// NewManager creates a Manager over an opened database. The caller owns
// the database and closes it.
func NewManager(db *badgerstore.DB, logger *slog.Logger) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}, nil
}

// ProjectHash identifies the analyzed project by the sorted root paths of
// its services. Returns the first 16 hex characters of a SHA-256.
func ProjectHash(s *store.Store) string {
	var roots []string
	for _, svc := range s.Services() {
		roots = append(roots, svc.RootPath)
	}
	sort.Strings(roots)
	return hashString(strings.Join(roots, "\n"))[:16]
}

// Save stores the store as a new snapshot and makes it the latest for its
// project.
//
// Outputs:
//   - *Metadata: The saved snapshot's metadata.
//   - error: Encoding, compression or storage failure.
func (m *Manager) Save(ctx context.Context, s *store.Store, label string) (*Metadata, error) {
	if s == nil {
		return nil, errors.New("store must not be nil")
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if err := export.Write(gw, s, false); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	data := compressed.Bytes()

	now := time.Now()
	projectHash := ProjectHash(s)
	id := hashString(fmt.Sprintf("%s:%d:%s", projectHash, now.UnixNano(), model.NewID()))[:16]

	meta := &Metadata{
		ID:             id,
		Label:          label,
		ProjectName:    s.Metadata().ProjectName,
		ProjectHash:    projectHash,
		CreatedAtMilli: now.UnixMilli(),
		Counts:         s.Counts(),
		SchemaVersion:  SchemaVersion,
		CompressedSize: int64(len(data)),
		ContentHash:    hashBytes(data),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = m.db.SetAll(ctx, map[string][]byte{
		dataKey(projectHash, id):                      data,
		metaKey(projectHash, id):                      metaJSON,
		keyPrefixSnap + projectHash + keySuffixLatest: []byte(id),
		keyPrefixSnapIndex + id:                       []byte(projectHash),
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	m.logger.Info("snapshot saved",
		slog.String("snapshot_id", id),
		slog.String("project_hash", projectHash),
		slog.Int("chains", meta.Counts.Chains),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load returns the snapshot with the given id.
func (m *Manager) Load(ctx context.Context, id string) (*store.Store, *Metadata, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("empty id: %w", ErrSnapshotNotFound)
	}
	projectHash, err := m.get(ctx, keyPrefixSnapIndex+id)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return m.loadByKeys(ctx, string(projectHash), id)
}

// LoadLatest returns the most recently saved snapshot of a project.
func (m *Manager) LoadLatest(ctx context.Context, projectHash string) (*store.Store, *Metadata, error) {
	id, err := m.get(ctx, keyPrefixSnap+projectHash+keySuffixLatest)
	if err != nil {
		return nil, nil, fmt.Errorf("latest snapshot of %s: %w", projectHash, err)
	}
	return m.loadByKeys(ctx, projectHash, string(id))
}

// List returns snapshot metadata, newest first. An empty projectHash lists
// every project. A limit <= 0 uses DefaultListLimit.
func (m *Manager) List(ctx context.Context, projectHash string, limit int) ([]*Metadata, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	prefix := keyPrefixSnap
	if projectHash != "" {
		prefix = keyPrefixSnap + projectHash + ":"
	}

	var results []*Metadata
	err := m.db.ScanPrefix(ctx, prefix, func(key string, value []byte) error {
		if !strings.HasSuffix(key, keySuffixMeta) {
			return nil
		}
		var meta Metadata
		if err := json.Unmarshal(value, &meta); err != nil {
			m.logger.Warn("skipping corrupt snapshot metadata",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return nil
		}
		results = append(results, &meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot. When it was the latest of its project the
// latest pointer is removed too.
func (m *Manager) Delete(ctx context.Context, id string) error {
	projectHash, err := m.get(ctx, keyPrefixSnapIndex+id)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", id, err)
	}
	ph := string(projectHash)

	keys := []string{dataKey(ph, id), metaKey(ph, id), keyPrefixSnapIndex + id}
	latestKey := keyPrefixSnap + ph + keySuffixLatest
	if latest, err := m.get(ctx, latestKey); err == nil && string(latest) == id {
		keys = append(keys, latestKey)
	}

	if err := m.db.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	m.logger.Info("snapshot deleted", slog.String("snapshot_id", id))
	return nil
}

func (m *Manager) loadByKeys(ctx context.Context, projectHash, id string) (*store.Store, *Metadata, error) {
	metaJSON, err := m.get(ctx, metaKey(projectHash, id))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s metadata: %w", id, err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", id, err)
	}

	data, err := m.get(ctx, dataKey(projectHash, id))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s data: %w", id, err)
	}
	if meta.ContentHash != "" && meta.ContentHash != hashBytes(data) {
		return nil, nil, fmt.Errorf("%s: %w", id, ErrIntegrity)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", id, err)
	}
	defer gr.Close()

	s, err := export.Read(io.LimitReader(gr, 1<<30))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return s, &meta, nil
}

// get reads a key, mapping a missing key to ErrSnapshotNotFound.
func (m *Manager) get(ctx context.Context, key string) ([]byte, error) {
	val, err := m.db.Get(ctx, key)
	if errors.Is(err, badgerstore.ErrKeyNotFound) {
		return nil, ErrSnapshotNotFound
	}
	return val, err
}

func dataKey(projectHash, id string) string {
	return keyPrefixSnap + projectHash + ":" + id + keySuffixData
}

func metaKey(projectHash, id string) string {
	return keyPrefixSnap + projectHash + ":" + id + keySuffixMeta
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
