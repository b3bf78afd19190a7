// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package snapshot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callchain/services/trace/model"
	badgerstore "github.com/AleutianAI/callchain/services/trace/storage/badger"
	"github.com/AleutianAI/callchain/services/trace/store"
)

func newTestManager(t *testing.T) (*Manager, *badgerstore.DB) {
	t.Helper()
	db, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := NewManager(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m, db
}

func projectStore(roots ...string) *store.Store {
	s := store.New()
	for i, root := range roots {
		s.AddService(&model.Service{ID: model.NewID(), Name: "svc" + string(rune('a'+i)), RootPath: root})
	}
	cls := &model.Class{ID: "c1", ServiceID: s.Services()[0].ID, ClassName: "OrderController", Role: model.RoleController}
	s.AddClass(cls)
	s.AddMethod(&model.Method{ID: "m1", ClassID: "c1", Name: "get"})
	chain := &model.Chain{ID: "ch1", Entry: model.ChainNode{MethodID: "m1", ClassID: "c1", ServiceID: cls.ServiceID}}
	chain.Nodes = []model.ChainNode{chain.Entry}
	chain.Finalize()
	s.AddChain(chain)
	s.SetMetadata(model.Metadata{ProjectName: "shop"})
	return s
}

func TestNewManager_NilDB(t *testing.T) {
	_, err := NewManager(nil, nil)
	assert.Error(t, err)
}

func TestProjectHash_OrderIndependent(t *testing.T) {
	a := ProjectHash(projectStore("/src/order", "/src/user"))
	b := ProjectHash(projectStore("/src/user", "/src/order"))
	c := ProjectHash(projectStore("/src/other"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestSaveAndLoad(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := projectStore("/src/order", "/src/user")

	meta, err := m.Save(ctx, s, "baseline")
	require.NoError(t, err)
	assert.Len(t, meta.ID, 16)
	assert.Equal(t, "baseline", meta.Label)
	assert.Equal(t, "shop", meta.ProjectName)
	assert.Equal(t, ProjectHash(s), meta.ProjectHash)
	assert.Equal(t, s.Counts(), meta.Counts)
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assert.Positive(t, meta.CompressedSize)
	assert.False(t, meta.CreatedAt().IsZero())

	loaded, loadedMeta, err := m.Load(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta, loadedMeta)
	assert.Equal(t, s.Counts(), loaded.Counts())

	chain, ok := loaded.Chain("ch1")
	require.True(t, ok)
	assert.Equal(t, 1, chain.MaxDepth)
	assert.Len(t, loaded.MethodsOf("c1"), 1)
}

func TestLoadLatest(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := projectStore("/src/order")

	first, err := m.Save(ctx, s, "first")
	require.NoError(t, err)
	second, err := m.Save(ctx, s, "second")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, meta, err := m.LoadLatest(ctx, first.ProjectHash)
	require.NoError(t, err)
	assert.Equal(t, second.ID, meta.ID)

	_, _, err = m.LoadLatest(ctx, "0000000000000000")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestList(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.Save(ctx, projectStore("/src/a"), "a1")
	require.NoError(t, err)
	a2, err := m.Save(ctx, projectStore("/src/a"), "a2")
	require.NoError(t, err)
	b, err := m.Save(ctx, projectStore("/src/b"), "b1")
	require.NoError(t, err)

	all, err := m.List(ctx, "", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, a2.ID, b.ID}, ids(all))
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].CreatedAtMilli, all[i].CreatedAtMilli)
	}

	onlyA, err := m.List(ctx, a.ProjectHash, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, a2.ID}, ids(onlyA))

	limited, err := m.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDelete(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := projectStore("/src/order")

	old, err := m.Save(ctx, s, "old")
	require.NoError(t, err)
	latest, err := m.Save(ctx, s, "latest")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, old.ID))
	_, _, err = m.Load(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, meta, err := m.LoadLatest(ctx, latest.ProjectHash)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, meta.ID)

	require.NoError(t, m.Delete(ctx, latest.ID))
	_, _, err = m.LoadLatest(ctx, latest.ProjectHash)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	assert.ErrorIs(t, m.Delete(ctx, latest.ID), ErrSnapshotNotFound)

	remaining, err := m.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestLoad_Errors(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.Load(ctx, "")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, _, err = m.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	meta, err := m.Save(ctx, projectStore("/src/order"), "")
	require.NoError(t, err)
	require.NoError(t, db.SetAll(ctx, map[string][]byte{
		dataKey(meta.ProjectHash, meta.ID): []byte("tampered"),
	}))
	_, _, err = m.Load(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestList_SkipsCorruptMetadata(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	good, err := m.Save(ctx, projectStore("/src/order"), "")
	require.NoError(t, err)
	require.NoError(t, db.SetAll(ctx, map[string][]byte{
		metaKey(good.ProjectHash, "broken"): []byte("{"),
	}))

	list, err := m.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID}, ids(list))
}

func ids(metas []*Metadata) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.ID)
	}
	return out
}
