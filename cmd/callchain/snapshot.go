// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callchain/pkg/ux"
	"github.com/AleutianAI/callchain/services/trace/snapshot"
	badgerstore "github.com/AleutianAI/callchain/services/trace/storage/badger"
)

// openSnapshots opens the snapshot database from the configuration. The
// returned func closes it.
func (a *app) openSnapshots() (*snapshot.Manager, func(), error) {
	db, err := badgerstore.Open(badgerstore.DefaultConfig(a.cfg.Snapshots.Dir))
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot store %s: %w", a.cfg.Snapshots.Dir, err)
	}
	mgr, err := snapshot.NewManager(db, a.logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("closing snapshot store", slog.String("error", err.Error()))
		}
	}
	return mgr, closeDB, nil
}

func newSnapshotCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage saved analysis snapshots",
	}
	cmd.AddCommand(
		newSnapshotListCommand(a),
		newSnapshotShowCommand(a),
		newSnapshotDeleteCommand(a),
	)
	return cmd
}

func newSnapshotListCommand(a *app) *cobra.Command {
	var (
		project string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, closeDB, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer closeDB()

			metas, err := mgr.List(cmd.Context(), project, limit)
			if err != nil {
				return err
			}
			if len(metas) == 0 {
				a.out.Info("No snapshots")
				return nil
			}
			for _, m := range metas {
				printSnapshot(a.out, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only snapshots with this project hash")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum snapshots to list (0 for all)")
	return cmd
}

func newSnapshotShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show snapshot metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeDB, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer closeDB()

			_, meta, err := mgr.Load(cmd.Context(), args[0])
			if err != nil {
				return snapshotError(args[0], err)
			}
			printSnapshot(a.out, meta)
			return nil
		},
	}
}

func newSnapshotDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeDB, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
				return snapshotError(args[0], err)
			}
			a.out.Success("Deleted snapshot " + args[0])
			return nil
		},
	}
}

func snapshotError(id string, err error) error {
	if errors.Is(err, snapshot.ErrSnapshotNotFound) {
		return fmt.Errorf("snapshot %s: %w", id, err)
	}
	return err
}

func printSnapshot(p *ux.Printer, m *snapshot.Metadata) {
	label := m.Label
	if label == "" {
		label = "-"
	}
	p.Info(fmt.Sprintf("%s label=%s project=%s hash=%s created=%s",
		m.ID, label, m.ProjectName, m.ProjectHash, m.CreatedAt().Format(time.RFC3339)))
	p.Summary(m.ID,
		ux.Stat{Label: "services", Value: m.Counts.Services},
		ux.Stat{Label: "classes", Value: m.Counts.Classes},
		ux.Stat{Label: "methods", Value: m.Counts.Methods},
		ux.Stat{Label: "chains", Value: m.Counts.Chains},
	)
}
