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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callchain/pkg/ux"
	"github.com/AleutianAI/callchain/services/trace/export"
)

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a result to a graph database",
	}
	cmd.AddCommand(newExportNeo4jCommand(a), newExportCypherCommand(a))
	return cmd
}

func newExportNeo4jCommand(a *app) *cobra.Command {
	var (
		uri, user, password string
		snapshotID          string
		batchSize           int
	)
	cmd := &cobra.Command{
		Use:   "neo4j [result.json]",
		Short: "Load a result into Neo4j",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Neo4j
			if !cmd.Flags().Changed("uri") {
				uri = cfg.URI
			}
			if !cmd.Flags().Changed("user") {
				user = cfg.User
			}
			if !cmd.Flags().Changed("password") {
				password = cfg.Password
			}
			if batchSize <= 0 {
				batchSize = cfg.BatchSize
			}

			s, err := a.loadStore(cmd, snapshotID, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			loader, err := export.NewNeo4jLoader(ctx, uri, user, password,
				export.WithBatchSize(batchSize),
				export.WithLoaderLogger(a.logger),
			)
			if err != nil {
				return err
			}
			defer loader.Close(ctx)

			var stats export.LoadStats
			err = a.errOut.WithSpinner("Loading into "+uri, func() error {
				if err := loader.CreateIndexes(ctx); err != nil {
					return err
				}
				stats, err = loader.Load(ctx, s)
				return err
			})
			if err != nil {
				return fmt.Errorf("loading into neo4j: %w", err)
			}

			a.out.Summary("Neo4j",
				ux.Stat{Label: "services", Value: stats.Services},
				ux.Stat{Label: "classes", Value: stats.Classes},
				ux.Stat{Label: "methods", Value: stats.Methods},
				ux.Stat{Label: "calls", Value: stats.Calls},
				ux.Stat{Label: "chains", Value: stats.Chains},
				ux.Stat{Label: "chain steps", Value: stats.ChainSteps},
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&uri, "uri", "", "bolt URI (default from config)")
	f.StringVar(&user, "user", "", "user name (default from config)")
	f.StringVar(&password, "password", "", "password (default from config or CALLCHAIN_NEO4J_PASSWORD)")
	f.StringVar(&snapshotID, "snapshot", "", "export this snapshot instead of a file")
	f.IntVar(&batchSize, "batch-size", 0, "rows per UNWIND statement (default from config)")
	return cmd
}

func newExportCypherCommand(a *app) *cobra.Command {
	var (
		output     string
		snapshotID string
	)
	cmd := &cobra.Command{
		Use:   "cypher [result.json]",
		Short: "Write a result as a Cypher script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd, snapshotID, args)
			if err != nil {
				return err
			}
			if output == "" {
				return export.WriteCypher(a.stdout, s)
			}
			if err := writeCypherFile(output, s); err != nil {
				return err
			}
			a.out.Success("Wrote Cypher script to " + output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "script file (default stdout)")
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "export this snapshot instead of a file")
	return cmd
}
