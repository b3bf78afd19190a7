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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callchain/pkg/ux"
	callchain "github.com/AleutianAI/callchain/services/trace"
	"github.com/AleutianAI/callchain/services/trace/export"
	"github.com/AleutianAI/callchain/services/trace/store"
)

type chainsOptions struct {
	snapshotID   string
	crossService bool
	service      string
	limit        int
	cypher       string
}

func newChainsCommand(a *app) *cobra.Command {
	opts := &chainsOptions{}
	cmd := &cobra.Command{
		Use:   "chains [result.json]",
		Short: "Print call chains from a result file or snapshot",
		Long: `Chains prints the call chains of an analysis result as indented trees.
The result is read from the given file, the configured output path, or a
saved snapshot with --snapshot. With --cypher the filtered store is also
written as a Cypher script.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChains(cmd, a, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.snapshotID, "snapshot", "", "read chains from this snapshot instead of a file")
	f.BoolVar(&opts.crossService, "cross-service", false, "only chains spanning more than one service")
	f.StringVar(&opts.service, "service", "", "only chains involving this service name or id")
	f.IntVar(&opts.limit, "limit", 0, "maximum chains to print (0 for all)")
	f.StringVar(&opts.cypher, "cypher", "", "also write the result as a Cypher script to this file")
	return cmd
}

func runChains(cmd *cobra.Command, a *app, opts *chainsOptions, args []string) error {
	if opts.snapshotID != "" && len(args) > 0 {
		return newUsageError(cmd, errors.New("--snapshot and a result file are mutually exclusive"))
	}

	s, err := a.loadStore(cmd, opts.snapshotID, args)
	if err != nil {
		return err
	}

	chains, total := callchain.FilterChains(s, callchain.ChainFilter{
		CrossServiceOnly: opts.crossService,
		Service:          opts.service,
		Limit:            opts.limit,
	})
	for _, c := range chains {
		a.out.Chain(chainView(callchain.Expand(s, c)))
	}
	a.out.Info(fmt.Sprintf("%d of %d chain(s)", len(chains), total))

	if opts.cypher != "" {
		if err := writeCypherFile(opts.cypher, s); err != nil {
			return err
		}
		a.out.Success("Wrote Cypher script to " + opts.cypher)
	}
	return nil
}

// loadStore reads the store from a snapshot id, the file in args, or the
// configured output path.
func (a *app) loadStore(cmd *cobra.Command, snapshotID string, args []string) (*store.Store, error) {
	if snapshotID != "" {
		mgr, closeDB, err := a.openSnapshots()
		if err != nil {
			return nil, err
		}
		defer closeDB()
		s, _, err := mgr.Load(cmd.Context(), snapshotID)
		if err != nil {
			return nil, snapshotError(snapshotID, err)
		}
		return s, nil
	}

	path := a.cfg.Output.Path
	if len(args) > 0 {
		path = args[0]
	}
	s, err := export.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", path, err)
	}
	return s, nil
}

func writeCypherFile(path string, s *store.Store) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteCypher(f, s)
}

// chainView converts an expanded chain for terminal display. The entry
// step carries no call kind.
func chainView(d callchain.ChainDetail) ux.ChainView {
	v := ux.ChainView{
		ID:           d.ID,
		Route:        d.Route,
		CrossService: d.CrossService,
		Services:     d.Services,
		Steps:        make([]ux.ChainStep, 0, len(d.Steps)),
	}
	for _, st := range d.Steps {
		step := ux.ChainStep{
			Level:   st.Level,
			Service: st.Service,
			Class:   st.Class,
			Method:  st.Method,
			Remote:  st.CrossesInto,
		}
		if st.Level > 0 {
			step.Kind = st.Kind.String()
		}
		v.Steps = append(v.Steps, step)
	}
	return v
}
