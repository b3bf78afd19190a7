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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callchain/pkg/ux"
	"github.com/AleutianAI/callchain/services/trace/analyzer"
	"github.com/AleutianAI/callchain/services/trace/export"
	"github.com/AleutianAI/callchain/services/trace/scanner"
)

// analyzeOptions holds the flags of the analyze command.
type analyzeOptions struct {
	services     []string
	serviceList  string
	discover     []string
	recursive    bool
	output       string
	pretty       bool
	workers      int
	chainWorkers int
	maxLevel     int
	projectName  string
	watch        bool
	saveSnapshot string
}

func addAnalyzeFlags(cmd *cobra.Command, opts *analyzeOptions) {
	f := cmd.Flags()
	f.StringArrayVarP(&opts.services, "service", "s", nil, "service root directory (repeatable)")
	f.StringVar(&opts.serviceList, "services", "", "comma-separated service root directories")
	f.StringArrayVar(&opts.discover, "discover", nil, "discover service directories below this root (repeatable)")
	f.BoolVar(&opts.recursive, "recursive", false, "search --discover roots recursively")
	f.StringVarP(&opts.output, "output", "o", "", "result file (default from config: analysis-result.json)")
	f.BoolVar(&opts.pretty, "pretty", true, "indent the JSON result")
	f.IntVar(&opts.workers, "workers", 0, "parallel file parsers (default from config)")
	f.IntVar(&opts.chainWorkers, "chain-workers", 0, "parallel chain builders (default from config)")
	f.IntVar(&opts.maxLevel, "max-level", 0, "deepest chain level (default from config)")
	f.StringVar(&opts.projectName, "project-name", "", "project name written to the result")
	f.BoolVar(&opts.watch, "watch", false, "re-analyze when Java sources change")
	f.StringVar(&opts.saveSnapshot, "save-snapshot", "", "save the result as a snapshot with this label")
}

func newAnalyzeCommand(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [flags] [service-path...]",
		Short: "Analyze services and write the call chain result",
		Long: `Analyze runs the full pipeline over the given service directories and
writes the result JSON. It is also what callchain runs without a subcommand.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, opts, args)
		},
	}
	addAnalyzeFlags(cmd, opts)
	return cmd
}

// collectPaths merges every source of service paths in flag order:
// --service, --services, positionals, then discovered directories.
func collectPaths(opts *analyzeOptions, args []string, scan *scanner.Scanner) ([]string, error) {
	var paths []string
	paths = append(paths, opts.services...)
	for _, p := range strings.Split(opts.serviceList, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	paths = append(paths, args...)

	for _, root := range opts.discover {
		dirs, err := scan.DiscoverServiceDirs(root, opts.recursive)
		if err != nil {
			return nil, fmt.Errorf("discovering services in %s: %w", root, err)
		}
		paths = append(paths, dirs...)
	}
	return paths, nil
}

// applyAnalyzeConfig fills unset flags from the loaded configuration.
func applyAnalyzeConfig(cmd *cobra.Command, a *app, opts *analyzeOptions) {
	cfg := a.cfg
	if opts.output == "" {
		opts.output = cfg.Output.Path
	}
	if !cmd.Flags().Changed("pretty") {
		opts.pretty = cfg.Output.Pretty
	}
	if !cmd.Flags().Changed("recursive") {
		opts.recursive = cfg.Analysis.Recursive
	}
	if opts.workers <= 0 {
		opts.workers = cfg.Analysis.Workers
	}
	if opts.chainWorkers <= 0 {
		opts.chainWorkers = cfg.Analysis.ChainWorkers
	}
	if opts.maxLevel <= 0 {
		opts.maxLevel = cfg.Analysis.MaxLevel
	}
	if opts.projectName == "" {
		opts.projectName = cfg.Analysis.ProjectName
	}
}

func runAnalyze(cmd *cobra.Command, a *app, opts *analyzeOptions, args []string) error {
	applyAnalyzeConfig(cmd, a, opts)

	paths, err := collectPaths(opts, args, scanner.New(a.logger))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return newUsageError(cmd, errors.New("no service paths given"))
	}

	spinner := a.errOut.Spinner("Analyzing " + strconv.Itoa(len(paths)) + " service(s)")
	an := analyzer.New(
		analyzer.WithWorkers(opts.workers),
		analyzer.WithChainWorkers(opts.chainWorkers),
		analyzer.WithMaxLevel(opts.maxLevel),
		analyzer.WithMaxFileSize(a.cfg.Analysis.MaxFileSize),
		analyzer.WithProjectName(opts.projectName),
		analyzer.WithLogger(a.logger),
		analyzer.WithProgress(func(p analyzer.Progress) {
			spinner.UpdateMessage(fmt.Sprintf("%s: %d (%s)", p.Phase, p.Count, p.Elapsed.Round(time.Millisecond)))
		}),
	)

	ctx := cmd.Context()
	if opts.watch {
		return a.watch(ctx, an, paths, opts)
	}

	spinner.Start()
	result, err := an.Analyze(ctx, paths)
	if err != nil {
		spinner.StopWithError("Analysis failed")
		return err
	}
	spinner.StopWithSuccess("Analysis complete")

	return a.finishResult(ctx, result, opts)
}

// finishResult writes the result file, prints the summary and saves the
// optional snapshot.
func (a *app) finishResult(ctx context.Context, result *analyzer.Result, opts *analyzeOptions) error {
	if err := export.WriteFile(opts.output, result.Store, opts.pretty); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	a.printSummary(result, opts.output)

	if opts.saveSnapshot == "" {
		return nil
	}
	mgr, closeDB, err := a.openSnapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	meta, err := mgr.Save(ctx, result.Store, opts.saveSnapshot)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	a.out.Success(fmt.Sprintf("Saved snapshot %s (%s)", meta.ID, meta.Label))
	return nil
}

func (a *app) printSummary(result *analyzer.Result, output string) {
	c := result.Store.Counts()
	a.out.Summary("Analysis",
		ux.Stat{Label: "services", Value: c.Services},
		ux.Stat{Label: "classes", Value: c.Classes},
		ux.Stat{Label: "methods", Value: c.Methods},
		ux.Stat{Label: "calls", Value: c.Edges},
		ux.Stat{Label: "chains", Value: c.Chains},
		ux.Stat{Label: "cross-service chains", Value: result.ChainStats.CrossServiceChains},
		ux.Stat{Label: "skipped files", Value: len(result.FileErrors)},
	)
	a.out.Success("Wrote " + output)
	for _, fe := range result.FileErrors {
		a.logger.Warn("file not fully analyzed",
			slog.String("path", fe.Path),
			slog.String("error", fe.Err.Error()),
		)
	}
}

// watch re-analyzes on every source change and rewrites the result until
// the context is canceled.
func (a *app) watch(ctx context.Context, an *analyzer.Analyzer, paths []string, opts *analyzeOptions) error {
	a.out.Info("Watching for changes, press Ctrl+C to stop")
	err := an.Watch(ctx, paths, func(result *analyzer.Result, err error) {
		if err != nil {
			a.out.Error("analysis failed: " + err.Error())
			return
		}
		if err := a.finishResult(ctx, result, opts); err != nil {
			a.out.Error(err.Error())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
