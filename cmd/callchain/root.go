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
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callchain/pkg/logging"
	"github.com/AleutianAI/callchain/pkg/ux"
	"github.com/AleutianAI/callchain/services/trace/config"
	"github.com/AleutianAI/callchain/services/trace/telemetry"
)

// app carries the state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Persistent flags.
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string

	cfg      *config.Config
	logs     *logging.Logger
	logger   *slog.Logger
	out      *ux.Printer
	errOut   *ux.Printer
	shutdown func(context.Context) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		out:    ux.NewPrinter(stdout),
		errOut: ux.NewPrinter(stderr),
		logger: slog.Default(),
	}
}

// setup loads configuration, installs the logger and starts telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Logging.JSON = a.logJSON
	}
	if flags.Changed("log-dir") {
		cfg.Logging.Dir = a.logDir
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return newUsageError(cmd, err)
	}

	a.cfg = cfg
	a.logs = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "callchain",
		JSON:    cfg.Logging.JSON,
		Output:  a.stderr,
	})
	a.logs.SetDefault()
	a.logger = a.logs.Slog()

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.FromConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

// close flushes telemetry and closes the log file.
func (a *app) close() {
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
		a.shutdown = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
		a.logs = nil
	}
}

func newRootCommand(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	root := &cobra.Command{
		Use:   "callchain [flags] [service-path...]",
		Short: "Reconstruct cross-service call chains in Spring and Dubbo services",
		Long: `callchain parses the Java sources of several services, classifies
injected dependencies and remote references, resolves remote interfaces to
their providers and writes every call chain reachable from an HTTP entry
point as one JSON document.

Service roots can be given as repeated --service flags, a comma-separated
--services list, positional arguments, or discovered below --discover roots.

Examples:
  callchain --service ./user-service --service ./order-service
  callchain --services ./user-service,./order-service -o chains.json
  callchain ./user-service ./order-service --save-snapshot baseline
  callchain --discover ./platform --recursive --watch`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, opts, args)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return newUsageError(cmd, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default ./"+config.DefaultFileName+" when present)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&a.logJSON, "log-json", false, "write logs as JSON")
	pf.StringVar(&a.logDir, "log-dir", "", "also write JSON logs to this directory")

	addAnalyzeFlags(root, opts)

	root.AddCommand(
		newAnalyzeCommand(a),
		newChainsCommand(a),
		newServeCommand(a),
		newSnapshotCommand(a),
		newExportCommand(a),
		newConfigCommand(a),
	)
	return root
}
