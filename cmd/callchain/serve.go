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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	callchain "github.com/AleutianAI/callchain/services/trace"
	"github.com/AleutianAI/callchain/services/trace/analyzer"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port       int
	resultPath string
	watch      []string
	noSnaps    bool
}

func newServeCommand(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analysis results over HTTP",
		Long: `Serve exposes the current result and saved snapshots under /v1/callchain.
The current result is read from --result, or kept up to date by watching
the service directories given with --watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.port, "port", 0, "listen port (default from config: 8080)")
	f.StringVar(&opts.resultPath, "result", "", "result file to serve")
	f.StringArrayVar(&opts.watch, "watch", nil, "service directory to analyze and watch (repeatable)")
	f.BoolVar(&opts.noSnaps, "no-snapshots", false, "do not open the snapshot store")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, opts *serveOptions) error {
	ctx := cmd.Context()
	if opts.port <= 0 {
		opts.port = a.cfg.API.Port
	}

	svcCfg := callchain.DefaultServiceConfig()
	svcCfg.CacheSize = a.cfg.API.CacheSize
	svcCfg.Logger = a.logger
	if !opts.noSnaps {
		mgr, closeDB, err := a.openSnapshots()
		if err != nil {
			return err
		}
		defer closeDB()
		svcCfg.Snapshots = mgr
	}

	var current *callchain.View
	if opts.resultPath != "" {
		s, err := a.loadStore(cmd, "", []string{opts.resultPath})
		if err != nil {
			return err
		}
		current = callchain.NewView(ctx, s)
	}

	svc, err := callchain.NewService(current, svcCfg)
	if err != nil {
		return err
	}

	if len(opts.watch) > 0 {
		an := analyzer.New(
			analyzer.WithWorkers(a.cfg.Analysis.Workers),
			analyzer.WithChainWorkers(a.cfg.Analysis.ChainWorkers),
			analyzer.WithMaxLevel(a.cfg.Analysis.MaxLevel),
			analyzer.WithMaxFileSize(a.cfg.Analysis.MaxFileSize),
			analyzer.WithProjectName(a.cfg.Analysis.ProjectName),
			analyzer.WithLogger(a.logger),
		)
		go func() {
			err := an.Watch(ctx, opts.watch, func(result *analyzer.Result, err error) {
				if err != nil {
					a.logger.Error("analysis failed", slog.String("error", err.Error()))
					return
				}
				svc.SetResult(&callchain.View{Store: result.Store, Registry: result.Registry})
				a.logger.Info("result updated", slog.Int("chains", result.Store.Counts().Chains))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(opts.port),
		Handler:           callchain.NewRouter(callchain.NewHandlers(svc)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()
	a.out.Success(fmt.Sprintf("Serving on http://localhost:%d/v1/callchain", opts.port))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
