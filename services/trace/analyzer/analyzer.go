// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package analyzer runs the full call-chain analysis over a set of service
// directories.
//
// The pipeline has five phases. Scan reads service metadata. Parse reads
// and classifies every Java source file in parallel. Link resolves local
// call targets once every class is known. Registry indexes remote
// providers. Chains walks every controller entry point.
//
// Parsing and classification write into per-file buffers that are merged
// in file order, so the store content is the same for any worker count.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/classify"
	"github.com/AleutianAI/callchain/services/trace/graph"
	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/registry"
	"github.com/AleutianAI/callchain/services/trace/scanner"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// Phase identifies a pipeline phase in progress reports.
type Phase int

const (
	PhaseScan Phase = iota
	PhaseParse
	PhaseLink
	PhaseRegistry
	PhaseChains
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseScan:
		return "scan"
	case PhaseParse:
		return "parse"
	case PhaseLink:
		return "link"
	case PhaseRegistry:
		return "registry"
	case PhaseChains:
		return "chains"
	default:
		return "unknown"
	}
}

// Progress is reported at the end of each phase.
type Progress struct {
	Phase   Phase
	Count   int
	Elapsed time.Duration
}

// ProgressFunc receives progress reports. It is called from the goroutine
// running Analyze.
type ProgressFunc func(Progress)

// Options configures an Analyzer.
type Options struct {
	// Workers is the number of files parsed in parallel.
	// Default: runtime.NumCPU()
	Workers int

	// ChainWorkers is the number of chains built in parallel.
	// Default: 1
	ChainWorkers int

	// MaxLevel is the chain level ceiling.
	// Default: graph.DefaultMaxLevel
	MaxLevel int

	// MaxFileSize is the largest source file accepted, in bytes.
	// Default: ast.DefaultMaxFileSize
	MaxFileSize int64

	// ProjectName is written to the result metadata.
	// Default: model.ProjectName
	ProjectName string

	// Parsers overrides the parser registry. When nil a Java registry is
	// built from MaxFileSize.
	Parsers *ast.ParserRegistry

	Logger   *slog.Logger
	Progress ProgressFunc
}

// Option is a functional option for configuring an Analyzer.
type Option func(*Options)

// WithWorkers sets the number of parallel file workers.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithChainWorkers sets the number of parallel chain workers.
func WithChainWorkers(n int) Option {
	return func(o *Options) { o.ChainWorkers = n }
}

// WithMaxLevel sets the chain level ceiling.
func WithMaxLevel(n int) Option {
	return func(o *Options) { o.MaxLevel = n }
}

// WithMaxFileSize sets the largest accepted source file.
func WithMaxFileSize(bytes int64) Option {
	return func(o *Options) { o.MaxFileSize = bytes }
}

// WithProjectName sets the project name recorded in the metadata.
func WithProjectName(name string) Option {
	return func(o *Options) { o.ProjectName = name }
}

// WithParserRegistry replaces the default parser registry.
func WithParserRegistry(r *ast.ParserRegistry) Option {
	return func(o *Options) { o.Parsers = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) { o.Progress = fn }
}

// Analyzer runs analyses. It holds no per-run state and may be reused.
//
// Thread Safety: Safe for concurrent use; each Analyze call builds its own
// store and registry.
type Analyzer struct {
	opts       Options
	parsers    *ast.ParserRegistry
	scanner    *scanner.Scanner
	classifier *classify.Classifier
	linker     *classify.Linker
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	o := Options{
		Workers:      runtime.NumCPU(),
		ChainWorkers: graph.DefaultWorkerCount,
		MaxLevel:     graph.DefaultMaxLevel,
		MaxFileSize:  ast.DefaultMaxFileSize,
		ProjectName:  model.ProjectName,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.ChainWorkers <= 0 {
		o.ChainWorkers = graph.DefaultWorkerCount
	}

	parsers := o.Parsers
	if parsers == nil {
		parsers = ast.DefaultRegistry(ast.WithMaxFileSize(o.MaxFileSize))
	}

	return &Analyzer{
		opts:       o,
		parsers:    parsers,
		scanner:    scanner.New(o.Logger),
		classifier: classify.New(classify.WithLogger(o.Logger)),
		linker:     classify.NewLinker(o.Logger),
	}
}

// Result is the outcome of one analysis run.
type Result struct {
	Store         *store.Store
	Registry      *registry.Registry
	RegistryStats registry.Stats
	Link          classify.LinkStats
	ChainStats    graph.BuildStats

	// FileErrors lists files that were skipped or partially classified,
	// in file order.
	FileErrors []FileError

	Duration time.Duration
}

// sourceFile is one unit of parse work.
type sourceFile struct {
	path      string
	serviceID string
}

// fileOutput is the per-file buffer filled by a parse worker.
type fileOutput struct {
	results []classify.ClassResult
	err     error
}

// Analyze runs every phase over the service directories in paths.
//
// Description:
//
//	Paths that are not directories are logged and skipped. Files that fail
//	to read, parse or classify are recorded in Result.FileErrors and do not
//	fail the run.
//
// Inputs:
//   - ctx: Context for cancellation, checked between files and chains.
//   - paths: Service root directories.
//
// Outputs:
//   - *Result: The populated store and run statistics.
//   - error: ErrNoServices when no path is a service, or the context error.
func (a *Analyzer) Analyze(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	ctx, span := startAnalyzeSpan(ctx, len(paths))
	defer span.End()

	st := store.New()
	st.SetMetadata(model.Metadata{ProjectName: a.opts.ProjectName})
	result := &Result{Store: st}

	// Scan
	phaseStart := time.Now()
	_, scanSpan := startPhaseSpan(ctx, PhaseScan)
	services := a.scanner.ScanServices(paths)
	var files []sourceFile
	for _, svc := range services {
		st.AddService(svc)
		found, err := a.scanner.FindJavaFiles(svc)
		if err != nil {
			a.opts.Logger.Error("failed to list sources",
				slog.String("service", svc.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, f := range found {
			files = append(files, sourceFile{path: f, serviceID: svc.ID})
		}
	}
	scanSpan.End()
	a.finishPhase(ctx, PhaseScan, len(services), phaseStart)

	if len(services) == 0 {
		return nil, ErrNoServices
	}

	// Parse
	phaseStart = time.Now()
	parseCtx, parseSpan := startPhaseSpan(ctx, PhaseParse)
	outputs, err := a.parseAll(parseCtx, files)
	parseSpan.End()
	if err != nil {
		return nil, err
	}

	failed := 0
	for i, out := range outputs {
		for _, r := range out.results {
			st.AddClass(r.Class)
			for _, m := range r.Methods {
				st.AddMethod(m)
			}
			for _, e := range r.Edges {
				st.AddEdge(e)
			}
		}
		if out.err != nil {
			failed++
			result.FileErrors = append(result.FileErrors, FileError{
				Path:      files[i].path,
				ServiceID: files[i].serviceID,
				Err:       out.err,
			})
		}
	}
	recordFiles(ctx, len(files)-failed, failed)
	a.finishPhase(ctx, PhaseParse, len(files), phaseStart)

	// Link
	phaseStart = time.Now()
	linkCtx, linkSpan := startPhaseSpan(ctx, PhaseLink)
	result.Link = a.linker.Link(linkCtx, st)
	linkSpan.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.finishPhase(ctx, PhaseLink, result.Link.Resolved, phaseStart)

	// Registry
	phaseStart = time.Now()
	reg := registry.New(registry.WithLogger(a.opts.Logger))
	reg.Build(ctx, st)
	result.Registry = reg
	result.RegistryStats = reg.Stats()
	a.finishPhase(ctx, PhaseRegistry, result.RegistryStats.Bindings, phaseStart)

	// Chains
	phaseStart = time.Now()
	builder := graph.NewBuilder(reg,
		graph.WithMaxLevel(a.opts.MaxLevel),
		graph.WithWorkerCount(a.opts.ChainWorkers),
		graph.WithLogger(a.opts.Logger),
	)
	built, err := builder.Build(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("building chains: %w", err)
	}
	st.SetChains(built.Chains)
	result.ChainStats = built.Stats
	a.finishPhase(ctx, PhaseChains, len(built.Chains), phaseStart)

	st.Stamp(time.Now())
	result.Duration = time.Since(start)
	setAnalyzeSpanResult(span, result)

	counts := st.Counts()
	a.opts.Logger.Info("analysis complete",
		slog.Int("services", counts.Services),
		slog.Int("classes", counts.Classes),
		slog.Int("methods", counts.Methods),
		slog.Int("calls", counts.Edges),
		slog.Int("chains", counts.Chains),
		slog.Int("cross_service_chains", result.ChainStats.CrossServiceChains),
		slog.Int("file_errors", len(result.FileErrors)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// parseAll parses and classifies files with up to Workers goroutines.
// Per-file failures are kept in the outputs; only cancellation is returned.
func (a *Analyzer) parseAll(ctx context.Context, files []sourceFile) ([]fileOutput, error) {
	outputs := make([]fileOutput, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, f := range files {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outputs[i] = a.processFile(gCtx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (a *Analyzer) processFile(ctx context.Context, f sourceFile) fileOutput {
	content, err := os.ReadFile(f.path)
	if err != nil {
		a.logFileError(f, "failed to read source", err)
		return fileOutput{err: fmt.Errorf("reading: %w", err)}
	}

	parser, err := a.parsers.ForFile(f.path)
	if err != nil {
		a.logFileError(f, "no parser for file", err)
		return fileOutput{err: err}
	}

	unit, err := parser.Parse(ctx, content, f.path)
	if err != nil {
		a.logFileError(f, "failed to parse source", err)
		return fileOutput{err: err}
	}

	results, err := a.classifier.ClassifyUnit(f.serviceID, unit)
	if err != nil {
		a.logFileError(f, "declarations skipped", err)
	}
	return fileOutput{results: results, err: err}
}

func (a *Analyzer) logFileError(f sourceFile, msg string, err error) {
	a.opts.Logger.Warn(msg,
		slog.String("file", f.path),
		slog.String("error", err.Error()),
	)
}

func (a *Analyzer) finishPhase(ctx context.Context, phase Phase, count int, start time.Time) {
	elapsed := time.Since(start)
	recordPhase(ctx, phase, elapsed)
	a.opts.Logger.Debug("phase complete",
		slog.String("phase", phase.String()),
		slog.Int("count", count),
		slog.Duration("elapsed", elapsed),
	)
	if a.opts.Progress != nil {
		a.opts.Progress(Progress{Phase: phase, Count: count, Elapsed: elapsed})
	}
}
