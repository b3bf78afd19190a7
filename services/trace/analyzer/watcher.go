// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/callchain/services/trace/scanner"
)

// DefaultDebounce is how long the watcher waits for further changes before
// re-running the analysis.
const DefaultDebounce = 500 * time.Millisecond

// ResultHandler receives the outcome of each re-analysis. Exactly one of
// result and err is non-nil.
type ResultHandler func(result *Result, err error)

// Watcher re-runs an analysis whenever Java sources under the watched
// services change.
//
// # Debouncing
//
// Changed paths are collected until no event arrives for the debounce
// window, then the analysis runs once for the whole batch.
//
// # Thread Safety
//
// The handler is called from a single goroutine. Stop is safe to call more
// than once.
type Watcher struct {
	analyzer *Analyzer
	paths    []string
	handler  ResultHandler
	debounce time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a Watcher over the service directories in paths.
func (a *Analyzer) NewWatcher(paths []string, handler ResultHandler, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		analyzer: a,
		paths:    paths,
		handler:  handler,
		debounce: debounce,
		logger:   a.opts.Logger,
		watcher:  fw,
		changes:  make(chan string, 1000),
		done:     make(chan struct{}),
	}, nil
}

// Watch runs an initial analysis, then re-analyzes on every debounced
// batch of .java changes until ctx is canceled.
//
// Every result, including the initial one, is passed to onResult. Watch
// blocks and returns ctx.Err() on cancellation.
func (a *Analyzer) Watch(ctx context.Context, paths []string, onResult ResultHandler) error {
	w, err := a.NewWatcher(paths, onResult, DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Stop()

	w.run(ctx)
	if err := w.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

// Start registers every source directory of every service and begins
// processing events in the background.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := 0
	for _, svc := range scanner.New(w.logger).ScanServices(w.paths) {
		for _, dir := range scanner.SourceDirs(svc) {
			if err := w.watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			dirs++
		}
	}
	w.logger.Info("watching sources", slog.Int("directories", dirs))

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops watching. Pending changes are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".java") {
				continue
			}

			select {
			case w.changes <- event.Name:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.changes:
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			w.logger.Info("sources changed, re-analyzing", slog.Int("files", len(pending)))
			clear(pending)
			w.run(ctx)
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	result, err := w.analyzer.Analyze(ctx, w.paths)
	if ctx.Err() != nil {
		return
	}
	if w.handler != nil {
		w.handler(result, err)
	}
}
