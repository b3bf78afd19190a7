// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level(42).toSlogLevel())
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_ConsoleText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "callchain", Output: &buf})
	defer logger.Close()

	logger.Slog().Debug("hidden")
	logger.Slog().Info("analysis complete", slog.Int("chains", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "analysis complete")
	assert.Contains(t, out, "chains=3")
	assert.Contains(t, out, "service=callchain")
}

func TestNew_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, JSON: true, Output: &buf})
	defer logger.Close()

	logger.Slog().Debug("parsed", slog.String("file", "A.java"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "parsed", rec["msg"])
	assert.Equal(t, "A.java", rec["file"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestNew_QuietWithoutFileFallsBackToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Output: &buf})
	logger.Slog().Info("still visible")
	assert.Contains(t, buf.String(), "still visible")
}

func TestNew_WithLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, LogDir: dir, Service: "cli", Output: &buf})
	logger.Slog().Info("to both", slog.String("k", "v"))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	assert.Contains(t, buf.String(), "to both")

	name := "cli_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "to both", rec["msg"])
	assert.Equal(t, "cli", rec["service"])
}

func TestNew_WithLogDir_DefaultServiceName(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	logger.Slog().Info("x")
	require.NoError(t, logger.Close())

	_, err := os.Stat(filepath.Join(dir, "callchain_"+time.Now().Format("2006-01-02")+".log"))
	assert.NoError(t, err)
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Output: &buf})
	defer logger.Close()

	assert.Contains(t, buf.String(), "file logging disabled")
	logger.Slog().Info("console only")
	assert.Contains(t, buf.String(), "console only")
}

func TestLogger_WithAndSetDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	child := logger.With("request_id", "r1")
	child.Slog().Info("handled")
	assert.Contains(t, buf.String(), "request_id=r1")

	prev := slog.Default()
	defer slog.SetDefault(prev)
	logger.SetDefault()
	slog.Info("via default")
	assert.Contains(t, buf.String(), "via default")
}

// =============================================================================
// Multi-Handler Tests
// =============================================================================

func TestMultiHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	ctx := context.Background()
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))

	logger := slog.New(h).With("svc", "a").WithGroup("g")
	logger.Info("info only", "k", 1)
	logger.Warn("both", "k", 2)

	assert.Contains(t, debugBuf.String(), "info only")
	assert.Contains(t, debugBuf.String(), "svc=a")
	assert.Contains(t, debugBuf.String(), "g.k=1")
	assert.NotContains(t, warnBuf.String(), "info only")
	assert.Equal(t, 1, strings.Count(warnBuf.String(), "both"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".callchain/logs"), expandPath("~/.callchain/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "relative/path", expandPath("relative/path"))
}
