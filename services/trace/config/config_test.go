// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.Analysis.Workers)
	assert.Equal(t, 1, cfg.Analysis.ChainWorkers)
	assert.Equal(t, 20, cfg.Analysis.MaxLevel)
	assert.EqualValues(t, 10*1024*1024, cfg.Analysis.MaxFileSize)
	assert.Equal(t, "multi-service-analysis", cfg.Analysis.ProjectName)
	assert.Equal(t, "analysis-result.json", cfg.Output.Path)
	assert.True(t, cfg.Output.Pretty)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Telemetry.Traces)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Contains(t, cfg.Snapshots.Dir, filepath.Join(".callchain", "snapshots"))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(`
analysis:
  workers: 3
  max_level: 5
output:
  path: out/result.json
  pretty: false
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.Equal(t, 5, cfg.Analysis.MaxLevel)
	assert.Equal(t, "out/result.json", cfg.Output.Path)
	assert.False(t, cfg.Output.Pretty)
	assert.Equal(t, 1, cfg.Analysis.ChainWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("neo4j:\n  uri: bolt://file:7687\n"), 0o644))

	t.Setenv(EnvNeo4jURI, "bolt://env:7687")
	t.Setenv(EnvNeo4jPassword, "secret")
	t.Setenv(EnvSnapshotDir, "/var/snaps")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvWorkers, "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://env:7687", cfg.Neo4j.URI)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "/var/snaps", cfg.Snapshots.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Analysis.Workers)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CALLCHAIN_NEO4J_USER=dotenv-user\n"), 0o644))
	t.Setenv(EnvNeo4jUser, "")
	require.NoError(t, os.Unsetenv(EnvNeo4jUser))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-user", cfg.Neo4j.User)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "analysis: [1, 2"},
		{name: "workers zero", yaml: "analysis:\n  workers: 0\n"},
		{name: "unknown log level", yaml: "logging:\n  level: verbose\n"},
		{name: "unknown exporter", yaml: "telemetry:\n  metrics: statsd\n"},
		{name: "otlp without endpoint", yaml: "telemetry:\n  traces: otlp\n"},
		{name: "port out of range", yaml: "api:\n  port: 70000\n"},
		{name: "non numeric env", yaml: "", env: map[string]string{EnvWorkers: "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			path := filepath.Join(dir, "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)

	assert.Error(t, WriteDefault(path))
}
