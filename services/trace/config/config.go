// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package config loads callchain configuration.
//
// Values are layered: DefaultConfig, then the YAML file, then CALLCHAIN_*
// environment variables (a .env file in the working directory is loaded
// first). Command-line flags are applied by the caller on top of the
// result.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/graph"
	"github.com/AleutianAI/callchain/services/trace/model"
)

// ErrInvalidConfig indicates a configuration that failed validation or
// could not be parsed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete callchain configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Snapshots SnapshotConfig  `yaml:"snapshots"`
	API       APIConfig       `yaml:"api"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
}

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	ProjectName  string `yaml:"project_name" validate:"required"`
	Workers      int    `yaml:"workers" validate:"gte=1,lte=256"`
	ChainWorkers int    `yaml:"chain_workers" validate:"gte=1,lte=256"`
	MaxLevel     int    `yaml:"max_level" validate:"gte=1,lte=1000"`
	MaxFileSize  int64  `yaml:"max_file_size" validate:"gt=0"`
	Recursive    bool   `yaml:"recursive"`
}

// OutputConfig controls the JSON result file.
type OutputConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Pretty bool   `yaml:"pretty"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	Traces       string `yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics      string `yaml:"metrics" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Traces otlp"`
}

// SnapshotConfig locates the snapshot database.
type SnapshotConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port      int `yaml:"port" validate:"gte=1,lte=65535"`
	CacheSize int `yaml:"cache_size" validate:"gte=1"`
}

// Neo4jConfig holds the Neo4j connection.
type Neo4jConfig struct {
	URI       string `yaml:"uri" validate:"omitempty,uri"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	BatchSize int    `yaml:"batch_size" validate:"gte=1"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	snapDir := filepath.Join(".callchain", "snapshots")
	if home, err := os.UserHomeDir(); err == nil {
		snapDir = filepath.Join(home, ".callchain", "snapshots")
	}

	return Config{
		Analysis: AnalysisConfig{
			ProjectName:  model.ProjectName,
			Workers:      runtime.NumCPU(),
			ChainWorkers: graph.DefaultWorkerCount,
			MaxLevel:     graph.DefaultMaxLevel,
			MaxFileSize:  ast.DefaultMaxFileSize,
		},
		Output: OutputConfig{
			Path:   "analysis-result.json",
			Pretty: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Traces:  "none",
			Metrics: "none",
		},
		Snapshots: SnapshotConfig{
			Dir: snapDir,
		},
		API: APIConfig{
			Port:      8080,
			CacheSize: 16,
		},
		Neo4j: Neo4jConfig{
			URI:       "bolt://localhost:7687",
			User:      "neo4j",
			BatchSize: 500,
		},
	}
}
