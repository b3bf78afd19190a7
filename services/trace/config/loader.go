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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no path is given.
const DefaultFileName = "callchain.yaml"

// MaxFileSize is the largest configuration file accepted (1MB).
const MaxFileSize = 1024 * 1024

var validate = validator.New()

// Load builds the configuration.
//
// Description:
//
//	Loads .env from the working directory when present, starts from
//	DefaultConfig, overlays the YAML file, applies environment overrides
//	and validates the result. With an empty path, ./callchain.yaml is used
//	when it exists and skipped otherwise. An explicit path must exist.
//
// Outputs:
//   - *Config: Validated configuration.
//   - error: File errors, or ErrInvalidConfig for parse and validation
//     failures.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := DefaultConfig()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if info.Size() > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrInvalidConfig, path, info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Environment variables that override file values.
const (
	EnvNeo4jURI      = "CALLCHAIN_NEO4J_URI"
	EnvNeo4jUser     = "CALLCHAIN_NEO4J_USER"
	EnvNeo4jPassword = "CALLCHAIN_NEO4J_PASSWORD"
	EnvSnapshotDir   = "CALLCHAIN_SNAPSHOT_DIR"
	EnvLogLevel      = "CALLCHAIN_LOG_LEVEL"
	EnvWorkers       = "CALLCHAIN_WORKERS"
	EnvAPIPort       = "CALLCHAIN_API_PORT"
)

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	setString(EnvNeo4jURI, &cfg.Neo4j.URI)
	setString(EnvNeo4jUser, &cfg.Neo4j.User)
	setString(EnvNeo4jPassword, &cfg.Neo4j.Password)
	setString(EnvSnapshotDir, &cfg.Snapshots.Dir)
	setString(EnvLogLevel, &cfg.Logging.Level)
	if err := setInt(EnvWorkers, &cfg.Analysis.Workers); err != nil {
		return err
	}
	return setInt(EnvAPIPort, &cfg.API.Port)
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes DefaultConfig as YAML to path, creating parent
// directories. An existing file is not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
