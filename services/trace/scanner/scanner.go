// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner discovers service source trees and their Java files.
//
// A service is a directory with a pom.xml (not an aggregator POM) or a
// src/main/java tree. Sources are always read from src/main/java.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/callchain/services/trace/model"
)

// Sentinel errors for scanning.
var (
	// ErrNotDirectory indicates a service or root path that is missing or
	// not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrInvalidPOM indicates a pom.xml that cannot be parsed.
	ErrInvalidPOM = errors.New("invalid pom.xml")
)

const pomFile = "pom.xml"

// SourceRoot is the Maven source directory relative to a service root.
var SourceRoot = filepath.Join("src", "main", "java")

// skipDirs are never descended into when listing sources.
var skipDirs = map[string]bool{
	"target": true,
	"build":  true,
	".git":   true,
}

// Scanner reads service directories.
//
// Thread Safety: Safe for concurrent use.
type Scanner struct {
	logger *slog.Logger
}

// New creates a Scanner. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// ScanService builds the service record for the directory at path.
//
// Description:
//
//	The root path is made absolute. Coordinates come from pom.xml when
//	present; a pom.xml that cannot be parsed is logged and ignored. The
//	name is the POM name, else the artifact id, else the directory name.
//	The base package is the package directory of the first .java file
//	under src/main/java in sorted walk order.
//
// Outputs:
//   - *model.Service: Service with a fresh id.
//   - error: ErrNotDirectory when path is missing or not a directory.
func (s *Scanner) ScanService(path string) (*model.Service, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	dirName := filepath.Base(abs)
	svc := &model.Service{
		ID:       model.NewID(),
		Name:     dirName,
		RootPath: abs,
	}

	pomPath := filepath.Join(abs, pomFile)
	if _, statErr := os.Stat(pomPath); statErr == nil {
		pom, err := ReadPOM(pomPath)
		if err != nil {
			s.logger.Warn("ignoring unreadable pom.xml",
				slog.String("path", pomPath),
				slog.String("error", err.Error()),
			)
		} else {
			svc.GroupID = pom.EffectiveGroupID()
			svc.ArtifactID = pom.ArtifactID
			svc.Version = pom.EffectiveVersion()
			switch {
			case pom.Name != "":
				svc.Name = pom.Name
			case pom.ArtifactID != "":
				svc.Name = pom.ArtifactID
			}
		}
	}
	if svc.ArtifactID == "" {
		svc.ArtifactID = dirName
	}

	svc.BasePackage = s.basePackage(abs)

	s.logger.Info("scanned service",
		slog.String("name", svc.Name),
		slog.String("path", abs),
	)
	return svc, nil
}

// ScanServices scans each path in order, logging and skipping failures.
func (s *Scanner) ScanServices(paths []string) []*model.Service {
	services := make([]*model.Service, 0, len(paths))
	for _, p := range paths {
		svc, err := s.ScanService(p)
		if err != nil {
			s.logger.Error("failed to scan service",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			continue
		}
		services = append(services, svc)
	}
	return services
}

// DiscoverServiceDirs returns the service directories below root, sorted.
//
// Description:
//
//	Without recursion only the direct children of root are considered.
//	The root itself is never returned. Directories whose pom.xml has
//	packaging "pom" are aggregators and are skipped, though recursion
//	still descends into them.
func (s *Scanner) DiscoverServiceDirs(root string, recursive bool) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	var dirs []string
	if !recursive {
		entries, err := os.ReadDir(absRoot)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := filepath.Join(absRoot, e.Name())
			if e.IsDir() && s.isServiceDir(p) {
				dirs = append(dirs, p)
			}
		}
	} else {
		err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if !d.IsDir() || p == absRoot {
				return nil
			}
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if s.isServiceDir(p) {
				dirs = append(dirs, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(dirs)
	s.logger.Info("discovered service directories",
		slog.String("root", absRoot),
		slog.Bool("recursive", recursive),
		slog.Int("count", len(dirs)),
	)
	return dirs, nil
}

func (s *Scanner) isServiceDir(dir string) bool {
	pomPath := filepath.Join(dir, pomFile)
	if _, err := os.Stat(pomPath); err == nil {
		pom, err := ReadPOM(pomPath)
		if err == nil && pom.IsAggregator() {
			s.logger.Debug("skipping aggregator pom", slog.String("dir", dir))
			return false
		}
		return true
	}
	info, err := os.Stat(filepath.Join(dir, SourceRoot))
	return err == nil && info.IsDir()
}

// FindJavaFiles returns the .java files under the service's src/main/java,
// sorted, skipping build output and VCS directories. A service without a
// source root yields no files.
func (s *Scanner) FindJavaFiles(svc *model.Service) ([]string, error) {
	root := filepath.Join(svc.RootPath, SourceRoot)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		s.logger.Warn("source directory not found", slog.String("path", root))
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".java") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sources of %s: %w", svc.Name, err)
	}
	sort.Strings(files)
	return files, nil
}

// SourceDirs returns every directory under the service's src/main/java,
// including the root, for file watching.
func SourceDirs(svc *model.Service) []string {
	root := filepath.Join(svc.RootPath, SourceRoot)
	var dirs []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			dirs = append(dirs, p)
		}
		return nil
	})
	return dirs
}

func (s *Scanner) basePackage(serviceRoot string) string {
	root := filepath.Join(serviceRoot, SourceRoot)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		s.logger.Warn("standard maven layout not found", slog.String("path", serviceRoot))
		return ""
	}

	var first string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || first != "" {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".java") {
			first = p
			return filepath.SkipAll
		}
		return nil
	})
	if first == "" {
		return ""
	}

	rel, err := filepath.Rel(root, filepath.Dir(first))
	if err != nil || rel == "." {
		return ""
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}
