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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callchain/services/trace/export"
	"github.com/AleutianAI/callchain/services/trace/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeProject lays out an order service calling a user service through a
// Dubbo reference and returns the project root and both service roots.
func writeProject(t *testing.T) (root, orderDir, userDir string) {
	t.Helper()
	root = t.TempDir()

	orderDir = filepath.Join(root, "order-service")
	orderSrc := filepath.Join(orderDir, "src/main/java/com/acme/order")
	writeFile(t, filepath.Join(orderDir, "pom.xml"), "<project><artifactId>order-service</artifactId></project>")
	writeFile(t, filepath.Join(orderSrc, "OrderController.java"), `package com.acme.order;

@RestController
@RequestMapping("/orders")
public class OrderController {
    @Autowired
    private OrderService orderService;

    @GetMapping("/{id}")
    public String get(Long id) {
        return orderService.load(id);
    }

    @PostMapping
    public void ping() {
    }
}
`)
	writeFile(t, filepath.Join(orderSrc, "OrderService.java"), `package com.acme.order;

@Service
public class OrderService {
    @DubboReference(version = "1.0.0")
    private UserService userService;

    public String load(Long id) {
        return userService.find(id);
    }
}
`)

	userDir = filepath.Join(root, "user-service")
	userSrc := filepath.Join(userDir, "src/main/java/com/acme/user")
	writeFile(t, filepath.Join(userDir, "pom.xml"), "<project><artifactId>user-service</artifactId></project>")
	writeFile(t, filepath.Join(userSrc, "UserService.java"), `package com.acme.user;

public interface UserService {
    String find(Long id);
}
`)
	writeFile(t, filepath.Join(userSrc, "impl/UserServiceImpl.java"), `package com.acme.user.impl;

@DubboService(version = "1.0.0")
public class UserServiceImpl implements UserService {
    public String find(Long id) {
        return "user";
    }
}
`)
	return root, orderDir, userDir
}

// runCLI runs the command line with an isolated snapshot directory.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(append([]string{"--log-level", "error"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CALLCHAIN_SNAPSHOT_DIR", filepath.Join(t.TempDir(), "snapshots"))
}

func TestRun_AnalyzeWritesResult(t *testing.T) {
	isolate(t)
	_, orderDir, userDir := writeProject(t)
	out := filepath.Join(t.TempDir(), "result.json")

	code, stdout, stderr := runCLI(t, "--service", orderDir, "-s", userDir, "-o", out)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "SUMMARY Analysis: services=2")
	assert.Contains(t, stdout, "chains=2 cross-service_chains=1 skipped_files=0")
	assert.Contains(t, stdout, "Wrote "+out)
	assert.Contains(t, stderr, "PROGRESS: Analyzing 2 service(s)")

	s, err := export.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Counts().Services)
	require.Len(t, s.Chains(), 2)
	assert.Equal(t, "GET /orders/{id}", s.Chains()[0].Entry.Route)
}

func TestRun_PathSources(t *testing.T) {
	isolate(t)
	root, orderDir, userDir := writeProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "comma list", args: []string{"--services", " " + orderDir + ", ," + userDir}},
		{name: "positionals", args: []string{orderDir, userDir}},
		{name: "analyze subcommand", args: []string{"analyze", orderDir, userDir}},
		{name: "discover", args: []string{"--discover", root}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "result.json")
			code, stdout, stderr := runCLI(t, append(tt.args, "-o", out)...)
			require.Equal(t, exitOK, code, stderr)
			assert.Contains(t, stdout, "services=2")
			assert.FileExists(t, out)
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	isolate(t)

	code, _, stderr := runCLI(t)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Error: no service paths given")
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCLI(t, "--no-such-flag")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "unknown flag")
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCLI(t, "--log-level", "loud", t.TempDir())
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRun_NoServices(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "result.json")

	code, _, stderr := runCLI(t, "-o", out, filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "no services to analyze")
	assert.NoFileExists(t, out)
}

func TestRun_Chains(t *testing.T) {
	isolate(t)
	_, orderDir, userDir := writeProject(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "result.json")
	cypher := filepath.Join(dir, "result.cypher")

	code, _, stderr := runCLI(t, "-o", out, orderDir, userDir)
	require.Equal(t, exitOK, code, stderr)

	code, stdout, stderr := runCLI(t, "chains", out, "--cross-service", "--cypher", cypher)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, `route="GET /orders/{id}" cross_service=true services=order-service,user-service`)
	assert.Contains(t, stdout, "\n0 order-service OrderController.get\n")
	assert.Contains(t, stdout, "\n  1 order-service OrderService.load INTERNAL_METHOD_CALL\n")
	assert.Contains(t, stdout, "\n    2 user-service UserServiceImpl.find RPC_METHOD_CALL\n")
	assert.NotContains(t, stdout, "OrderController.ping")
	assert.Contains(t, stdout, "1 of 1 chain(s)")

	data, err := os.ReadFile(cypher)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE (:Service")

	code, stdout, stderr = runCLI(t, "chains", out, "--limit", "1")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "1 of 2 chain(s)")

	code, _, stderr = runCLI(t, "chains", filepath.Join(dir, "missing.json"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "reading result")
}

func TestRun_Snapshots(t *testing.T) {
	isolate(t)
	_, orderDir, userDir := writeProject(t)
	out := filepath.Join(t.TempDir(), "result.json")

	code, stdout, stderr := runCLI(t, "-o", out, "--save-snapshot", "baseline", orderDir, userDir)
	require.Equal(t, exitOK, code, stderr)

	m := regexp.MustCompile(`Saved snapshot (\S+) \(baseline\)`).FindStringSubmatch(stdout)
	require.Len(t, m, 2, stdout)
	id := m[1]

	code, stdout, stderr = runCLI(t, "snapshot", "list")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, id+" label=baseline")
	assert.Contains(t, stdout, "services=2")

	code, stdout, stderr = runCLI(t, "chains", "--snapshot", id, "--service", "user-service")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "1 of 1 chain(s)")

	code, _, stderr = runCLI(t, "chains", "--snapshot", id, out)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "mutually exclusive")

	code, stdout, stderr = runCLI(t, "snapshot", "delete", id)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Deleted snapshot "+id)

	code, _, stderr = runCLI(t, "snapshot", "show", id)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "snapshot not found")

	code, stdout, stderr = runCLI(t, "snapshot", "list")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "No snapshots")
}

func TestRun_ExportCypherStdout(t *testing.T) {
	isolate(t)
	_, orderDir, userDir := writeProject(t)
	out := filepath.Join(t.TempDir(), "result.json")

	code, _, stderr := runCLI(t, "-o", out, orderDir, userDir)
	require.Equal(t, exitOK, code, stderr)

	code, stdout, stderr := runCLI(t, "export", "cypher", out)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "CREATE (:Method")
}

func TestRun_ConfigInit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "callchain.yaml")

	code, stdout, stderr := runCLI(t, "config", "init", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Wrote "+path)
	assert.FileExists(t, path)

	code, _, stderr = runCLI(t, "config", "init", path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "already exists")

	// The written file is accepted by --config.
	_, orderDir, userDir := writeProject(t)
	out := filepath.Join(t.TempDir(), "result.json")
	code, _, stderr = runCLI(t, "--config", path, "-o", out, orderDir, userDir)
	require.Equal(t, exitOK, code, stderr)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitInterrupted, exitCode(fmt.Errorf("analyze: %w", context.Canceled)))
}

func TestCollectPaths(t *testing.T) {
	root, orderDir, userDir := writeProject(t)

	opts := &analyzeOptions{
		services:    []string{"a"},
		serviceList: "b, ,c",
		discover:    []string{root},
	}
	paths, err := collectPaths(opts, []string{"d"}, scanner.New(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", orderDir, userDir}, paths)

	opts = &analyzeOptions{discover: []string{filepath.Join(root, "missing")}}
	_, err = collectPaths(opts, nil, scanner.New(nil))
	assert.Error(t, err)
}
