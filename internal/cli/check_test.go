package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../harness/testdata/scenarios"

func TestCheck_BundledScenariosPass(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"check", scenarioDir}, &stdout, &stderr)

	assert.Equal(t, ExitSuccess, code, "stdout: %s\nstderr: %s", stdout.String(), stderr.String())
	assert.Contains(t, stdout.String(), "✓ task_economy")
	assert.Contains(t, stdout.String(), "✓ recurring_sale")
	assert.Contains(t, stdout.String(), "2 passed, 0 failed, 2 total")
}

func TestCheck_Filter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"--format", "json", "check", scenarioDir, "--filter", "task_*"}, &stdout, &stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "task_economy", resp.Data.Scenarios[0].Name)
}

func TestCheck_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "wrong.yaml"), []byte(`name: wrong_balance
description: "Expects more coins than an easy task pays"
timezone: UTC
start: "2026-03-10 09:00"
flow:
  - invoke: task.add
    args: { title: Laundry, difficulty: easy, as: laundry }
  - invoke: task.complete
    args: { task: laundry }
    expect: { balance: 99 }
assertions:
  - type: balanced
`), 0o644))

	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"check", scenarios}, &stdout, &stderr)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout.String(), "✗ wrong_balance")
	assert.Contains(t, stdout.String(), "0 passed, 1 failed, 1 total")
	// The failure is reported once, with the results.
	assert.Empty(t, stderr.String())
}

func TestCheck_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenarioDir, "task_economy.yaml"))
	require.NoError(t, err)
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "task_economy.yaml"), src, 0o644))

	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"check", scenarios, "--update"}, &stdout, &stderr)
	require.Equal(t, ExitSuccess, code, stdout.String())

	written, err := os.ReadFile(filepath.Join(dir, "golden", "task_economy.golden"))
	require.NoError(t, err)
	bundled, err := os.ReadFile("../harness/testdata/golden/task_economy.golden")
	require.NoError(t, err)
	assert.Equal(t, string(bundled), string(written))
}

func TestCheck_MissingPath(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"check", "does-not-exist"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "golden", "x.golden"), goldenFilePath("", filepath.Join("a", "scenarios", "s.yaml"), "x"))
	assert.Equal(t, filepath.Join("g", "x.golden"), goldenFilePath("g", filepath.Join("a", "scenarios", "s.yaml"), "x"))
}
