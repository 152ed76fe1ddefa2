package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

const failingScenario = `name: wrong_order
description: "Peru does not sort before Chad"
records:
  - { id: 1, country: "Peru" }
  - { id: 2, country: "Chad" }
columns:
  country: string
task:
  fields: { available: true }
assertions:
  - type: order
    sort: ["country"]
    ids: [1, 2]
`

func TestTest_HarnessScenariosPass(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ partial_failure\n")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), harnessScenarios, "--filter", "sort*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "sort_view", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_order.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_order")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	scenario, err := os.ReadFile(filepath.Join(harnessScenarios, "partial_failure.yaml"))
	require.NoError(t, err)
	writeFile(t, dir, "partial_failure.yaml", string(scenario))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "partial_failure.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessScenarios, "golden", "partial_failure.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	scenario, err := os.ReadFile(filepath.Join(harnessScenarios, "partial_failure.yaml"))
	require.NoError(t, err)
	writeFile(t, dir, "partial_failure.yaml", string(scenario))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "partial_failure.golden", "stale\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_LoadErrorIsFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nbogus_key: 1\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
