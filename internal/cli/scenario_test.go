package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestScenarioRun_Fixtures(t *testing.T) {
	out, err := execute(configEnv(filepath.Join(t.TempDir(), "unused.db"), ""), "scenario", "run", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ record_play")
	assert.Contains(t, out, "✓ lost_ack")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenarioRun_FilterJSON(t *testing.T) {
	out, err := execute(configEnv("", ""), "scenario", "run", harnessScenarios, "--filter", "dead_*", "--format", "json")
	require.NoError(t, err, out)

	var resp struct {
		Status string         `json:"status"`
		Data   ScenarioReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "dead_letter", resp.Data.Scenarios[0].Name)
}

func TestScenarioRun_GoldenUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "undo_play.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "undo_play.yaml"), src, 0644))

	out, err := execute(configEnv("", ""), "scenario", "run", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ undo_play (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "undo_play.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"undo_play"`)

	_, err = execute(configEnv("", ""), "scenario", "run", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0644))
	out, err = execute(configEnv("", ""), "scenario", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "golden file has 0")
}

func TestScenarioRun_BadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := execute(configEnv("", ""), "scenario", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestScenarioRun_MissingDir(t *testing.T) {
	_, err := execute(configEnv("", ""), "scenario", "run", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioRun_Empty(t *testing.T) {
	out, err := execute(configEnv("", ""), "scenario", "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTraceMismatch(t *testing.T) {
	golden := []byte(`{"scenario_name":"x","trace":[{"op":"start","step":0},{"op":"record","step":1}]}`)

	assert.Empty(t, traceMismatch(golden, golden))
	assert.Equal(t,
		`trace differs from golden file at step 1: got {"op":"undo","step":1}, want {"op":"record","step":1}`,
		traceMismatch(golden, []byte(`{"scenario_name":"x","trace":[{"op":"start","step":0},{"op":"undo","step":1}]}`)))
	assert.Equal(t,
		"trace has 1 steps, golden file has 2",
		traceMismatch(golden, []byte(`{"scenario_name":"x","trace":[{"op":"start","step":0}]}`)))
	assert.Equal(t, "trace does not match golden file", traceMismatch(golden, []byte("not json")))
}

func TestFindScenarioFiles_BadFilter(t *testing.T) {
	_, err := findScenarioFiles(t.TempDir(), "[")
	require.Error(t, err)
}
