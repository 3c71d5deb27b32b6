package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_Defaults(t *testing.T) {
	out, err := execute(configEnv("", ""), "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "Rules from defaults")
	assert.Contains(t, out, "mpr_percent:    10")
	assert.Contains(t, out, "max_retries:    3")
}

func TestRules_File(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeFile(t, "league.cue", "mpr_percent: 12\nmax_retries: 5\nretry_interval: \"1m\"\n")

	out, err := execute(configEnv("", ""), "rules", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data rulesView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, rulesView{
		Source:        path,
		MPRPercent:    12,
		MaxRetries:    5,
		RetryInterval: "1m0s",
		ProbeInterval: "15s",
		Quarters:      4,
	}, resp.Data)
}

func TestRules_Invalid(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeFile(t, "league.cue", "mpr_percent: 150\n")

	out, err := execute(configEnv("", ""), "rules", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeRules, resp.Error.Code)
}

func TestRules_MissingFile(t *testing.T) {
	_, err := execute(configEnv("", ""), "rules", filepath.Join(t.TempDir(), "none.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRules_AppliedToDevice(t *testing.T) {
	env := newCLIEnv(t)
	rulesPath := env.writeFile(t, "league.cue", "quarters: 2\n")
	gamePath := env.writeFile(t, "game.yaml", testGameFile)

	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)

	out, err := env.run("quarter", "3", "--rules", rulesPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OT1  offense")
}

func TestRules_InvalidBlocksDeviceCommands(t *testing.T) {
	env := newCLIEnv(t)
	rulesPath := env.writeFile(t, "league.cue", "bogus: true\n")

	_, err := env.run("game", "show", "--rules", rulesPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
