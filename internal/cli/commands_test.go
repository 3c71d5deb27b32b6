package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
)

func TestGameFlow_OfflineThenSync(t *testing.T) {
	env := newCLIEnv(t).withRemote(t)
	ctx := context.Background()
	gamePath := env.writeFile(t, "game.yaml", testGameFile)

	out, err := env.run("game", "start", gamePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Game g-1 vs Hawks")
	assert.Contains(t, out, "Q1  offense  play #1")

	out, err = env.run("select", "5", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected: 11, 5")

	// Online: the play reaches the remote immediately.
	out, err = env.runOnline("record", "completion", "--extra", "yards=12")
	require.NoError(t, err)
	assert.Contains(t, out, "Play #1 recorded: offense completion, Q1, players 11, 5")
	assert.Contains(t, out, "Sync: online, idle, 0 pending, 0 failed")

	plays, err := env.acc.Plays(ctx, "g-1")
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, map[string]string{"yards": "12"}, plays[0].Extra)
	assert.ElementsMatch(t, []model.PlayerID{"5", "11"}, plays[0].Players)

	// Offline: the retraction waits in the queue.
	out, err = env.run("undo")
	require.NoError(t, err)
	assert.Contains(t, out, "Play #1 undone")
	assert.Contains(t, out, "Sync: offline, idle, 1 pending, 0 failed")

	out, err = env.run("queue", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "DELETE")

	out, err = env.runOnline("queue", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Sync pass: 1 attempted, 1 succeeded, 0 requeued, 0 dead-lettered")

	plays, err = env.acc.Plays(ctx, "g-1")
	require.NoError(t, err)
	assert.Empty(t, plays)

	out, err = env.run("undo")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to undo")

	out, err = env.runOnline("game", "end", "--home", "21", "--away", "14")
	require.NoError(t, err)
	assert.Contains(t, out, "Game over: 21-14")

	game, found, err := env.acc.Game(ctx, "g-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "final", game.Status)
	require.NotNil(t, game.FinalScore)
	assert.Equal(t, model.Score{Home: 21, Away: 14}, *game.FinalScore)

	_, err = env.run("game", "show")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGameFlow_RestoresAcrossInvocations(t *testing.T) {
	env := newCLIEnv(t)
	gamePath := env.writeFile(t, "game.yaml", testGameFile)

	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)
	for _, args := range [][]string{{"select", "5"}, {"record", "run"}, {"select", "5", "11"}, {"record", "sack"}} {
		_, err := env.run(args...)
		require.NoError(t, err, "%v", args)
	}

	out, err := env.run("game", "show", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   gameView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.PlayNumber)
	assert.Equal(t, 2, resp.Data.Plays)

	counts := map[model.PlayerID]int{}
	for _, r := range resp.Data.Participation {
		counts[r.PlayerID] = r.Plays
	}
	assert.Equal(t, map[model.PlayerID]int{"5": 2, "11": 1, "70": 0}, counts)

	out, err = env.run("queue", "status", "--format", "json")
	require.NoError(t, err)
	var qresp struct {
		Data queueView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &qresp))
	assert.Equal(t, 2, qresp.Data.Pending)
	assert.False(t, qresp.Data.Online)
}

func TestGameStart_ReplacesActiveGame(t *testing.T) {
	env := newCLIEnv(t)
	gamePath := env.writeFile(t, "game.yaml", testGameFile)

	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)
	_, err = env.run("select", "5")
	require.NoError(t, err)
	_, err = env.run("record", "run")
	require.NoError(t, err)

	out, err := env.run("game", "start", gamePath)
	require.NoError(t, err)
	assert.Contains(t, out, "play #1  (0 recorded)")

	out, err = env.run("queue", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "1 pending")
}

func TestGameStart_BadFile(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeFile(t, "game.yaml", "game: {opponent: Hawks}\nroster: [{id: a}]\n")

	_, err := env.run("game", "start", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCommands_NoActiveGame(t *testing.T) {
	for _, args := range [][]string{{"select", "5"}, {"record", "run"}, {"undo"}, {"quarter", "2"}, {"mpr"}, {"game", "show"}} {
		t.Run(args[0], func(t *testing.T) {
			env := newCLIEnv(t)
			out, err := env.run(append(args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, ErrCodeNoGame, resp.Error.Code)
		})
	}
}

func TestCommands_InputErrors(t *testing.T) {
	env := newCLIEnv(t)
	gamePath := env.writeFile(t, "game.yaml", testGameFile)
	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)

	tests := []struct {
		args    []string
		wantMsg string
	}{
		{[]string{"select", "99"}, "not on the roster"},
		{[]string{"record", "moonshot"}, "invalid result"},
		{[]string{"mode", "kickoff"}, "invalid mode"},
		{[]string{"quarter", "0"}, "quarter must be at least 1"},
		{[]string{"quarter", "two"}, "invalid quarter"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0]+" "+tt.args[1], func(t *testing.T) {
			_, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	// A rejected select leaves the selection untouched.
	out, err := env.run("game", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected: none")
}

func TestQuarter_Overtime(t *testing.T) {
	env := newCLIEnv(t)
	gamePath := env.writeFile(t, "game.yaml", testGameFile)
	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)

	out, err := env.run("quarter", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "OT1  offense")
}

func TestMPR_Report(t *testing.T) {
	env := newCLIEnv(t)
	gamePath := env.writeFile(t, "game.yaml", testGameFile)
	_, err := env.run("game", "start", gamePath)
	require.NoError(t, err)

	// Ten offensive plays: player 5 in all, player 11 in none.
	for i := 0; i < 10; i++ {
		_, err := env.run("select", "5")
		require.NoError(t, err)
		_, err = env.run("record", "run")
		require.NoError(t, err)
	}

	out, err := env.run("mpr", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Summary struct {
				OffensivePlays int `json:"offensive_plays"`
				MinPlays       int `json:"min_plays"`
				BelowMinimum   int `json:"below_minimum"`
			} `json:"summary"`
			Players []struct {
				PlayerID     string `json:"player_id"`
				MeetsMinimum bool   `json:"meets_minimum"`
				Shortfall    int    `json:"shortfall"`
			} `json:"players"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 10, resp.Data.Summary.OffensivePlays)
	assert.Equal(t, 1, resp.Data.Summary.MinPlays)
	assert.Equal(t, 1, resp.Data.Summary.BelowMinimum)
	require.Len(t, resp.Data.Players, 2) // ineligible player excluded
	assert.Equal(t, "11", resp.Data.Players[1].PlayerID)
	assert.False(t, resp.Data.Players[1].MeetsMinimum)
	assert.Equal(t, 1, resp.Data.Players[1].Shortfall)

	out, err = env.run("mpr", "--below")
	require.NoError(t, err)
	assert.Contains(t, out, "Ben")
	assert.NotContains(t, out, "Ava")
}

func TestQueueSync_NoRemote(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("queue", "sync")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueueSync_Unreachable(t *testing.T) {
	env := newCLIEnv(t)
	_, err := execute(configEnv(env.db, "http://127.0.0.1:1"), "queue", "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "remote unreachable")
}

func TestQueueRetryDiscard_NotFound(t *testing.T) {
	env := newCLIEnv(t)
	for _, sub := range []string{"retry", "discard"} {
		_, err := env.run("queue", sub, "act-missing")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "not found")
	}
}
