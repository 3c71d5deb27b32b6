package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
)

var testRoster = []model.PlayerRef{
	{ID: "5", Jersey: 5, Name: "Ava", Eligible: true},
	{ID: "11", Jersey: 11, Name: "Ben", Eligible: true},
}

func boolPtr(b bool) *bool { return &b }

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/retry_dead_letter.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_UnexpectedStepError(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_game",
		Description: "Recording without a game fails",
		Steps:       []Step{{Op: OpRecord, Result: "run"}},
		Assertions:  []Assertion{{Type: AssertActive, Active: boolPtr(false)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, OutcomeError, result.Trace[0].Outcome)
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_missing",
		Description: "A step expected to fail succeeds",
		Game:        model.GameMeta{GameID: "g-1"},
		Roster:      testRoster,
		Steps: []Step{
			{Op: OpStart},
			{Op: OpQuarter, Quarter: 2, ExpectError: "quarter"},
		},
		Assertions: []Assertion{{Type: AssertQuarter, Value: 2}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "got none")
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_count",
		Description: "Participation mismatch is reported",
		Game:        model.GameMeta{GameID: "g-1"},
		Roster:      testRoster,
		Steps: []Step{
			{Op: OpStart},
			{Op: OpSelect, Players: []string{"5"}},
			{Op: OpRecord, Result: "run"},
		},
		Assertions: []Assertion{
			{Type: AssertParticipation, Participation: map[string]int{"5": 2, "11": 0}},
			{Type: AssertSelected, Players: []string{"11"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "5=1 (want 2)")
	assert.Contains(t, result.Errors[1], "selected")
}

func TestRun_SessionAssertionWithoutGame(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_session",
		Description: "Session assertions need an active game",
		Steps:       []Step{{Op: OpOnline}},
		Assertions:  []Assertion{{Type: AssertPlayNumber, Value: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "an active game")
}

func TestRun_MaxRetriesOverride(t *testing.T) {
	zero := 0
	scenario := &Scenario{
		Name:        "no_retries",
		Description: "With no retry budget the first failure dead-letters",
		Rules:       &RulesSpec{MaxRetries: &zero},
		Game:        model.GameMeta{GameID: "g-1"},
		Roster:      testRoster,
		Steps: []Step{
			{Op: OpStart},
			{Op: OpOnline},
			{Op: OpRemoteDown},
			{Op: OpRecord, Result: "run"},
			{Op: OpRemoteUp},
		},
		Assertions: []Assertion{
			{Type: AssertFailed, Value: 1},
			{Type: AssertPending, Value: 0},
			{Type: AssertQueueStatus, Status: "error"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ComplianceRespectsRules(t *testing.T) {
	fifty := 50
	scenario := &Scenario{
		Name:        "half",
		Description: "A 50% rule needs one play out of two",
		Rules:       &RulesSpec{MPRPercent: &fifty},
		Game:        model.GameMeta{GameID: "g-1"},
		Roster:      testRoster,
		Steps: []Step{
			{Op: OpStart},
			{Op: OpSelect, Players: []string{"5"}},
			{Op: OpRecord, Result: "run"},
			{Op: OpRecord, Result: "run"},
		},
		Assertions: []Assertion{
			{Type: AssertMinPlays, Value: 1},
			{Type: AssertCompliance, Player: "5", MeetsMinimum: boolPtr(true)},
			{Type: AssertCompliance, Player: "11", MeetsMinimum: boolPtr(false)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Type: AssertPending, Expected: "0", Actual: "2"}
	assert.Equal(t, "pending: expected 0, got 2", err.Error())
}
