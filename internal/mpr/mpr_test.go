package mpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huddle/internal/model"
)

// fakeView is a fixed View for table tests.
type fakeView struct {
	roster        []model.PlayerRef
	participation map[model.PlayerID]int
	offensive     int
}

func (f fakeView) Roster() []model.PlayerRef { return f.roster }
func (f fakeView) Participation() map[model.PlayerID]int { return f.participation }
func (f fakeView) OffensivePlays() int { return f.offensive }

func TestMinPlays(t *testing.T) {
	tests := []struct {
		offensive int
		want      int
	}{
		{0, 0},
		{9, 0},
		{10, 1},
		{19, 1},
		{20, 2},
		{30, 3},
		{70, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinPlays(tt.offensive, DefaultRules()), "offensive=%d", tt.offensive)
	}
}

// Scenario C: 20 offensive plays, one player at 1 play and one at 2.
func TestCompliance_ScenarioC(t *testing.T) {
	v := fakeView{
		roster: []model.PlayerRef{
			{ID: "a", Jersey: 1, Eligible: true},
			{ID: "b", Jersey: 2, Eligible: true},
		},
		participation: map[model.PlayerID]int{"a": 1, "b": 2},
		offensive:     20,
	}

	got := Compliance(v, DefaultRules())
	require.Len(t, got, 2)

	assert.Equal(t, 2, MinPlays(20, DefaultRules()))
	assert.False(t, got[0].MeetsMinimum)
	assert.InDelta(t, 5.0, got[0].Pct, 1e-9)
	assert.True(t, got[1].MeetsMinimum)
	assert.InDelta(t, 10.0, got[1].Pct, 1e-9)
}

func TestCompliance_ExcludesIneligible(t *testing.T) {
	v := fakeView{
		roster: []model.PlayerRef{
			{ID: "a", Eligible: true},
			{ID: "lineman", Eligible: false},
		},
		participation: map[model.PlayerID]int{"a": 3, "lineman": 0},
		offensive:     30,
	}

	got := Compliance(v, DefaultRules())
	require.Len(t, got, 1)
	assert.Equal(t, model.PlayerID("a"), got[0].PlayerID)
}

func TestCompliance_NoPlaysYet(t *testing.T) {
	v := fakeView{
		roster:        []model.PlayerRef{{ID: "a", Eligible: true}},
		participation: map[model.PlayerID]int{"a": 0},
	}

	got := Compliance(v, DefaultRules())
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Pct)
	assert.True(t, got[0].MeetsMinimum)
}

// Increasing one player's plays with offensivePlays fixed never flips
// MeetsMinimum from true to false.
func TestCompliance_Monotonic(t *testing.T) {
	for offensive := 0; offensive <= 60; offensive++ {
		prev := false
		for plays := 0; plays <= offensive; plays++ {
			v := fakeView{
				roster:        []model.PlayerRef{{ID: "a", Eligible: true}},
				participation: map[model.PlayerID]int{"a": plays},
				offensive:     offensive,
			}
			meets := Compliance(v, DefaultRules())[0].MeetsMinimum
			if prev {
				require.True(t, meets, "offensive=%d plays=%d", offensive, plays)
			}
			prev = meets
		}
	}
}

func TestSummarize(t *testing.T) {
	v := fakeView{
		roster: []model.PlayerRef{
			{ID: "a", Eligible: true},
			{ID: "b", Eligible: true},
			{ID: "c", Eligible: false},
		},
		participation: map[model.PlayerID]int{"a": 0, "b": 5, "c": 0},
		offensive:     20,
	}

	assert.Equal(t, Summary{OffensivePlays: 20, MinPlays: 2, Eligible: 2, BelowMinimum: 1}, Summarize(v, DefaultRules()))
}

func TestShortfall(t *testing.T) {
	assert.Equal(t, 2, Shortfall(PlayerCompliance{Plays: 1}, 3))
	assert.Equal(t, 0, Shortfall(PlayerCompliance{Plays: 4}, 3))
}

func TestCompliance_CustomPercent(t *testing.T) {
	v := fakeView{
		roster:        []model.PlayerRef{{ID: "a", Eligible: true}},
		participation: map[model.PlayerID]int{"a": 4},
		offensive:     20,
	}

	got := Compliance(v, Rules{Percent: 25})
	assert.False(t, got[0].MeetsMinimum)
}
