package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/huddle/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluate checks one assertion against the final state.
func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertPending:
		return compareInt(a.Type, a.Value, len(h.queue.Snapshot().Pending))
	case AssertFailed:
		return compareInt(a.Type, a.Value, len(h.queue.Snapshot().Failed))
	case AssertQueueStatus:
		return compareString(a.Type, a.Status, string(h.queue.Status()))
	case AssertRemotePlays:
		n, err := h.remotePlays(ctx)
		if err != nil {
			return err
		}
		return compareInt(a.Type, a.Value, n)
	case AssertActive:
		return compareString(a.Type, fmt.Sprint(*a.Active), fmt.Sprint(h.app.Active()))
	}

	snap, err := h.app.Snapshot()
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: "an active game", Actual: err.Error()}
	}

	switch a.Type {
	case AssertPlayNumber:
		return compareInt(a.Type, a.Value, snap.PlayNumber)
	case AssertHistoryLength:
		return compareInt(a.Type, a.Value, len(snap.History))
	case AssertQuarter:
		return compareInt(a.Type, a.Value, snap.Quarter)
	case AssertParticipation:
		return assertParticipation(a, snap.Participation)
	case AssertSelected:
		return assertSelected(a, snap.Selected)
	case AssertMinPlays:
		sum, err := h.app.Summary()
		if err != nil {
			return err
		}
		return compareInt(a.Type, a.Value, sum.MinPlays)
	case AssertCompliance:
		return h.assertCompliance(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertParticipation compares the listed players only (subset semantics).
func assertParticipation(a Assertion, actual map[model.PlayerID]int) error {
	var diffs []string
	for id, want := range a.Participation {
		got, ok := actual[model.PlayerID(id)]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("%s=absent", id))
			continue
		}
		if got != want {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", id, got, want))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	sort.Strings(diffs)
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%v", a.Participation),
		Actual:   strings.Join(diffs, ", "),
	}
}

// assertSelected compares the selection as a set.
func assertSelected(a Assertion, actual []model.PlayerID) error {
	want := slices.Clone(a.Players)
	got := make([]string, len(actual))
	for i, id := range actual {
		got[i] = string(id)
	}
	sort.Strings(want)
	sort.Strings(got)
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func (h *Harness) assertCompliance(a Assertion) error {
	rows, err := h.app.Compliance()
	if err != nil {
		return err
	}
	for _, pc := range rows {
		if string(pc.PlayerID) != a.Player {
			continue
		}
		if pc.MeetsMinimum != *a.MeetsMinimum {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s meets_minimum=%t", a.Player, *a.MeetsMinimum),
				Actual:   fmt.Sprintf("meets_minimum=%t with %d plays", pc.MeetsMinimum, pc.Plays),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("eligible player %s", a.Player),
		Actual:   "not in compliance list",
	}
}

func compareInt(typ string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: typ, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
}

func compareString(typ, want, got string) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: typ, Expected: want, Actual: got}
}
