package session

import (
	"fmt"
	"time"

	"github.com/roach88/huddle/internal/model"
)

// Snapshot is the persisted form of a Session.
//
// Participation and PlayNumber are written for readers of the record but
// are derived values; Restore recomputes them from History and refuses a
// record where they disagree.
type Snapshot struct {
	SessionID     string                 `json:"session_id"`
	Meta          model.GameMeta         `json:"meta"`
	Roster        []model.PlayerRef      `json:"roster"`
	Participation map[model.PlayerID]int `json:"participation"`
	Quarter       int                    `json:"quarter"`
	PlayNumber    int                    `json:"play_number"`
	Mode          model.Mode             `json:"mode"`
	Selected      []model.PlayerID       `json:"selected"`
	History       []model.PlayEntry      `json:"history"`
	StartedAt     time.Time              `json:"started_at"`
}

// Snapshot captures the full session state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:     s.id,
		Meta:          s.Meta(),
		Roster:        s.Roster(),
		Participation: s.Participation(),
		Quarter:       s.quarter,
		PlayNumber:    s.PlayNumber(),
		Mode:          s.mode,
		Selected:      s.Selected(),
		History:       s.History(),
		StartedAt:     s.startedAt,
	}
}

// Restore rebuilds a Session from a persisted snapshot.
func Restore(snap Snapshot) (*Session, error) {
	if snap.Quarter < 1 {
		return nil, fmt.Errorf("%w: quarter %d", ErrCorruptSnapshot, snap.Quarter)
	}
	switch snap.Mode {
	case model.ModeOffense, model.ModeDefense, model.ModeSpecial:
	default:
		return nil, fmt.Errorf("%w: mode %q", ErrCorruptSnapshot, snap.Mode)
	}

	s := Start(snap.SessionID, snap.Meta, snap.Roster, snap.StartedAt)
	s.mode = snap.Mode
	s.quarter = snap.Quarter

	for _, id := range snap.Selected {
		if !s.onRoster[id] {
			return nil, fmt.Errorf("%w: selected player %s not on roster", ErrCorruptSnapshot, id)
		}
		s.selected[id] = struct{}{}
	}

	for i, e := range snap.History {
		if e.PlayNumber != i+1 {
			return nil, fmt.Errorf("%w: history[%d] has play number %d", ErrCorruptSnapshot, i, e.PlayNumber)
		}
		for _, id := range e.Players {
			if !s.onRoster[id] {
				return nil, fmt.Errorf("%w: play %d lists unknown player %s", ErrCorruptSnapshot, e.PlayNumber, id)
			}
		}
		s.history = append(s.history, e)
	}

	if snap.PlayNumber != s.PlayNumber() {
		return nil, fmt.Errorf("%w: play number %d, history implies %d",
			ErrCorruptSnapshot, snap.PlayNumber, s.PlayNumber())
	}

	derived := s.Participation()
	if len(snap.Participation) != len(derived) {
		return nil, fmt.Errorf("%w: participation has %d players, roster has %d",
			ErrCorruptSnapshot, len(snap.Participation), len(derived))
	}
	for id, n := range derived {
		if snap.Participation[id] != n {
			return nil, fmt.Errorf("%w: participation[%s] = %d, history implies %d",
				ErrCorruptSnapshot, id, snap.Participation[id], n)
		}
	}

	return s, nil
}
