package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/huddle/internal/model"
)

// Session is the in-memory game state machine. Construct with Start or Restore.
type Session struct {
	id        string
	meta      model.GameMeta
	roster    []model.PlayerRef
	onRoster  map[model.PlayerID]bool
	mode      model.Mode
	quarter   int
	selected  map[model.PlayerID]struct{}
	history   []model.PlayEntry
	startedAt time.Time
}

// Start creates a session for a new game. It always succeeds; the roster is
// copied so later changes by the caller do not leak in.
//
// Initial state: mode offense, quarter 1, play number 1, empty selection,
// empty history, every roster player at zero participation.
func Start(id string, meta model.GameMeta, roster []model.PlayerRef, now time.Time) *Session {
	s := &Session{
		id:        id,
		meta:      copyMeta(meta),
		onRoster:  make(map[model.PlayerID]bool, len(roster)),
		mode:      model.ModeOffense,
		quarter:   1,
		selected:  make(map[model.PlayerID]struct{}),
		history:   []model.PlayEntry{},
		startedAt: now.UTC(),
	}
	s.roster = make([]model.PlayerRef, 0, len(roster))
	for _, p := range roster {
		if s.onRoster[p.ID] {
			continue
		}
		s.onRoster[p.ID] = true
		s.roster = append(s.roster, p)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Meta returns the game record captured at start.
func (s *Session) Meta() model.GameMeta { return copyMeta(s.meta) }

// StartedAt returns when the session began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Roster returns a copy of the roster snapshot in its original order.
func (s *Session) Roster() []model.PlayerRef {
	out := make([]model.PlayerRef, len(s.roster))
	copy(out, s.roster)
	return out
}

// Mode returns the current mode.
func (s *Session) Mode() model.Mode { return s.mode }

// Quarter returns the current quarter.
func (s *Session) Quarter() int { return s.quarter }

// PlayNumber returns the number the next recorded play will carry.
// Always len(History())+1, so never below 1.
func (s *Session) PlayNumber() int { return len(s.history) + 1 }

// History returns a copy of the play history in recording order.
func (s *Session) History() []model.PlayEntry {
	out := make([]model.PlayEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Selected returns the current selection sorted by player id.
func (s *Session) Selected() []model.PlayerID {
	out := make([]model.PlayerID, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSelected reports whether id is in the current selection.
func (s *Session) IsSelected(id model.PlayerID) bool {
	_, ok := s.selected[id]
	return ok
}

// SetMode switches mode and abandons the current selection.
func (s *Session) SetMode(m model.Mode) {
	s.mode = m
	s.ClearSelection()
}

// Select adds id to the selection. Selecting an already selected player is a no-op.
func (s *Session) Select(id model.PlayerID) error {
	if !s.onRoster[id] {
		return fmt.Errorf("select %s: %w", id, ErrUnknownPlayer)
	}
	s.selected[id] = struct{}{}
	return nil
}

// Deselect removes id from the selection. Removing an absent id is a no-op.
func (s *Session) Deselect(id model.PlayerID) {
	delete(s.selected, id)
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	clear(s.selected)
}

// SetQuarter assigns the current quarter.
func (s *Session) SetQuarter(q int) error {
	if q < 1 {
		return fmt.Errorf("set quarter %d: %w", q, ErrInvalidQuarter)
	}
	s.quarter = q
	return nil
}

// RecordPlay appends a play built from the current mode, selection, and
// quarter, then clears the selection. The entry's player list is a copy of
// the selection at this moment. key is the play's idempotency key.
func (s *Session) RecordPlay(result model.Result, extra map[string]string, key string, now time.Time) model.PlayEntry {
	entry := model.PlayEntry{
		PlayNumber: s.PlayNumber(),
		Mode:       s.mode,
		Players:    s.Selected(),
		Result:     result,
		Quarter:    s.quarter,
		RecordedAt: now.UTC(),
		Key:        key,
	}
	if len(extra) > 0 {
		entry.Extra = make(map[string]string, len(extra))
		for k, v := range extra {
			entry.Extra[k] = v
		}
	}

	s.history = append(s.history, entry)
	s.ClearSelection()
	return entry
}

// Undo removes the last play and returns it. Returns false with an empty
// history.
func (s *Session) Undo() (model.PlayEntry, bool) {
	if len(s.history) == 0 {
		return model.PlayEntry{}, false
	}
	last := s.history[len(s.history)-1]
	s.history[len(s.history)-1] = model.PlayEntry{}
	s.history = s.history[:len(s.history)-1]
	return last, true
}

// Participation returns offensive play counts for every roster player.
func (s *Session) Participation() map[model.PlayerID]int {
	return fold(s.roster, s.history)
}

// OffensivePlays returns how many offense entries are in the history.
func (s *Session) OffensivePlays() int {
	n := 0
	for _, e := range s.history {
		if e.Mode == model.ModeOffense {
			n++
		}
	}
	return n
}

// fold derives participation from the history. Only offense entries count;
// defense and special teams plays are history-only.
func fold(roster []model.PlayerRef, history []model.PlayEntry) map[model.PlayerID]int {
	counts := make(map[model.PlayerID]int, len(roster))
	for _, p := range roster {
		counts[p.ID] = 0
	}
	for _, e := range history {
		if e.Mode != model.ModeOffense {
			continue
		}
		for _, id := range e.Players {
			if _, ok := counts[id]; ok {
				counts[id]++
			}
		}
	}
	return counts
}

func copyMeta(m model.GameMeta) model.GameMeta {
	if len(m.Fields) == 0 {
		m.Fields = nil
		return m
	}
	fields := make(map[string]string, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	m.Fields = fields
	return m
}
