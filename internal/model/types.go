package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// PlayerID identifies a roster player. Stable for the lifetime of a session.
type PlayerID string

// PlayerRef is a roster entry as captured at session start.
type PlayerRef struct {
	ID     PlayerID `json:"id" yaml:"id"`
	Jersey int      `json:"jersey" yaml:"jersey"`
	Name   string   `json:"name,omitempty" yaml:"name,omitempty"`

	// Eligible means the player may carry or receive the ball.
	// Ineligible ("striped") players are excluded from MPR accounting.
	Eligible bool `json:"eligible" yaml:"eligible"`
}

// GameMeta is the authoritative game record supplied at session start.
// Everything except GameID is opaque to the session core.
type GameMeta struct {
	GameID    string            `json:"game_id" yaml:"game_id"`
	Opponent  string            `json:"opponent,omitempty" yaml:"opponent,omitempty"`
	FieldSize string            `json:"field_size,omitempty" yaml:"field_size,omitempty"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Mode is the side of the ball a play is recorded under.
type Mode string

const (
	ModeOffense Mode = "offense"
	ModeDefense Mode = "defense"
	ModeSpecial Mode = "special"
)

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(fold(s)); m {
	case ModeOffense, ModeDefense, ModeSpecial:
		return m, nil
	case "special_teams", "st":
		return ModeSpecial, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Result is the enumerated outcome of a play.
type Result string

const (
	ResultRun             Result = "run"
	ResultCompletion      Result = "completion"
	ResultIncompletion    Result = "incompletion"
	ResultSack            Result = "sack"
	ResultInterception    Result = "interception"
	ResultFumble          Result = "fumble"
	ResultTouchdown       Result = "touchdown"
	ResultPenalty         Result = "penalty"
	ResultPunt            Result = "punt"
	ResultKickoff         Result = "kickoff"
	ResultFieldGoal       Result = "field_goal"
	ResultExtraPoint      Result = "extra_point"
	ResultTurnoverOnDowns Result = "turnover_on_downs"
	ResultTackle          Result = "tackle"
	ResultOther           Result = "other"
)

var validResults = map[Result]bool{
	ResultRun:             true,
	ResultCompletion:      true,
	ResultIncompletion:    true,
	ResultSack:            true,
	ResultInterception:    true,
	ResultFumble:          true,
	ResultTouchdown:       true,
	ResultPenalty:         true,
	ResultPunt:            true,
	ResultKickoff:         true,
	ResultFieldGoal:       true,
	ResultExtraPoint:      true,
	ResultTurnoverOnDowns: true,
	ResultTackle:          true,
	ResultOther:           true,
}

// ParseResult converts user input to a Result.
// Input is NFC normalized, lower-cased, and spaces or dashes become underscores,
// so "Field Goal" and "field-goal" both parse.
func ParseResult(s string) (Result, error) {
	r := Result(fold(s))
	if !validResults[r] {
		return "", fmt.Errorf("unknown play result %q", s)
	}
	return r, nil
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// PlayEntry is one recorded play. Immutable once created.
type PlayEntry struct {
	PlayNumber int        `json:"play_number"`
	Mode       Mode       `json:"mode"`
	Players    []PlayerID `json:"players"`
	Result     Result     `json:"result"`
	Quarter    int        `json:"quarter"`
	RecordedAt time.Time  `json:"recorded_at"`

	// Key is the idempotency key of this logical play. Every submission and
	// retry of the play carries it verbatim.
	Key string `json:"key"`

	// Extra carries free-form fields (yardage, penalty info) through to the
	// remote store untouched.
	Extra map[string]string `json:"extra,omitempty"`
}

// Includes reports whether p participated in the play.
func (e PlayEntry) Includes(p PlayerID) bool {
	for _, id := range e.Players {
		if id == p {
			return true
		}
	}
	return false
}

// Score is the final score supplied by the end-of-game flow.
type Score struct {
	Home int `json:"home" yaml:"home"`
	Away int `json:"away" yaml:"away"`
}
