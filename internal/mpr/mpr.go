// Package mpr computes Minimum Play Requirement compliance.
//
// The threshold is relative: every eligible player must have at least
// floor(offensivePlays * Percent / 100) offensive plays. Early in a game the
// bar is low; as the game lengthens it tracks a fixed share of the snaps.
//
// All functions are pure. Compliance is derived on demand from a session
// view and has no state of its own.
package mpr

import "github.com/roach88/huddle/internal/model"

// DefaultPercent is the league default share of offensive plays.
const DefaultPercent = 10

// View is the read-only session surface the calculator needs.
// *session.Session satisfies it.
type View interface {
	Roster() []model.PlayerRef
	Participation() map[model.PlayerID]int
	OffensivePlays() int
}

// Rules parameterize the calculation.
type Rules struct {
	// Percent of offensive plays each eligible player must receive.
	Percent int
}

// DefaultRules returns the standard 10% rule.
func DefaultRules() Rules {
	return Rules{Percent: DefaultPercent}
}

// PlayerCompliance is one eligible player's standing.
type PlayerCompliance struct {
	PlayerID     model.PlayerID `json:"player_id"`
	Jersey       int            `json:"jersey"`
	Name         string         `json:"name,omitempty"`
	Plays        int            `json:"plays"`
	Pct          float64        `json:"pct"`
	MeetsMinimum bool           `json:"meets_minimum"`
}

// MinPlays returns the per-player minimum for the given offensive play count.
// Integer arithmetic keeps the floor exact for every count.
func MinPlays(offensivePlays int, r Rules) int {
	if offensivePlays <= 0 || r.Percent <= 0 {
		return 0
	}
	return offensivePlays * r.Percent / 100
}

// Compliance returns the standing of every eligible roster player, in roster
// order. Ineligible players are omitted entirely.
func Compliance(v View, r Rules) []PlayerCompliance {
	offensive := v.OffensivePlays()
	minPlays := MinPlays(offensive, r)
	participation := v.Participation()

	out := []PlayerCompliance{}
	for _, p := range v.Roster() {
		if !p.Eligible {
			continue
		}
		plays := participation[p.ID]
		pct := 0.0
		if offensive > 0 {
			pct = float64(plays) / float64(offensive) * 100
		}
		out = append(out, PlayerCompliance{
			PlayerID:     p.ID,
			Jersey:       p.Jersey,
			Name:         p.Name,
			Plays:        plays,
			Pct:          pct,
			MeetsMinimum: plays >= minPlays,
		})
	}
	return out
}

// Summary aggregates a compliance list.
type Summary struct {
	OffensivePlays int `json:"offensive_plays"`
	MinPlays       int `json:"min_plays"`
	Eligible       int `json:"eligible"`
	BelowMinimum   int `json:"below_minimum"`
}

// Summarize computes the game-level totals alongside Compliance.
func Summarize(v View, r Rules) Summary {
	s := Summary{
		OffensivePlays: v.OffensivePlays(),
	}
	s.MinPlays = MinPlays(s.OffensivePlays, r)
	for _, pc := range Compliance(v, r) {
		s.Eligible++
		if !pc.MeetsMinimum {
			s.BelowMinimum++
		}
	}
	return s
}

// Shortfall is how many more plays pc needs to meet the current minimum.
// Zero when already compliant.
func Shortfall(pc PlayerCompliance, minPlays int) int {
	if pc.Plays >= minPlays {
		return 0
	}
	return minPlays - pc.Plays
}
