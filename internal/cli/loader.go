package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/huddle/internal/model"
)

// GameFile is the collaborator-supplied game record and roster.
//
//	game:
//	  game_id: 2026-09-12-hawks
//	  opponent: Hawks
//	  field_size: 80x40
//	roster:
//	  - { id: p5, jersey: 5, name: Ava, eligible: true }
type GameFile struct {
	Game   model.GameMeta    `yaml:"game"`
	Roster []model.PlayerRef `yaml:"roster"`
}

// LoadError is a game file that could not be used.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadGameFile reads and validates a game file. Unknown fields are rejected
// so a typo cannot silently drop a player attribute.
func LoadGameFile(path string) (*GameFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("game file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("read game file: %v", err)}
	}

	var gf GameFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&gf); err != nil {
		return nil, &LoadError{Code: ErrCodeInput, Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	if err := validateGameFile(&gf); err != nil {
		return nil, &LoadError{Code: ErrCodeInput, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return &gf, nil
}

func validateGameFile(gf *GameFile) error {
	if gf.Game.GameID == "" {
		return fmt.Errorf("game.game_id is required")
	}
	if len(gf.Roster) == 0 {
		return fmt.Errorf("roster must list at least one player")
	}
	seen := make(map[model.PlayerID]bool, len(gf.Roster))
	for i, p := range gf.Roster {
		if p.ID == "" {
			return fmt.Errorf("roster[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("roster[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
