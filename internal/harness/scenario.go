package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/huddle/internal/model"
)

// Scenario is a scripted game.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules override league defaults for this scenario.
	Rules *RulesSpec `yaml:"rules,omitempty"`

	// Game and Roster are supplied to the start step.
	Game   model.GameMeta    `yaml:"game"`
	Roster []model.PlayerRef `yaml:"roster"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// RulesSpec is the subset of league rules a scenario may override.
type RulesSpec struct {
	MPRPercent *int `yaml:"mpr_percent,omitempty"`
	MaxRetries *int `yaml:"max_retries,omitempty"`
}

// Step is one operator or environment action.
type Step struct {
	Op string `yaml:"op"`

	Mode    string            `yaml:"mode,omitempty"`
	Players []string          `yaml:"players,omitempty"`
	Result  string            `yaml:"result,omitempty"`
	Extra   map[string]string `yaml:"extra,omitempty"`
	Quarter int               `yaml:"quarter,omitempty"`
	Score   *model.Score      `yaml:"score,omitempty"`
	Count   int               `yaml:"count,omitempty"`
	Action  string            `yaml:"action,omitempty"`

	// ExpectError is a substring the step's error must contain.
	// Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step op constants.
const (
	OpStart      = "start"
	OpEnd        = "end"
	OpRestart    = "restart"
	OpMode       = "mode"
	OpSelect     = "select"
	OpDeselect   = "deselect"
	OpClear      = "clear"
	OpRecord     = "record"
	OpUndo       = "undo"
	OpQuarter    = "quarter"
	OpOnline     = "online"
	OpOffline    = "offline"
	OpDrain      = "drain"
	OpRetry      = "retry"
	OpDiscard    = "discard"
	OpFailNext   = "fail_next"
	OpDropAcks   = "drop_acks"
	OpRemoteDown = "remote_down"
	OpRemoteUp   = "remote_up"
)

// Assertion checks final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Value is the expected number for numeric assertions.
	Value int `yaml:"value,omitempty"`

	// Participation is the expected count per player (participation).
	Participation map[string]int `yaml:"participation,omitempty"`

	// Players is the expected selection (selected).
	Players []string `yaml:"players,omitempty"`

	// Player and MeetsMinimum check one compliance row (compliance).
	Player       string `yaml:"player,omitempty"`
	MeetsMinimum *bool  `yaml:"meets_minimum,omitempty"`

	// Status is the expected queue status (queue_status).
	Status string `yaml:"status,omitempty"`

	// Active is whether a game should be running (active).
	Active *bool `yaml:"active,omitempty"`
}

// Assertion type constants.
const (
	AssertParticipation = "participation"
	AssertPlayNumber    = "play_number"
	AssertHistoryLength = "history_length"
	AssertSelected      = "selected"
	AssertQuarter       = "quarter"
	AssertPending       = "pending"
	AssertFailed        = "failed"
	AssertQueueStatus   = "queue_status"
	AssertRemotePlays   = "remote_plays"
	AssertMinPlays      = "min_plays"
	AssertCompliance    = "compliance"
	AssertActive        = "active"
)

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
// Returns an error if it is malformed, contains unknown fields (typos), or
// is missing required fields.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	starts := false
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.Op == OpStart {
			starts = true
		}
	}
	if starts && s.Game.GameID == "" {
		return fmt.Errorf("game.game_id is required when a start step is present")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Op {
	case OpStart, OpRestart, OpClear, OpUndo, OpOnline, OpOffline, OpDrain, OpRemoteDown, OpRemoteUp:
	case OpEnd:
		if step.Score == nil {
			return fmt.Errorf("steps[%d]: score is required for end", i)
		}
	case OpMode:
		if _, err := model.ParseMode(step.Mode); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	case OpSelect, OpDeselect:
		if len(step.Players) == 0 {
			return fmt.Errorf("steps[%d]: players is required for %s", i, step.Op)
		}
	case OpRecord:
		if _, err := model.ParseResult(step.Result); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	case OpQuarter:
		// Zero is allowed so scenarios can exercise the rejection.
	case OpRetry, OpDiscard:
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required for %s", i, step.Op)
		}
	case OpFailNext, OpDropAcks:
		if step.Count <= 0 {
			return fmt.Errorf("steps[%d]: count must be positive for %s", i, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertPlayNumber, AssertHistoryLength, AssertQuarter, AssertPending, AssertFailed,
		AssertRemotePlays, AssertMinPlays:
		if a.Value < 0 {
			return fmt.Errorf("assertions[%d]: value must be non-negative for %s", i, a.Type)
		}
	case AssertParticipation:
		if len(a.Participation) == 0 {
			return fmt.Errorf("assertions[%d]: participation is required", i)
		}
	case AssertSelected:
		// An empty list asserts an empty selection.
	case AssertQueueStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for queue_status", i)
		}
	case AssertCompliance:
		if a.Player == "" || a.MeetsMinimum == nil {
			return fmt.Errorf("assertions[%d]: player and meets_minimum are required for compliance", i)
		}
	case AssertActive:
		if a.Active == nil {
			return fmt.Errorf("assertions[%d]: active is required", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
