package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/huddle/internal/mpr"
	"github.com/roach88/huddle/internal/queue"
)

//go:embed rules.cue
var rulesSchema string

// Rules are the league rules in effect for a device.
type Rules struct {
	MPRPercent    int
	MaxRetries    int
	RetryInterval time.Duration
	ProbeInterval time.Duration
	Quarters      int
}

// DefaultRules returns the rules used when no rules file is configured.
// They match the defaults in the embedded schema.
func DefaultRules() Rules {
	return Rules{
		MPRPercent:    mpr.DefaultPercent,
		MaxRetries:    queue.DefaultMaxRetries,
		RetryInterval: 30 * time.Second,
		ProbeInterval: 15 * time.Second,
		Quarters:      4,
	}
}

// MPR returns the rules the compliance calculator needs.
func (r Rules) MPR() mpr.Rules {
	return mpr.Rules{Percent: r.MPRPercent}
}

// RulesError is a rules file that failed schema validation.
type RulesError struct {
	Message string
	Pos     token.Pos
}

func (e *RulesError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Details returns the error position for machine-readable output, or nil
// when the position is unknown.
func (e *RulesError) Details() map[string]any {
	if !e.Pos.IsValid() {
		return nil
	}
	return map[string]any{
		"file":   e.Pos.Filename(),
		"line":   e.Pos.Line(),
		"column": e.Pos.Column(),
	}
}

// LoadRules reads and validates a rules file. An empty path yields
// DefaultRules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("load rules: %w", err)
	}
	return ParseRules(path, src)
}

// rawRules mirrors #Rules for decoding.
type rawRules struct {
	MPRPercent    int    `json:"mpr_percent"`
	MaxRetries    int    `json:"max_retries"`
	RetryInterval string `json:"retry_interval"`
	ProbeInterval string `json:"probe_interval"`
	Quarters      int    `json:"quarters"`
}

// ParseRules validates src against the rules schema and decodes it.
// filename is used only in error positions.
func ParseRules(filename string, src []byte) (Rules, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(rulesSchema, cue.Filename("rules.cue")).LookupPath(cue.ParsePath("#Rules"))
	if err := schema.Err(); err != nil {
		return Rules{}, fmt.Errorf("rules schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Rules{}, formatCUEError(err)
	}

	v := schema.Unify(file)
	if err := v.Validate(); err != nil {
		return Rules{}, formatCUEError(err)
	}

	var raw rawRules
	if err := v.Decode(&raw); err != nil {
		return Rules{}, formatCUEError(err)
	}

	retry, err := time.ParseDuration(raw.RetryInterval)
	if err != nil {
		return Rules{}, &RulesError{Message: fmt.Sprintf("retry_interval: %v", err)}
	}
	probe, err := time.ParseDuration(raw.ProbeInterval)
	if err != nil {
		return Rules{}, &RulesError{Message: fmt.Sprintf("probe_interval: %v", err)}
	}

	return Rules{
		MPRPercent:    raw.MPRPercent,
		MaxRetries:    raw.MaxRetries,
		RetryInterval: retry,
		ProbeInterval: probe,
		Quarters:      raw.Quarters,
	}, nil
}

// formatCUEError keeps the first error and its source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &RulesError{Message: err.Error()}
	}
	first := errs[0]
	re := &RulesError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		re.Pos = positions[0]
	}
	return re
}
