package runner

import (
	"time"

	"github.com/google/uuid"
)

// ResetGameCommand as a step command deletes the game and starts a fresh one in the same world.
const ResetGameCommand = "RESET_GAME"

// TestSuite defines a complete scripted playthrough.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name" yaml:"name"`
	World string     `json:"world,omitempty" yaml:"world,omitempty"` // Used for regular tests; empty means the server default
	Steps []TestStep `json:"steps,omitempty" yaml:"steps,omitempty"`
	Cases []string   `json:"cases,omitempty" yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// StepIntent is a structured intent as sent to /v1/gamestate/{id}/intent.
type StepIntent struct {
	Kind      string `json:"kind" yaml:"kind"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	ItemID    string `json:"item_id,omitempty" yaml:"item_id,omitempty"`
}

// TestStep is one turn and its expected outcome. Exactly one of Command or Intent is set.
// Queued steps go through /queue and wait for the worker, so they must append to the log.
type TestStep struct {
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Command      string       `json:"command,omitempty" yaml:"command,omitempty"`
	Intent       *StepIntent  `json:"intent,omitempty" yaml:"intent,omitempty"`
	Queued       bool         `json:"queued,omitempty" yaml:"queued,omitempty"`
	Expectations Expectations `json:"expect" yaml:"expect"`
}

// Label names the step in reports.
func (s TestStep) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Intent != nil:
		if s.Intent.Direction != "" {
			return s.Intent.Kind + " " + s.Intent.Direction
		}
		if s.Intent.ItemID != "" {
			return s.Intent.Kind + " " + s.Intent.ItemID
		}
		return s.Intent.Kind
	default:
		return s.Command
	}
}

// Expectations defines what to check after a step executes
type Expectations struct {
	// Game state after the turn
	RoomID       *string         `json:"room_id,omitempty" yaml:"room_id,omitempty"`
	Mode         *string         `json:"mode,omitempty" yaml:"mode,omitempty"`
	SelectedItem *string         `json:"selected_item,omitempty" yaml:"selected_item,omitempty"`
	Inventory    *[]string       `json:"inventory,omitempty" yaml:"inventory,omitempty"` // Exact contents in pickup order
	Exits        *[]string       `json:"exits,omitempty" yaml:"exits,omitempty"`         // Long names in compass order
	RoomItems    *[]string       `json:"room_items,omitempty" yaml:"room_items,omitempty"`
	Flags        map[string]bool `json:"flags,omitempty" yaml:"flags,omitempty"` // false asserts the flag is unset

	// Log entries appended by the turn
	EntryCount     *int     `json:"entry_count,omitempty" yaml:"entry_count,omitempty"`
	OutputContains []string `json:"output_contains,omitempty" yaml:"output_contains,omitempty"`
	OutputExcludes []string `json:"output_excludes,omitempty" yaml:"output_excludes,omitempty"`
	OutputRegex    string   `json:"output_regex,omitempty" yaml:"output_regex,omitempty"`

	// Error expects the API to reject the turn with a message containing this text.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	Output    string
	RequestID string
	IsReset   bool // True if this was a RESET_GAME step (should not count toward pass/fail metrics)
	IsQueued  bool
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	GameState uuid.UUID // ID of the last game used for this suite
}

// Counts tallies step outcomes. Reset steps are not counted.
func (r TestRunResult) Counts() (passed, failed int) {
	for _, step := range r.Results {
		switch {
		case step.IsReset:
		case step.Success:
			passed++
		default:
			failed++
		}
	}
	return passed, failed
}
