package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes scripted playthroughs against a running compass-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // Max wait for a queued turn
	PollInterval      time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	WorldOverride     string // If set, overrides the world for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           QueueTimeout,
		PollInterval:      PollInterval,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON or YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &suite); err != nil {
			return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(content, &suite); err != nil {
			return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
		}
	}

	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	for i, step := range suite.Steps {
		if err := step.validate(); err != nil {
			return TestSuite{}, fmt.Errorf("%s step %d: %w", filename, i+1, err)
		}
	}
	return suite, nil
}

func (s TestStep) validate() error {
	switch {
	case s.Command == "" && s.Intent == nil:
		return errors.New("either command or intent is required")
	case s.Command != "" && s.Intent != nil:
		return errors.New("command and intent are mutually exclusive")
	case s.Command == ResetGameCommand && s.Queued:
		return errors.New("reset steps cannot be queued")
	case s.Queued && s.Expectations.EntryCount != nil && *s.Expectations.EntryCount == 0:
		return errors.New("queued steps must append to the log")
	}
	return nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath, err := ResolveCaseFile(casesDir, caseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		// Sequences may reference other sequences
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

var caseExtensions = []string{".json", ".yaml", ".yml"}

// IsCaseFile reports whether path has a case file extension.
func IsCaseFile(path string) bool {
	return slices.Contains(caseExtensions, strings.ToLower(filepath.Ext(path)))
}

// ResolveCaseFile finds a case in dir by file name or by stem.
func ResolveCaseFile(dir, name string) (string, error) {
	if IsCaseFile(name) {
		return filepath.Join(dir, name), nil
	}
	for _, ext := range caseExtensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no test case named %q in %s", name, dir)
}

// RunSuite plays a suite's steps in a fresh game
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	worldRef := suite.World
	if r.WorldOverride != "" {
		worldRef = r.WorldOverride
	}

	view, err := r.createGame(ctx, worldRef)
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	gameID := view.ID
	result.GameState = gameID
	r.Logger("  Created game %s in %s", gameID, view.WorldID)

	var failures int
	for i, step := range suite.Steps {
		var stepResult TestResult
		if step.Command == ResetGameCommand {
			stepResult = r.resetGame(ctx, &gameID, view.WorldID, step)
			result.GameState = gameID
		} else {
			stepResult = r.runStep(ctx, gameID, step)
		}
		result.Results = append(result.Results, stepResult)

		if stepResult.Success {
			r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), stepResult.StepName, stepResult.Duration)
			continue
		}
		failures++
		r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), stepResult.StepName, stepResult.Error)
		if r.ErrorHandlingMode == ErrorHandlingExit {
			result.Error = fmt.Errorf("step %d (%s) failed: %w", i+1, stepResult.StepName, stepResult.Error)
			break
		}
	}

	if result.Error == nil && failures > 0 {
		result.Error = fmt.Errorf("%d of %d steps failed", failures, len(suite.Steps))
	}
	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) createGame(ctx context.Context, worldRef string) (*state.SessionView, error) {
	body, err := json.Marshal(handlers.CreateGameStateRequest{World: worldRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/gamestate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusCreated {
		return nil, readAPIError(resp)
	}

	var view state.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to decode created gamestate: %w", err)
	}
	if view.GameState == nil {
		return nil, errors.New("create gamestate returned an empty body")
	}
	return &view, nil
}

func (r *Runner) deleteGame(ctx context.Context, gameID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.BaseURL+"/v1/gamestate/"+gameID.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create DELETE request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute DELETE request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return readAPIError(resp)
	}
	return nil
}

// resetGame replaces the game with a fresh one in the same world and checks
// the step's expectations against the new game.
func (r *Runner) resetGame(ctx context.Context, gameID *uuid.UUID, worldID string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Label(), IsReset: true, Output: "[GAME RESET]"}

	if err := r.deleteGame(ctx, *gameID); err != nil {
		result.Error = fmt.Errorf("failed to delete game: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	view, err := r.createGame(ctx, worldID)
	if err != nil {
		result.Error = fmt.Errorf("failed to recreate game: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	*gameID = view.ID

	if err := checkExpectations(step.Expectations, view, view.Log); err != nil {
		result.Error = fmt.Errorf("reset expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// runStep executes a single step and checks expectations.
// Queued steps that time out are retried once.
func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	for attempt := 1; ; attempt++ {
		result := r.executeStep(ctx, gameID, step)
		if result.Success || result.Error == nil || !step.Queued || attempt == 2 {
			return result
		}
		if !strings.Contains(result.Error.Error(), "timeout waiting for queued turn") {
			return result
		}
		r.Logger("    Timeout detected, retrying step: %s", result.StepName)
	}
}

func (s TestStep) request() handlers.IntentRequest {
	if s.Intent != nil {
		return handlers.IntentRequest{
			Kind:      state.IntentKind(s.Intent.Kind),
			Direction: s.Intent.Direction,
			ItemID:    s.Intent.ItemID,
		}
	}
	return handlers.IntentRequest{Command: s.Command}
}

// executeStep performs the actual step execution
func (r *Runner) executeStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Label(), IsQueued: step.Queued}

	var (
		view    *state.SessionView
		entries []state.LogEntry
		err     error
	)
	if step.Queued {
		view, entries, result.RequestID, err = r.queueTurn(ctx, gameID, step.request())
	} else {
		view, entries, result.RequestID, err = r.postTurn(ctx, gameID, step.request())
	}
	result.Duration = time.Since(start)

	if want := step.Expectations.Error; want != "" {
		var apiErr *apiError
		switch {
		case err == nil:
			result.Error = fmt.Errorf("expected error containing '%s', but the turn succeeded", want)
		case !errors.As(err, &apiErr):
			result.Error = err
		case !strings.Contains(strings.ToLower(apiErr.Message), strings.ToLower(want)):
			result.Error = fmt.Errorf("expected error containing '%s', got '%s'", want, apiErr.Message)
		default:
			result.Output = apiErr.Message
			result.Success = true
		}
		return result
	}
	if err != nil {
		result.Error = err
		return result
	}

	result.Output = joinEntries(entries)
	if err := checkExpectations(step.Expectations, view, entries); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		return result
	}
	result.Success = true
	return result
}

func (r *Runner) postTurn(ctx context.Context, gameID uuid.UUID, in handlers.IntentRequest) (*state.SessionView, []state.LogEntry, string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to marshal intent: %w", err)
	}
	url := fmt.Sprintf("%s/v1/gamestate/%s/intent", r.BaseURL, gameID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to send intent request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, "", readAPIError(resp)
	}

	var turn handlers.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		return nil, nil, "", fmt.Errorf("failed to decode turn response: %w", err)
	}
	if turn.State.GameState == nil {
		return nil, nil, "", errors.New("turn response had no state")
	}
	return &turn.State, turn.Entries, turn.RequestID, nil
}

func (r *Runner) queueTurn(ctx context.Context, gameID uuid.UUID, in handlers.IntentRequest) (*state.SessionView, []state.LogEntry, string, error) {
	before, err := GetGameState(ctx, r.Client, r.BaseURL, gameID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to get gamestate before turn: %w", err)
	}

	requestID, err := PostQueued(ctx, r.Client, r.BaseURL, gameID, in)
	if err != nil {
		return nil, nil, "", err
	}

	view, entries, err := PollForTurn(ctx, r.Client, r.BaseURL, gameID, len(before.Log), r.PollInterval, r.Timeout)
	if err != nil {
		return nil, nil, requestID, err
	}
	return view, entries, requestID, nil
}

func joinEntries(entries []state.LogEntry) string {
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return strings.Join(texts, "\n")
}

// checkExpectations validates a step's expectations against the game after the turn
func checkExpectations(exp Expectations, view *state.SessionView, entries []state.LogEntry) error {
	if exp.RoomID != nil && view.RoomID != *exp.RoomID {
		return fmt.Errorf("expected room %s, got %s", *exp.RoomID, view.RoomID)
	}

	if exp.Mode != nil && string(view.Mode) != *exp.Mode {
		return fmt.Errorf("expected mode %s, got %s", *exp.Mode, view.Mode)
	}

	if exp.SelectedItem != nil && view.SelectedItem != *exp.SelectedItem {
		return fmt.Errorf("expected selected item '%s', got '%s'", *exp.SelectedItem, view.SelectedItem)
	}

	if exp.Inventory != nil && !slices.Equal(*exp.Inventory, view.Inventory) {
		return fmt.Errorf("expected inventory %v, got %v", *exp.Inventory, view.Inventory)
	}

	if exp.Exits != nil {
		exits := make([]string, 0, len(view.ExitOrder))
		for _, d := range view.ExitOrder {
			exits = append(exits, d.Name())
		}
		if !slices.Equal(*exp.Exits, exits) {
			return fmt.Errorf("expected exits %v, got %v", *exp.Exits, exits)
		}
	}

	if exp.RoomItems != nil {
		items := make([]string, 0, len(view.Room.Items))
		for _, it := range view.Room.Items {
			items = append(items, it.ID)
		}
		if !slices.Equal(*exp.RoomItems, items) {
			return fmt.Errorf("expected room items %v, got %v", *exp.RoomItems, items)
		}
	}

	for name, want := range exp.Flags {
		if got := view.Flags[name]; got != want {
			return fmt.Errorf("expected flag %s to be %t, got %t", name, want, got)
		}
	}

	if exp.EntryCount != nil && len(entries) != *exp.EntryCount {
		return fmt.Errorf("expected %d log entries, got %d: %q", *exp.EntryCount, len(entries), joinEntries(entries))
	}

	output := joinEntries(entries)
	lowerOutput := strings.ToLower(output)
	for _, want := range exp.OutputContains {
		if !strings.Contains(lowerOutput, strings.ToLower(want)) {
			return fmt.Errorf("expected output to contain '%s', got %q", want, output)
		}
	}
	for _, unwanted := range exp.OutputExcludes {
		if strings.Contains(lowerOutput, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected output to NOT contain '%s', but it did", unwanted)
		}
	}

	if exp.OutputRegex != "" {
		matched, err := regexp.MatchString(exp.OutputRegex, output)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("output didn't match regex pattern: %s", exp.OutputRegex)
		}
	}

	return nil
}
