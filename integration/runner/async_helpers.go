package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/pkg/state"
)

const (
	// PollInterval is how often to check the game for a queued turn's result
	PollInterval = 250 * time.Millisecond
	// QueueTimeout is max time to wait for the worker to apply a queued turn
	QueueTimeout = 30 * time.Second
)

// apiError is a non-success response from the API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Message)
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var er handlers.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &apiError{Status: resp.StatusCode, Message: er.Error}
	}
	return &apiError{Status: resp.StatusCode, Message: string(body)}
}

// PostQueued posts a turn to the queue endpoint and returns the request_id
func PostQueued(ctx context.Context, client *http.Client, baseURL string, gameStateID uuid.UUID, req handlers.IntentRequest) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal queue request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/gamestate/%s/queue", baseURL, gameStateID.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create queue request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send queue request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return "", readAPIError(resp)
	}

	var queued handlers.QueuedResponse
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", fmt.Errorf("failed to parse queue response: %w", err)
	}
	return queued.RequestID, nil
}

// GetGameState retrieves the current game and its views
func GetGameState(ctx context.Context, client *http.Client, baseURL string, gameStateID uuid.UUID) (*state.SessionView, error) {
	url := fmt.Sprintf("%s/v1/gamestate/%s", baseURL, gameStateID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gamestate request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send gamestate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var view state.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to decode gamestate: %w", err)
	}
	if view.GameState == nil {
		return nil, fmt.Errorf("gamestate response was empty")
	}
	return &view, nil
}

// PollForTurn polls the game until its log grows past initialLogLen.
// Returns the updated view and the entries the turn appended.
func PollForTurn(ctx context.Context, client *http.Client, baseURL string, gameStateID uuid.UUID, initialLogLen int, interval, timeout time.Duration) (*state.SessionView, []state.LogEntry, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-deadline:
			return nil, nil, fmt.Errorf("timeout waiting for queued turn (waited %v)", timeout)
		case <-ticker.C:
			view, err := GetGameState(ctx, client, baseURL, gameStateID)
			if err != nil {
				// Keep polling; the worker may be mid-save
				continue
			}
			if len(view.Log) > initialLogLen {
				return view, view.Log[initialLogLen:], nil
			}
		}
	}
}
