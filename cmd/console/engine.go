package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/internal/session"
	"github.com/jwebster45206/compass-engine/pkg/state"
)

// Engine is what the console plays against: the HTTP API or an in-process session.
// An Engine tracks one current game.
type Engine interface {
	Worlds(ctx context.Context) ([]session.WorldInfo, error)
	NewGame(ctx context.Context, world string) (*state.SessionView, error)
	Send(ctx context.Context, req handlers.IntentRequest) (*handlers.TurnResponse, error)
}

// apiEngine talks to a running compass-engine API.
type apiEngine struct {
	client  *http.Client
	baseURL string
	gameID  uuid.UUID
}

func newAPIEngine(client *http.Client, baseURL string) *apiEngine {
	return &apiEngine{client: client, baseURL: baseURL}
}

// Ping checks that the API is reachable and healthy.
func (e *apiEngine) Ping(ctx context.Context) error {
	return e.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
}

func (e *apiEngine) Worlds(ctx context.Context) ([]session.WorldInfo, error) {
	var worldMap map[string]string
	if err := e.do(ctx, http.MethodGet, "/v1/worlds", nil, http.StatusOK, &worldMap); err != nil {
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}
	worlds := make([]session.WorldInfo, 0, len(worldMap))
	for name, file := range worldMap {
		worlds = append(worlds, session.WorldInfo{Name: name, File: file})
	}
	sort.Slice(worlds, func(i, j int) bool { return worlds[i].Name < worlds[j].Name })
	return worlds, nil
}

func (e *apiEngine) NewGame(ctx context.Context, world string) (*state.SessionView, error) {
	var view state.SessionView
	req := handlers.CreateGameStateRequest{World: world}
	if err := e.do(ctx, http.MethodPost, "/v1/gamestate", req, http.StatusCreated, &view); err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}
	if view.GameState == nil {
		return nil, fmt.Errorf("failed to create game state: empty response")
	}
	e.gameID = view.ID
	return &view, nil
}

func (e *apiEngine) Send(ctx context.Context, req handlers.IntentRequest) (*handlers.TurnResponse, error) {
	if e.gameID == uuid.Nil {
		return nil, session.ErrNoGame
	}
	var resp handlers.TurnResponse
	path := fmt.Sprintf("/v1/gamestate/%s/intent", e.gameID)
	if err := e.do(ctx, http.MethodPost, path, req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends body as JSON and decodes the response into out when the status matches.
// Other statuses are turned into errors carrying the API's error message.
func (e *apiEngine) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// localEngine plays in-process against the world files on disk.
type localEngine struct {
	session *session.Session
}

func newLocalEngine(s *session.Session) *localEngine {
	return &localEngine{session: s}
}

func (e *localEngine) Worlds(ctx context.Context) ([]session.WorldInfo, error) {
	return e.session.Worlds(ctx)
}

func (e *localEngine) NewGame(ctx context.Context, world string) (*state.SessionView, error) {
	view, err := e.session.Start(ctx, world)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (e *localEngine) Send(_ context.Context, req handlers.IntentRequest) (*handlers.TurnResponse, error) {
	var (
		turn session.Turn
		err  error
	)
	if req.Command != "" {
		turn, err = e.session.Command(req.Command)
	} else {
		var in state.Intent
		if in, err = req.ToIntent(); err != nil {
			return nil, err
		}
		turn, err = e.session.Apply(in)
	}
	if err != nil {
		return nil, err
	}
	return &handlers.TurnResponse{
		RequestID: uuid.New().String(),
		Intent:    turn.Intent,
		Entries:   turn.Entries,
		State:     turn.State,
	}, nil
}
