package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/compass-engine/internal/worker"
	"github.com/jwebster45206/compass-engine/pkg/queue"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/storage"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

var errWorldNotFound = errors.New("world not found")

// TurnPublisher receives turn lifecycle events. *events.Broadcaster implements it.
type TurnPublisher interface {
	PublishRequestQueued(ctx context.Context, gameID uuid.UUID, requestID string, intent state.Intent) error
	PublishTurnCompleted(ctx context.Context, gs *state.GameState, requestID string, intent state.Intent, entries []state.LogEntry) error
	PublishGameDeleted(ctx context.Context, gameID uuid.UUID) error
}

// RequestQueue accepts turns for asynchronous processing.
type RequestQueue interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

type GameStateHandler struct {
	storage      storage.Storage
	processor    *worker.TurnProcessor
	publisher    TurnPublisher
	queue        RequestQueue
	defaultWorld string
	logger       *slog.Logger
}

func NewGameStateHandler(logger *slog.Logger, storage storage.Storage, processor *worker.TurnProcessor, defaultWorld string) *GameStateHandler {
	return &GameStateHandler{
		logger:       logger,
		storage:      storage,
		processor:    processor,
		defaultWorld: defaultWorld,
	}
}

// WithPublisher broadcasts turn results, e.g. to SSE subscribers.
func (h *GameStateHandler) WithPublisher(p TurnPublisher) *GameStateHandler {
	h.publisher = p
	return h
}

// WithQueue enables POST /v1/gamestate/{id}/queue.
func (h *GameStateHandler) WithQueue(q RequestQueue) *GameStateHandler {
	h.queue = q
	return h
}

// ServeHTTP handles HTTP requests for game state operations
// Routes:
// POST /v1/gamestate             - Create new game state
// GET /v1/gamestate/{id}         - Read game state and views by ID
// DELETE /v1/gamestate/{id}      - Delete game state by ID
// POST /v1/gamestate/{id}/intent - Apply one turn and return its log entries
// POST /v1/gamestate/{id}/queue  - Queue one turn for the worker
func (h *GameStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/gamestate"), "/")
	var parts []string
	if path != "" {
		parts = strings.Split(path, "/")
	}

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			h.logger.Warn("Method not allowed for game state collection", "method", r.Method)
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	gameStateID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game state ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid game state ID format")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		switch parts[1] {
		case "intent":
			h.handleIntent(w, r, gameStateID)
		case "queue":
			h.handleQueue(w, r, gameStateID)
		default:
			writeError(w, h.logger, http.StatusNotFound, "Unknown game state action: "+parts[1])
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, r, gameStateID)
	case http.MethodDelete:
		h.handleDelete(w, r, gameStateID)
	default:
		h.logger.Warn("Method not allowed for game state endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
	}
}

// CreateGameStateRequest defines the request body for creating a new game state
type CreateGameStateRequest struct {
	World string `json:"world"` // world filename, id or display name; empty uses the default world
}

// normalizeID converts a string to lowercase snake_case for consistent IDs.
// It handles spaces, hyphens, dots, and camelCase/PascalCase.
func normalizeID(s string) string {
	if s == "" {
		return ""
	}

	var out strings.Builder
	prevUnderscore := false
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		switch {
		case r == '.':
			out.WriteRune('.')
			prevUnderscore = false

		case r == ' ' || r == '-' || r == '_':
			if !prevUnderscore && i > 0 {
				out.WriteRune('_')
				prevUnderscore = true
			}

		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out.WriteRune(r)
			prevUnderscore = false

		default:
			// Ignore other characters
		}
	}
	return out.String()
}

// stripWorldExtension removes a supported world file extension if present
func stripWorldExtension(s string) string {
	if _, ok := world.FormatFromPath(s); ok {
		return strings.TrimSuffix(s, filepath.Ext(s))
	}
	return s
}

// resolveWorld maps a user-supplied world reference to a catalog filename. It accepts
// the filename itself, the filename without extension, or the world's display name.
func (h *GameStateHandler) resolveWorld(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = h.defaultWorld
	}
	want := stripWorldExtension(normalizeID(ref))
	if want == "" {
		return "", fmt.Errorf("%w: %q", errWorldNotFound, ref)
	}

	worlds, err := h.storage.ListWorlds(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list worlds: %w", err)
	}
	for name, filename := range worlds {
		if stripWorldExtension(filename) == want || normalizeID(name) == want {
			return filename, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errWorldNotFound, ref)
}

func (h *GameStateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new game state")

	// An empty body selects the default world.
	var req CreateGameStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	filename, err := h.resolveWorld(r.Context(), req.World)
	if err != nil {
		if errors.Is(err, errWorldNotFound) {
			h.logger.Warn("Unknown world requested", "world", req.World)
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to resolve world", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve world")
		return
	}

	wld, err := h.storage.GetWorld(r.Context(), filename)
	if err != nil {
		h.logger.Warn("Failed to load world", "error", err, "world", filename)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to load world: "+err.Error())
		return
	}

	gs, err := state.NewGameState(filename, wld)
	if err != nil {
		h.logger.Error("Failed to create game state", "error", err, "world", filename)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game state")
		return
	}

	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save game state", "error", err, "id", gs.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game state")
		return
	}

	h.logger.Info("Game state created", "id", gs.ID.String(), "world", filename, "room_id", gs.RoomID)
	writeJSON(w, h.logger, http.StatusCreated, gs.View())
}

func (h *GameStateHandler) handleRead(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	gs, err := h.storage.LoadGameState(r.Context(), gameStateID)
	if err != nil {
		h.logger.Error("Failed to load game state", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return
	}
	if gs == nil {
		h.logger.Warn("Game state not found", "id", gameStateID.String())
		writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs.View())
}

func (h *GameStateHandler) handleDelete(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	if err := h.storage.DeleteGameState(r.Context(), gameStateID); err != nil {
		h.logger.Error("Failed to delete game state", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game state")
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishGameDeleted(r.Context(), gameStateID); err != nil {
			h.logger.Error("Failed to publish delete event", "error", err)
		}
	}
	h.logger.Debug("Game state deleted successfully", "id", gameStateID.String())
	w.WriteHeader(http.StatusNoContent)
}

// IntentRequest is either a structured intent or a text command.
type IntentRequest struct {
	Kind      state.IntentKind `json:"kind,omitempty"`
	Direction string           `json:"direction,omitempty"` // short or long form
	ItemID    string           `json:"item_id,omitempty"`
	Command   string           `json:"command,omitempty"`
}

// ToIntent validates the structured form.
func (req IntentRequest) ToIntent() (state.Intent, error) {
	if !req.Kind.Valid() {
		return state.Intent{}, fmt.Errorf("unknown intent kind %q", req.Kind)
	}
	in := state.Intent{Kind: req.Kind, ItemID: req.ItemID}
	if req.Kind == state.IntentMove {
		dir, ok := world.ParseDirection(req.Direction)
		if !ok {
			return state.Intent{}, fmt.Errorf("invalid direction %q", req.Direction)
		}
		in.Direction = dir
	}
	return in, nil
}

// TurnResponse is the result of one synchronous turn.
type TurnResponse struct {
	RequestID string            `json:"request_id"`
	Intent    state.Intent      `json:"intent"`
	Entries   []state.LogEntry  `json:"entries"`
	State     state.SessionView `json:"state"`
}

// QueuedResponse acknowledges an asynchronous turn.
type QueuedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

func (h *GameStateHandler) decodeIntent(w http.ResponseWriter, r *http.Request) (IntentRequest, bool) {
	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in intent request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return req, false
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" && req.Kind == state.IntentNone {
		writeError(w, h.logger, http.StatusBadRequest, "Either kind or command is required")
		return req, false
	}
	return req, true
}

func (h *GameStateHandler) handleIntent(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	req, ok := h.decodeIntent(w, r)
	if !ok {
		return
	}

	var (
		result *worker.TurnResult
		err    error
	)
	if req.Command != "" {
		result, err = h.processor.ProcessCommand(r.Context(), gameStateID, req.Command)
	} else {
		var in state.Intent
		if in, err = req.ToIntent(); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		result, err = h.processor.ProcessIntent(r.Context(), gameStateID, in)
	}
	if err != nil {
		switch {
		case errors.Is(err, worker.ErrGameNotFound):
			writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		case errors.Is(err, worker.ErrUnrecognizedCommand):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, worker.ErrGameLocked):
			writeError(w, h.logger, http.StatusConflict, "Another turn is in progress for this game")
		default:
			h.logger.Error("Failed to apply turn", "error", err, "id", gameStateID.String())
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to apply turn")
		}
		return
	}

	requestID := uuid.New().String()
	if h.publisher != nil {
		if err := h.publisher.PublishTurnCompleted(r.Context(), result.GameState, requestID, result.Intent, result.Entries); err != nil {
			h.logger.Error("Failed to publish turn event", "error", err)
		}
	}

	entries := result.Entries
	if entries == nil {
		entries = []state.LogEntry{}
	}
	writeJSON(w, h.logger, http.StatusOK, TurnResponse{
		RequestID: requestID,
		Intent:    result.Intent,
		Entries:   entries,
		State:     result.GameState.View(),
	})
}

func (h *GameStateHandler) handleQueue(w http.ResponseWriter, r *http.Request, gameStateID uuid.UUID) {
	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Asynchronous turns are not enabled")
		return
	}
	req, ok := h.decodeIntent(w, r)
	if !ok {
		return
	}

	gs, err := h.storage.LoadGameState(r.Context(), gameStateID)
	if err != nil {
		h.logger.Error("Failed to load game state", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game state")
		return
	}
	if gs == nil {
		writeError(w, h.logger, http.StatusNotFound, "Game state not found")
		return
	}

	var qr *queue.Request
	if req.Command != "" {
		qr = queue.NewCommandRequest(gameStateID, req.Command)
	} else {
		in, err := req.ToIntent()
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		qr = queue.NewIntentRequest(gameStateID, in)
	}

	if err := h.queue.EnqueueRequest(r.Context(), qr); err != nil {
		h.logger.Error("Failed to enqueue request", "error", err, "id", gameStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue turn")
		return
	}
	if h.publisher != nil {
		var in state.Intent
		if qr.Intent != nil {
			in = *qr.Intent
		}
		if err := h.publisher.PublishRequestQueued(r.Context(), gameStateID, qr.RequestID, in); err != nil {
			h.logger.Error("Failed to publish queued event", "error", err)
		}
	}

	h.logger.Info("Turn queued", "id", gameStateID.String(), "request_id", qr.RequestID, "type", qr.Type)
	writeJSON(w, h.logger, http.StatusAccepted, QueuedResponse{RequestID: qr.RequestID, Status: "queued"})
}
