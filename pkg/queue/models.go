package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/compass-engine/pkg/state"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeIntent carries a structured intent
	RequestTypeIntent RequestType = "intent"

	// RequestTypeCommand carries free text parsed against the session when processed
	RequestTypeCommand RequestType = "command"
)

// Request represents one queued turn for a game
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	GameStateID uuid.UUID   `json:"game_state_id"`

	Intent  *state.Intent `json:"intent,omitempty"`
	Command string        `json:"command,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewIntentRequest builds a request for a structured intent.
func NewIntentRequest(gameStateID uuid.UUID, intent state.Intent) *Request {
	return &Request{
		RequestID:   uuid.New().String(),
		Type:        RequestTypeIntent,
		GameStateID: gameStateID,
		Intent:      &intent,
		EnqueuedAt:  time.Now(),
	}
}

// NewCommandRequest builds a request for a text command.
func NewCommandRequest(gameStateID uuid.UUID, command string) *Request {
	return &Request{
		RequestID:   uuid.New().String(),
		Type:        RequestTypeCommand,
		GameStateID: gameStateID,
		Command:     command,
		EnqueuedAt:  time.Now(),
	}
}

// Validate checks that the payload matches the request type.
func (r *Request) Validate() error {
	if r.GameStateID == uuid.Nil {
		return errors.New("game_state_id is required")
	}
	switch r.Type {
	case RequestTypeIntent:
		if r.Intent == nil || r.Intent.Kind == state.IntentNone {
			return errors.New("intent request requires an intent kind")
		}
	case RequestTypeCommand:
		if r.Command == "" {
			return errors.New("command request requires a command")
		}
	default:
		return fmt.Errorf("unknown request type: %q", r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
