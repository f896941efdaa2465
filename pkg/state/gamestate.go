package state

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

// LogKind classifies a log entry for the renderer.
type LogKind string

const (
	LogNarrative LogKind = "narrative"
	LogSystem    LogKind = "system"
	LogEvent     LogKind = "event"
)

// LogEntry is one line of the append-only game log.
type LogEntry struct {
	Kind      LogKind   `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Mode is the turn controller's interaction mode.
type Mode string

const (
	ModeExploring Mode = "exploring"
	ModeItemMenu  Mode = "item_menu" // an inventory item is selected and awaits use/inspect/drop/cancel
)

// GameState is the current state of one play session. It exclusively owns its copy
// of the world; events rewire that copy in place.
type GameState struct {
	ID           uuid.UUID       `json:"id"` // Unique ID per session
	WorldID      string          `json:"world_id,omitempty"`
	World        *world.World    `json:"world"`
	RoomID       string          `json:"room_id"`
	Inventory    []string        `json:"inventory"`
	Flags        map[string]bool `json:"flags"`
	Log          []LogEntry      `json:"log"`
	Mode         Mode            `json:"mode"`
	SelectedItem string          `json:"selected_item,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	logger *slog.Logger
	now    func() time.Time
}

// NewGameState starts a session in the world's start room with the start room's
// description as the opening log entry. The world is cloned.
func NewGameState(worldID string, w *world.World) (*GameState, error) {
	if w == nil {
		return nil, errors.New("world is required")
	}
	start, ok := w.Room(w.StartRoom)
	if !ok {
		return nil, fmt.Errorf("start room %q not found", w.StartRoom)
	}

	gs := &GameState{
		ID:        uuid.New(),
		WorldID:   worldID,
		World:     w.Clone(),
		RoomID:    start.ID,
		Inventory: make([]string, 0),
		Flags:     make(map[string]bool),
		Log:       make([]LogEntry, 0),
		Mode:      ModeExploring,
	}
	gs.CreatedAt = gs.clock()
	gs.UpdatedAt = gs.CreatedAt
	gs.appendLog(LogNarrative, start.Description)
	return gs, nil
}

// WithLogger sets the logger used for engine diagnostics.
func (gs *GameState) WithLogger(logger *slog.Logger) *GameState {
	gs.logger = logger
	return gs
}

// WithClock overrides the time source used for log timestamps.
func (gs *GameState) WithClock(now func() time.Time) *GameState {
	gs.now = now
	return gs
}

func (gs *GameState) log() *slog.Logger {
	if gs.logger == nil {
		return slog.Default()
	}
	return gs.logger
}

func (gs *GameState) clock() time.Time {
	if gs.now == nil {
		return time.Now()
	}
	return gs.now()
}

// GetFlag reports a flag's value; unset flags are false.
func (gs *GameState) GetFlag(name string) bool {
	return gs.Flags[name]
}

// SetFlag sets a flag to true.
func (gs *GameState) SetFlag(name string) {
	if name == "" {
		return
	}
	if gs.Flags == nil {
		gs.Flags = make(map[string]bool)
	}
	gs.Flags[name] = true
}

// HasItem reports whether the item is in the inventory.
func (gs *GameState) HasItem(itemID string) bool {
	return slices.Contains(gs.Inventory, itemID)
}

// currentRoom returns the mutable room the player is standing in.
func (gs *GameState) currentRoom() (*world.Room, bool) {
	return gs.World.Room(gs.RoomID)
}

func (gs *GameState) newEntry(kind LogKind, text string) LogEntry {
	return LogEntry{Kind: kind, Text: text, Timestamp: gs.clock()}
}

func (gs *GameState) appendLog(kind LogKind, text string) {
	gs.Log = append(gs.Log, gs.newEntry(kind, text))
}

// entriesSince returns a copy of the log entries appended after mark, or nil.
func (gs *GameState) entriesSince(mark int) []LogEntry {
	if mark >= len(gs.Log) {
		return nil
	}
	return slices.Clone(gs.Log[mark:])
}

func (gs *GameState) touch() {
	gs.UpdatedAt = gs.clock()
}
