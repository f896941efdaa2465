package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

var (
	ErrNoGame              = errors.New("no game in progress")
	ErrWorldNotFound       = errors.New("world not found")
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// Catalog supplies world definitions. *storage.WorldCatalog implements it.
type Catalog interface {
	ListWorlds(ctx context.Context) (map[string]string, error)
	GetWorld(ctx context.Context, filename string) (*world.World, error)
}

// WorldInfo is one entry of the world catalog.
type WorldInfo struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Turn is the outcome of one intent.
type Turn struct {
	Intent  state.Intent      `json:"intent"`
	Entries []state.LogEntry  `json:"entries"`
	State   state.SessionView `json:"state"`
}

// Session holds a single in-memory game for in-process frontends. It is safe for
// concurrent use; every returned view is a detached copy.
type Session struct {
	mu        sync.Mutex
	catalog   Catalog
	logger    *slog.Logger
	worldFile string
	gs        *state.GameState
}

func New(catalog Catalog, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{catalog: catalog, logger: logger}
}

// Worlds lists the catalog sorted by display name.
func (s *Session) Worlds(ctx context.Context) ([]WorldInfo, error) {
	worlds, err := s.catalog.ListWorlds(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WorldInfo, 0, len(worlds))
	for name, file := range worlds {
		out = append(out, WorldInfo{Name: name, File: file})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ResolveWorld finds a world by filename, filename without extension, or display
// name, ignoring case.
func (s *Session) ResolveWorld(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	worlds, err := s.Worlds(ctx)
	if err != nil {
		return "", err
	}
	for _, w := range worlds {
		stem := strings.TrimSuffix(w.File, filepath.Ext(w.File))
		if strings.EqualFold(ref, w.File) || strings.EqualFold(ref, stem) || strings.EqualFold(ref, w.Name) {
			return w.File, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrWorldNotFound, ref)
}

// Start replaces the current game with a fresh one in the referenced world.
func (s *Session) Start(ctx context.Context, ref string) (state.SessionView, error) {
	file, err := s.ResolveWorld(ctx, ref)
	if err != nil {
		return state.SessionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start(ctx, file)
}

// Reset restarts the current world from its start room.
func (s *Session) Reset(ctx context.Context) (state.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs == nil {
		return state.SessionView{}, ErrNoGame
	}
	return s.start(ctx, s.worldFile)
}

func (s *Session) start(ctx context.Context, file string) (state.SessionView, error) {
	w, err := s.catalog.GetWorld(ctx, file)
	if err != nil {
		return state.SessionView{}, fmt.Errorf("failed to load world: %w", err)
	}
	gs, err := state.NewGameState(file, w)
	if err != nil {
		return state.SessionView{}, err
	}
	s.gs = gs.WithLogger(s.logger.With("game_id", gs.ID.String()))
	s.worldFile = file
	s.logger.Info("Game started", "id", gs.ID.String(), "world", file)
	return s.snapshot()
}

// View returns the current game.
func (s *Session) View() (state.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs == nil {
		return state.SessionView{}, ErrNoGame
	}
	return s.snapshot()
}

// Command parses and applies a text command. Blank input looks around.
func (s *Session) Command(text string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs == nil {
		return Turn{}, ErrNoGame
	}

	text = strings.TrimSpace(text)
	in := state.Intent{Kind: state.IntentLook}
	if text != "" {
		var ok bool
		if in, ok = s.gs.ParseCommand(text); !ok {
			return Turn{}, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, text)
		}
	}
	return s.apply(in)
}

// Apply runs a structured intent.
func (s *Session) Apply(in state.Intent) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs == nil {
		return Turn{}, ErrNoGame
	}
	if !in.Kind.Valid() {
		return Turn{}, fmt.Errorf("unknown intent kind %q", in.Kind)
	}
	return s.apply(in)
}

func (s *Session) apply(in state.Intent) (Turn, error) {
	entries := s.gs.Apply(in)
	if entries == nil {
		entries = []state.LogEntry{}
	}
	view, err := s.snapshot()
	if err != nil {
		return Turn{}, err
	}
	return Turn{Intent: in, Entries: entries, State: view}, nil
}

// snapshot copies the game so callers never share it with later turns.
func (s *Session) snapshot() (state.SessionView, error) {
	data, err := json.Marshal(s.gs)
	if err != nil {
		return state.SessionView{}, fmt.Errorf("failed to snapshot game state: %w", err)
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return state.SessionView{}, fmt.Errorf("failed to snapshot game state: %w", err)
	}
	return gs.View(), nil
}
