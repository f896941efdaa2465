package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/internal/storage"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(storage.NewWorldCatalog("../../data", logger), logger)
}

func texts(entries []state.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Text)
	}
	return out
}

func TestSession_Worlds(t *testing.T) {
	s := newSession(t)
	worlds, err := s.Worlds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []WorldInfo{
		{Name: "Gemini Quest", File: "gemini_quest.json"},
		{Name: "Tide Pool", File: "tide_pool.yaml"},
	}, worlds)
}

func TestSession_ResolveWorld(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	for _, ref := range []string{"gemini_quest.json", "gemini_quest", "Gemini Quest", "  GEMINI QUEST "} {
		file, err := s.ResolveWorld(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "gemini_quest.json", file, ref)
	}

	_, err := s.ResolveWorld(ctx, "atlantis")
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestSession_NoGame(t *testing.T) {
	s := newSession(t)

	_, err := s.View()
	assert.ErrorIs(t, err, ErrNoGame)
	_, err = s.Command("look")
	assert.ErrorIs(t, err, ErrNoGame)
	_, err = s.Apply(state.Intent{Kind: state.IntentLook})
	assert.ErrorIs(t, err, ErrNoGame)
	_, err = s.Reset(context.Background())
	assert.ErrorIs(t, err, ErrNoGame)
}

func TestSession_PlayToShovel(t *testing.T) {
	s := newSession(t)
	view, err := s.Start(context.Background(), "gemini_quest")
	require.NoError(t, err)
	assert.Equal(t, "circle_of_light", view.RoomID)
	require.Len(t, view.Log, 1)

	for _, cmd := range []string{"s", "go w", "move west"} {
		turn, err := s.Command(cmd)
		require.NoError(t, err, cmd)
		assert.Equal(t, state.IntentMove, turn.Intent.Kind)
	}

	turn, err := s.Command("take shovel")
	require.NoError(t, err)
	assert.Equal(t, "oceanside_beach_w2", turn.State.RoomID)
	assert.Equal(t, []string{
		"You picked up: Shovel",
		"A small crab scuttles out from under the blade and vanishes into the seaweed.",
	}, texts(turn.Entries))
	assert.Equal(t, []string{"shovel"}, turn.State.Inventory)
	assert.True(t, turn.State.Flags["crab_startled"])
}

func TestSession_Command(t *testing.T) {
	s := newSession(t)
	_, err := s.Start(context.Background(), "Tide Pool")
	require.NoError(t, err)

	turn, err := s.Command("   ")
	require.NoError(t, err)
	assert.Equal(t, state.IntentLook, turn.Intent.Kind)
	require.Len(t, turn.Entries, 1)
	assert.Contains(t, turn.Entries[0].Text, "flat shelf of rock")

	_, err = s.Command("dance wildly")
	assert.ErrorIs(t, err, ErrUnrecognizedCommand)

	// A no-op still reports an empty, non-nil entry list.
	turn, err = s.Command("n")
	require.NoError(t, err)
	assert.NotNil(t, turn.Entries)
	assert.Empty(t, turn.Entries)
}

func TestSession_Apply(t *testing.T) {
	s := newSession(t)
	_, err := s.Start(context.Background(), "tide_pool.yaml")
	require.NoError(t, err)

	turn, err := s.Apply(state.Intent{Kind: state.IntentMove, Direction: world.East})
	require.NoError(t, err)
	assert.Equal(t, "tide_pool", turn.State.RoomID)
	assert.Equal(t, []world.Direction{world.West}, turn.State.ExitOrder)

	_, err = s.Apply(state.Intent{Kind: "fly"})
	assert.Error(t, err)
}

func TestSession_Reset(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	first, err := s.Start(ctx, "tide_pool")
	require.NoError(t, err)

	_, err = s.Command("e")
	require.NoError(t, err)
	_, err = s.Command("take starfish")
	require.NoError(t, err)

	view, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, view.ID)
	assert.Equal(t, "rock_shelf", view.RoomID)
	assert.Empty(t, view.Inventory)
	assert.Equal(t, "tide_pool.yaml", view.WorldID)
}

func TestSession_ViewIsDetached(t *testing.T) {
	s := newSession(t)
	view, err := s.Start(context.Background(), "tide_pool")
	require.NoError(t, err)

	view.RoomID = "nowhere"
	view.Flags["tampered"] = true

	current, err := s.View()
	require.NoError(t, err)
	assert.Equal(t, "rock_shelf", current.RoomID)
	assert.False(t, current.Flags["tampered"])
}

func TestSession_ConcurrentCommands(t *testing.T) {
	s := newSession(t)
	_, err := s.Start(context.Background(), "tide_pool")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Command("look")
		}()
	}
	wg.Wait()

	view, err := s.View()
	require.NoError(t, err)
	assert.Len(t, view.Log, 9)
}
