package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil))), client
}

func subscribe(t *testing.T, client *redis.Client, gameID uuid.UUID) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	pubsub := client.Subscribe(ctx, Channel(gameID))
	t.Cleanup(func() { _ = pubsub.Close() })
	// Wait for the subscription to be confirmed before publishing.
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)
	return pubsub.Channel()
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("3f0c1f8e-4a44-4b7e-9b8a-0f6b3b1d2c11")
	assert.Equal(t, "game-events:3f0c1f8e-4a44-4b7e-9b8a-0f6b3b1d2c11", Channel(id))
}

func TestBroadcaster_PublishTurnCompleted(t *testing.T) {
	b, client := setupBroadcaster(t)

	w := &world.World{
		Name:      "Test",
		StartRoom: "a",
		Rooms: map[string]*world.Room{
			"a": {ID: "a", Description: "Room A.", Exits: map[world.Direction]string{world.East: "b"}},
			"b": {ID: "b", Description: "Room B.", Exits: map[world.Direction]string{world.West: "a"}},
		},
		Items: map[string]world.Item{},
	}
	gs, err := state.NewGameState("test", w)
	require.NoError(t, err)
	ch := subscribe(t, client, gs.ID)

	intent := state.Intent{Kind: state.IntentMove, Direction: world.East}
	entries := gs.Apply(intent)
	require.NoError(t, b.PublishTurnCompleted(context.Background(), gs, "req-1", intent, entries))

	ev := receive(t, ch)
	assert.Equal(t, EventTypeTurnCompleted, ev.Type)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, gs.ID.String(), ev.GameID)
	assert.Equal(t, "b", ev.Data["room_id"])
	assert.Equal(t, []any{"w"}, ev.Data["available_exits"])
	assert.Len(t, ev.Data["entries"], 2)
}

func TestBroadcaster_RequestLifecycle(t *testing.T) {
	b, client := setupBroadcaster(t)
	ctx := context.Background()
	gameID := uuid.New()
	ch := subscribe(t, client, gameID)

	intent := state.Intent{Kind: state.IntentLook}
	require.NoError(t, b.PublishRequestQueued(ctx, gameID, "r", intent))
	require.NoError(t, b.PublishRequestProcessing(ctx, gameID, "r", intent))
	require.NoError(t, b.PublishRequestFailed(ctx, gameID, "r", "game state not found"))
	require.NoError(t, b.PublishGameDeleted(ctx, gameID))

	assert.Equal(t, EventTypeRequestQueued, receive(t, ch).Type)
	assert.Equal(t, EventTypeRequestProcessing, receive(t, ch).Type)
	failed := receive(t, ch)
	assert.Equal(t, EventTypeRequestFailed, failed.Type)
	assert.Equal(t, "game state not found", failed.Data["error"])
	assert.Equal(t, EventTypeGameDeleted, receive(t, ch).Type)
}
