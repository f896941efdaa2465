package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/internal/worker"
	"github.com/jwebster45206/compass-engine/pkg/queue"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/storage"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorld() *world.World {
	return &world.World{
		Name:      "Test World",
		StartRoom: "hall",
		Rooms: map[string]*world.Room{
			"hall": {
				ID:          "hall",
				Name:        "Hall",
				Description: "A dusty hall.",
				Exits:       map[world.Direction]string{world.North: "yard"},
				Items:       []string{"lamp"},
			},
			"yard": {
				ID:          "yard",
				Name:        "Yard",
				Description: "An overgrown yard.",
				Exits:       map[world.Direction]string{world.South: "hall"},
				Events: []world.Event{
					{Trigger: world.TriggerOnEnter, Action: world.ActionMessage, Message: "Crickets chirp."},
				},
			},
		},
		Items: map[string]world.Item{
			"lamp": {ID: "lamp", Name: "Brass Lamp", Description: "It glows.", CanTake: true},
		},
	}
}

// recordingPublisher captures published events in memory.
type recordingPublisher struct {
	mu      sync.Mutex
	queued  []string
	turns   []string
	deleted []uuid.UUID
}

func (p *recordingPublisher) PublishRequestQueued(_ context.Context, _ uuid.UUID, requestID string, _ state.Intent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued = append(p.queued, requestID)
	return nil
}

func (p *recordingPublisher) PublishTurnCompleted(_ context.Context, _ *state.GameState, requestID string, _ state.Intent, _ []state.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, requestID)
	return nil
}

func (p *recordingPublisher) PublishGameDeleted(_ context.Context, gameID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, gameID)
	return nil
}

// memoryQueue is an in-memory RequestQueue.
type memoryQueue struct {
	requests []*queue.Request
	err      error
}

func (q *memoryQueue) EnqueueRequest(_ context.Context, req *queue.Request) error {
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

type handlerFixture struct {
	handler   *GameStateHandler
	store     *storage.MockStorage
	publisher *recordingPublisher
	queue     *memoryQueue
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddWorld("test_world.json", testWorld())

	pub := &recordingPublisher{}
	q := &memoryQueue{}
	h := NewGameStateHandler(testLogger(), store, worker.NewTurnProcessor(store, nil, testLogger()), "test_world.json").
		WithPublisher(pub).
		WithQueue(q)
	return &handlerFixture{handler: h, store: store, publisher: pub, queue: q}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *handlerFixture) newGame(t *testing.T) *state.GameState {
	t.Helper()
	gs, err := state.NewGameState("test_world.json", testWorld())
	require.NoError(t, err)
	require.NoError(t, f.store.SaveGameState(context.Background(), gs.ID, gs))
	return gs
}

func gamePath(id uuid.UUID, suffix string) string {
	p := "/v1/gamestate/" + id.String()
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

var _ http.Handler = (*GameStateHandler)(nil)
