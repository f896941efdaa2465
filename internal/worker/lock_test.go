package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/storage"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func newTestLock(t *testing.T, owner string) (*GameLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewGameLock(rdb, owner, testLogger()), mr
}

func TestGameLock_TryAcquireAndRelease(t *testing.T) {
	locks, mr := newTestLock(t, "api")
	id := uuid.New()
	ctx := context.Background()

	token, ok, err := locks.TryAcquire(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, token, "api:")
	assert.True(t, mr.Exists(gameLockKey(id)))
	assert.Equal(t, lockTTL, mr.TTL(gameLockKey(id)))

	_, ok, err = locks.TryAcquire(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	locks.Release(id, "api:someone-else")
	assert.True(t, mr.Exists(gameLockKey(id)), "a stale token must not release the lock")

	locks.Release(id, token)
	assert.False(t, mr.Exists(gameLockKey(id)))
}

func TestGameLock_AcquireWaits(t *testing.T) {
	locks, mr := newTestLock(t, "api")
	id := uuid.New()
	require.NoError(t, mr.Set(gameLockKey(id), "worker-1:abc"))

	_, err := locks.Acquire(context.Background(), id, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrGameLocked)

	go func() {
		time.Sleep(100 * time.Millisecond)
		mr.Del(gameLockKey(id))
	}()
	token, err := locks.Acquire(context.Background(), id, 2*time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestTurnProcessor_WithGameLock(t *testing.T) {
	locks, mr := newTestLock(t, "api")
	store := storage.NewMockStorage()
	gs := newStoredGame(t, store)
	p := NewTurnProcessor(store, nil, testLogger()).WithGameLock(locks, 50*time.Millisecond)
	move := state.Intent{Kind: state.IntentMove, Direction: world.North}

	require.NoError(t, mr.Set(gameLockKey(gs.ID), "worker-1:abc"))
	_, err := p.ProcessIntent(context.Background(), gs.ID, move)
	require.ErrorIs(t, err, ErrGameLocked)

	stored, err := store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, "hall", stored.RoomID, "a locked game must not be written")

	mr.Del(gameLockKey(gs.ID))
	result, err := p.ProcessIntent(context.Background(), gs.ID, move)
	require.NoError(t, err)
	assert.Equal(t, "yard", result.GameState.RoomID)
	assert.False(t, mr.Exists(gameLockKey(gs.ID)), "lock should be released after the turn")
}
