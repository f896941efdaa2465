package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

func setupTestSQLite(t *testing.T, ttl time.Duration) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "sessions.db"), testDataDir, ttl, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage_SaveLoadDelete(t *testing.T) {
	s := setupTestSQLite(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	gs := newGame(t)
	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

	// Saving again updates in place.
	gs.Move(world.North)
	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

	loaded, err := s.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, gs.ID, loaded.ID)
	assert.Equal(t, "sandy_shores", loaded.RoomID)

	require.NoError(t, s.DeleteGameState(ctx, gs.ID))
	loaded, err = s.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteStorage_Expiry(t *testing.T) {
	s := setupTestSQLite(t, time.Minute)
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	gs := newGame(t)
	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

	current = current.Add(2 * time.Minute)

	loaded, err := s.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded, "expired sessions are not returned")

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStorage_LoadMissing(t *testing.T) {
	s := setupTestSQLite(t, 0)
	loaded, err := s.LoadGameState(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteStorage_RunJanitor(t *testing.T) {
	s := setupTestSQLite(t, time.Minute)
	ctx := context.Background()

	gs := newGame(t)
	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

	later := time.Now().Add(time.Hour)
	s.now = func() time.Time { return later }

	janitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunJanitor(janitorCtx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		var count int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gamestates`).Scan(&count)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
