package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL          = 30 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

// ErrGameLocked is returned when another turn holds the game's lock.
var ErrGameLocked = errors.New("game is busy with another turn")

var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// GameLock serializes turns on one game across API and worker processes.
// Each acquisition gets its own token so a holder never releases someone else's lock.
type GameLock struct {
	rdb    *redis.Client
	owner  string
	logger *slog.Logger
}

// NewGameLock creates a lock backed by Redis. owner prefixes the tokens for debugging.
func NewGameLock(rdb *redis.Client, owner string, logger *slog.Logger) *GameLock {
	return &GameLock{rdb: rdb, owner: owner, logger: logger}
}

func gameLockKey(gameStateID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameStateID.String())
}

// TryAcquire takes the lock if it is free. The token is needed to release it.
func (l *GameLock) TryAcquire(ctx context.Context, gameStateID uuid.UUID) (string, bool, error) {
	token := l.owner + ":" + uuid.New().String()[:8]
	ok, err := l.rdb.SetNX(ctx, gameLockKey(gameStateID), token, lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Acquire polls for the lock until wait passes, then returns ErrGameLocked.
func (l *GameLock) Acquire(ctx context.Context, gameStateID uuid.UUID, wait time.Duration) (string, error) {
	deadline := time.Now().Add(wait)
	for {
		token, ok, err := l.TryAcquire(ctx, gameStateID)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: %s", ErrGameLocked, gameStateID.String())
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock if token still owns it.
func (l *GameLock) Release(gameStateID uuid.UUID, token string) {
	// The caller's context may already be cancelled during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, l.rdb, []string{gameLockKey(gameStateID)}, token).Err(); err != nil {
		l.logger.Error("Failed to release game lock", "error", err, "game_state_id", gameStateID.String())
	}
}
