package storage

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/compass-engine/internal/config"
	"github.com/jwebster45206/compass-engine/pkg/storage"
)

// Open builds the session store selected by cfg.SessionStore. The caller owns Close.
func Open(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		logger.Info("Using SQLite session store", "path", cfg.SQLitePath)
		return NewSQLiteStorage(cfg.SQLitePath, cfg.DataDir, cfg.SessionTTL, logger)
	case config.SessionStoreRedis, "":
		logger.Info("Using Redis session store", "redis_url", cfg.RedisURL)
		return NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, logger)
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}
