package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

// WorldCatalog reads world definitions from <dataDir>/worlds.
type WorldCatalog struct {
	dataDir string
	logger  *slog.Logger
}

// NewWorldCatalog creates a filesystem world catalog rooted at dataDir.
func NewWorldCatalog(dataDir string, logger *slog.Logger) *WorldCatalog {
	if dataDir == "" {
		dataDir = "./data"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorldCatalog{dataDir: dataDir, logger: logger}
}

func (c *WorldCatalog) worldsDir() string {
	return filepath.Join(c.dataDir, "worlds")
}

// ListWorlds returns world name → filename for every loadable world file.
// Files that fail to decode or validate are skipped with a warning.
func (c *WorldCatalog) ListWorlds(ctx context.Context) (map[string]string, error) {
	worlds := make(map[string]string)

	err := filepath.WalkDir(c.worldsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.worldsDir() {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := world.FormatFromPath(path); !ok {
			return nil
		}

		w, err := world.LoadFile(path)
		if err != nil {
			c.logger.Warn("Skipping invalid world file", "path", path, "error", err)
			return nil
		}

		worlds[w.Name] = filepath.Base(path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return worlds, nil
		}
		c.logger.Error("Failed to walk worlds directory", "error", err)
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}

	return worlds, nil
}

// GetWorld loads and validates a world file by filename.
func (c *WorldCatalog) GetWorld(ctx context.Context, filename string) (*world.World, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return nil, fmt.Errorf("invalid world filename: %q", filename)
	}
	path := filepath.Join(c.worldsDir(), filename)
	c.logger.Debug("Loading world", "filename", filename, "full_path", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("world not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}

	w, err := world.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}
