package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

const settingsFileName = ".compass-console.ini"

// Settings are the console's persisted preferences. Command-line flags override them.
type Settings struct {
	// [api]
	APIBaseURL string
	Timeout    time.Duration

	// [game]
	Local     bool   // play in-process instead of through the API
	DataDir   string // world catalog root for local play
	LastWorld string

	// [display]
	WrapWidth int // line mode only; the TUI wraps to the window
}

func defaultSettings() Settings {
	return Settings{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    30 * time.Second,
		DataDir:    "./data",
		WrapWidth:  80,
	}
}

// defaultSettingsPath returns ~/.compass-console.ini, or the working directory when
// there is no home directory.
func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return settingsFileName
	}
	return filepath.Join(home, settingsFileName)
}

// LoadSettings reads the settings file. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := defaultSettings()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return s, fmt.Errorf("failed to load settings %s: %w", path, err)
	}

	api := cfg.Section("api")
	s.APIBaseURL = api.Key("base_url").MustString(s.APIBaseURL)
	s.Timeout = api.Key("timeout").MustDuration(s.Timeout)

	game := cfg.Section("game")
	s.Local = game.Key("local").MustBool(s.Local)
	s.DataDir = game.Key("data_dir").MustString(s.DataDir)
	s.LastWorld = game.Key("last_world").String()

	display := cfg.Section("display")
	s.WrapWidth = display.Key("wrap_width").MustInt(s.WrapWidth)
	if s.WrapWidth < 20 {
		s.WrapWidth = 20
	}
	return s, nil
}

// SaveSettings writes every setting to path.
func SaveSettings(path string, s Settings) error {
	cfg := ini.Empty()

	api, _ := cfg.NewSection("api")
	api.Key("base_url").SetValue(s.APIBaseURL)
	api.Key("timeout").SetValue(s.Timeout.String())

	game, _ := cfg.NewSection("game")
	game.Key("local").SetValue(fmt.Sprintf("%t", s.Local))
	game.Key("data_dir").SetValue(s.DataDir)
	game.Key("last_world").SetValue(s.LastWorld)

	display, _ := cfg.NewSection("display")
	display.Key("wrap_width").SetValue(fmt.Sprintf("%d", s.WrapWidth))

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save settings %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
