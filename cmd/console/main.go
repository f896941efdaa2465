package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jwebster45206/compass-engine/internal/session"
	"github.com/jwebster45206/compass-engine/internal/storage"
)

func main() {
	settingsPath := flag.String("config", defaultSettingsPath(), "console settings file (ini)")
	apiURL := flag.String("api", "", "API base URL (overrides settings)")
	local := flag.Bool("local", false, "play in-process against world files instead of the API")
	dataDir := flag.String("data", "", "data directory holding worlds/ for -local")
	worldRef := flag.String("world", "", "world to start in plain line mode (filename or name)")
	plain := flag.Bool("plain", false, "use the plain line prompt even on a terminal")
	flag.Parse()

	settings, err := LoadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		settings.APIBaseURL = *apiURL
	}
	if *local {
		settings.Local = true
	}
	if *dataDir != "" {
		settings.DataDir = *dataDir
	}

	engine, err := buildEngine(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	if *plain || !interactive {
		width := settings.WrapWidth
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
			width = w
		}
		played, err := newLineConsole(engine, os.Stdin, os.Stdout, width).Run(context.Background(), *worldRef)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		settings.LastWorld = played
		if err := SaveSettings(*settingsPath, settings); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return
	}

	p := tea.NewProgram(NewConsoleUI(engine, settings, *settingsPath),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// buildEngine returns the in-process engine for local play, or an API engine after
// checking the API is up.
func buildEngine(settings Settings) (Engine, error) {
	if settings.Local {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		catalog := storage.NewWorldCatalog(settings.DataDir, logger)
		return newLocalEngine(session.New(catalog, logger)), nil
	}

	engine := newAPIEngine(&http.Client{Timeout: settings.Timeout}, settings.APIBaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), settings.Timeout)
	defer cancel()
	if err := engine.Ping(ctx); err != nil {
		return nil, fmt.Errorf("could not connect to API at %s: %w\nTry: docker-compose up -d, or run with -local", settings.APIBaseURL, err)
	}
	return engine, nil
}
