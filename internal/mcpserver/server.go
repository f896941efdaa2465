package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/compass-engine/internal/session"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

const (
	serverName    = "compass-engine"
	serverVersion = "v0.1.0"
)

type CommandInput struct {
	Command string `json:"command" jsonschema:"Text command such as 'go north', 'take shovel' or 'use green conch shell'; empty looks around"`
}

type IntentInput struct {
	Kind      string `json:"kind" jsonschema:"One of move, look, pick_up, use_item, drop, inspect, select_item, cancel, inventory"`
	Direction string `json:"direction,omitempty" jsonschema:"Compass direction for move, short (ne) or long (northeast)"`
	ItemID    string `json:"item_id,omitempty" jsonschema:"Item id for item intents"`
}

type StateInput struct{}

type ResetInput struct {
	World string `json:"world,omitempty" jsonschema:"World filename or name to start; empty restarts the current world"`
}

type WorldsInput struct{}

// Line is one game log entry.
type Line struct {
	Kind string `json:"kind" jsonschema:"narrative, system or event"`
	Text string `json:"text"`
}

// Summary is the part of the game an agent needs to choose its next move.
type Summary struct {
	GameID       string   `json:"game_id"`
	World        string   `json:"world"`
	RoomID       string   `json:"room_id"`
	RoomName     string   `json:"room_name"`
	Description  string   `json:"description"`
	Exits        []string `json:"exits" jsonschema:"Available exits in compass order"`
	RoomItems    []string `json:"room_items" jsonschema:"Ids of visible items in the room"`
	Inventory    []string `json:"inventory" jsonschema:"Ids of held items in pickup order"`
	Mode         string   `json:"mode"`
	SelectedItem string   `json:"selected_item,omitempty"`
	Flags        []string `json:"flags" jsonschema:"Story flags that are set"`
}

type TurnOutput struct {
	Output  string  `json:"output" jsonschema:"The turn's log lines joined for display"`
	Entries []Line  `json:"entries"`
	State   Summary `json:"state"`
}

type StateOutput struct {
	State Summary `json:"state"`
	Log   []Line  `json:"log" jsonschema:"The full game log"`
}

type WorldsOutput struct {
	Worlds []session.WorldInfo `json:"worlds"`
}

// Server exposes one in-process game as MCP tools.
type Server struct {
	session      *session.Session
	defaultWorld string
	logger       *slog.Logger
}

func New(s *session.Session, defaultWorld string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{session: s, defaultWorld: defaultWorld, logger: logger}
}

// MCPServer registers the game tools on a new MCP server.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "command",
		Description: "Send a text command to the game and return the resulting log lines plus a state summary.",
	}, s.HandleCommand)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "intent",
		Description: "Apply a structured intent (kind, direction, item_id) and return the resulting log lines plus a state summary.",
	}, s.HandleIntent)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "state",
		Description: "Return the current room, exits, items, inventory, flags and full log.",
	}, s.HandleState)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset",
		Description: "Start over, optionally in another world.",
	}, s.HandleReset)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "worlds",
		Description: "List the worlds that can be played.",
	}, s.HandleWorlds)

	return server
}

// ensureGame starts the default world on first use.
func (s *Server) ensureGame(ctx context.Context) error {
	if _, err := s.session.View(); !errors.Is(err, session.ErrNoGame) {
		return err
	}
	_, err := s.session.Start(ctx, s.defaultWorld)
	return err
}

func (s *Server) HandleCommand(ctx context.Context, _ *mcp.CallToolRequest, input *CommandInput) (*mcp.CallToolResult, *TurnOutput, error) {
	if input == nil {
		input = &CommandInput{}
	}
	if err := s.ensureGame(ctx); err != nil {
		return nil, nil, err
	}
	turn, err := s.session.Command(input.Command)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("Command applied", "command", input.Command, "entries", len(turn.Entries))
	return nil, turnOutput(turn), nil
}

func (s *Server) HandleIntent(ctx context.Context, _ *mcp.CallToolRequest, input *IntentInput) (*mcp.CallToolResult, *TurnOutput, error) {
	if input == nil {
		input = &IntentInput{}
	}
	in := state.Intent{Kind: state.IntentKind(input.Kind), ItemID: input.ItemID}
	if in.Kind == state.IntentMove {
		dir, ok := world.ParseDirection(input.Direction)
		if !ok {
			return nil, nil, fmt.Errorf("invalid direction %q", input.Direction)
		}
		in.Direction = dir
	}
	if err := s.ensureGame(ctx); err != nil {
		return nil, nil, err
	}
	turn, err := s.session.Apply(in)
	if err != nil {
		return nil, nil, err
	}
	return nil, turnOutput(turn), nil
}

func (s *Server) HandleState(ctx context.Context, _ *mcp.CallToolRequest, _ *StateInput) (*mcp.CallToolResult, *StateOutput, error) {
	if err := s.ensureGame(ctx); err != nil {
		return nil, nil, err
	}
	view, err := s.session.View()
	if err != nil {
		return nil, nil, err
	}
	return nil, &StateOutput{State: summarize(view), Log: toLines(view.Log)}, nil
}

func (s *Server) HandleReset(ctx context.Context, _ *mcp.CallToolRequest, input *ResetInput) (*mcp.CallToolResult, *TurnOutput, error) {
	if input == nil {
		input = &ResetInput{}
	}

	var (
		view state.SessionView
		err  error
	)
	switch {
	case input.World != "":
		view, err = s.session.Start(ctx, input.World)
	default:
		view, err = s.session.Reset(ctx)
		if errors.Is(err, session.ErrNoGame) {
			view, err = s.session.Start(ctx, s.defaultWorld)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, turnOutput(session.Turn{Entries: view.Log, State: view}), nil
}

func (s *Server) HandleWorlds(ctx context.Context, _ *mcp.CallToolRequest, _ *WorldsInput) (*mcp.CallToolResult, *WorldsOutput, error) {
	worlds, err := s.session.Worlds(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, &WorldsOutput{Worlds: worlds}, nil
}

func toLines(entries []state.LogEntry) []Line {
	lines := make([]Line, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, Line{Kind: string(e.Kind), Text: e.Text})
	}
	return lines
}

func turnOutput(turn session.Turn) *TurnOutput {
	lines := toLines(turn.Entries)
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	output := strings.Join(texts, "\n")
	if output == "" {
		output = "Nothing happens."
	}
	return &TurnOutput{Output: output, Entries: lines, State: summarize(turn.State)}
}

func summarize(view state.SessionView) Summary {
	sum := Summary{
		GameID:       view.ID.String(),
		RoomID:       view.Room.ID,
		RoomName:     view.Room.Name,
		Description:  view.Room.Description,
		Exits:        make([]string, 0, len(view.ExitOrder)),
		RoomItems:    make([]string, 0, len(view.Room.Items)),
		Inventory:    append([]string{}, view.Inventory...),
		Mode:         string(view.Mode),
		SelectedItem: view.SelectedItem,
		Flags:        []string{},
	}
	if view.World != nil {
		sum.World = view.World.Name
	}
	for _, d := range view.ExitOrder {
		sum.Exits = append(sum.Exits, d.Name())
	}
	for _, it := range view.Room.Items {
		sum.RoomItems = append(sum.RoomItems, it.ID)
	}
	for name, on := range view.Flags {
		if on {
			sum.Flags = append(sum.Flags, name)
		}
	}
	slices.Sort(sum.Flags)
	return sum
}

// HTTPConfig controls the streamable HTTP endpoint.
type HTTPConfig struct {
	Origins      []string // allowed Origin headers; requests without one are always allowed
	Token        string   // bearer token; empty disables the check
	JSONResponse bool
	Stateless    bool
}

// HTTPHandler serves the tools over streamable HTTP behind origin and token checks.
func (s *Server) HTTPHandler(cfg HTTPConfig) http.Handler {
	mcpServer := s.MCPServer()
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return mcpServer
	}, &mcp.StreamableHTTPOptions{
		Stateless:    cfg.Stateless,
		JSONResponse: cfg.JSONResponse,
		Logger:       s.logger,
	})

	originSet := make(map[string]struct{}, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		originSet[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAllowedOrigin(r, originSet) {
			s.logger.Warn("Rejected MCP request from origin", "origin", r.Header.Get("Origin"))
			http.Error(w, "Forbidden origin", http.StatusForbidden)
			return
		}
		if cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+cfg.Token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func isAllowedOrigin(r *http.Request, allowed map[string]struct{}) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := allowed[origin]
	return ok
}
