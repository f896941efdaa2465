package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jwebster45206/compass-engine/internal/observability"
	"github.com/jwebster45206/compass-engine/pkg/queue"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/storage"
)

var (
	// ErrGameNotFound is returned when the session does not exist or has expired.
	ErrGameNotFound = errors.New("game state not found")

	// ErrUnrecognizedCommand is returned when free text does not parse to an intent.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// TurnResult is the outcome of one applied turn.
type TurnResult struct {
	GameState *state.GameState
	Intent    state.Intent
	Entries   []state.LogEntry
}

// TurnProcessor loads a session, applies one intent and saves it.
// It's used by both the HTTP handler (synchronously) and the worker (asynchronously).
type TurnProcessor struct {
	storage  storage.Storage
	tracer   trace.Tracer
	logger   *slog.Logger
	locks    *GameLock
	lockWait time.Duration
}

type intentResolver func(*state.GameState) (state.Intent, error)

// NewTurnProcessor creates a new turn processor. A nil tracer disables spans.
func NewTurnProcessor(storage storage.Storage, tracer trace.Tracer, logger *slog.Logger) *TurnProcessor {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &TurnProcessor{
		storage: storage,
		tracer:  tracer,
		logger:  logger,
	}
}

// WithGameLock makes the exported Process methods hold the game's lock for the whole
// load-apply-save cycle, waiting up to wait for a running turn to finish.
func (p *TurnProcessor) WithGameLock(locks *GameLock, wait time.Duration) *TurnProcessor {
	p.locks = locks
	p.lockWait = wait
	return p
}

// GetGameState loads a session and attaches the processor's logger to it.
func (p *TurnProcessor) GetGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := p.storage.LoadGameState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id.String())
	}
	return gs.WithLogger(p.logger.With("game_id", id.String())), nil
}

func fixedIntent(intent state.Intent) intentResolver {
	return func(*state.GameState) (state.Intent, error) {
		return intent, nil
	}
}

func parsedCommand(command string) intentResolver {
	return func(gs *state.GameState) (state.Intent, error) {
		intent, ok := gs.ParseCommand(command)
		if !ok {
			return state.Intent{}, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, strings.TrimSpace(command))
		}
		return intent, nil
	}
}

// ProcessIntent applies a structured intent to a stored session.
func (p *TurnProcessor) ProcessIntent(ctx context.Context, id uuid.UUID, intent state.Intent) (*TurnResult, error) {
	return p.locked(ctx, id, func() (*TurnResult, error) {
		return p.process(ctx, id, fixedIntent(intent))
	})
}

// ProcessCommand parses free text against the stored session and applies it.
func (p *TurnProcessor) ProcessCommand(ctx context.Context, id uuid.UUID, command string) (*TurnResult, error) {
	return p.locked(ctx, id, func() (*TurnResult, error) {
		return p.process(ctx, id, parsedCommand(command))
	})
}

// ProcessRequest applies a queued request.
func (p *TurnProcessor) ProcessRequest(ctx context.Context, req *queue.Request) (*TurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return p.locked(ctx, req.GameStateID, func() (*TurnResult, error) {
		return p.processRequest(ctx, req)
	})
}

// processRequest applies a queued request without locking; the worker already holds the lock.
func (p *TurnProcessor) processRequest(ctx context.Context, req *queue.Request) (*TurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Type == queue.RequestTypeCommand {
		return p.process(ctx, req.GameStateID, parsedCommand(req.Command))
	}
	return p.process(ctx, req.GameStateID, fixedIntent(*req.Intent))
}

func (p *TurnProcessor) locked(ctx context.Context, id uuid.UUID, fn func() (*TurnResult, error)) (*TurnResult, error) {
	if p.locks == nil {
		return fn()
	}
	token, err := p.locks.Acquire(ctx, id, p.lockWait)
	if err != nil {
		return nil, err
	}
	defer p.locks.Release(id, token)
	return fn()
}

func (p *TurnProcessor) process(ctx context.Context, id uuid.UUID, resolve intentResolver) (*TurnResult, error) {
	ctx, span := p.tracer.Start(ctx, "turn.apply", trace.WithAttributes(attribute.String("game.id", id.String())))
	defer span.End()

	fail := func(err error) (*TurnResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	gs, err := p.GetGameState(ctx, id)
	if err != nil {
		return fail(err)
	}

	intent, err := resolve(gs)
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	entries := gs.Apply(intent)

	if err := p.storage.SaveGameState(ctx, id, gs); err != nil {
		return fail(fmt.Errorf("failed to save game state: %w", err))
	}

	span.SetAttributes(observability.TurnAttributes(id.String(), gs.WorldID, string(intent.Kind), gs.RoomID, len(entries))...)
	p.logger.Debug("Turn applied",
		"game_id", id.String(),
		"intent", string(intent.Kind),
		"room_id", gs.RoomID,
		"entries", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &TurnResult{GameState: gs, Intent: intent, Entries: entries}, nil
}
