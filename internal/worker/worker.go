package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/compass-engine/internal/services/events"
	"github.com/jwebster45206/compass-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/compass-engine/pkg/queue"
	"github.com/jwebster45206/compass-engine/pkg/state"
)

const workerTimeout = 5 * time.Second

// Worker processes turns from the request queue
type Worker struct {
	id          string
	queue       *queue.IntentQueue
	processor   *TurnProcessor
	broadcaster *events.Broadcaster
	locks       *GameLock
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(intentQueue *queue.IntentQueue, processor *TurnProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       intentQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		locks:       NewGameLock(redisClient, workerID, log),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner id.
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				if w.ctx.Err() != nil {
					continue
				}
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if req == nil {
		// Timed out with an empty queue
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)

	token, locked, err := w.locks.TryAcquire(w.ctx, req.GameStateID)
	if err != nil {
		return err
	}
	if !locked {
		// Another turn is running on this game; put the request back at the head
		// so later turns for the same game stay behind it.
		w.log.Info("Game already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"game_state_id", req.GameStateID.String(),
		)
		if err := w.queue.RequeueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		time.Sleep(lockPollInterval)
		return nil
	}

	defer w.locks.Release(req.GameStateID, token)
	return w.processRequest(req)
}

// processRequest applies a single request and publishes its lifecycle events
func (w *Worker) processRequest(req *queuePkg.Request) error {
	w.log.Info("Processing request",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)

	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.GameStateID, req.RequestID, requestIntent(req)); err != nil {
		// Don't fail the request just because event publishing failed
		w.log.Error("Failed to publish processing event", "error", err)
	}

	result, err := w.processor.processRequest(w.ctx, req)
	if err != nil {
		w.log.Error("Failed to process request",
			"error", err,
			"request_id", req.RequestID,
			"game_state_id", req.GameStateID.String(),
		)
		if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.GameStateID, req.RequestID, err.Error()); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		// Bad input and missing sessions are the client's problem, not the worker's.
		if errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrUnrecognizedCommand) {
			return nil
		}
		return fmt.Errorf("failed to process request: %w", err)
	}

	w.log.Info("Request processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"intent", string(result.Intent.Kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := w.broadcaster.PublishTurnCompleted(w.ctx, result.GameState, req.RequestID, result.Intent, result.Entries); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

// requestIntent reports the intent carried by a request; command requests are not parsed yet.
func requestIntent(req *queuePkg.Request) state.Intent {
	if req.Intent != nil {
		return *req.Intent
	}
	return state.Intent{}
}
