package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/compass-engine/internal/services/queue"
	pkgqueue "github.com/jwebster45206/compass-engine/pkg/queue"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "Redis URL or host:port")
	gameID := flag.String("game", "", "game state ID to send turns to (required)")
	flag.Parse()

	id, err := uuid.Parse(*gameID)
	if err != nil {
		log.Fatalf("A valid -game ID is required: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := queue.NewClient(ctx, *redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer client.Close()

	fmt.Println("Connected to Redis successfully!")

	q := queue.NewIntentQueue(client)

	// Remaining arguments are text commands; without any, send a sample walk.
	var requests []*pkgqueue.Request
	for _, cmd := range flag.Args() {
		requests = append(requests, pkgqueue.NewCommandRequest(id, cmd))
	}
	if len(requests) == 0 {
		requests = []*pkgqueue.Request{
			pkgqueue.NewIntentRequest(id, state.Intent{Kind: state.IntentLook}),
			pkgqueue.NewIntentRequest(id, state.Intent{Kind: state.IntentMove, Direction: world.South}),
			pkgqueue.NewCommandRequest(id, "go west"),
			pkgqueue.NewCommandRequest(id, "go west"),
			pkgqueue.NewCommandRequest(id, "take shovel"),
		}
	}

	for _, req := range requests {
		if err := q.EnqueueRequest(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request: ", err)
		}
		fmt.Printf("Enqueued %s request: %s\n", req.Type, req.RequestID)
	}

	depth, err := q.RequestQueueDepth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth: ", err)
	}

	fmt.Printf("\nQueue depth: %d requests\n", depth)
	fmt.Println("Start the worker to see it process these requests:")
	fmt.Println("   go run ./cmd/worker")
}
