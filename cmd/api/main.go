package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/compass-engine/internal/config"
	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/internal/logger"
	"github.com/jwebster45206/compass-engine/internal/middleware"
	"github.com/jwebster45206/compass-engine/internal/observability"
	"github.com/jwebster45206/compass-engine/internal/services/events"
	"github.com/jwebster45206/compass-engine/internal/services/queue"
	"github.com/jwebster45206/compass-engine/internal/storage"
	"github.com/jwebster45206/compass-engine/internal/worker"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Compass Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"session_store", cfg.SessionStore,
		"default_world", cfg.DefaultWorld)

	tp, err := observability.InitTracing(context.Background(), observability.Config{
		ServiceName:    "compass-engine-api",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if rs, ok := store.(*storage.RedisStorage); ok {
		err = rs.WaitForConnection(storageCtx)
	} else {
		err = store.Ping(storageCtx)
	}
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	if ss, ok := store.(*storage.SQLiteStorage); ok {
		go ss.RunJanitor(janitorCtx, 10*time.Minute)
	}

	processor := worker.NewTurnProcessor(store, tp.Tracer("compass-engine/api"), log)
	gameStateHandler := handlers.NewGameStateHandler(log, store, processor, cfg.DefaultWorld)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/v1/worlds", handlers.NewWorldsHandler(log, store))

	// Pub/sub and the async queue ride on the Redis session store's connection.
	if rs, ok := store.(*storage.RedisStorage); ok {
		broadcaster := events.NewBroadcaster(rs.Client(), log)
		intentQueue := queue.NewIntentQueue(queue.NewClientFromRedis(rs.Client(), log))
		gameStateHandler.WithPublisher(broadcaster).WithQueue(intentQueue)
		processor.WithGameLock(worker.NewGameLock(rs.Client(), "api", log), 2*time.Second)
		mux.Handle("/v1/events/gamestate/", handlers.NewEventsHandler(rs.Client(), log))
	} else {
		log.Info("Event streaming and queued turns are disabled without Redis")
	}

	mux.Handle("/v1/gamestate", gameStateHandler)
	mux.Handle("/v1/gamestate/", gameStateHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - SSE handles its own keepalive
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	stopJanitor()
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", "error", err)
	}

	log.Info("Server exited")
}
