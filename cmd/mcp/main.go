package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/compass-engine/internal/config"
	"github.com/jwebster45206/compass-engine/internal/logger"
	"github.com/jwebster45206/compass-engine/internal/mcpserver"
	"github.com/jwebster45206/compass-engine/internal/session"
	"github.com/jwebster45206/compass-engine/internal/storage"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var origins stringList
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	addr := flag.String("addr", "127.0.0.1:8765", "MCP listen address")
	path := flag.String("path", "/mcp", "MCP endpoint path")
	token := flag.String("token", "", "Bearer token for MCP requests (optional)")
	jsonResponse := flag.Bool("json-response", false, "Force JSON responses instead of SSE")
	stateless := flag.Bool("stateless", false, "Run in stateless mode (no sessions/SSE)")
	dataDir := flag.String("data", cfg.DataDir, "data directory holding worlds/")
	worldRef := flag.String("world", cfg.DefaultWorld, "world started on first use")
	flag.Var(&origins, "origin", "Allowed Origin for MCP requests (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nServes one compass-engine game as MCP tools.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Over stdio, stdout belongs to the protocol.
	log := logger.SetupTo(cfg, os.Stderr)

	catalog := storage.NewWorldCatalog(*dataDir, log)
	server := mcpserver.New(session.New(catalog, log), *worldRef, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *stdio {
		log.Info("Serving MCP over stdio", "world", *worldRef, "data_dir", *dataDir)
		if err := server.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("MCP server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if !strings.HasPrefix(*path, "/") {
		*path = "/" + *path
	}
	mux := http.NewServeMux()
	mux.Handle(*path, server.HTTPHandler(mcpserver.HTTPConfig{
		Origins:      origins,
		Token:        *token,
		JSONResponse: *jsonResponse,
		Stateless:    *stateless,
	}))

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("MCP server starting", "addr", *addr, "path", *path, "world", *worldRef)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("MCP server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("MCP server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("MCP server forced to shutdown", "error", err)
	}
	log.Info("MCP server exited")
}
