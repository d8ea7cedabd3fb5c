package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/codecollab/collab-server/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires configuration, registry, and HTTP shell together and blocks
// until a termination signal arrives. Returning the error to main keeps
// deferred cleanup running and the entry point testable.
func run() error {
	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := server.NewLogger(cfg.LogLevel)

	registry := server.NewRegistry(cfg, log)
	mux, err := server.NewRouter(cfg, registry, log)
	if err != nil {
		return fmt.Errorf("router setup failed: %w", err)
	}

	httpServer := server.CreateServer(cfg.Port, mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Port)
		log.Info("chat WebSocket available on /chat, document sync relayed on all other paths")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("termination signal received, shutting down")
	}

	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	if err := registry.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("registry did not shut down cleanly", "err", err)
	}
	// Chat history and presence are memory-only and are dropped here on
	// purpose; only the external sync server persists documents.
	return shutdownErr
}
