// Package main implements the entry point for the reel-api server,
// which submits media-synthesis jobs to the remote generation service
// and tracks their long-running completion.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	app, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.serve(ctx); err != nil {
		app.logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	app.logger.Info("server shutdown completed")
}

// serve runs the HTTP server and the signal handler as one run group:
// the first actor to return tears down the rest, and cleanup aborts any
// jobs still in flight so their pollers exit promptly.
func (app *application) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	var group run.Group

	group.Add(func() error {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("server shutdown failed", "error", err)
		}
	})

	group.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err := group.Run()
	app.cleanup()

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		app.logger.Info("received shutdown signal", "signal", sigErr.Signal)
		return nil
	}
	return err
}
