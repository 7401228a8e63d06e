package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/reel-api/internal/async"
	"github.com/phrazzld/reel-api/internal/config"
	"github.com/phrazzld/reel-api/internal/events"
	"github.com/phrazzld/reel-api/internal/platform/logger"
	"github.com/phrazzld/reel-api/internal/platform/veo"
	"github.com/phrazzld/reel-api/internal/service/auth"
	"github.com/phrazzld/reel-api/internal/service/synthesis"
	"github.com/phrazzld/reel-api/internal/store"
)

// application holds the assembled dependency graph of the server.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	jobs       *store.JobStore
	jwtService auth.JWTService
	synthesis  *synthesis.Service
}

// initializeApp loads configuration and wires up application components.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"poll_interval", cfg.Synthesis.PollInterval())

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	veoClient, err := veo.NewClient(ctx, geminiKeyProvider(cfg), cfg.Synthesis.DownloadTimeout(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis client: %w", err)
	}

	jobs := store.NewJobStore()

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(events.NewLoggingHandler(log))

	synthesisService := synthesis.NewService(
		veoClient,
		veoClient,
		jobs,
		emitter,
		synthesisConfig(cfg),
		log,
	)

	return &application{
		config:     cfg,
		logger:     log,
		jobs:       jobs,
		jwtService: jwtService,
		synthesis:  synthesisService,
	}, nil
}

// geminiKeyProvider re-reads the API key from the environment on every
// credential re-sync, falling back to the key loaded at startup. A
// rotated key therefore takes effect without a restart.
func geminiKeyProvider(cfg *config.Config) veo.KeyProvider {
	return func(context.Context) (string, error) {
		if key := os.Getenv("REEL_SYNTHESIS_GEMINI_API_KEY"); key != "" {
			return key, nil
		}
		return cfg.Synthesis.GeminiAPIKey, nil
	}
}

func synthesisConfig(cfg *config.Config) synthesis.Config {
	return synthesis.Config{
		PollInterval: cfg.Synthesis.PollInterval(),
		Backoff: async.BackoffPolicy{
			MaxAttempts: cfg.Synthesis.MaxAttempts,
			BaseDelay:   cfg.Synthesis.RetryBaseDelay(),
		},
	}
}

// cleanup releases application resources in reverse dependency order.
func (app *application) cleanup() {
	app.logger.Info("aborting outstanding jobs")
	app.synthesis.Shutdown()
}
