package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/MikeSquared-Agency/vigil/internal/anthropic"
	"github.com/MikeSquared-Agency/vigil/internal/api"
	"github.com/MikeSquared-Agency/vigil/internal/cache"
	"github.com/MikeSquared-Agency/vigil/internal/coach"
	"github.com/MikeSquared-Agency/vigil/internal/config"
	"github.com/MikeSquared-Agency/vigil/internal/hermes"
	"github.com/MikeSquared-Agency/vigil/internal/mongostore"
	"github.com/MikeSquared-Agency/vigil/internal/predictor"
	"github.com/MikeSquared-Agency/vigil/internal/slack"
	"github.com/MikeSquared-Agency/vigil/internal/sqlitestore"
	"github.com/MikeSquared-Agency/vigil/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("vigil starting", "port", cfg.Port, "store", cfg.StoreBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		slog.Error("failed to load policy", "path", cfg.PolicyFile, "error", err)
		os.Exit(1)
	}

	db, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeDB()
	slog.Info("store ready", "backend", cfg.StoreBackend)

	opts := predictor.Options{AlertThreshold: cfg.AlertThreshold}

	// Redis weight cache (optional)
	if cfg.RedisURL != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		opts.Cache = cache.NewWeightCache(rdb, cache.DefaultTTL)
		slog.Info("redis weight cache ready")
	}

	// Alert copy comes from the LLM when configured, templates otherwise.
	var llm coach.Completer
	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		llm = client
		slog.Info("anthropic client ready", "model", client.Model())
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, alerts use template copy")
	}
	opts.Coach = coach.New(llm, slog.Default())

	// NATS/Hermes (optional, required for alert fan-out and feedback events)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts.Publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		opts.Notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, running without reaction feedback")
	}

	svc := predictor.New(db, policy, opts, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectFeedbackSubmitted, svc.HandleFeedbackEvent); err != nil {
			slog.Error("failed to subscribe to feedback events", "error", err)
			os.Exit(1)
		}
		if err := hermesClient.Subscribe(hermes.SubjectSlackReaction, svc.HandleReaction); err != nil {
			slog.Error("failed to subscribe to slack reactions", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, svc, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish("swarm.agent.vigil.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("vigil ready", "port", cfg.Port, "alert_threshold", cfg.AlertThreshold)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	if hermesClient != nil {
		if err := hermesClient.Drain(); err != nil {
			slog.Warn("NATS drain error", "error", err)
		}
	}
	cancel()
	slog.Info("vigil stopped")
}

// openStore connects the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg config.Config) (predictor.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, db.Close, nil

	case "mongo":
		db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			db.Close(ctx)
			return nil, nil, err
		}
		return db, func() { db.Close(context.Background()) }, nil

	case "sqlite":
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
