package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"arcadesync/adapters/jsonfile"
	mem "arcadesync/adapters/memory"
	redisAdapter "arcadesync/adapters/redis"
	sqlxAdapter "arcadesync/adapters/sqlx"
	"arcadesync/api/httpapi"
	"arcadesync/arcade"
	"arcadesync/config"
	"arcadesync/core"
	"arcadesync/engine"
	"arcadesync/integrations/webhook"
	"arcadesync/realtime"
	"arcadesync/remote"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *engine.SyncService
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(_ context.Context) (*config.Config, error) {
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	return setupStorage(ctx, cfg)
}

func provideRemoteClient(cfg *config.Config) (*remote.Client, error) {
	return remote.NewClient(cfg.Remote)
}

func provideService(hub *realtime.Hub, storage engine.Storage, client *remote.Client, cfg *config.Config) *engine.SyncService {
	svc := arcade.New(
		arcade.WithRealtime(hub),
		arcade.WithStorage(storage),
		arcade.WithFetcher(client),
		arcade.WithInterval(cfg.Sync.FetchInterval),
		arcade.WithDispatchMode(engine.DispatchAsync),
	)
	wireWebhooks(svc, cfg)
	return svc
}

func provideHandler(svc *engine.SyncService, client *remote.Client, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, client, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// wireWebhooks forwards domain events to the configured webhook endpoints.
func wireWebhooks(svc *engine.SyncService, cfg *config.Config) {
	if len(cfg.Security.WebhookEndpoints) == 0 {
		return
	}
	sink := webhook.New(cfg.Security.WebhookEndpoints)
	for _, typ := range []core.EventType{
		core.EventScoresSynced,
		core.EventVisibilityChanged,
		core.EventSyncFailed,
	} {
		svc.Subscribe(typ, func(_ context.Context, e core.Event) { sink.OnEvent(e) })
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
