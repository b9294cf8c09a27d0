package arcade

import (
	"context"
	"time"

	"arcadesync/adapters/memory"
	"arcadesync/core"
	"arcadesync/engine"
	"arcadesync/realtime"
	"arcadesync/remote"
)

// Option configures the sync service builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	fetcher  engine.Fetcher
	mode     engine.DispatchMode
	hub      *realtime.Hub
	interval time.Duration
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithFetcher sets the remote score fetcher.
func WithFetcher(f engine.Fetcher) Option { return func(c *config) { c.fetcher = f } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithInterval sets the staleness threshold for cached scores.
func WithInterval(d time.Duration) Option { return func(c *config) { c.interval = d } }

// New builds a configured SyncService. If not provided, defaults are used:
//   - storage: in-memory
//   - fetcher: remote client against the production endpoints
//   - interval: 24h
//   - dispatch: async
func New(opts ...Option) *engine.SyncService {
	cfg := &config{mode: engine.DispatchAsync, interval: 24 * time.Hour}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}
	if cfg.fetcher == nil {
		client, err := remote.NewClient(remote.DefaultConfig())
		if err != nil {
			panic("arcade: default remote client: " + err.Error())
		}
		cfg.fetcher = client
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewSyncService(cfg.storage, cfg.fetcher, bus, cfg.interval)
	if cfg.hub != nil {
		// Bridge all primary events to realtime
		bus.Subscribe(core.EventScoresSynced, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		bus.Subscribe(core.EventVisibilityChanged, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		bus.Subscribe(core.EventSyncFailed, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
	}
	return svc
}
