package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"arcadesync/core"
)

// SyncResult is what a synchronization request hands back to the boundary:
// the overlay read plus the marker of the cycle that produced it.
type SyncResult struct {
	Scores          []core.VisibleScore
	LastFetched     time.Time
	HaveLastFetched bool
	// Fetched reports whether this request actually contacted the remote
	// service, as opposed to serving stored state.
	Fetched bool
}

// SyncService orchestrates one synchronization per request: decide
// freshness, maybe fetch, persist, mark, then read the overlay. A failed
// fetch aborts the cycle before anything is written, so stored state is
// never left half-updated.
type SyncService struct {
	storage  Storage
	fetcher  Fetcher
	bus      *EventBus
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewSyncService wires storage, the remote fetcher, and the event bus.
// interval is the staleness threshold after which cached scores trigger a
// refetch.
func NewSyncService(storage Storage, fetcher Fetcher, bus *EventBus, interval time.Duration) *SyncService {
	if storage == nil || fetcher == nil || bus == nil {
		panic("NewSyncService requires non-nil storage, fetcher, and bus")
	}
	return &SyncService{
		storage:  storage,
		fetcher:  fetcher,
		bus:      bus,
		interval: interval,
		now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing fetch-and-persist cycles for one
// account. Two concurrent requests for the same account would otherwise both
// decide "fetch" and race on the upsert; requests for different accounts stay
// fully independent.
func (s *SyncService) accountLock(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// Sync runs the full synchronization cycle for the authenticated session.
// When the stored data is fresh enough and force is false, the remote
// service is not contacted and the stored overlay is returned as-is.
func (s *SyncService) Sync(ctx context.Context, session core.Session, force bool) (SyncResult, error) {
	lock := s.accountLock(session.AccountID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now().UTC()
	last, have, err := s.storage.LastFetch(ctx, session.AccountID)
	if err != nil {
		return SyncResult{}, err
	}

	fetched := false
	if core.ShouldFetch(last, have, force, s.interval, now) {
		records, err := s.fetcher.FetchAll(ctx, session.Token)
		if err != nil {
			s.bus.Publish(ctx, core.NewSyncFailed(session.AccountID, err.Error()))
			return SyncResult{}, err
		}
		if err := s.storage.UpsertScores(ctx, session.AccountID, records); err != nil {
			return SyncResult{}, err
		}
		// Marked only after persistence succeeds: a crash in between costs
		// one harmless extra refetch instead of silently stale data.
		if err := s.storage.MarkFetched(ctx, session.AccountID, now); err != nil {
			return SyncResult{}, err
		}
		last, have = now, true
		fetched = true
		slog.Info("synchronized scores", "account", session.AccountID, "records", len(records))
		s.bus.Publish(ctx, core.NewScoresSynced(session.AccountID, len(records)))
	} else {
		slog.Debug("scores are fresh, serving stored state",
			"account", session.AccountID, "last_fetched", core.FormatUTCTime(last))
	}

	scores, err := s.storage.Scores(ctx, session.AccountID)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{
		Scores:          scores,
		LastFetched:     last,
		HaveLastFetched: have,
		Fetched:         fetched,
	}, nil
}

// ToggleVisibility flips the hidden flag for one of the account's games.
// Independent of the fetch path; a toggle may precede the first fetch.
func (s *SyncService) ToggleVisibility(ctx context.Context, accountID, gameID int64, hidden bool) error {
	if err := s.storage.SetHidden(ctx, accountID, gameID, hidden); err != nil {
		return err
	}
	slog.Info("toggled game visibility", "account", accountID, "game", gameID, "hidden", hidden)
	s.bus.Publish(ctx, core.NewVisibilityChanged(accountID, gameID, hidden))
	return nil
}

// Scores reads the current overlay without any freshness logic.
func (s *SyncService) Scores(ctx context.Context, accountID int64) ([]core.VisibleScore, error) {
	return s.storage.Scores(ctx, accountID)
}

// Subscribe convenience method.
func (s *SyncService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *SyncService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

func (s *SyncService) Close() { s.bus.Close() }
