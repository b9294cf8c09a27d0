package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mem "arcadesync/adapters/memory"
	"arcadesync/core"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int32
	records []core.ScoreRecord
	err     error
	delay   time.Duration
}

func (f *fakeFetcher) FetchAll(ctx context.Context, token string) ([]core.ScoreRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.ScoreRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeFetcher) callCount() int { return int(atomic.LoadInt32(&f.calls)) }

func rank(v int64) *int64 { return &v }

func newTestService(fetcher Fetcher) (*SyncService, *mem.Store) {
	store := mem.New()
	bus := NewEventBus(DispatchSync)
	return NewSyncService(store, fetcher, bus, 24*time.Hour), store
}

func TestFirstSyncFetchesAndMarks(t *testing.T) {
	fetcher := &fakeFetcher{records: []core.ScoreRecord{
		{GameID: 1, GameName: "Tempest", ScoreValue: "9000", Rank: rank(1)},
	}}
	svc, store := newTestService(fetcher)
	session := core.Session{Token: "Bearer t", AccountID: 7}

	res, err := svc.Sync(context.Background(), session, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fetched {
		t.Fatal("account without fetch state must fetch")
	}
	if len(res.Scores) != 1 || res.Scores[0].Record.GameName != "Tempest" {
		t.Fatalf("unexpected scores: %+v", res.Scores)
	}

	at, have, err := store.LastFetch(context.Background(), 7)
	if err != nil || !have {
		t.Fatalf("fetch state should exist: have=%v err=%v", have, err)
	}
	if d := time.Since(at); d < 0 || d > 5*time.Second {
		t.Fatalf("fetch marker should be close to now, was %v ago", d)
	}
}

func TestFreshDataSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{records: []core.ScoreRecord{{GameID: 1}}}
	svc, _ := newTestService(fetcher)
	session := core.Session{Token: "Bearer t", AccountID: 7}

	if _, err := svc.Sync(context.Background(), session, false); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Sync(context.Background(), session, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched {
		t.Fatal("second sync within interval must not fetch")
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 remote call, got %d", fetcher.callCount())
	}
	if len(res.Scores) != 1 {
		t.Fatal("skip-fetch path must still read stored state")
	}
}

func TestForceAlwaysFetches(t *testing.T) {
	fetcher := &fakeFetcher{records: []core.ScoreRecord{{GameID: 1}}}
	svc, _ := newTestService(fetcher)
	session := core.Session{Token: "Bearer t", AccountID: 7}

	for i := 0; i < 2; i++ {
		if _, err := svc.Sync(context.Background(), session, true); err != nil {
			t.Fatal(err)
		}
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("expected 2 remote calls with force, got %d", fetcher.callCount())
	}
}

func TestFetchFailureLeavesStoreUntouched(t *testing.T) {
	fetcher := &fakeFetcher{records: []core.ScoreRecord{
		{GameID: 1, ScoreValue: "100", Rank: rank(1)},
	}}
	svc, store := newTestService(fetcher)
	session := core.Session{Token: "Bearer t", AccountID: 7}

	if _, err := svc.Sync(context.Background(), session, false); err != nil {
		t.Fatal(err)
	}
	before, _, _ := store.LastFetch(context.Background(), 7)

	failed := 0
	svc.Subscribe(core.EventSyncFailed, func(ctx context.Context, e core.Event) { failed++ })

	fetcher.mu.Lock()
	fetcher.err = &core.RemoteError{Status: 503, Message: "maintenance"}
	fetcher.mu.Unlock()

	_, err := svc.Sync(context.Background(), session, true)
	var re *core.RemoteError
	if !errors.As(err, &re) || re.Status != 503 {
		t.Fatalf("expected RemoteError 503, got %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected sync_failed event, got %d", failed)
	}

	// prior scores and fetch marker are intact
	scores, err := svc.Scores(context.Background(), 7)
	if err != nil || len(scores) != 1 || scores[0].Record.ScoreValue != "100" {
		t.Fatalf("prior scores must survive a failed sync: %+v err=%v", scores, err)
	}
	after, have, _ := store.LastFetch(context.Background(), 7)
	if !have || !after.Equal(before) {
		t.Fatalf("fetch marker must not move on failure: %v vs %v", after, before)
	}
}

func TestToggleVisibility(t *testing.T) {
	fetcher := &fakeFetcher{records: []core.ScoreRecord{{GameID: 5, Rank: rank(1)}}}
	svc, _ := newTestService(fetcher)

	toggles := 0
	svc.Subscribe(core.EventVisibilityChanged, func(ctx context.Context, e core.Event) {
		toggles++
		if e.GameID != 5 || !e.Hidden {
			t.Errorf("unexpected event: %+v", e)
		}
	})

	if _, err := svc.Sync(context.Background(), core.Session{Token: "t", AccountID: 7}, false); err != nil {
		t.Fatal(err)
	}
	if err := svc.ToggleVisibility(context.Background(), 7, 5, true); err != nil {
		t.Fatal(err)
	}
	if toggles != 1 {
		t.Fatalf("expected 1 visibility event, got %d", toggles)
	}

	scores, err := svc.Scores(context.Background(), 7)
	if err != nil || !scores[0].IsHidden {
		t.Fatalf("overlay should report hidden: %+v err=%v", scores, err)
	}
}

func TestConcurrentSyncsSingleFetchPerAccount(t *testing.T) {
	fetcher := &fakeFetcher{
		records: []core.ScoreRecord{{GameID: 1}},
		delay:   50 * time.Millisecond,
	}
	svc, _ := newTestService(fetcher)
	session := core.Session{Token: "Bearer t", AccountID: 7}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Sync(context.Background(), session, false); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if fetcher.callCount() != 1 {
		t.Fatalf("expected exactly one fetch for concurrent requests, got %d", fetcher.callCount())
	}
}
