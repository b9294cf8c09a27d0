package arcade

import (
	"context"
	"testing"
	"time"

	mem "arcadesync/adapters/memory"
	"arcadesync/core"
	"arcadesync/engine"
	"arcadesync/realtime"
)

type staticFetcher struct {
	records []core.ScoreRecord
}

func (f *staticFetcher) FetchAll(context.Context, string) ([]core.ScoreRecord, error) {
	return f.records, nil
}

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	one := int64(1)
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithFetcher(&staticFetcher{records: []core.ScoreRecord{{GameID: 1, Rank: &one}}}),
		WithDispatchMode(engine.DispatchSync),
		WithInterval(time.Hour),
	)

	// basic operation
	session := core.Session{Token: "Bearer t", AccountID: 7}
	result, err := svc.Sync(context.Background(), session, false)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(result.Scores) != 1 || !result.Fetched {
		t.Fatalf("unexpected result: %+v", result)
	}

	// realtime bridge should receive event
	_, ch := hub.Subscribe(1)
	svc.Publish(context.Background(), core.NewScoresSynced(7, 1))
	ev := <-ch
	if ev.AccountID != 7 || ev.Type != core.EventScoresSynced {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNewWithoutOptionsUsesDefaults(t *testing.T) {
	svc := New(WithFetcher(&staticFetcher{}), WithDispatchMode(engine.DispatchSync))
	scores, err := svc.Scores(context.Background(), 7)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected empty scores, got %d", len(scores))
	}
}
