package engine

import (
	"context"
	"testing"

	"arcadesync/core"
)

func TestEventBusSyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	got := 0
	unsub := bus.Subscribe(core.EventScoresSynced, func(ctx context.Context, e core.Event) {
		got++
		if e.AccountID != 7 || e.Count != 3 {
			t.Errorf("unexpected event: %+v", e)
		}
	})

	bus.Publish(context.Background(), core.NewScoresSynced(7, 3))
	if got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}

	unsub()
	bus.Publish(context.Background(), core.NewScoresSynced(7, 3))
	if got != 1 {
		t.Fatal("unsubscribed handler must not fire")
	}
}
