package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"arcadesync/core"
)

// Hub is a simple pub/sub for broadcasting sync and visibility events to
// connected channels.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	ch chan core.Event
	// 0 means all accounts
	accountID int64
}

func NewHub() *Hub { return &Hub{subs: map[int]*subscription{}} }

// Subscribe registers a channel receiving every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.subscribe(buffer, 0)
}

// SubscribeAccount registers a channel receiving only events for one account.
func (h *Hub) SubscribeAccount(buffer int, accountID int64) (int, <-chan core.Event) {
	return h.subscribe(buffer, accountID)
}

func (h *Hub) subscribe(buffer int, accountID int64) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	sub := &subscription{ch: make(chan core.Event, buffer), accountID: accountID}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	// copy to avoid holding lock during send
	receivers := make([]chan core.Event, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.accountID != 0 && sub.accountID != ev.AccountID {
			continue
		}
		receivers = append(receivers, sub.ch)
	}
	h.mu.RUnlock()
	for _, ch := range receivers {
		select {
		case ch <- ev:
		default: /* drop if full */
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
