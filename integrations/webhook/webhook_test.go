package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"arcadesync/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		b, _ := io.ReadAll(r.Body)
		lastBody.Store(b)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL})
	sink.OnEvent(core.NewScoresSynced(7, 13))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
	var ev core.Event
	if err := json.Unmarshal(lastBody.Load().([]byte), &ev); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if ev.AccountID != 7 || ev.Count != 13 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestSink_NoEndpointsIsNoop(t *testing.T) {
	sink := New(nil)
	sink.OnEvent(core.NewSyncFailed(7, "remote unavailable"))
}
