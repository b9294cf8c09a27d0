package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arcadesync/core"
)

func TestClient_SyncToggleHealth(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	result, err := client.Sync(ctx, "a@b.c", "pw", false)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.Success || len(result.Data) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Data[0].ScoreValue != "1,234,567" {
		t.Fatalf("unexpected score: %s", result.Data[0].ScoreValue)
	}
	if result.LastFetchedTime == "" {
		t.Fatal("expected last_fetched_time")
	}

	if err := client.ToggleVisibility(ctx, "a@b.c", "pw", 42, true); err != nil {
		t.Fatalf("toggle visibility: %v", err)
	}

	health, err := client.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health: %+v err=%v", health, err)
	}
}

func TestClient_ValidatesCredentials(t *testing.T) {
	client, err := NewClient("http://localhost:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Sync(context.Background(), "", "pw", false); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
	if err := client.ToggleVisibility(context.Background(), "a@b.c", "", 1, true); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestClient_SurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":"sign-in rejected"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Sync(context.Background(), "a@b.c", "bad", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "sign-in rejected" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != core.EventScoresSynced {
			t.Fatalf("unexpected event type: %s", evt.Type)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

// test server implementing the minimal API surface expected by the SDK.
func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","checks":{"storage":"ok"}}`))
	})
	mux.HandleFunc("/api/scores", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["email"] == "" || req["password"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"missing credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"game_name":"Asteroids","score_value":"1,234,567","rank":1,"game_id":1,"is_hidden":false}],"last_fetched_time":"2024-03-01 12:00:00"}`))
	})
	mux.HandleFunc("/api/scores/visibility", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"visibility updated"}`))
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(core.NewScoresSynced(7, 1))
	})

	return httptest.NewServer(mux)
}
