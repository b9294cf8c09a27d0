package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	mem "arcadesync/adapters/memory"
	"arcadesync/api/httpapi"
	"arcadesync/arcade"
	"arcadesync/engine"
	"arcadesync/realtime"
	"arcadesync/remote"
)

// The demo server hosts a fake leaderboard backend alongside the sync API,
// so the full flow (sign-in, cursor pagination, persistence, overlay) can be
// exercised with any credentials and no network access.
func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	const addr = ":8080"
	const pageSize = 5

	mux := http.NewServeMux()
	mountFakeBackend(mux, pageSize)

	client, err := remote.NewClient(remote.Config{
		SignInURL: "http://localhost" + addr + "/fake/sign_in",
		ScoresURL: "http://localhost" + addr + "/fake/leaderboards/personal?limit=" + strconv.Itoa(pageSize),
		PageSize:  pageSize,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		slog.Error("build remote client", "error", err)
		os.Exit(1)
	}

	hub := realtime.NewHub()
	svc := arcade.New(
		arcade.WithRealtime(hub),
		arcade.WithStorage(mem.New()),
		arcade.WithFetcher(client),
		arcade.WithInterval(time.Minute),
		arcade.WithDispatchMode(engine.DispatchAsync),
	)

	mux.Handle("/", httpapi.NewMux(svc, client, hub, httpapi.Options{PathPrefix: "/api"}))

	slog.Info("starting demo server", "address", addr)
	slog.Info("try: curl -XPOST localhost:8080/api/scores -d '{\"email\":\"demo@example.com\",\"password\":\"demo\"}'")

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

// mountFakeBackend serves a canned 13-entry leaderboard with real cursor
// pagination, accepting any credentials.
func mountFakeBackend(mux *http.ServeMux, pageSize int) {
	const total = 13

	mux.HandleFunc("/fake/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"account": map[string]any{"token": "demo-token", "id": 1},
		})
	})

	mux.HandleFunc("/fake/leaderboards/personal", func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		var entries []map[string]any
		for id := after + 1; id <= total && len(entries) < pageSize; id++ {
			entries = append(entries, map[string]any{
				"game_id":    id,
				"name":       fmt.Sprintf("Demo Game %d", id),
				"score":      strconv.FormatInt(id*12345, 10),
				"rank":       id,
				"signature":  fmt.Sprintf("SIG%03d", id),
				"created_at": time.Now().UTC().Format("2006-01-02 15:04:05"),
			})
		}
		writeJSON(w, entries)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
