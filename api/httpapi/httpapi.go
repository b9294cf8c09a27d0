package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	wsadapter "arcadesync/adapters/websocket"
	"arcadesync/core"
	"arcadesync/engine"
	"arcadesync/realtime"
)

// Authenticator exchanges account credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (core.Session, error)
}

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client IP.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// NewMux builds an http.Handler exposing the score sync REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/scores
//   - POST {prefix}/scores/visibility
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.SyncService, auth Authenticator, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/scores"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handleSync(w, r, svc, auth)
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/scores/visibility"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handleVisibility(w, r, svc, auth)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

type syncRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ForceUpdate bool   `json:"force_update"`
}

type visibilityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	GameID   *int64 `json:"game_id"`
	IsHidden *bool  `json:"is_hidden"`
}

type scoreRow struct {
	GameName   string `json:"game_name"`
	ScoreValue string `json:"score_value"`
	Rank       *int64 `json:"rank"`
	Signature  string `json:"signature"`
	CreatedAt  string `json:"created_at"`
	GameID     int64  `json:"game_id"`
	IsHidden   bool   `json:"is_hidden"`
}

type syncResponse struct {
	Success         bool       `json:"success"`
	Data            []scoreRow `json:"data"`
	LastFetchedTime string     `json:"last_fetched_time,omitempty"`
}

func handleSync(w http.ResponseWriter, r *http.Request, svc *engine.SyncService, auth Authenticator) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeErr(w, err)
		return
	}

	session, err := auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}

	result, err := svc.Sync(r.Context(), session, req.ForceUpdate)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := syncResponse{Success: true, Data: make([]scoreRow, 0, len(result.Scores))}
	for _, vs := range result.Scores {
		resp.Data = append(resp.Data, scoreRow{
			GameName:   vs.Record.GameName,
			ScoreValue: core.FormatScore(vs.Record.ScoreValue),
			Rank:       vs.Record.Rank,
			Signature:  vs.Record.Signature,
			CreatedAt:  vs.Record.CreatedAt,
			GameID:     vs.Record.GameID,
			IsHidden:   vs.IsHidden,
		})
	}
	if result.HaveLastFetched {
		resp.LastFetchedTime = core.FormatUTCTime(result.LastFetched)
	}
	writeJSON(w, resp)
}

func handleVisibility(w http.ResponseWriter, r *http.Request, svc *engine.SyncService, auth Authenticator) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeErr(w, err)
		return
	}
	if req.GameID == nil {
		writeErr(w, &core.ValidationError{Field: "game_id", Message: "game_id is required"})
		return
	}
	if req.IsHidden == nil {
		writeErr(w, &core.ValidationError{Field: "is_hidden", Message: "is_hidden is required"})
		return
	}

	session, err := auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := svc.ToggleVisibility(r.Context(), session.AccountID, *req.GameID, *req.IsHidden); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": "visibility updated"})
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &core.ValidationError{Field: "email", Message: "email is required"}
	}
	if password == "" {
		return &core.ValidationError{Field: "password", Message: "password is required"}
	}
	return nil
}

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.SyncService) {
	// A read against a nonexistent account exercises storage without
	// touching real data.
	_, err := svc.Scores(r.Context(), 0)

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, status)
}

// Helpers

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failureResponse{Success: false, Error: msg})
}

// writeErr maps domain errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		writeFailure(w, http.StatusBadRequest, validationErr.Error())
		return
	}
	var authErr *core.AuthError
	if errors.As(err, &authErr) {
		writeFailure(w, http.StatusUnauthorized, authErr.Error())
		return
	}
	var remoteErr *core.RemoteError
	if errors.As(err, &remoteErr) {
		status := http.StatusBadGateway
		if remoteErr.Status >= 400 {
			status = remoteErr.Status
		}
		writeFailure(w, status, remoteErr.Error())
		return
	}
	writeFailure(w, http.StatusInternalServerError, err.Error())
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client IP.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(clientKey(r)) {
			writeFailure(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
