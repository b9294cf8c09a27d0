package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ScoreRow mirrors the public JSON surface of one leaderboard entry.
type ScoreRow struct {
	GameName   string `json:"game_name"`
	ScoreValue string `json:"score_value"`
	Rank       *int64 `json:"rank"`
	Signature  string `json:"signature"`
	CreatedAt  string `json:"created_at"`
	GameID     int64  `json:"game_id"`
	IsHidden   bool   `json:"is_hidden"`
}

// SyncResult describes the /scores response.
type SyncResult struct {
	Success         bool       `json:"success"`
	Data            []ScoreRow `json:"data"`
	LastFetchedTime string     `json:"last_fetched_time"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError carries the server's error message and HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: status %d: %s", e.Status, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &failure)
		return &APIError{Status: resp.StatusCode, Message: failure.Error}
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyEmail is returned when the email is empty.
var ErrEmptyEmail = errors.New("email is required")

// ErrEmptyPassword is returned when the password is empty.
var ErrEmptyPassword = errors.New("password is required")
