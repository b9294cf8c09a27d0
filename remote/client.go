package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arcadesync/core"
)

// Config holds the remote leaderboard service endpoints and fetch tuning.
type Config struct {
	// SignInURL is the credential exchange endpoint.
	SignInURL string `json:"sign_in_url" env:"ARCADESYNC_REMOTE_SIGN_IN_URL"`
	// ScoresURL is the personal leaderboard endpoint; it already carries the
	// limit and model query parameters.
	ScoresURL string `json:"scores_url" env:"ARCADESYNC_REMOTE_SCORES_URL"`
	// PageSize must match the limit baked into ScoresURL; it drives the
	// pagination termination check.
	PageSize int `json:"page_size" env:"ARCADESYNC_REMOTE_PAGE_SIZE"`
	// Timeout bounds every single HTTP call so a hung backend cannot stall
	// request handling.
	Timeout time.Duration `json:"timeout" env:"ARCADESYNC_REMOTE_TIMEOUT"`
}

// Validate checks that the endpoints and page size are usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SignInURL) == "" || strings.TrimSpace(c.ScoresURL) == "" {
		return errors.New("sign-in and scores URLs are required")
	}
	if c.PageSize <= 0 {
		return errors.New("page size must be positive")
	}
	return nil
}

// DefaultConfig returns the production Arcade.Net endpoints.
func DefaultConfig() Config {
	const pageSize = 5
	return Config{
		SignInURL: "https://www.atgames.net/arcadenet/backend/api/account/sign_in",
		ScoresURL: "https://www.atgames.net/arcadenet/backend/d2d/arcade/v2/leaderboards/personal?limit=" +
			strconv.Itoa(pageSize) + "&model=RK9920",
		PageSize: pageSize,
		Timeout:  15 * time.Second,
	}
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for tests and proxies).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// Client talks to the remote leaderboard service: credential exchange plus
// cursor-paginated score retrieval. It never touches storage.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a bearer token and account identifier.
func (c *Client) Login(ctx context.Context, email, password string) (core.Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return core.Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SignInURL, bytes.NewReader(payload))
	if err != nil {
		return core.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Session{}, &core.RemoteError{Status: 0, Message: "sign-in request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Session{}, &core.AuthError{Message: "sign-in rejected with status " + strconv.Itoa(resp.StatusCode)}
	}

	var body signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.Session{}, &core.AuthError{Message: "malformed sign-in response: " + err.Error()}
	}
	if body.Account.Token == "" || body.Account.ID == 0 {
		return core.Session{}, &core.AuthError{Message: "sign-in response missing token or account id"}
	}

	return core.Session{
		Token:     "Bearer " + body.Account.Token,
		AccountID: body.Account.ID,
	}, nil
}

// FetchAll retrieves the account's complete current score list, one page per
// request. The cursor for page n+1 is the game_id of the last entry on page
// n, sent as the "after" query parameter. Entries are aggregated in fetch
// order and never deduplicated here; the store's upsert keys take care of
// that. Entries missing game_id are rejected at this boundary.
func (c *Client) FetchAll(ctx context.Context, token string) ([]core.ScoreRecord, error) {
	var all []core.ScoreRecord
	url := c.cfg.ScoresURL

	for {
		page, err := c.fetchPage(ctx, url, token)
		if err != nil {
			return nil, err
		}

		for _, e := range page {
			if e.GameID == nil {
				slog.Warn("dropping score entry without game_id")
				continue
			}
			all = append(all, e.record())
		}

		if len(page) < c.cfg.PageSize {
			break
		}
		last := page[len(page)-1]
		if last.GameID == nil {
			// No cursor to continue from; stop rather than spin on bad data.
			break
		}
		url = c.nextPageURL(*last.GameID)
		slog.Debug("fetching next leaderboard page", "url", url, "total", len(all))
	}

	return all, nil
}

func (c *Client) nextPageURL(afterGameID int64) string {
	sep := "?"
	if strings.Contains(c.cfg.ScoresURL, "?") {
		sep = "&"
	}
	return c.cfg.ScoresURL + sep + "after=" + strconv.FormatInt(afterGameID, 10)
}

func (c *Client) fetchPage(ctx context.Context, url, token string) ([]scoreEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.RemoteError{Status: 0, Message: err.Error()}
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.RemoteError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var page []scoreEntry
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &core.RemoteError{Status: 0, Message: "malformed leaderboard response: " + err.Error()}
	}
	return page, nil
}
