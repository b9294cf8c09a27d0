package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"arcadesync/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password,omitempty"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface on Redis.
// Data structure:
// - account:{id}:scores    -> hash of game_id to ScoreRecord JSON
// - account:{id}:hidden    -> hash of game_id to "1"/"0"
// - account:{id}:lastfetch -> UTC timestamp string
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed storage with the provided configuration.
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func scoresKey(accountID int64) string {
	return fmt.Sprintf("account:%d:scores", accountID)
}

func hiddenKey(accountID int64) string {
	return fmt.Sprintf("account:%d:hidden", accountID)
}

func lastFetchKey(accountID int64) string {
	return fmt.Sprintf("account:%d:lastfetch", accountID)
}

// UpsertScores writes the batch in one MULTI/EXEC so a failure commits
// nothing. Hash fields are whole-record JSON, so a rewrite replaces every
// field of the prior row.
func (s *Store) UpsertScores(ctx context.Context, accountID int64, records []core.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	key := scoresKey(accountID)
	for _, r := range records {
		r.AccountID = accountID
		data, err := json.Marshal(r)
		if err != nil {
			return &core.StorageError{Op: "encode score", Err: err}
		}
		pipe.HSet(ctx, key, strconv.FormatInt(r.GameID, 10), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &core.StorageError{Op: "upsert scores", Err: err}
	}
	return nil
}

func (s *Store) Scores(ctx context.Context, accountID int64) ([]core.VisibleScore, error) {
	raw, err := s.client.HGetAll(ctx, scoresKey(accountID)).Result()
	if err != nil {
		return nil, &core.StorageError{Op: "read scores", Err: err}
	}
	hidden, err := s.client.HGetAll(ctx, hiddenKey(accountID)).Result()
	if err != nil {
		return nil, &core.StorageError{Op: "read visibility flags", Err: err}
	}

	out := make([]core.VisibleScore, 0, len(raw))
	for field, data := range raw {
		var rec core.ScoreRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, &core.StorageError{Op: "decode score", Err: err}
		}
		out = append(out, core.VisibleScore{
			Record:   rec,
			IsHidden: hidden[field] == "1",
		})
	}
	core.SortVisibleScores(out)
	return out, nil
}

func (s *Store) SetHidden(ctx context.Context, accountID, gameID int64, hiddenFlag bool) error {
	val := "0"
	if hiddenFlag {
		val = "1"
	}
	if err := s.client.HSet(ctx, hiddenKey(accountID), strconv.FormatInt(gameID, 10), val).Err(); err != nil {
		return &core.StorageError{Op: "set hidden", Err: err}
	}
	return nil
}

func (s *Store) LastFetch(ctx context.Context, accountID int64) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, lastFetchKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &core.StorageError{Op: "read fetch state", Err: err}
	}
	t, ok := core.ParseUTCTime(raw)
	return t, ok, nil
}

func (s *Store) MarkFetched(ctx context.Context, accountID int64, at time.Time) error {
	if err := s.client.Set(ctx, lastFetchKey(accountID), core.FormatUTCTime(at), 0).Err(); err != nil {
		return &core.StorageError{Op: "mark fetched", Err: err}
	}
	return nil
}
