package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqlxlib "github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"arcadesync/core"
)

// Supported SQL drivers. SQLite is the default and matches the original
// single-file deployment; Postgres covers shared deployments.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not know
	sqlxlib.BindDriver(DriverSQLite, sqlxlib.QUESTION)
}

// Config holds SQL storage configuration.
type Config struct {
	Driver          string        `json:"driver" env:"ARCADESYNC_STORAGE_SQL_DRIVER"`
	DSN             string        `json:"dsn" env:"ARCADESYNC_STORAGE_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" env:"ARCADESYNC_STORAGE_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"ARCADESYNC_STORAGE_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"ARCADESYNC_STORAGE_SQL_CONN_MAX_LIFETIME"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver string) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
	if driver == DriverSQLite {
		cfg.DSN = "./data/arcadenet_scores.db"
		// a single writer keeps SQLite happy under concurrency
		cfg.MaxOpenConns = 1
	}
	return cfg
}

// Schema creates the three tables owned by this store. The DDL sticks to the
// subset shared by SQLite and Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS user_scores (
	account_id  BIGINT NOT NULL,
	game_id     BIGINT NOT NULL,
	game_name   TEXT NOT NULL DEFAULT '',
	score_value TEXT NOT NULL DEFAULT '',
	rank        BIGINT,
	signature   TEXT NOT NULL DEFAULT '',
	user_name   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT '',
	hardware    TEXT NOT NULL DEFAULT '',
	series      TEXT NOT NULL DEFAULT '',
	snapshot    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (account_id, game_id)
);
CREATE TABLE IF NOT EXISTS fetch_state (
	account_id           BIGINT PRIMARY KEY,
	last_fetch_timestamp TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS hidden_games (
	account_id BIGINT NOT NULL,
	game_id    BIGINT NOT NULL,
	is_hidden  BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (account_id, game_id)
);
`

// Store implements engine.Storage on a SQL database via sqlx.
type Store struct {
	db *sqlxlib.DB
}

// New opens a database connection pool and verifies connectivity.
func New(cfg Config) (*Store, error) {
	db, err := sqlxlib.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &core.StorageError{Op: "open", Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &core.StorageError{Op: "ping", Err: err}
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection (useful for testing).
func NewWithDB(db *sqlxlib.DB) *Store {
	return &Store{db: db}
}

// Init applies the schema. Safe to call on every startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return &core.StorageError{Op: "init schema", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for schema tooling and tests.
func (s *Store) DB() *sqlxlib.DB { return s.db }

const upsertScoreQuery = `
INSERT INTO user_scores (
	account_id, game_id, game_name, score_value, rank,
	signature, user_name, created_at, hardware, series, snapshot
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, game_id) DO UPDATE SET
	game_name   = excluded.game_name,
	score_value = excluded.score_value,
	rank        = excluded.rank,
	signature   = excluded.signature,
	user_name   = excluded.user_name,
	created_at  = excluded.created_at,
	hardware    = excluded.hardware,
	series      = excluded.series,
	snapshot    = excluded.snapshot`

func (s *Store) UpsertScores(ctx context.Context, accountID int64, records []core.ScoreRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "begin upsert", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	query := s.db.Rebind(upsertScoreQuery)
	for _, r := range records {
		_, err := tx.ExecContext(ctx, query,
			accountID, r.GameID, r.GameName, r.ScoreValue, r.Rank,
			r.Signature, r.UserName, r.CreatedAt, r.Hardware, r.Series, r.Snapshot)
		if err != nil {
			return &core.StorageError{Op: "upsert score", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: "commit upsert", Err: err}
	}
	return nil
}

// overlayRow maps the joined read; is_hidden comes from the left join with
// absent flags coalesced to false.
type overlayRow struct {
	core.ScoreRecord
	IsHidden bool `db:"is_hidden"`
}

const overlayQuery = `
SELECT us.account_id, us.game_id, us.game_name, us.score_value, us.rank,
	us.signature, us.user_name, us.created_at, us.hardware, us.series, us.snapshot,
	COALESCE(hg.is_hidden, FALSE) AS is_hidden
FROM user_scores us
LEFT JOIN hidden_games hg
	ON hg.account_id = us.account_id AND hg.game_id = us.game_id
WHERE us.account_id = ?
ORDER BY (us.rank IS NULL), us.rank, us.game_id`

func (s *Store) Scores(ctx context.Context, accountID int64) ([]core.VisibleScore, error) {
	var rows []overlayRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(overlayQuery), accountID); err != nil {
		return nil, &core.StorageError{Op: "read scores", Err: err}
	}
	out := make([]core.VisibleScore, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.VisibleScore{Record: r.ScoreRecord, IsHidden: r.IsHidden})
	}
	return out, nil
}

const setHiddenQuery = `
INSERT INTO hidden_games (account_id, game_id, is_hidden) VALUES (?, ?, ?)
ON CONFLICT (account_id, game_id) DO UPDATE SET is_hidden = excluded.is_hidden`

func (s *Store) SetHidden(ctx context.Context, accountID, gameID int64, hidden bool) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(setHiddenQuery), accountID, gameID, hidden); err != nil {
		return &core.StorageError{Op: "set hidden", Err: err}
	}
	return nil
}

func (s *Store) LastFetch(ctx context.Context, accountID int64) (time.Time, bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw,
		s.db.Rebind(`SELECT last_fetch_timestamp FROM fetch_state WHERE account_id = ?`), accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &core.StorageError{Op: "read fetch state", Err: err}
	}
	// unparseable markers count as absent so the account just refetches
	t, ok := core.ParseUTCTime(raw)
	return t, ok, nil
}

const markFetchedQuery = `
INSERT INTO fetch_state (account_id, last_fetch_timestamp) VALUES (?, ?)
ON CONFLICT (account_id) DO UPDATE SET last_fetch_timestamp = excluded.last_fetch_timestamp`

func (s *Store) MarkFetched(ctx context.Context, accountID int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(markFetchedQuery), accountID, core.FormatUTCTime(at)); err != nil {
		return &core.StorageError{Op: "mark fetched", Err: err}
	}
	return nil
}
