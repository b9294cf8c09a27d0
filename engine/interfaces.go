package engine

import (
	"context"
	"time"

	"arcadesync/core"
)

// Storage abstracts persistence for score records, visibility flags, and
// per-account fetch markers. Implementations must key everything by account
// so writes never require locking broader than one account.
type Storage interface {
	// UpsertScores replaces any existing row sharing (accountID, game_id)
	// with the incoming record; last write wins for duplicate keys within a
	// batch. Either the whole batch commits or none of it does.
	UpsertScores(ctx context.Context, accountID int64, records []core.ScoreRecord) error
	// Scores returns the visibility overlay for an account ordered by rank
	// ascending with unranked records last. Empty result is not an error.
	Scores(ctx context.Context, accountID int64) ([]core.VisibleScore, error)
	// SetHidden upserts a visibility flag; it does not require a matching
	// score record to exist.
	SetHidden(ctx context.Context, accountID, gameID int64, hidden bool) error
	// LastFetch reports when the account was last synchronized. A missing or
	// unparseable marker is (zero, false, nil), not an error.
	LastFetch(ctx context.Context, accountID int64) (time.Time, bool, error)
	// MarkFetched upserts the fetch marker; idempotent under retry.
	MarkFetched(ctx context.Context, accountID int64, at time.Time) error
}

// Fetcher retrieves an account's full current score list from the remote
// leaderboard service.
type Fetcher interface {
	FetchAll(ctx context.Context, token string) ([]core.ScoreRecord, error)
}
