package memory

import (
	"context"
	"sync"
	"time"

	"arcadesync/core"
)

// Store is a concurrent in-memory Storage implementation. Used by tests and
// the demo server; state does not survive a restart.
type Store struct {
	accounts sync.Map // map[int64]*accountRecord
}

type accountRecord struct {
	mu        sync.Mutex
	scores    map[int64]core.ScoreRecord
	hidden    map[int64]bool
	lastFetch time.Time
	fetched   bool
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(accountID int64) *accountRecord {
	if v, ok := s.accounts.Load(accountID); ok {
		return v.(*accountRecord)
	}
	rec := &accountRecord{
		scores: map[int64]core.ScoreRecord{},
		hidden: map[int64]bool{},
	}
	actual, _ := s.accounts.LoadOrStore(accountID, rec)
	return actual.(*accountRecord)
}

func (s *Store) UpsertScores(_ context.Context, accountID int64, records []core.ScoreRecord) error {
	rec := s.getOrCreate(accountID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, r := range records {
		r.AccountID = accountID
		rec.scores[r.GameID] = r
	}
	return nil
}

func (s *Store) Scores(_ context.Context, accountID int64) ([]core.VisibleScore, error) {
	rec := s.getOrCreate(accountID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make([]core.VisibleScore, 0, len(rec.scores))
	for _, r := range rec.scores {
		out = append(out, core.VisibleScore{Record: r, IsHidden: rec.hidden[r.GameID]})
	}
	core.SortVisibleScores(out)
	return out, nil
}

func (s *Store) SetHidden(_ context.Context, accountID, gameID int64, hidden bool) error {
	rec := s.getOrCreate(accountID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.hidden[gameID] = hidden
	return nil
}

func (s *Store) LastFetch(_ context.Context, accountID int64) (time.Time, bool, error) {
	rec := s.getOrCreate(accountID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.lastFetch, rec.fetched, nil
}

func (s *Store) MarkFetched(_ context.Context, accountID int64, at time.Time) error {
	rec := s.getOrCreate(accountID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.lastFetch = at.UTC().Truncate(time.Second)
	rec.fetched = true
	return nil
}
