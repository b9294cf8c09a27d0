package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"arcadesync/core"
)

// Store persists entire state to a single JSON file.
// Suitable for demos and single-user deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[string]*accountState
}

type accountState struct {
	Scores    map[string]core.ScoreRecord `json:"scores"`
	Hidden    map[string]bool             `json:"hidden"`
	LastFetch string                      `json:"last_fetch,omitempty"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]*accountState{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &core.StorageError{Op: "load", Err: err}
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &s.data)
}

func (s *Store) persist() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(accountID int64) *accountState {
	key := strconv.FormatInt(accountID, 10)
	if st, ok := s.data[key]; ok {
		return st
	}
	st := &accountState{Scores: map[string]core.ScoreRecord{}, Hidden: map[string]bool{}}
	s.data[key] = st
	return st
}

func (s *Store) UpsertScores(_ context.Context, accountID int64, records []core.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	for _, r := range records {
		r.AccountID = accountID
		st.Scores[strconv.FormatInt(r.GameID, 10)] = r
	}
	if err := s.persist(); err != nil {
		return &core.StorageError{Op: "persist scores", Err: err}
	}
	return nil
}

func (s *Store) Scores(_ context.Context, accountID int64) ([]core.VisibleScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	out := make([]core.VisibleScore, 0, len(st.Scores))
	for key, r := range st.Scores {
		out = append(out, core.VisibleScore{Record: r, IsHidden: st.Hidden[key]})
	}
	core.SortVisibleScores(out)
	return out, nil
}

func (s *Store) SetHidden(_ context.Context, accountID, gameID int64, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	st.Hidden[strconv.FormatInt(gameID, 10)] = hidden
	if err := s.persist(); err != nil {
		return &core.StorageError{Op: "persist visibility", Err: err}
	}
	return nil
}

func (s *Store) LastFetch(_ context.Context, accountID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	t, ok := core.ParseUTCTime(st.LastFetch)
	return t, ok, nil
}

func (s *Store) MarkFetched(_ context.Context, accountID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	st.LastFetch = core.FormatUTCTime(at)
	if err := s.persist(); err != nil {
		return &core.StorageError{Op: "persist fetch state", Err: err}
	}
	return nil
}
