package jsonfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcadesync/core"
)

func rank(v int64) *int64 { return &v }

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)

	require.NoError(t, store.UpsertScores(ctx, 7, []core.ScoreRecord{
		{GameID: 1, GameName: "Asteroids", ScoreValue: "1000", Rank: rank(1)},
	}))
	require.NoError(t, store.SetHidden(ctx, 7, 1, true))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkFetched(ctx, 7, at))

	reopened, err := New(path)
	require.NoError(t, err)

	scores, err := reopened.Scores(ctx, 7)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "Asteroids", scores[0].Record.GameName)
	assert.True(t, scores[0].IsHidden)

	got, have, err := reopened.LastFetch(ctx, 7)
	require.NoError(t, err)
	require.True(t, have)
	assert.True(t, got.Equal(at))
}

func TestUpsertReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)

	require.NoError(t, store.UpsertScores(ctx, 7, []core.ScoreRecord{
		{GameID: 1, Signature: "SIG", Rank: rank(2)},
	}))
	require.NoError(t, store.UpsertScores(ctx, 7, []core.ScoreRecord{
		{GameID: 1, ScoreValue: "42"},
	}))

	scores, err := store.Scores(ctx, 7)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Empty(t, scores[0].Record.Signature)
	assert.Equal(t, "42", scores[0].Record.ScoreValue)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)

	scores, err := store.Scores(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, scores)

	_, have, err := store.LastFetch(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, have)
}
