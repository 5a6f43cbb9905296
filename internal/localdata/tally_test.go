package localdata

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopgame/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "tally.json")
	return NewStore(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	tally := s.Load()
	assert.Empty(t, tally.LastName)
	assert.NotNil(t, tally.ScoresByName)
	assert.Empty(t, tally.ScoresByName)
}

func TestStore_SaveNameRoundTrip(t *testing.T) {
	s := newTestStore(t)

	s.SaveName("  Alice  ")
	assert.Equal(t, "Alice", s.Load().LastName)

	// Blank names never overwrite the stored one.
	s.SaveName("   ")
	assert.Equal(t, "Alice", s.Load().LastName)
}

func TestStore_RecordScoresAccumulates(t *testing.T) {
	s := newTestStore(t)

	s.RecordScores([]domain.LeaderboardEntry{
		{Name: "Alice", Score: 4},
		{Name: "Bob", Score: 2},
		{Name: "", Score: 9},
	})
	s.RecordScores([]domain.LeaderboardEntry{
		{Name: "Alice", Score: 3},
	})

	tally := s.Load()
	assert.Equal(t, 7, tally.ScoresByName["Alice"])
	assert.Equal(t, 2, tally.ScoresByName["Bob"])
	assert.Len(t, tally.ScoresByName, 2)
}

func TestStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o755))
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o644))

	tally := s.Load()
	assert.Empty(t, tally.LastName)
	assert.Empty(t, tally.ScoresByName)

	// A subsequent write replaces the corrupt file.
	s.SaveName("Alice")
	assert.Equal(t, "Alice", s.Load().LastName)
}
