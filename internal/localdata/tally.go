// Package localdata persists a small amount of client-side state
// between sessions: the last-used display name and a cumulative
// score-by-name tally. It is best effort only and never part of the
// synchronized session state.
package localdata

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"stopgame/internal/domain"
)

// Tally is the on-disk shape.
type Tally struct {
	LastName     string         `json:"lastName"`
	ScoresByName map[string]int `json:"scoresByName"`
}

// Store reads and writes the tally file. Every operation is best
// effort: read failures yield an empty tally, write failures are
// logged and swallowed.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore creates a tally store at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the persisted tally, or an empty one.
func (s *Store) Load() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() Tally {
	tally := Tally{ScoresByName: make(map[string]int)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return tally
	}
	if err := json.Unmarshal(data, &tally); err != nil {
		s.logger.Debug("ignoring corrupt tally file", "path", s.path, "error", err)
		return Tally{ScoresByName: make(map[string]int)}
	}
	if tally.ScoresByName == nil {
		tally.ScoresByName = make(map[string]int)
	}
	return tally
}

func (s *Store) save(tally Tally) {
	data, err := json.MarshalIndent(tally, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Debug("tally dir create failed", "path", s.path, "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Debug("tally write failed", "path", s.path, "error", err)
	}
}

// SaveName records the last-used display name.
func (s *Store) SaveName(name string) {
	cleaned := domain.CleanName(name)
	if cleaned == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tally := s.load()
	tally.LastName = cleaned
	s.save(tally)
}

// RecordScores folds a finished game's standings into the cumulative
// per-name tally.
func (s *Store) RecordScores(entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tally := s.load()
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		tally.ScoresByName[entry.Name] += entry.Score
	}
	s.save(tally)
}
