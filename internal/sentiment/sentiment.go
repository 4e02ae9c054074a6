// Package sentiment computes and persists per-document polarity scores used
// by the search scorer's sentiment-alignment adjustment.
package sentiment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	govader "github.com/jonreiter/govader"
)

// Analyzer scores the polarity of a piece of text in [-1, 1].
type Analyzer interface {
	Compound(text string) float64
}

// VaderAnalyzer scores text with a VADER lexicon model. Not safe for
// concurrent use; wrap with a mutex or give each worker its own instance.
type VaderAnalyzer struct {
	inner *govader.SentimentIntensityAnalyzer
}

// NewVader returns an analyzer backed by the bundled VADER lexicon.
func NewVader() *VaderAnalyzer {
	return &VaderAnalyzer{inner: govader.NewSentimentIntensityAnalyzer()}
}

func (a *VaderAnalyzer) Compound(text string) float64 {
	if text == "" {
		return 0
	}
	return a.inner.PolarityScores(text).Compound
}

// Store persists compound polarity per document ID as one JSON file. Hotels
// are pinned to 0.0 so only review text drives the alignment signal.
type Store struct {
	mu     sync.RWMutex
	path   string
	scores map[string]float64
	dirty  bool
	logger *slog.Logger
}

// OpenStore loads the sentiment file at path, treating a missing file as an
// empty store and a corrupt one as empty with a warning.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path:   path,
		scores: make(map[string]float64),
		logger: slog.Default().With("component", "sentiment"),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no sentiment file, starting empty", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("reading sentiment file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.scores); err != nil {
		s.logger.Warn("corrupt sentiment file, starting empty", "path", path, "error", err)
		s.scores = make(map[string]float64)
	}
	return s, nil
}

// Get returns the stored compound score for a document, 0 when absent.
func (s *Store) Get(docID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[docID]
}

// Set records a document's compound score in memory. Call Persist to flush.
func (s *Store) Set(docID string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[docID] = score
	s.dirty = true
}

// Len returns the number of scored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// Persist writes the scores to disk atomically. A no-op when nothing changed
// since the last flush.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating sentiment directory: %w", err)
	}
	data, err := json.Marshal(s.scores)
	if err != nil {
		return fmt.Errorf("marshaling sentiment scores: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing sentiment file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("renaming sentiment file: %w", err)
	}
	s.dirty = false
	return nil
}
