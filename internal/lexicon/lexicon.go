// Package lexicon maintains the process-wide mapping from normalised token
// to a stable non-negative integer ID. The mapping grows monotonically and
// never removes or reuses IDs.
package lexicon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Lexicon is a bidirectional token <-> token_id map persisted as a single
// JSON object. Mutations are serialised behind a write lock; reads take a
// shared lock against a consistent snapshot.
type Lexicon struct {
	mu     sync.RWMutex
	tokens map[string]int
	words  map[int]string
	maxID  int
	dirty  bool
	path   string
	logger *slog.Logger
}

// Open loads the lexicon persisted at path. A missing or unparseable file is
// treated as an empty lexicon (fresh start), not a fatal error; corruption is
// logged loudly because it implies existing index shards reference IDs that
// can no longer be resolved.
func Open(path string) (*Lexicon, error) {
	l := &Lexicon{
		tokens: make(map[string]int),
		words:  make(map[int]string),
		maxID:  -1,
		path:   path,
		logger: slog.Default().With("component", "lexicon"),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("no persisted lexicon, starting empty", "path", path)
			return l, nil
		}
		return nil, fmt.Errorf("reading lexicon file %s: %w", path, err)
	}
	var persisted map[string]int
	if err := json.Unmarshal(data, &persisted); err != nil {
		l.logger.Warn("lexicon file is corrupt, starting empty; existing shards may reference unresolvable token IDs",
			"path", path,
			"error", err,
		)
		return l, nil
	}
	for token, id := range persisted {
		l.tokens[token] = id
		l.words[id] = token
		if id > l.maxID {
			l.maxID = id
		}
	}
	l.logger.Info("lexicon loaded", "tokens", len(l.tokens), "max_id", l.maxID)
	return l, nil
}

// Lookup returns the ID assigned to token, if any.
func (l *Lexicon) Lookup(token string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.tokens[token]
	return id, ok
}

// Word returns the token assigned the given ID, if any.
func (l *Lexicon) Word(id int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	word, ok := l.words[id]
	return word, ok
}

// GetOrAssign returns the ID for token, assigning max_id+1 if the token has
// not been seen before. Assignments are monotonic and never reused.
func (l *Lexicon) GetOrAssign(token string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.tokens[token]; ok {
		return id
	}
	l.maxID++
	l.tokens[token] = l.maxID
	l.words[l.maxID] = token
	l.dirty = true
	return l.maxID
}

// Size returns the number of distinct tokens.
func (l *Lexicon) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tokens)
}

// Dirty reports whether the in-memory mapping has assignments not yet
// persisted.
func (l *Lexicon) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Persist writes the full mapping to disk atomically (tmp file + rename).
// Callers on the indexing path must persist before writing any inverted
// posting that references a newly assigned ID.
func (l *Lexicon) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(l.tokens)
	if err != nil {
		return fmt.Errorf("marshaling lexicon: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lexicon directory: %w", err)
	}
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing lexicon file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("renaming lexicon file: %w", err)
	}
	l.dirty = false
	return nil
}
