// Package barrel resolves index IDs to their owning shard files ("barrels"),
// loads and saves shard contents as JSON, and keeps a bounded LRU cache of
// recently used shards. The on-disk files are the source of truth; the cache
// is a read-through/write-through accelerator, never the sole repository of
// a write.
package barrel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	pkgerrors "github.com/FinesserULTRA/Search-Engine/pkg/errors"
)

// Key identifies one shard: the inclusive ID range it owns.
type Key struct {
	Start int
	End   int
}

// KeyFor returns the shard key owning id for the given batch size:
// floor(id/batchSize)*batchSize .. +batchSize-1.
func KeyFor(id, batchSize int) Key {
	start := (id / batchSize) * batchSize
	return Key{Start: start, End: start + batchSize - 1}
}

func (k Key) String() string {
	return fmt.Sprintf("%d-%d", k.Start, k.End)
}

var shardFilePattern = regexp.MustCompile(`^(.+)_(\d+)-(\d+)\.json$`)

// Store manages the shard files of one index (one kind, one target) under a
// single directory. Contents are maps keyed by stringified ID. Concurrent
// operations on different shards proceed independently; operations on the
// same shard are serialised to prevent lost updates in the read-merge-write
// cycle.
type Store[T any] struct {
	dir       string
	prefix    string
	batchSize int
	strict    bool

	cache  *lru.Cache[string, map[string]T]
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64

	observer Observer
	logger   *slog.Logger
}

// Observer receives cache and load events, typically wired to Prometheus
// counters. All callbacks are optional.
type Observer struct {
	CacheHit     func()
	CacheMiss    func()
	DiskLoad     func()
	CorruptShard func()
}

// SetObserver installs event callbacks. Call before the store is shared
// between goroutines.
func (s *Store[T]) SetObserver(o Observer) {
	s.observer = o
}

// New creates a Store writing {prefix}_{start}-{end}.json files under dir,
// caching up to cacheSize resident shards. When strict is true, a corrupt
// shard file fails the operation instead of being replaced by an empty
// shard.
func New[T any](dir, prefix string, batchSize, cacheSize int, strict bool) (*Store[T], error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating shard directory %s: %w", dir, err)
	}
	cache, err := lru.New[string, map[string]T](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating shard cache: %w", err)
	}
	return &Store[T]{
		dir:       dir,
		prefix:    prefix,
		batchSize: batchSize,
		strict:    strict,
		cache:     cache,
		locks:     make(map[string]*sync.Mutex),
		logger:    slog.Default().With("component", "barrel", "dir", dir),
	}, nil
}

// KeyFor returns the shard key owning id under this store's batch size.
func (s *Store[T]) KeyFor(id int) Key {
	return KeyFor(id, s.batchSize)
}

// BatchSize returns the configured shard range width.
func (s *Store[T]) BatchSize() int {
	return s.batchSize
}

// Path returns the file path of the shard identified by key.
func (s *Store[T]) Path(key Key) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", s.prefix, key.String()))
}

// Load returns the contents of the shard identified by key. A missing file
// is an empty shard. A corrupt file is an empty shard under the lenient
// policy (logged as a warning, with the data-loss risk that implies) or an
// error under the strict policy. The returned map is a snapshot: later
// Updates publish a new map, so callers may keep iterating it without
// holding any lock. Callers must not mutate it; use Update for
// read-merge-write cycles.
func (s *Store[T]) Load(key Key) (map[string]T, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	return s.loadLocked(key)
}

// Save writes the shard contents through to disk (atomic tmp + rename) and
// updates the cache entry, so a Load immediately after Save is served from
// memory without re-reading storage.
func (s *Store[T]) Save(key Key, contents map[string]T) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	return s.saveLocked(key, contents)
}

// Update runs a read-merge-write cycle on one shard under its lock. The
// cycle is copy-on-write: fn receives a fresh clone of the shard map, and
// the clone is what gets saved and cached, so maps handed out by earlier
// Load calls stay stable snapshots while readers iterate them. fn must
// replace values it changes rather than mutating slices or maps reachable
// from the old values in place.
func (s *Store[T]) Update(key Key, fn func(contents map[string]T)) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	current, err := s.loadLocked(key)
	if err != nil {
		return err
	}
	contents := make(map[string]T, len(current)+1)
	for k, v := range current {
		contents[k] = v
	}
	fn(contents)
	return s.saveLocked(key, contents)
}

// Keys scans the shard directory and returns the keys of all persisted
// shards in ascending range order.
func (s *Store[T]) Keys() ([]Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading shard directory %s: %w", s.dir, err)
	}
	keys := make([]Key, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := shardFilePattern.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != s.prefix {
			continue
		}
		start, err1 := strconv.Atoi(m[2])
		end, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		keys = append(keys, Key{Start: start, End: end})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Start < keys[j].Start })
	return keys, nil
}

// Stats returns the cache hit and miss counts.
func (s *Store[T]) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Purge drops all cached shards. Disk contents are unaffected.
func (s *Store[T]) Purge() {
	s.cache.Purge()
}

func (s *Store[T]) loadLocked(key Key) (map[string]T, error) {
	cacheKey := key.String()
	if contents, ok := s.cache.Get(cacheKey); ok {
		s.hits.Add(1)
		if s.observer.CacheHit != nil {
			s.observer.CacheHit()
		}
		return contents, nil
	}
	s.misses.Add(1)
	if s.observer.CacheMiss != nil {
		s.observer.CacheMiss()
	}

	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]T), nil
		}
		return nil, fmt.Errorf("reading shard %s: %w", path, err)
	}
	if s.observer.DiskLoad != nil {
		s.observer.DiskLoad()
	}
	contents := make(map[string]T)
	if err := json.Unmarshal(data, &contents); err != nil {
		if s.observer.CorruptShard != nil {
			s.observer.CorruptShard()
		}
		if s.strict {
			return nil, pkgerrors.Newf(pkgerrors.ErrCorruptData, 500,
				"shard %s is unparseable: %v", path, err)
		}
		s.logger.Warn("corrupt shard file, substituting empty shard; its previous contents are lost on next save",
			"path", path,
			"error", err,
		)
		contents = make(map[string]T)
	}
	s.cache.Add(cacheKey, contents)
	return contents, nil
}

func (s *Store[T]) saveLocked(key Key, contents map[string]T) error {
	data, err := json.Marshal(contents)
	if err != nil {
		return fmt.Errorf("marshaling shard %s: %w", key, err)
	}
	path := s.Path(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing shard %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming shard %s: %w", path, err)
	}
	s.cache.Add(key.String(), contents)
	return nil
}

// keyLock returns the mutex serialising operations on one shard key.
func (s *Store[T]) keyLock(key Key) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key.String()]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key.String()] = lock
	}
	return lock
}
