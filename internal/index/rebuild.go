package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FinesserULTRA/Search-Engine/internal/barrel"
)

// RebuildResult summarises one inverted-index rebuild.
type RebuildResult struct {
	ForwardShards  int
	Documents      int
	Tokens         int
	InvertedShards int
	Elapsed        time.Duration
}

// Rebuild regenerates the entire inverted index of this target from its
// forward shards. Forward shards are mapped to partial posting tables by a
// worker pool, the partials are reduced on a single goroutine, and the final
// tables are normalized before writing, so a rebuild with any worker count
// produces byte-identical shard files. Existing inverted shards are
// overwritten; shards whose tokens vanished from the corpus are truncated to
// empty rather than deleted.
func (s *Storage) Rebuild(ctx context.Context, workers int) (*RebuildResult, error) {
	start := time.Now()
	if workers < 1 {
		workers = 1
	}
	log := slog.Default().With("component", "rebuild", "target", string(s.Target))

	keys, err := s.Forward.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing forward shards: %w", err)
	}
	log.Info("rebuild started", "forward_shards", len(keys), "workers", workers)

	type partial struct {
		docs   int
		groups map[int]PostingGroup
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	partials := make([]partial, len(keys))
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			shard, err := s.Forward.Load(key)
			if err != nil {
				return fmt.Errorf("loading forward shard %s: %w", key, err)
			}
			groups := make(map[int]PostingGroup)
			for docID, entry := range shard {
				for tokenID, posting := range entry.Postings(docID) {
					group := groups[tokenID]
					group.Upsert(posting)
					groups[tokenID] = group
				}
			}
			partials[i] = partial{docs: len(shard), groups: groups}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reduce. Each partial carries at most one posting per document for a
	// token, so summing Merge cannot double count.
	merged := make(map[int]PostingGroup)
	docs := 0
	for _, p := range partials {
		docs += p.docs
		for tokenID, group := range p.groups {
			target := merged[tokenID]
			target.Merge(group)
			merged[tokenID] = target
		}
	}

	byShard := make(map[barrel.Key]map[string]PostingGroup)
	for tokenID, group := range merged {
		group.Normalize()
		key := s.Inverted.KeyFor(tokenID)
		if byShard[key] == nil {
			byShard[key] = make(map[string]PostingGroup)
		}
		byShard[key][strconv.Itoa(tokenID)] = group
	}

	// Truncate stale shards so tokens removed from the corpus do not survive
	// the rebuild.
	existing, err := s.Inverted.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing inverted shards: %w", err)
	}
	for _, key := range existing {
		if byShard[key] == nil {
			byShard[key] = make(map[string]PostingGroup)
		}
	}

	for key, contents := range byShard {
		if err := s.Inverted.Save(key, contents); err != nil {
			return nil, fmt.Errorf("writing inverted shard %s: %w", key, err)
		}
	}

	result := &RebuildResult{
		ForwardShards:  len(keys),
		Documents:      docs,
		Tokens:         len(merged),
		InvertedShards: len(byShard),
		Elapsed:        time.Since(start),
	}
	log.Info("rebuild finished",
		"documents", result.Documents,
		"tokens", result.Tokens,
		"inverted_shards", result.InvertedShards,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
