// Package searcher implements the query engine: tokenize, resolve through
// the lexicon, fetch postings from the inverted barrels, merge candidates
// across tokens, score, rank, and hydrate full documents for the top hits.
package searcher

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FinesserULTRA/Search-Engine/internal/barrel"
	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/internal/tokenizer"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/logger"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
	"github.com/FinesserULTRA/Search-Engine/pkg/tracing"
)

// Mode is the postings merge policy across query tokens.
type Mode string

const (
	// ModeIntersect keeps only documents matching every resolved token.
	ModeIntersect Mode = "intersect"
	// ModeUnion keeps documents matching any resolved token.
	ModeUnion Mode = "union"
)

// Filters narrows hotel results after matching.
type Filters struct {
	Locality string  `json:"locality,omitempty"`
	MinClass float64 `json:"class,omitempty"`
}

// Request is one search invocation.
type Request struct {
	Query   string  `json:"query"`
	Target  string  `json:"target"`
	Mode    Mode    `json:"mode,omitempty"`
	Filters Filters `json:"filters,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

// HotelSummary is the parent-hotel stub attached to review hits.
type HotelSummary struct {
	HotelID      int      `json:"hotel_id"`
	Name         string   `json:"name"`
	Locality     string   `json:"locality"`
	Region       string   `json:"region"`
	AverageScore *float64 `json:"average_score,omitempty"`
}

// Hit is one ranked result.
type Hit struct {
	Type          string        `json:"type"`
	Score         float64       `json:"search_score"`
	MatchedFields []string      `json:"matched_fields"`
	MatchedTerms  []string      `json:"matched_terms"`
	Hotel         *store.Hotel  `json:"hotel,omitempty"`
	Review        *store.Review `json:"review,omitempty"`
	ReviewHotel   *HotelSummary `json:"hotel_summary,omitempty"`

	docID int
}

// Response is the ranked result set. TotalMatches counts candidates before
// the result cap.
type Response struct {
	Results      []Hit `json:"results"`
	Count        int   `json:"count"`
	TotalMatches int   `json:"total_matches"`
}

// slowQueryThreshold is the latency above which the full span tree of a
// query is logged.
const slowQueryThreshold = 500 * time.Millisecond

// siblingBonus rewards hotels with several matching reviews: each review
// hit beyond the first for the same hotel adds this much.
const siblingBonus = 0.05

// Engine executes searches against the opened index structures.
type Engine struct {
	tok        *tokenizer.Tokenizer
	lex        *lexicon.Lexicon
	hotels     *index.Storage
	reviews    *index.Storage
	stores     *store.Stores
	sentiments *sentiment.Store

	analyzerMu sync.Mutex
	analyzer   sentiment.Analyzer

	search    config.SearchConfig
	scoring   config.ScoringConfig
	sentiment config.SentimentConfig

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an Engine. analyzer may be nil when sentiment alignment is
// disabled.
func New(cfg config.Config, lex *lexicon.Lexicon, hotels, reviews *index.Storage,
	stores *store.Stores, sentiments *sentiment.Store, analyzer sentiment.Analyzer,
	m *metrics.Metrics) *Engine {
	return &Engine{
		tok:        tokenizer.New(),
		lex:        lex,
		hotels:     hotels,
		reviews:    reviews,
		stores:     stores,
		sentiments: sentiments,
		analyzer:   analyzer,
		search:     cfg.Search,
		scoring:    cfg.Scoring,
		sentiment:  cfg.Sentiment,
		metrics:    m,
		logger:     slog.Default().With("component", "searcher"),
	}
}

// candidate is one document's merged posting data across the query tokens.
type candidate struct {
	freq      int
	fields    []string
	positions []int
	tokens    int
}

// Search runs one query. An unknown target falls back to "all"; a query
// with no resolvable tokens returns an empty response, never an error.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target != "hotels" && target != "reviews" {
		target = "all"
	}
	mode := req.Mode
	if mode != ModeIntersect && mode != ModeUnion {
		mode = Mode(e.search.DefaultMode)
		if mode != ModeUnion {
			mode = ModeIntersect
		}
	}

	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	span.SetAttr("target", target)
	span.SetAttr("mode", string(mode))

	resp, err := e.run(ctx, req, target, mode)
	span.End()
	elapsed := time.Since(started)
	if elapsed > slowQueryThreshold {
		span.Log()
	}
	e.metrics.SearchLatency.WithLabelValues(target).Observe(elapsed.Seconds())
	switch {
	case err != nil:
		e.metrics.SearchQueriesTotal.WithLabelValues(target, "error").Inc()
	case resp.Count == 0:
		e.metrics.SearchQueriesTotal.WithLabelValues(target, "zero_result").Inc()
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues(target, "ok").Inc()
	}
	if err == nil {
		e.metrics.SearchResultsCount.Observe(float64(resp.Count))
		e.logger.Info("search executed",
			"query", req.Query,
			"target", target,
			"mode", string(mode),
			"count", resp.Count,
			"total_matches", resp.TotalMatches,
			"elapsed", elapsed,
		)
	}
	return resp, err
}

func (e *Engine) run(ctx context.Context, req Request, target string, mode Mode) (*Response, error) {
	empty := &Response{Results: []Hit{}}

	terms := e.tok.Tokenize(req.Query)
	if len(terms) == 0 {
		return empty, nil
	}
	var tokenIDs []int
	seen := make(map[int]bool)
	for _, t := range terms {
		id, ok := e.lex.Lookup(t)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		tokenIDs = append(tokenIDs, id)
	}
	if len(tokenIDs) == 0 {
		return empty, nil
	}

	querySent := 0.0
	if e.sentiment.Enabled && e.analyzer != nil {
		e.analyzerMu.Lock()
		querySent = e.analyzer.Compound(req.Query)
		e.analyzerMu.Unlock()
	}

	var hits []Hit
	if target == "hotels" || target == "all" {
		hctx, hspan := tracing.StartChildSpan(ctx, "search-hotels")
		hotelHits, err := e.searchHotels(hctx, tokenIDs, terms, req.Filters, mode, querySent)
		hspan.End()
		if err != nil {
			return nil, err
		}
		hspan.SetAttr("hits", len(hotelHits))
		hits = append(hits, hotelHits...)
	}
	if target == "reviews" || target == "all" {
		rctx, rspan := tracing.StartChildSpan(ctx, "search-reviews")
		reviewHits, err := e.searchReviews(rctx, tokenIDs, terms, mode, querySent)
		rspan.End()
		if err != nil {
			return nil, err
		}
		rspan.SetAttr("hits", len(reviewHits))
		hits = append(hits, reviewHits...)
	}

	// Rank: score descending, ties broken by ascending doc_id for a stable
	// order across runs.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].docID < hits[j].docID
	})

	total := len(hits)
	limit := req.Limit
	if limit <= 0 {
		limit = e.search.DefaultLimit
	}
	if limit <= 0 || limit > e.search.MaxResults {
		limit = e.search.MaxResults
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []Hit{}
	}
	return &Response{Results: hits, Count: len(hits), TotalMatches: total}, nil
}

// gather fetches and merges postings for the given tokens, loading each
// inverted shard once. Union mode stops admitting new documents past the
// processing cap; documents already admitted keep merging.
func (e *Engine) gather(storage *index.Storage, tokenIDs []int) (map[string]*candidate, error) {
	byShard := make(map[barrel.Key][]int)
	for _, id := range tokenIDs {
		key := storage.Inverted.KeyFor(id)
		byShard[key] = append(byShard[key], id)
	}

	candidates := make(map[string]*candidate)
	for shardKey, ids := range byShard {
		shard, err := storage.Inverted.Load(shardKey)
		if err != nil {
			return nil, err
		}
		for _, tokenID := range ids {
			group, ok := shard[strconv.Itoa(tokenID)]
			if !ok {
				continue
			}
			for _, p := range group.Docs {
				c, ok := candidates[p.ID]
				if !ok {
					if len(candidates) >= e.search.MaxDocsToProcess {
						continue
					}
					c = &candidate{}
					candidates[p.ID] = c
				}
				c.freq += p.Freq
				c.fields = unionFields(c.fields, p.Fields)
				c.positions = append(c.positions, p.Positions...)
				c.tokens++
			}
		}
	}
	return candidates, nil
}

func intersectOnly(candidates map[string]*candidate, want int) {
	for id, c := range candidates {
		if c.tokens < want {
			delete(candidates, id)
		}
	}
}

func (e *Engine) searchHotels(ctx context.Context, tokenIDs []int, terms []string,
	filters Filters, mode Mode, querySent float64) ([]Hit, error) {
	candidates, err := e.gather(e.hotels, tokenIDs)
	if err != nil {
		return nil, err
	}
	if mode == ModeIntersect {
		intersectOnly(candidates, len(tokenIDs))
	}

	var hits []Hit
	for docID, c := range candidates {
		hotelID, err := strconv.Atoi(docID)
		if err != nil {
			continue
		}
		hotel, err := e.stores.Hotels.Get(ctx, hotelID)
		if err != nil {
			// The index can reference documents the store no longer has;
			// skip rather than fail the query.
			continue
		}
		if filters.Locality != "" && !strings.EqualFold(hotel.Locality, filters.Locality) {
			continue
		}
		if filters.MinClass > 0 && (hotel.HotelClass == nil || *hotel.HotelClass < filters.MinClass) {
			continue
		}
		score := e.score(e.scoring.Hotels, c, querySent, docID)
		hits = append(hits, Hit{
			Type:          "hotel",
			Score:         score,
			MatchedFields: append([]string(nil), c.fields...),
			MatchedTerms:  append([]string(nil), terms...),
			Hotel:         hotel,
			docID:         hotelID,
		})
	}
	return hits, nil
}

func (e *Engine) searchReviews(ctx context.Context, tokenIDs []int, terms []string,
	mode Mode, querySent float64) ([]Hit, error) {
	candidates, err := e.gather(e.reviews, tokenIDs)
	if err != nil {
		return nil, err
	}
	if mode == ModeIntersect {
		intersectOnly(candidates, len(tokenIDs))
	}

	var hits []Hit
	perHotel := make(map[int]int)
	for docID, c := range candidates {
		revID, err := strconv.Atoi(docID)
		if err != nil {
			continue
		}
		hotelID, ok := e.stores.Reviews.HotelOf(revID)
		if !ok {
			// A review the rev-to-hotel map does not know cannot be
			// hydrated; drop it.
			continue
		}
		review, err := e.stores.Reviews.Get(ctx, revID)
		if err != nil {
			continue
		}
		hit := Hit{
			Type:          "review",
			Score:         e.score(e.scoring.Reviews, c, querySent, docID),
			MatchedFields: append([]string(nil), c.fields...),
			MatchedTerms:  append([]string(nil), terms...),
			Review:        review,
			docID:         revID,
		}
		if hotel, err := e.stores.Hotels.Get(ctx, hotelID); err == nil {
			hit.ReviewHotel = &HotelSummary{
				HotelID:      hotel.HotelID,
				Name:         hotel.Name,
				Locality:     hotel.Locality,
				Region:       hotel.Region,
				AverageScore: hotel.AverageScore,
			}
		}
		perHotel[hotelID]++
		hits = append(hits, hit)
	}

	// Several matching reviews under one hotel reinforce each other.
	for i := range hits {
		if hits[i].Review == nil {
			continue
		}
		if extra := perHotel[hits[i].Review.HotelID] - 1; extra > 0 {
			hits[i].Score += siblingBonus * float64(extra)
		}
	}
	return hits, nil
}

func unionFields(dst, src []string) []string {
	for _, f := range src {
		found := false
		for _, existing := range dst {
			if existing == f {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, f)
		}
	}
	return dst
}
