// Package indexer orchestrates document indexing: tokenization, lexicon
// assignment, forward and inverted shard updates, and review sentiment
// scoring.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/internal/tokenizer"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

// Indexer applies documents to the index structures of both targets.
type Indexer struct {
	tok        *tokenizer.Tokenizer
	lex        *lexicon.Lexicon
	hotels     *index.Storage
	reviews    *index.Storage
	sentiments *sentiment.Store

	analyzerMu sync.Mutex
	analyzer   sentiment.Analyzer

	sentimentEnabled bool
	rebuildWorkers   int

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an Indexer from the opened index structures. analyzer may be
// nil when sentiment is disabled.
func New(cfg config.Config, lex *lexicon.Lexicon, hotels, reviews *index.Storage,
	sentiments *sentiment.Store, analyzer sentiment.Analyzer, m *metrics.Metrics) *Indexer {
	return &Indexer{
		tok:              tokenizer.New(),
		lex:              lex,
		hotels:           hotels,
		reviews:          reviews,
		sentiments:       sentiments,
		analyzer:         analyzer,
		sentimentEnabled: cfg.Sentiment.Enabled && analyzer != nil,
		rebuildWorkers:   cfg.Index.RebuildWorkers,
		metrics:          m,
		logger:           slog.Default().With("component", "indexer"),
	}
}

func hotelFields(h *store.Hotel) []index.Field {
	return []index.Field{
		{Name: "name", Text: h.Name},
		{Name: "locality", Text: h.Locality},
		{Name: "street-address", Text: h.StreetAddress},
		{Name: "region", Text: h.Region},
	}
}

func reviewFields(r *store.Review) []index.Field {
	return []index.Field{
		{Name: "title", Text: r.Title},
		{Name: "text", Text: r.Text},
	}
}

// IndexHotel indexes one hotel document. The lexicon is persisted before
// the inverted shards are written, so a crash between the two never leaves
// postings referencing token IDs the lexicon does not know.
func (ix *Indexer) IndexHotel(ctx context.Context, h *store.Hotel) error {
	return ix.apply(ctx, ix.hotels, h.HotelID, hotelFields(h), "")
}

// IndexReview indexes one review document and records its sentiment score.
func (ix *Indexer) IndexReview(ctx context.Context, r *store.Review) error {
	text := r.Title + " " + r.Text
	return ix.apply(ctx, ix.reviews, r.RevID, reviewFields(r), text)
}

func (ix *Indexer) apply(ctx context.Context, storage *index.Storage, docID int,
	fields []index.Field, sentimentText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := string(storage.Target)

	entry := index.BuildEntry(ix.tok, ix.lex, fields)
	if err := ix.lex.Persist(); err != nil {
		ix.metrics.IndexErrorsTotal.WithLabelValues(target).Inc()
		return fmt.Errorf("persisting lexicon: %w", err)
	}
	ix.metrics.LexiconSize.Set(float64(ix.lex.Size()))

	if err := storage.ApplyDocument(docID, entry); err != nil {
		ix.metrics.IndexErrorsTotal.WithLabelValues(target).Inc()
		return err
	}

	if ix.sentimentEnabled && sentimentText != "" && storage.Target == index.TargetReviews {
		ix.analyzerMu.Lock()
		score := ix.analyzer.Compound(sentimentText)
		ix.analyzerMu.Unlock()
		ix.sentiments.Set(strconv.Itoa(docID), score)
		if err := ix.sentiments.Persist(); err != nil {
			ix.logger.Warn("persisting sentiment scores failed", "error", err)
		}
	}

	ix.metrics.DocsIndexedTotal.WithLabelValues(target).Inc()
	return nil
}

// BulkResult reports the outcome of a bulk indexing run.
type BulkResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// IndexHotels indexes a batch with per-document isolation: one failing
// document is logged and counted, never aborts the rest.
func (ix *Indexer) IndexHotels(ctx context.Context, hotels []store.Hotel) BulkResult {
	var res BulkResult
	for i := range hotels {
		if err := ix.IndexHotel(ctx, &hotels[i]); err != nil {
			ix.logger.Error("indexing hotel failed", "hotel_id", hotels[i].HotelID, "error", err)
			res.Failed++
			continue
		}
		res.Indexed++
	}
	return res
}

// IndexReviews indexes a batch with per-document isolation.
func (ix *Indexer) IndexReviews(ctx context.Context, reviews []store.Review) BulkResult {
	var res BulkResult
	for i := range reviews {
		if err := ix.IndexReview(ctx, &reviews[i]); err != nil {
			ix.logger.Error("indexing review failed", "rev_id", reviews[i].RevID, "error", err)
			res.Failed++
			continue
		}
		res.Indexed++
	}
	return res
}

// ReindexAll rebuilds both targets from the document stores: forward
// entries are regenerated document by document, then each inverted index is
// rebuilt from its forward shards by the parallel map/reduce pipeline.
func (ix *Indexer) ReindexAll(ctx context.Context, stores *store.Stores) error {
	hotels, err := stores.Hotels.All(ctx)
	if err != nil {
		return fmt.Errorf("loading hotels: %w", err)
	}
	res := ix.IndexHotels(ctx, hotels)
	ix.logger.Info("hotels reindexed", "indexed", res.Indexed, "failed", res.Failed)

	reviews, err := stores.Reviews.All(ctx)
	if err != nil {
		return fmt.Errorf("loading reviews: %w", err)
	}
	res = ix.IndexReviews(ctx, reviews)
	ix.logger.Info("reviews reindexed", "indexed", res.Indexed, "failed", res.Failed)

	if _, err := ix.hotels.Rebuild(ctx, ix.rebuildWorkers); err != nil {
		return fmt.Errorf("rebuilding hotel inverted index: %w", err)
	}
	if _, err := ix.reviews.Rebuild(ctx, ix.rebuildWorkers); err != nil {
		return fmt.Errorf("rebuilding review inverted index: %w", err)
	}
	return nil
}
