// Command rebuild regenerates the index structures from the document
// stores: every hotel and review is re-tokenized into the forward index,
// then each inverted index is rebuilt from its forward shards with a
// parallel map/reduce pass.
//
// Usage:
//
//	go run ./cmd/rebuild [-config configs/development.yaml] [-target hotels|reviews|all] [-from-forward]
//
// With -from-forward, the document re-tokenization step is skipped and only
// the inverted indexes are rebuilt from the existing forward shards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/logger"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	target := flag.String("target", "all", "which index to rebuild: hotels, reviews, or all")
	fromForward := flag.Bool("from-forward", false, "rebuild inverted indexes from existing forward shards only")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *target != "hotels" && *target != "reviews" && *target != "all" {
		fmt.Fprintf(os.Stderr, "invalid target %q\n", *target)
		os.Exit(1)
	}

	m := metrics.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lex, err := lexicon.Open(filepath.Join(cfg.Index.Dir, "lexicon", "lexicon.json"))
	if err != nil {
		slog.Error("failed to open lexicon", "error", err)
		os.Exit(1)
	}
	hotelsIdx, err := index.OpenStorage(cfg.Index, index.TargetHotels)
	if err != nil {
		slog.Error("failed to open hotel index", "error", err)
		os.Exit(1)
	}
	reviewsIdx, err := index.OpenStorage(cfg.Index, index.TargetReviews)
	if err != nil {
		slog.Error("failed to open review index", "error", err)
		os.Exit(1)
	}

	if *fromForward {
		if err := rebuildInverted(ctx, cfg, *target, hotelsIdx, reviewsIdx); err != nil {
			slog.Error("rebuild failed", "error", err)
			os.Exit(1)
		}
		return
	}

	stores, err := store.Open(ctx, *cfg)
	if err != nil {
		slog.Error("failed to open document stores", "error", err)
		os.Exit(1)
	}
	sentiments, err := sentiment.OpenStore(filepath.Join(cfg.Index.Dir, "sentiments", "doc_sentiment.json"))
	if err != nil {
		slog.Error("failed to open sentiment store", "error", err)
		os.Exit(1)
	}
	var analyzer sentiment.Analyzer
	if cfg.Sentiment.Enabled {
		analyzer = sentiment.NewVader()
	}

	ix := indexer.New(*cfg, lex, hotelsIdx, reviewsIdx, sentiments, analyzer, m)
	if err := ix.ReindexAll(ctx, stores); err != nil {
		slog.Error("rebuild failed", "error", err)
		os.Exit(1)
	}
	slog.Info("rebuild complete", "lexicon_size", lex.Size())
}

func rebuildInverted(ctx context.Context, cfg *config.Config, target string,
	hotelsIdx, reviewsIdx *index.Storage) error {
	if target == "hotels" || target == "all" {
		res, err := hotelsIdx.Rebuild(ctx, cfg.Index.RebuildWorkers)
		if err != nil {
			return fmt.Errorf("rebuilding hotel inverted index: %w", err)
		}
		slog.Info("hotel inverted index rebuilt",
			"documents", res.Documents, "tokens", res.Tokens, "elapsed", res.Elapsed)
	}
	if target == "reviews" || target == "all" {
		res, err := reviewsIdx.Rebuild(ctx, cfg.Index.RebuildWorkers)
		if err != nil {
			return fmt.Errorf("rebuilding review inverted index: %w", err)
		}
		slog.Info("review inverted index rebuilt",
			"documents", res.Documents, "tokens", res.Tokens, "elapsed", res.Elapsed)
	}
	return nil
}
