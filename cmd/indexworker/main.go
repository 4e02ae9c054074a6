// Command indexworker consumes index jobs from Kafka and applies them to
// the lexicon, forward index, inverted index, and sentiment store.
//
// Usage:
//
//	go run ./cmd/indexworker [-config configs/development.yaml]
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
	"time"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/ingest"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/logger"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "kafka is disabled in config; nothing to consume")
		os.Exit(1)
	}
	slog.Info("starting index worker",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.Topics.IndexJobs,
		"group", cfg.Kafka.ConsumerGroup,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	lex, err := lexicon.Open(filepath.Join(cfg.Index.Dir, "lexicon", "lexicon.json"))
	if err != nil {
		slog.Error("failed to open lexicon", "error", err)
		os.Exit(1)
	}
	m.LexiconSize.Set(float64(lex.Size()))

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
	hotelsIdx.Observe(m)
	reviewsIdx.Observe(m)

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
	consumer := ingest.NewConsumer(cfg.Kafka, ix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}
	if err := lex.Persist(); err != nil {
		slog.Error("persisting lexicon on shutdown failed", "error", err)
	}
	if err := sentiments.Persist(); err != nil {
		slog.Error("persisting sentiments on shutdown failed", "error", err)
	}
	slog.Info("index worker stopped")
}
