// Command server starts the search engine HTTP service.
//
// It serves search queries at GET /api/v1/search, document reads and writes
// under /api/v1/hotels and /api/v1/reviews, bulk CSV uploads, health probes
// at /health/live and /health/ready, and Prometheus metrics at /metrics.
// Document writes are indexed inline, or queued to Kafka when the async
// pipeline is enabled.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/ingest"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/searcher"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/server"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/health"
	"github.com/FinesserULTRA/Search-Engine/pkg/logger"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
	pkgredis "github.com/FinesserULTRA/Search-Engine/pkg/redis"
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
	slog.Info("starting search engine", "port", cfg.Server.Port)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, *cfg)
	if err != nil {
		slog.Error("failed to open document stores", "error", err)
		os.Exit(1)
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
	engine := searcher.New(*cfg, lex, hotelsIdx, reviewsIdx, stores, sentiments, analyzer, m)

	var publisher *ingest.Publisher
	if cfg.Kafka.Enabled {
		publisher = ingest.NewPublisher(cfg.Kafka)
		defer publisher.Close()
		slog.Info("async indexing enabled", "topic", cfg.Kafka.Topics.IndexJobs)
	}

	var cache *searcher.QueryCache
	checker := health.NewChecker()
	checker.Register("lexicon", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d tokens", lex.Size())}
	})
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cache = searcher.NewQueryCache(redisClient, cfg.Redis, m)
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr)
	}

	h := server.New(stores, engine, ix, publisher, cache)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(h, checker, m, cfg.Server.WriteTimeout, cfg.Server.RateLimitPerMinute),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := lex.Persist(); err != nil {
			slog.Error("persisting lexicon on shutdown failed", "error", err)
		}
		if err := sentiments.Persist(); err != nil {
			slog.Error("persisting sentiments on shutdown failed", "error", err)
		}
	}()

	slog.Info("search engine listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search engine stopped")
}
