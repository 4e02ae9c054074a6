package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/kafka"
	"github.com/FinesserULTRA/Search-Engine/pkg/resilience"
)

// jobTimeout bounds one indexing job so a stuck shard write cannot stall
// the whole consume loop.
const jobTimeout = 30 * time.Second

// Consumer drains the index-jobs topic and applies each job through the
// Indexer. Handler errors are returned to the Kafka consumer, which logs
// and skips the message; the job's document stays unindexed until the next
// write to it.
type Consumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewConsumer wires a Consumer that applies jobs with ix.
func NewConsumer(cfg config.KafkaConfig, ix *indexer.Indexer) *Consumer {
	c := &Consumer{
		logger: slog.Default().With("component", "ingest-consumer"),
	}
	c.consumer = kafka.NewConsumer(cfg, cfg.Topics.IndexJobs, func(ctx context.Context, key, value []byte) error {
		job, err := kafka.DecodeJSON[IndexJob](value)
		if err != nil {
			return err
		}
		return resilience.WithTimeout(ctx, jobTimeout, "index-job", func(ctx context.Context) error {
			return c.apply(ctx, ix, job)
		})
	})
	return c
}

func (c *Consumer) apply(ctx context.Context, ix *indexer.Indexer, job IndexJob) error {
	switch job.Kind {
	case JobHotel:
		if job.Hotel == nil {
			return fmt.Errorf("hotel job without hotel payload")
		}
		return ix.IndexHotel(ctx, job.Hotel)
	case JobReview:
		if job.Review == nil {
			return fmt.Errorf("review job without review payload")
		}
		return ix.IndexReview(ctx, job.Review)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// Start runs the consume loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}
