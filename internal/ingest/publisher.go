package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/kafka"
	"github.com/FinesserULTRA/Search-Engine/pkg/resilience"
)

// Publisher queues index jobs on the index-jobs topic. Jobs are keyed by
// document ID so updates to one document stay ordered within a partition.
type Publisher struct {
	producer *kafka.Producer
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

// NewPublisher creates a Publisher for the configured index-jobs topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		producer: kafka.NewProducer(cfg, cfg.Topics.IndexJobs),
		retry:    resilience.RetryConfig{},
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// PublishHotel queues a hotel for indexing.
func (p *Publisher) PublishHotel(ctx context.Context, h *store.Hotel) error {
	return p.publish(ctx, "hotel-"+strconv.Itoa(h.HotelID), IndexJob{Kind: JobHotel, Hotel: h})
}

// PublishReview queues a review for indexing.
func (p *Publisher) PublishReview(ctx context.Context, r *store.Review) error {
	return p.publish(ctx, "review-"+strconv.Itoa(r.RevID), IndexJob{Kind: JobReview, Review: r})
}

func (p *Publisher) publish(ctx context.Context, key string, job IndexJob) error {
	err := resilience.Retry(ctx, "publish-index-job", p.retry, func() error {
		return p.producer.Publish(ctx, kafka.Event{Key: key, Value: job})
	})
	if err != nil {
		return fmt.Errorf("publishing index job %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
