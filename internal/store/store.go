package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/FinesserULTRA/Search-Engine/pkg/config"
)

// HotelStore persists hotel documents and assigns their IDs.
type HotelStore interface {
	// Get returns one hotel by ID, ErrHotelNotFound when absent.
	Get(ctx context.Context, hotelID int) (*Hotel, error)
	// Add validates the hotel, assigns the next sequential hotel_id, derives
	// the average score, and appends it.
	Add(ctx context.Context, h *Hotel) (*Hotel, error)
	// All returns every hotel. Used by the batch reindexer.
	All(ctx context.Context) ([]Hotel, error)
}

// ReviewStore persists review documents in chunks keyed by owning hotel.
type ReviewStore interface {
	// Get returns one review by rev_id, ErrReviewNotFound when absent.
	Get(ctx context.Context, revID int) (*Review, error)
	// ByHotel returns all reviews of one hotel.
	ByHotel(ctx context.Context, hotelID int) ([]Review, error)
	// Add validates the review, assigns the next rev_id, and appends it to
	// the chunk owning its hotel.
	Add(ctx context.Context, r *Review) (*Review, error)
	// HotelOf resolves a rev_id to its owning hotel_id via the in-memory
	// map. ok is false for unknown reviews.
	HotelOf(revID int) (hotelID int, ok bool)
	// All returns every review. Used by the batch reindexer.
	All(ctx context.Context) ([]Review, error)
}

// Stores bundles the two document stores of one backend.
type Stores struct {
	Hotels  HotelStore
	Reviews ReviewStore
}

// Open constructs the stores named by the storage config: "csv" (default)
// or "postgres".
func Open(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.Storage.Backend {
	case "", "csv":
		hotels, err := OpenCSVHotels(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		reviews, err := OpenCSVReviews(cfg.Storage.DataDir, cfg.Storage.ReviewBatchSize)
		if err != nil {
			return nil, err
		}
		return &Stores{Hotels: hotels, Reviews: reviews}, nil
	case "postgres":
		client, err := openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Hotels:  &PostgresHotels{db: client},
			Reviews: &PostgresReviews{db: client},
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// float formatting shared by the CSV codecs: empty cell for nil.

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
