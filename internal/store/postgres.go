package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	pkgerrors "github.com/FinesserULTRA/Search-Engine/pkg/errors"
	"github.com/FinesserULTRA/Search-Engine/pkg/postgres"
)

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// PostgresHotels stores hotels in the hotels table. IDs come from the
// table's sequence instead of a maxID counter.
type PostgresHotels struct {
	db *postgres.Client
}

const hotelCols = `hotel_id, name, region_id, region, street_address, locality,
	hotel_class, service, cleanliness, overall, value, location, sleep_quality,
	rooms, average_score`

func scanHotel(row interface{ Scan(...any) error }) (*Hotel, error) {
	var h Hotel
	err := row.Scan(
		&h.HotelID, &h.Name, &h.RegionID, &h.Region, &h.StreetAddress, &h.Locality,
		&h.HotelClass, &h.Service, &h.Cleanliness, &h.Overall, &h.Value,
		&h.Location, &h.SleepQuality, &h.Rooms, &h.AverageScore,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *PostgresHotels) Get(ctx context.Context, hotelID int) (*Hotel, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+hotelCols+` FROM hotels WHERE hotel_id = $1`, hotelID)
	h, err := scanHotel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.Newf(pkgerrors.ErrHotelNotFound, 404, "hotel %d not found", hotelID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying hotel %d: %w", hotelID, err)
	}
	return h, nil
}

func (s *PostgresHotels) All(ctx context.Context) ([]Hotel, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+hotelCols+` FROM hotels ORDER BY hotel_id`)
	if err != nil {
		return nil, fmt.Errorf("querying hotels: %w", err)
	}
	defer rows.Close()
	var out []Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning hotel: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (s *PostgresHotels) Add(ctx context.Context, h *Hotel) (*Hotel, error) {
	if err := ValidateHotel(h); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "invalid hotel: %v", err)
	}
	h.DeriveAverageScore()
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO hotels (name, region_id, region, street_address, locality,
			hotel_class, service, cleanliness, overall, value, location,
			sleep_quality, rooms, average_score)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 RETURNING hotel_id`,
		h.Name, h.RegionID, h.Region, h.StreetAddress, h.Locality,
		h.HotelClass, h.Service, h.Cleanliness, h.Overall, h.Value,
		h.Location, h.SleepQuality, h.Rooms, h.AverageScore,
	).Scan(&h.HotelID)
	if err != nil {
		return nil, fmt.Errorf("inserting hotel: %w", err)
	}
	return h, nil
}

// PostgresReviews stores reviews in the reviews table. HotelOf queries the
// table instead of keeping an in-memory map; rev_id monotonicity comes from
// the sequence.
type PostgresReviews struct {
	db *postgres.Client
}

const reviewCols = `rev_id, hotel_id, title, text, service, cleanliness,
	overall, value, location, sleep_quality, rooms`

func scanReview(row interface{ Scan(...any) error }) (*Review, error) {
	var r Review
	err := row.Scan(
		&r.RevID, &r.HotelID, &r.Title, &r.Text,
		&r.Service, &r.Cleanliness, &r.Overall, &r.Value,
		&r.Location, &r.SleepQuality, &r.Rooms,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresReviews) Get(ctx context.Context, revID int) (*Review, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+reviewCols+` FROM reviews WHERE rev_id = $1`, revID)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.Newf(pkgerrors.ErrReviewNotFound, 404, "review %d not found", revID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying review %d: %w", revID, err)
	}
	return r, nil
}

func (s *PostgresReviews) ByHotel(ctx context.Context, hotelID int) ([]Review, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+reviewCols+` FROM reviews WHERE hotel_id = $1 ORDER BY rev_id`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("querying reviews of hotel %d: %w", hotelID, err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *PostgresReviews) All(ctx context.Context) ([]Review, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+reviewCols+` FROM reviews ORDER BY rev_id`)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func collectReviews(rows *sql.Rows) ([]Review, error) {
	var out []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresReviews) Add(ctx context.Context, r *Review) (*Review, error) {
	if err := ValidateReview(r); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "invalid review: %v", err)
	}
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO reviews (hotel_id, title, text, service, cleanliness,
			overall, value, location, sleep_quality, rooms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING rev_id`,
		r.HotelID, r.Title, r.Text, r.Service, r.Cleanliness,
		r.Overall, r.Value, r.Location, r.SleepQuality, r.Rooms,
	).Scan(&r.RevID)
	if err != nil {
		return nil, fmt.Errorf("inserting review: %w", err)
	}
	return r, nil
}

func (s *PostgresReviews) HotelOf(revID int) (int, bool) {
	var hotelID int
	err := s.db.DB.QueryRow(
		`SELECT hotel_id FROM reviews WHERE rev_id = $1`, revID).Scan(&hotelID)
	if err != nil {
		return 0, false
	}
	return hotelID, true
}
