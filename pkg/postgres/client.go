package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/FinesserULTRA/Search-Engine/pkg/config"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// EnsureSchema creates the document tables when they do not exist yet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hotels (
			hotel_id       SERIAL PRIMARY KEY,
			name           TEXT NOT NULL,
			region_id      TEXT NOT NULL,
			region         TEXT NOT NULL,
			street_address TEXT NOT NULL,
			locality       TEXT NOT NULL,
			hotel_class    DOUBLE PRECISION,
			service        DOUBLE PRECISION,
			cleanliness    DOUBLE PRECISION,
			overall        DOUBLE PRECISION,
			value          DOUBLE PRECISION,
			location       DOUBLE PRECISION,
			sleep_quality  DOUBLE PRECISION,
			rooms          DOUBLE PRECISION,
			average_score  DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			rev_id        SERIAL PRIMARY KEY,
			hotel_id      INTEGER NOT NULL REFERENCES hotels(hotel_id),
			title         TEXT NOT NULL,
			text          TEXT NOT NULL,
			service       DOUBLE PRECISION,
			cleanliness   DOUBLE PRECISION,
			overall       DOUBLE PRECISION,
			value         DOUBLE PRECISION,
			location      DOUBLE PRECISION,
			sleep_quality DOUBLE PRECISION,
			rooms         DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS reviews_hotel_id_idx ON reviews(hotel_id)`,
	}
	for _, stmt := range stmts {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}
