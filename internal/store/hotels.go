package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	pkgerrors "github.com/FinesserULTRA/Search-Engine/pkg/errors"
)

var hotelColumns = []string{
	"hotel_id", "name", "region_id", "region", "street-address", "locality",
	"hotel_class", "service", "cleanliness", "overall", "value", "location",
	"sleep_quality", "rooms", "average_score",
}

// CSVHotels keeps all hotels in a single hotels.csv file, loaded into
// memory at open. Writes append to the file and to the in-memory view under
// one lock; hotel_id is maxID+1 at append time.
type CSVHotels struct {
	mu     sync.RWMutex
	path   string
	hotels []Hotel
	byID   map[int]int
	maxID  int
	logger *slog.Logger
}

// OpenCSVHotels loads {dataDir}/hotels.csv, creating an empty store when the
// file does not exist yet.
func OpenCSVHotels(dataDir string) (*CSVHotels, error) {
	s := &CSVHotels{
		path:   filepath.Join(dataDir, "hotels.csv"),
		byID:   make(map[int]int),
		logger: slog.Default().With("component", "hotel_store"),
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no hotels file, starting empty", "path", s.path)
			return s, nil
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "hotel_id" {
			continue
		}
		h, err := hotelFromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping malformed hotel row", "row", i, "error", err)
			continue
		}
		s.byID[h.HotelID] = len(s.hotels)
		s.hotels = append(s.hotels, *h)
		if h.HotelID > s.maxID {
			s.maxID = h.HotelID
		}
	}
	s.logger.Info("hotels loaded", "count", len(s.hotels))
	return s, nil
}

func (s *CSVHotels) Get(_ context.Context, hotelID int) (*Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[hotelID]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.ErrHotelNotFound, 404, "hotel %d not found", hotelID)
	}
	h := s.hotels[idx]
	return &h, nil
}

func (s *CSVHotels) All(_ context.Context) ([]Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Hotel, len(s.hotels))
	copy(out, s.hotels)
	return out, nil
}

func (s *CSVHotels) Add(_ context.Context, h *Hotel) (*Hotel, error) {
	if err := ValidateHotel(h); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "invalid hotel: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h.HotelID = s.maxID + 1
	h.DeriveAverageScore()
	if err := s.appendLocked(*h); err != nil {
		return nil, err
	}
	s.maxID = h.HotelID
	s.byID[h.HotelID] = len(s.hotels)
	s.hotels = append(s.hotels, *h)
	return h, nil
}

func (s *CSVHotels) appendLocked(h Hotel) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	writeHeader := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		writeHeader = true
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(hotelColumns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(hotelToRecord(h)); err != nil {
		return fmt.Errorf("writing hotel row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func hotelToRecord(h Hotel) []string {
	return []string{
		strconv.Itoa(h.HotelID),
		h.Name, h.RegionID, h.Region, h.StreetAddress, h.Locality,
		formatOptFloat(h.HotelClass),
		formatOptFloat(h.Service), formatOptFloat(h.Cleanliness),
		formatOptFloat(h.Overall), formatOptFloat(h.Value),
		formatOptFloat(h.Location), formatOptFloat(h.SleepQuality),
		formatOptFloat(h.Rooms),
		formatOptFloat(h.AverageScore),
	}
}

func hotelFromRecord(rec []string) (*Hotel, error) {
	if len(rec) < len(hotelColumns) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(hotelColumns), len(rec))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return nil, fmt.Errorf("bad hotel_id %q: %w", rec[0], err)
	}
	h := &Hotel{
		HotelID:       id,
		Name:          rec[1],
		RegionID:      rec[2],
		Region:        rec[3],
		StreetAddress: rec[4],
		Locality:      rec[5],
	}
	opts := []struct {
		dst **float64
		col int
	}{
		{&h.HotelClass, 6},
		{&h.Service, 7}, {&h.Cleanliness, 8}, {&h.Overall, 9},
		{&h.Value, 10}, {&h.Location, 11}, {&h.SleepQuality, 12},
		{&h.Rooms, 13},
		{&h.AverageScore, 14},
	}
	for _, o := range opts {
		v, err := parseOptFloat(rec[o.col])
		if err != nil {
			return nil, fmt.Errorf("bad %s %q: %w", hotelColumns[o.col], rec[o.col], err)
		}
		*o.dst = v
	}
	return h, nil
}
