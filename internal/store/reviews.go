package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	pkgerrors "github.com/FinesserULTRA/Search-Engine/pkg/errors"
)

var reviewColumns = []string{
	"rev_id", "hotel_id", "title", "text",
	"service", "cleanliness", "overall", "value", "location",
	"sleep_quality", "rooms",
}

var reviewChunkPattern = regexp.MustCompile(`^reviews_(\d+)-(\d+)\.csv$`)

// CSVReviews stores reviews in chunk files partitioned by owning hotel_id:
// a hotel h lives in reviews_{start}-{end}.csv where start=(h-1)/N*N+1.
// rev_id is a globally monotonic counter persisted to a JSON sidecar after
// every allocation, so restarts never reuse an ID. The rev_id to hotel_id
// map is rebuilt at open by scanning every chunk file.
type CSVReviews struct {
	mu        sync.RWMutex
	dir       string
	revIDPath string
	batchSize int

	currentRevID int
	revToHotel   map[int]int
	logger       *slog.Logger
}

// OpenCSVReviews loads the review chunks under {dataDir}/reviews and the
// rev_id sidecar at {dataDir}/current_rev_id.json. A missing or corrupt
// sidecar falls back to the max rev_id found in the chunks.
func OpenCSVReviews(dataDir string, batchSize int) (*CSVReviews, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("review batch size must be positive, got %d", batchSize)
	}
	s := &CSVReviews{
		dir:        filepath.Join(dataDir, "reviews"),
		revIDPath:  filepath.Join(dataDir, "current_rev_id.json"),
		batchSize:  batchSize,
		revToHotel: make(map[int]int),
		logger:     slog.Default().With("component", "review_store"),
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating reviews directory: %w", err)
	}

	maxRevID, err := s.buildRevToHotel()
	if err != nil {
		return nil, err
	}
	s.currentRevID = s.loadRevIDCounter(maxRevID)
	s.logger.Info("reviews loaded",
		"count", len(s.revToHotel),
		"current_rev_id", s.currentRevID,
	)
	return s, nil
}

// buildRevToHotel scans every chunk file and returns the highest rev_id
// found.
func (s *CSVReviews) buildRevToHotel() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading reviews directory: %w", err)
	}
	maxRevID := 0
	for _, entry := range entries {
		if entry.IsDir() || !reviewChunkPattern.MatchString(entry.Name()) {
			continue
		}
		reviews, err := s.readChunk(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable review chunk", "file", entry.Name(), "error", err)
			continue
		}
		for _, r := range reviews {
			s.revToHotel[r.RevID] = r.HotelID
			if r.RevID > maxRevID {
				maxRevID = r.RevID
			}
		}
	}
	return maxRevID, nil
}

func (s *CSVReviews) loadRevIDCounter(fallback int) int {
	data, err := os.ReadFile(s.revIDPath)
	if err != nil {
		return fallback
	}
	var sidecar struct {
		CurrentRevID int `json:"current_rev_id"`
	}
	if err := json.Unmarshal(data, &sidecar); err != nil {
		s.logger.Warn("corrupt rev_id sidecar, falling back to chunk scan",
			"path", s.revIDPath, "error", err)
		return fallback
	}
	if sidecar.CurrentRevID < fallback {
		// Chunks hold IDs the sidecar never saw; trust the chunks.
		return fallback
	}
	return sidecar.CurrentRevID
}

func (s *CSVReviews) persistRevIDLocked() error {
	data, err := json.Marshal(map[string]int{"current_rev_id": s.currentRevID})
	if err != nil {
		return err
	}
	tmp := s.revIDPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing rev_id sidecar: %w", err)
	}
	return os.Rename(tmp, s.revIDPath)
}

// chunkRange returns the inclusive 1-based hotel_id range of the chunk
// owning hotelID.
func (s *CSVReviews) chunkRange(hotelID int) (start, end int) {
	start = (hotelID-1)/s.batchSize*s.batchSize + 1
	return start, start + s.batchSize - 1
}

func (s *CSVReviews) chunkPath(hotelID int) string {
	start, end := s.chunkRange(hotelID)
	return filepath.Join(s.dir, fmt.Sprintf("reviews_%d-%d.csv", start, end))
}

func (s *CSVReviews) HotelOf(revID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hotelID, ok := s.revToHotel[revID]
	return hotelID, ok
}

func (s *CSVReviews) Get(_ context.Context, revID int) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hotelID, ok := s.revToHotel[revID]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.ErrReviewNotFound, 404, "review %d not found", revID)
	}
	reviews, err := s.readChunk(s.chunkPath(hotelID))
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].RevID == revID {
			return &reviews[i], nil
		}
	}
	return nil, pkgerrors.Newf(pkgerrors.ErrReviewNotFound, 404, "review %d not found", revID)
}

func (s *CSVReviews) ByHotel(_ context.Context, hotelID int) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews, err := s.readChunk(s.chunkPath(hotelID))
	if err != nil {
		return nil, err
	}
	out := reviews[:0:0]
	for _, r := range reviews {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *CSVReviews) All(_ context.Context) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading reviews directory: %w", err)
	}
	var out []Review
	for _, entry := range entries {
		if entry.IsDir() || !reviewChunkPattern.MatchString(entry.Name()) {
			continue
		}
		reviews, err := s.readChunk(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, reviews...)
	}
	return out, nil
}

func (s *CSVReviews) Add(_ context.Context, r *Review) (*Review, error) {
	if err := ValidateReview(r); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "invalid review: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRevID++
	r.RevID = s.currentRevID
	if err := s.persistRevIDLocked(); err != nil {
		s.currentRevID--
		return nil, err
	}
	if err := s.appendLocked(*r); err != nil {
		return nil, err
	}
	s.revToHotel[r.RevID] = r.HotelID
	return r, nil
}

func (s *CSVReviews) appendLocked(r Review) error {
	path := s.chunkPath(r.HotelID)
	writeHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeHeader = true
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(reviewColumns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(reviewToRecord(r)); err != nil {
		return fmt.Errorf("writing review row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVReviews) readChunk(path string) ([]Review, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var out []Review
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "rev_id" {
			continue
		}
		r, err := reviewFromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping malformed review row", "file", filepath.Base(path), "row", i, "error", err)
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func reviewToRecord(r Review) []string {
	return []string{
		strconv.Itoa(r.RevID),
		strconv.Itoa(r.HotelID),
		r.Title, r.Text,
		formatOptFloat(r.Service), formatOptFloat(r.Cleanliness),
		formatOptFloat(r.Overall), formatOptFloat(r.Value),
		formatOptFloat(r.Location), formatOptFloat(r.SleepQuality),
		formatOptFloat(r.Rooms),
	}
}

func reviewFromRecord(rec []string) (*Review, error) {
	if len(rec) < len(reviewColumns) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(reviewColumns), len(rec))
	}
	revID, err := strconv.Atoi(rec[0])
	if err != nil {
		return nil, fmt.Errorf("bad rev_id %q: %w", rec[0], err)
	}
	hotelID, err := strconv.Atoi(rec[1])
	if err != nil {
		return nil, fmt.Errorf("bad hotel_id %q: %w", rec[1], err)
	}
	r := &Review{RevID: revID, HotelID: hotelID, Title: rec[2], Text: rec[3]}
	opts := []struct {
		dst **float64
		col int
	}{
		{&r.Service, 4}, {&r.Cleanliness, 5}, {&r.Overall, 6},
		{&r.Value, 7}, {&r.Location, 8}, {&r.SleepQuality, 9},
		{&r.Rooms, 10},
	}
	for _, o := range opts {
		v, err := parseOptFloat(rec[o.col])
		if err != nil {
			return nil, fmt.Errorf("bad %s %q: %w", reviewColumns[o.col], rec[o.col], err)
		}
		*o.dst = v
	}
	return r, nil
}
