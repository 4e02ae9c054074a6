package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FinesserULTRA/Search-Engine/internal/store"
)

// Upload rows are keyed by header name, so column order in the file does
// not matter. IDs in the file are ignored; the stores assign fresh ones.

func cell(header map[string]int, rec []string, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func optFloatCell(header map[string]int, rec []string, name string) (*float64, error) {
	raw := cell(header, rec, name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("bad %s %q", name, raw)
	}
	return &v, nil
}

func ratingsFromRow(header map[string]int, rec []string) (store.Ratings, error) {
	var ratings store.Ratings
	fields := []struct {
		name string
		dst  **float64
	}{
		{"service", &ratings.Service},
		{"cleanliness", &ratings.Cleanliness},
		{"overall", &ratings.Overall},
		{"value", &ratings.Value},
		{"location", &ratings.Location},
		{"sleep_quality", &ratings.SleepQuality},
		{"rooms", &ratings.Rooms},
	}
	for _, f := range fields {
		v, err := optFloatCell(header, rec, f.name)
		if err != nil {
			return ratings, err
		}
		*f.dst = v
	}
	return ratings, nil
}

func hotelFromUploadRow(header map[string]int, rec []string) (*store.Hotel, error) {
	h := &store.Hotel{
		Name:          cell(header, rec, "name"),
		RegionID:      cell(header, rec, "region_id"),
		Region:        cell(header, rec, "region"),
		StreetAddress: cell(header, rec, "street-address"),
		Locality:      cell(header, rec, "locality"),
	}
	if h.StreetAddress == "" {
		h.StreetAddress = cell(header, rec, "street_address")
	}
	var err error
	if h.HotelClass, err = optFloatCell(header, rec, "hotel_class"); err != nil {
		return nil, err
	}
	if h.Ratings, err = ratingsFromRow(header, rec); err != nil {
		return nil, err
	}
	if h.AverageScore, err = optFloatCell(header, rec, "average_score"); err != nil {
		return nil, err
	}
	return h, nil
}

func reviewFromUploadRow(header map[string]int, rec []string) (*store.Review, error) {
	rawHotelID := cell(header, rec, "hotel_id")
	hotelID, err := strconv.Atoi(rawHotelID)
	if err != nil {
		return nil, fmt.Errorf("bad hotel_id %q", rawHotelID)
	}
	r := &store.Review{
		HotelID: hotelID,
		Title:   cell(header, rec, "title"),
		Text:    cell(header, rec, "text"),
	}
	if r.Ratings, err = ratingsFromRow(header, rec); err != nil {
		return nil, err
	}
	return r, nil
}
