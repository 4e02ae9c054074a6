// Package store persists hotel and review documents and hands out their
// IDs. Two backends exist: chunked CSV files (the default) and Postgres.
package store

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// Ratings are the optional per-aspect scores shared by hotels and reviews.
// All values are 0..5 when present.
type Ratings struct {
	Service      *float64 `json:"service,omitempty" validate:"omitempty,gte=0,lte=5"`
	Cleanliness  *float64 `json:"cleanliness,omitempty" validate:"omitempty,gte=0,lte=5"`
	Overall      *float64 `json:"overall,omitempty" validate:"omitempty,gte=0,lte=5"`
	Value        *float64 `json:"value,omitempty" validate:"omitempty,gte=0,lte=5"`
	Location     *float64 `json:"location,omitempty" validate:"omitempty,gte=0,lte=5"`
	SleepQuality *float64 `json:"sleep_quality,omitempty" validate:"omitempty,gte=0,lte=5"`
	Rooms        *float64 `json:"rooms,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// Hotel is one hotel document. StreetAddress keeps the legacy hyphenated
// JSON name because the index field weights key on it.
type Hotel struct {
	HotelID       int      `json:"hotel_id"`
	Name          string   `json:"name" validate:"required"`
	RegionID      string   `json:"region_id" validate:"required"`
	Region        string   `json:"region" validate:"required"`
	StreetAddress string   `json:"street-address" validate:"required"`
	Locality      string   `json:"locality" validate:"required"`
	HotelClass    *float64 `json:"hotel_class,omitempty" validate:"omitempty,gte=0,lte=5"`
	Ratings
	AverageScore *float64 `json:"average_score,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// Review is one guest review of a hotel.
type Review struct {
	RevID   int    `json:"rev_id"`
	HotelID int    `json:"hotel_id" validate:"required,gt=0"`
	Title   string `json:"title" validate:"required"`
	Text    string `json:"text" validate:"required"`
	Ratings
}

var validate = validator.New()

// ValidateHotel checks a hotel payload against the field constraints.
func ValidateHotel(h *Hotel) error {
	return validate.Struct(h)
}

// ValidateReview checks a review payload against the field constraints.
func ValidateReview(r *Review) error {
	return validate.Struct(r)
}

// present collects the rating values that are set.
func (r Ratings) present() []float64 {
	var out []float64
	for _, v := range []*float64{r.Service, r.Cleanliness, r.Overall, r.Value, r.Location, r.SleepQuality, r.Rooms} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// DeriveAverageScore fills AverageScore from the mean of the present rating
// fields, rounded to one decimal. A hotel with no ratings keeps a nil score.
func (h *Hotel) DeriveAverageScore() {
	if h.AverageScore != nil {
		return
	}
	scores := h.present()
	if len(scores) == 0 {
		return
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	avg := math.Round(sum/float64(len(scores))*10) / 10
	h.AverageScore = &avg
}
