// Package ingest carries indexing jobs over Kafka: document writes publish
// an IndexJob, and the index worker consumes jobs and applies them to the
// index structures.
package ingest

import (
	"github.com/FinesserULTRA/Search-Engine/internal/store"
)

// JobKind discriminates the payload of an IndexJob.
type JobKind string

const (
	JobHotel  JobKind = "hotel"
	JobReview JobKind = "review"
)

// IndexJob is one document to (re)index. Exactly one of Hotel and Review is
// set, per Kind.
type IndexJob struct {
	Kind   JobKind       `json:"kind"`
	Hotel  *store.Hotel  `json:"hotel,omitempty"`
	Review *store.Review `json:"review,omitempty"`
}
