// Package server exposes the search engine over HTTP: search, document
// reads and writes, bulk CSV upload, health, and metrics.
package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/ingest"
	"github.com/FinesserULTRA/Search-Engine/internal/searcher"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	apperrors "github.com/FinesserULTRA/Search-Engine/pkg/errors"
	"github.com/FinesserULTRA/Search-Engine/pkg/logger"
)

// Handler serves the HTTP API. publisher and cache are optional: without a
// publisher, writes index synchronously in-process; without a cache, every
// search runs against the engine.
type Handler struct {
	stores    *store.Stores
	engine    *searcher.Engine
	indexer   *indexer.Indexer
	publisher *ingest.Publisher
	cache     *searcher.QueryCache
	logger    *slog.Logger
}

// New wires a Handler.
func New(stores *store.Stores, engine *searcher.Engine, ix *indexer.Indexer,
	publisher *ingest.Publisher, cache *searcher.QueryCache) *Handler {
	return &Handler{
		stores:    stores,
		engine:    engine,
		indexer:   ix,
		publisher: publisher,
		cache:     cache,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searcher.Request{
		Query:  q.Get("q"),
		Target: q.Get("target"),
		Mode:   searcher.Mode(q.Get("mode")),
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	req.Filters.Locality = q.Get("locality")
	if raw := q.Get("class"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "class must be numeric")
			return
		}
		req.Filters.MinClass = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		req.Limit = v
	}

	var resp *searcher.Response
	var err error
	if h.cache != nil {
		resp, _, err = h.cache.GetOrCompute(r.Context(), req, func() (*searcher.Response, error) {
			return h.engine.Search(r.Context(), req)
		})
	} else {
		resp, err = h.engine.Search(r.Context(), req)
	}
	if err != nil {
		h.serveError(w, r, err, "search failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetHotel handles GET /api/v1/hotels/{id}: the hotel plus its reviews.
func (h *Handler) GetHotel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "hotel id must be an integer")
		return
	}
	hotel, err := h.stores.Hotels.Get(r.Context(), id)
	if err != nil {
		h.serveError(w, r, err, "fetching hotel failed")
		return
	}
	reviews, err := h.stores.Reviews.ByHotel(r.Context(), id)
	if err != nil {
		h.serveError(w, r, err, "fetching reviews failed")
		return
	}
	if reviews == nil {
		reviews = []store.Review{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hotel":   hotel,
		"reviews": reviews,
	})
}

// CreateHotel handles POST /api/v1/hotels.
func (h *Handler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var hotel store.Hotel
	if err := json.NewDecoder(r.Body).Decode(&hotel); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.stores.Hotels.Add(r.Context(), &hotel)
	if err != nil {
		h.serveError(w, r, err, "creating hotel failed")
		return
	}
	h.queueHotel(r.Context(), created)
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusCreated, created)
}

// CreateReview handles POST /api/v1/reviews. The owning hotel must exist.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var review store.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := h.stores.Hotels.Get(r.Context(), review.HotelID); err != nil {
		h.serveError(w, r, err, "resolving hotel failed")
		return
	}
	created, err := h.stores.Reviews.Add(r.Context(), &review)
	if err != nil {
		h.serveError(w, r, err, "creating review failed")
		return
	}
	h.queueReview(r.Context(), created)
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusCreated, created)
}

// uploadOutcome reports a bulk CSV ingest: rows accepted and rows rejected
// with per-row reasons (row numbers are 1-based, excluding the header).
type uploadOutcome struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// UploadHotels handles POST /api/v1/hotels/upload with a multipart CSV
// under the "file" field. Rows are isolated: one bad row is reported and
// skipped, not fatal to the batch.
func (h *Handler) UploadHotels(w http.ResponseWriter, r *http.Request) {
	rows, header, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	var out uploadOutcome
	for i, rec := range rows {
		hotel, err := hotelFromUploadRow(header, rec)
		if err == nil {
			_, err = h.stores.Hotels.Add(r.Context(), hotel)
		}
		if err != nil {
			out.Rejected++
			out.Errors = append(out.Errors, "row "+strconv.Itoa(i+1)+": "+err.Error())
			continue
		}
		h.queueHotel(r.Context(), hotel)
		out.Accepted++
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusOK, out)
}

// UploadReviews handles POST /api/v1/reviews/upload.
func (h *Handler) UploadReviews(w http.ResponseWriter, r *http.Request) {
	rows, header, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	var out uploadOutcome
	for i, rec := range rows {
		review, err := reviewFromUploadRow(header, rec)
		if err == nil {
			_, err = h.stores.Hotels.Get(r.Context(), review.HotelID)
			if err == nil {
				_, err = h.stores.Reviews.Add(r.Context(), review)
			}
		}
		if err != nil {
			out.Rejected++
			out.Errors = append(out.Errors, "row "+strconv.Itoa(i+1)+": "+err.Error())
			continue
		}
		h.queueReview(r.Context(), review)
		out.Accepted++
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) openUpload(w http.ResponseWriter, r *http.Request) (rows [][]string, header map[string]int, ok bool) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing multipart file field")
		return nil, nil, false
	}
	defer file.Close()

	rd := csv.NewReader(file)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil && err != io.EOF {
		h.writeError(w, http.StatusBadRequest, "unparseable CSV: "+err.Error())
		return nil, nil, false
	}
	if len(records) < 1 {
		h.writeError(w, http.StatusBadRequest, "empty CSV")
		return nil, nil, false
	}
	header = make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return records[1:], header, true
}

// queueHotel hands a stored hotel to the async pipeline, or indexes it
// inline when Kafka is disabled.
func (h *Handler) queueHotel(ctx context.Context, hotel *store.Hotel) {
	if h.publisher != nil {
		if err := h.publisher.PublishHotel(ctx, hotel); err != nil {
			h.logger.Error("queueing hotel for indexing failed", "hotel_id", hotel.HotelID, "error", err)
		}
		return
	}
	if err := h.indexer.IndexHotel(ctx, hotel); err != nil {
		h.logger.Error("indexing hotel failed", "hotel_id", hotel.HotelID, "error", err)
	}
}

func (h *Handler) queueReview(ctx context.Context, review *store.Review) {
	if h.publisher != nil {
		if err := h.publisher.PublishReview(ctx, review); err != nil {
			h.logger.Error("queueing review for indexing failed", "rev_id", review.RevID, "error", err)
		}
		return
	}
	if err := h.indexer.IndexReview(ctx, review); err != nil {
		h.logger.Error("indexing review failed", "rev_id", review.RevID, "error", err)
	}
}

func (h *Handler) invalidateCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Error("invalidating query cache failed", "error", err)
	}
}

func (h *Handler) serveError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(message, "error", err, "status_code", status)
		h.writeError(w, status, message)
		return
	}
	log.Warn(message, "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
