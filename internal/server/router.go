package server

import (
	"net/http"
	"time"

	"github.com/FinesserULTRA/Search-Engine/pkg/health"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
	"github.com/FinesserULTRA/Search-Engine/pkg/middleware"
)

// Router assembles the API routes and the middleware chain: request ID,
// CORS, per-IP rate limiting, Prometheus metrics, and a per-request
// timeout. rateLimitPerMinute of zero disables throttling.
func Router(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration, rateLimitPerMinute int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/hotels/{id}", h.GetHotel)
	mux.HandleFunc("POST /api/v1/hotels", h.CreateHotel)
	mux.HandleFunc("POST /api/v1/reviews", h.CreateReview)
	mux.HandleFunc("POST /api/v1/hotels/upload", h.UploadHotels)
	mux.HandleFunc("POST /api/v1/reviews/upload", h.UploadReviews)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var handler http.Handler = mux
	if requestTimeout > 0 {
		handler = middleware.Timeout(requestTimeout)(handler)
	}
	handler = middleware.Metrics(m)(handler)
	if rateLimitPerMinute > 0 {
		limiter := middleware.NewRateLimiter(rateLimitPerMinute, time.Minute)
		handler = middleware.RateLimit(limiter)(handler)
	}
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	handler = middleware.RequestID(handler)
	return handler
}
