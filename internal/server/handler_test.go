package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/searcher"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/health"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

// newTestServer stands up the full synchronous stack: CSV stores, fresh
// index, no Kafka publisher, no Redis cache.
func newTestServer(t *testing.T) (*httptest.Server, *store.Stores) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Index.Dir = filepath.Join(dir, "index")
	cfg.Index.ForwardBatchSize = 1000
	cfg.Index.InvertedBatchSize = 1000

	hotels, err := store.OpenCSVHotels(cfg.Storage.DataDir)
	require.NoError(t, err)
	reviews, err := store.OpenCSVReviews(cfg.Storage.DataDir, cfg.Storage.ReviewBatchSize)
	require.NoError(t, err)
	stores := &store.Stores{Hotels: hotels, Reviews: reviews}

	hotelIdx, err := index.OpenStorage(cfg.Index, index.TargetHotels)
	require.NoError(t, err)
	reviewIdx, err := index.OpenStorage(cfg.Index, index.TargetReviews)
	require.NoError(t, err)
	lex, err := lexicon.Open(filepath.Join(cfg.Index.Dir, "lexicon.json"))
	require.NoError(t, err)
	sentiments, err := sentiment.OpenStore(filepath.Join(cfg.Index.Dir, "doc_sentiment.json"))
	require.NoError(t, err)

	m := metrics.NewWith(prometheus.NewRegistry())
	ix := indexer.New(*cfg, lex, hotelIdx, reviewIdx, sentiments, nil, m)
	engine := searcher.New(*cfg, lex, hotelIdx, reviewIdx, stores, sentiments, nil, m)

	checker := health.NewChecker()
	checker.Register("lexicon", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := New(stores, engine, ix, nil, nil)
	srv := httptest.NewServer(Router(h, checker, m, 5*time.Second, 0))
	t.Cleanup(srv.Close)
	return srv, stores
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createHotel(t *testing.T, srv *httptest.Server, name, locality string) store.Hotel {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/v1/hotels", map[string]any{
		"name": name, "region_id": "r1", "region": "Ile-de-France",
		"street-address": "1 Rue de Rivoli", "locality": locality,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[store.Hotel](t, resp)
}

func TestCreateAndGetHotel(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createHotel(t, srv, "Grand Palace", "Paris")
	assert.Equal(t, 1, created.HotelID)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/hotels/%d", srv.URL, created.HotelID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Hotel   store.Hotel    `json:"hotel"`
		Reviews []store.Review `json:"reviews"`
	}](t, resp)
	assert.Equal(t, "Grand Palace", body.Hotel.Name)
	assert.Empty(t, body.Reviews)
}

func TestGetHotelNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/hotels/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/hotels/not-a-number")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateHotelValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/hotels", map[string]any{"name": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(srv.URL+"/api/v1/hotels", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestCreateReviewRequiresHotel(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/reviews", map[string]any{
		"hotel_id": 42, "title": "Nice", "text": "Great palace",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWriteThenSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	h := createHotel(t, srv, "Grand Palace", "Paris")
	resp := postJSON(t, srv.URL+"/api/v1/reviews", map[string]any{
		"hotel_id": h.HotelID, "title": "Stunning balcony", "text": "The balcony view at sunset",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	get, err := http.Get(srv.URL + "/api/v1/search?q=balcony&target=reviews")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.StatusCode)
	body := decode[searcher.Response](t, get)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "review", body.Results[0].Type)
	require.NotNil(t, body.Results[0].ReviewHotel)
	assert.Equal(t, h.HotelID, body.Results[0].ReviewHotel.HotelID)
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/search?q=palace&limit=-3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/search?q=palace&class=five")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func uploadCSV(t *testing.T, url, csvBody string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "upload.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestUploadHotelsRowIsolation(t *testing.T) {
	srv, stores := newTestServer(t)

	csvBody := "name,region_id,region,street-address,locality\n" +
		"Grand Palace,r1,Ile-de-France,1 Rue de Rivoli,Paris\n" +
		",r1,Ile-de-France,2 Rue de Rivoli,Paris\n" +
		"Palace Inn,r1,Cote d'Azur,3 Promenade,Nice\n"
	resp := uploadCSV(t, srv.URL+"/api/v1/hotels/upload", csvBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	outcome := decode[uploadOutcome](t, resp)
	assert.Equal(t, 2, outcome.Accepted)
	assert.Equal(t, 1, outcome.Rejected)
	assert.Len(t, outcome.Errors, 1)

	all, err := stores.Hotels.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUploadReviews(t *testing.T) {
	srv, _ := newTestServer(t)
	h := createHotel(t, srv, "Grand Palace", "Paris")

	csvBody := "hotel_id,title,text\n" +
		fmt.Sprintf("%d,Lovely,Spotless rooms and friendly staff\n", h.HotelID)
	resp := uploadCSV(t, srv.URL+"/api/v1/reviews/upload", csvBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	outcome := decode[uploadOutcome](t, resp)
	assert.Equal(t, 1, outcome.Accepted)
	assert.Zero(t, outcome.Rejected)

	get, err := http.Get(srv.URL + "/api/v1/search?q=spotless&target=reviews")
	require.NoError(t, err)
	body := decode[searcher.Response](t, get)
	assert.Equal(t, 1, body.Count)
}

func TestUploadMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/hotels/upload", "text/plain", strings.NewReader("nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "test-id-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "test-id-123", resp.Header.Get("X-Request-ID"))
}
