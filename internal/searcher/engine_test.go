package searcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/indexer"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

type testEnv struct {
	cfg     *config.Config
	stores  *store.Stores
	indexer *indexer.Indexer
	engine  *Engine
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Index.Dir = filepath.Join(dir, "index")
	cfg.Index.ForwardBatchSize = 1000
	cfg.Index.InvertedBatchSize = 1000
	if mutate != nil {
		mutate(cfg)
	}

	hotels, err := store.OpenCSVHotels(cfg.Storage.DataDir)
	require.NoError(t, err)
	reviews, err := store.OpenCSVReviews(cfg.Storage.DataDir, cfg.Storage.ReviewBatchSize)
	require.NoError(t, err)
	stores := &store.Stores{Hotels: hotels, Reviews: reviews}

	hotelIdx, err := index.OpenStorage(cfg.Index, index.TargetHotels)
	require.NoError(t, err)
	reviewIdx, err := index.OpenStorage(cfg.Index, index.TargetReviews)
	require.NoError(t, err)
	lex, err := lexicon.Open(filepath.Join(cfg.Index.Dir, "lexicon", "lexicon.json"))
	require.NoError(t, err)
	sentiments, err := sentiment.OpenStore(filepath.Join(cfg.Index.Dir, "sentiments", "doc_sentiment.json"))
	require.NoError(t, err)

	var analyzer sentiment.Analyzer
	if cfg.Sentiment.Enabled {
		analyzer = sentiment.NewVader()
	}
	m := metrics.NewWith(prometheus.NewRegistry())
	ix := indexer.New(*cfg, lex, hotelIdx, reviewIdx, sentiments, analyzer, m)
	eng := New(*cfg, lex, hotelIdx, reviewIdx, stores, sentiments, analyzer, m)
	return &testEnv{cfg: cfg, stores: stores, indexer: ix, engine: eng}
}

func (env *testEnv) addHotel(t *testing.T, name, locality, region string, class *float64) *store.Hotel {
	t.Helper()
	h := &store.Hotel{
		Name:          name,
		RegionID:      "r1",
		Region:        region,
		StreetAddress: "10 Main Street",
		Locality:      locality,
		HotelClass:    class,
	}
	added, err := env.stores.Hotels.Add(context.Background(), h)
	require.NoError(t, err)
	require.NoError(t, env.indexer.IndexHotel(context.Background(), added))
	return added
}

func (env *testEnv) addReview(t *testing.T, hotelID int, title, text string) *store.Review {
	t.Helper()
	r := &store.Review{HotelID: hotelID, Title: title, Text: text}
	added, err := env.stores.Reviews.Add(context.Background(), r)
	require.NoError(t, err)
	require.NoError(t, env.indexer.IndexReview(context.Background(), added))
	return added
}

func fv(v float64) *float64 { return &v }

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, q := range []string{"", "the of and", "https://example.com/only"} {
		resp, err := env.engine.Search(context.Background(), Request{Query: q, Target: "hotels"})
		require.NoError(t, err)
		assert.NotNil(t, resp.Results)
		assert.Empty(t, resp.Results)
		assert.Zero(t, resp.Count)
		assert.Zero(t, resp.TotalMatches)
	}
}

func TestSearchUnknownTermsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "zzyzx", Target: "hotels"})
	require.NoError(t, err)
	assert.Zero(t, resp.Count)
}

func TestSearchIntersectionRequiresAllTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	both := env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)
	env.addHotel(t, "Grand Hotel", "Lyon", "Rhone", nil)
	env.addHotel(t, "Palace Inn", "Nice", "Cote d'Azur", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "grand palace", Target: "hotels"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, both.HotelID, resp.Results[0].Hotel.HotelID)
}

func TestSearchUnionMatchesAnyToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)
	env.addHotel(t, "Grand Hotel", "Lyon", "Rhone", nil)
	env.addHotel(t, "Palace Inn", "Nice", "Cote d'Azur", nil)
	env.addHotel(t, "Seaside Resort", "Biarritz", "Aquitaine", nil)

	resp, err := env.engine.Search(context.Background(), Request{
		Query: "grand palace", Target: "hotels", Mode: ModeUnion,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Count)

	// The hotel matching both tokens outranks single-token matches.
	assert.Equal(t, "Grand Palace", resp.Results[0].Hotel.Name)
}

func TestSearchScoreTieBreaksOnDocID(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.addHotel(t, "Seaside Resort", "Paris", "Ile-de-France", nil)
	b := env.addHotel(t, "Seaside Resort", "Paris", "Ile-de-France", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "seaside", Target: "hotels"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, a.HotelID, resp.Results[0].Hotel.HotelID)
	assert.Equal(t, b.HotelID, resp.Results[1].Hotel.HotelID)
	assert.Equal(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestSearchLocalityAndClassFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addHotel(t, "Seaside Resort", "Paris", "Ile-de-France", fv(3))
	paris5 := env.addHotel(t, "Seaside Palace", "Paris", "Ile-de-France", fv(5))
	env.addHotel(t, "Seaside Inn", "Nice", "Cote d'Azur", fv(5))

	resp, err := env.engine.Search(context.Background(), Request{
		Query:   "seaside",
		Target:  "hotels",
		Filters: Filters{Locality: "paris", MinClass: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, paris5.HotelID, resp.Results[0].Hotel.HotelID)
}

func TestSearchReviewsAttachHotelSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)
	env.addReview(t, h.HotelID, "Lovely spot", "The balcony view was stunning")

	resp, err := env.engine.Search(context.Background(), Request{Query: "balcony", Target: "reviews"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	hit := resp.Results[0]
	assert.Equal(t, "review", hit.Type)
	require.NotNil(t, hit.ReviewHotel)
	assert.Equal(t, h.HotelID, hit.ReviewHotel.HotelID)
	assert.Equal(t, "Grand Palace", hit.ReviewHotel.Name)
}

func TestSearchSiblingReviewsBoostEachOther(t *testing.T) {
	env := newTestEnv(t, nil)
	popular := env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)
	lone := env.addHotel(t, "Palace Inn", "Nice", "Cote d'Azur", nil)

	env.addReview(t, popular.HotelID, "Quiet room", "quiet comfortable night")
	env.addReview(t, popular.HotelID, "Quiet floor", "quiet comfortable night")
	env.addReview(t, lone.HotelID, "Quiet stay", "quiet comfortable night")

	resp, err := env.engine.Search(context.Background(), Request{Query: "quiet", Target: "reviews"})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Count)

	scores := make(map[int]float64)
	for _, hit := range resp.Results {
		scores[hit.Review.HotelID] = hit.Score
	}
	assert.InDelta(t, scores[lone.HotelID]+siblingBonus, scores[popular.HotelID], 1e-9)
}

func TestSearchAllTargetMixesTypes(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.addHotel(t, "Seaside Palace", "Paris", "Ile-de-France", nil)
	env.addReview(t, h.HotelID, "Seaside dream", "Waking up to the seaside every morning")

	resp, err := env.engine.Search(context.Background(), Request{Query: "seaside", Target: "all"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)
	types := []string{resp.Results[0].Type, resp.Results[1].Type}
	assert.Contains(t, types, "hotel")
	assert.Contains(t, types, "review")
}

func TestSearchInvalidTargetFallsBackToAll(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "palace", Target: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
}

func TestSearchLimitCapsResultsNotTotal(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 5; i++ {
		env.addHotel(t, "Seaside Resort", "Paris", "Ile-de-France", nil)
	}

	resp, err := env.engine.Search(context.Background(), Request{
		Query: "seaside", Target: "hotels", Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 5, resp.TotalMatches)
}

func TestSearchReindexedDocumentNotDuplicated(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.addHotel(t, "Grand Palace", "Paris", "Ile-de-France", nil)

	// Re-index the same hotel; postings must be replaced, not appended.
	require.NoError(t, env.indexer.IndexHotel(context.Background(), h))

	resp, err := env.engine.Search(context.Background(), Request{Query: "palace", Target: "hotels"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
}

func TestSearchMatchedFieldsAndTerms(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addHotel(t, "Paris Palace", "Paris", "Ile-de-France", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "paris", Target: "hotels"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	hit := resp.Results[0]
	assert.ElementsMatch(t, []string{"name", "locality"}, hit.MatchedFields)
	assert.Equal(t, []string{"pari"}, hit.MatchedTerms)
}

func TestDefaultLimitAppliedWhenRequestHasNone(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Search.DefaultLimit = 2
	})
	env.addHotel(t, "Palace One", "Paris", "Ile-de-France", nil)
	env.addHotel(t, "Palace Two", "Paris", "Ile-de-France", nil)
	env.addHotel(t, "Palace Three", "Paris", "Ile-de-France", nil)

	resp, err := env.engine.Search(context.Background(), Request{Query: "palace", Target: "hotels"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 3, resp.TotalMatches)

	resp, err = env.engine.Search(context.Background(), Request{Query: "palace", Target: "hotels", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3, "explicit limit overrides the default")
}
