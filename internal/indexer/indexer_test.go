package indexer

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/sentiment"
	"github.com/FinesserULTRA/Search-Engine/internal/store"
	"github.com/FinesserULTRA/Search-Engine/internal/tokenizer"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

type fixture struct {
	ix         *Indexer
	lex        *lexicon.Lexicon
	lexPath    string
	hotels     *index.Storage
	reviews    *index.Storage
	sentiments *sentiment.Store
}

// posAnalyzer always reports mildly positive text.
type posAnalyzer struct{}

func (posAnalyzer) Compound(string) float64 { return 0.42 }

func newFixture(t *testing.T, sentimentEnabled bool) *fixture {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Index.Dir = dir
	cfg.Index.ForwardBatchSize = 1000
	cfg.Index.InvertedBatchSize = 1000
	cfg.Sentiment.Enabled = sentimentEnabled

	hotels, err := index.OpenStorage(cfg.Index, index.TargetHotels)
	require.NoError(t, err)
	reviews, err := index.OpenStorage(cfg.Index, index.TargetReviews)
	require.NoError(t, err)
	lexPath := filepath.Join(dir, "lexicon.json")
	lex, err := lexicon.Open(lexPath)
	require.NoError(t, err)
	sentiments, err := sentiment.OpenStore(filepath.Join(dir, "doc_sentiment.json"))
	require.NoError(t, err)

	var analyzer sentiment.Analyzer
	if sentimentEnabled {
		analyzer = posAnalyzer{}
	}
	m := metrics.NewWith(prometheus.NewRegistry())
	return &fixture{
		ix:         New(*cfg, lex, hotels, reviews, sentiments, analyzer, m),
		lex:        lex,
		lexPath:    lexPath,
		hotels:     hotels,
		reviews:    reviews,
		sentiments: sentiments,
	}
}

func TestIndexHotelWritesBothIndexes(t *testing.T) {
	fx := newFixture(t, false)
	h := &store.Hotel{
		HotelID: 7, Name: "Grand Palace", RegionID: "r1",
		Region: "Ile-de-France", StreetAddress: "1 Rue de Rivoli", Locality: "Paris",
	}
	require.NoError(t, fx.ix.IndexHotel(context.Background(), h))

	entry, _, err := fx.hotels.ForwardEntryFor(7)
	require.NoError(t, err)
	require.NotNil(t, entry)

	palace := tokenizer.New().Tokenize("palace")[0]
	id, ok := fx.lex.Lookup(palace)
	require.True(t, ok)
	group, err := fx.hotels.PostingsFor(id)
	require.NoError(t, err)
	require.Len(t, group.Docs, 1)
	assert.Equal(t, "7", group.Docs[0].ID)
	assert.Equal(t, []string{"name"}, group.Docs[0].Fields)
}

func TestIndexHotelPersistsLexiconFirst(t *testing.T) {
	fx := newFixture(t, false)
	h := &store.Hotel{
		HotelID: 1, Name: "Seaside Lodge", RegionID: "r1",
		Region: "Aquitaine", StreetAddress: "2 Beach Road", Locality: "Biarritz",
	}
	require.NoError(t, fx.ix.IndexHotel(context.Background(), h))

	// A fresh lexicon handle sees every token the postings reference.
	reloaded, err := lexicon.Open(fx.lexPath)
	require.NoError(t, err)
	for _, tok := range tokenizer.New().Tokenize("seaside lodge beach road biarritz aquitaine") {
		_, ok := reloaded.Lookup(tok)
		assert.True(t, ok, "token %q missing after reload", tok)
	}
}

func TestIndexReviewRecordsSentiment(t *testing.T) {
	fx := newFixture(t, true)
	r := &store.Review{RevID: 3, HotelID: 1, Title: "Great stay", Text: "Would return"}
	require.NoError(t, fx.ix.IndexReview(context.Background(), r))

	assert.Equal(t, 0.42, fx.sentiments.Get("3"))
	entry, _, err := fx.reviews.ForwardEntryFor(3)
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestIndexReviewSentimentDisabled(t *testing.T) {
	fx := newFixture(t, false)
	r := &store.Review{RevID: 3, HotelID: 1, Title: "Great stay", Text: "Would return"}
	require.NoError(t, fx.ix.IndexReview(context.Background(), r))
	assert.Zero(t, fx.sentiments.Len())
}

func TestIndexHotelsBulkCountsOutcomes(t *testing.T) {
	fx := newFixture(t, false)
	hotels := []store.Hotel{
		{HotelID: 1, Name: "One", Region: "R", RegionID: "r", StreetAddress: "A", Locality: "L"},
		{HotelID: 2, Name: "Two", Region: "R", RegionID: "r", StreetAddress: "B", Locality: "L"},
	}
	res := fx.ix.IndexHotels(context.Background(), hotels)
	assert.Equal(t, 2, res.Indexed)
	assert.Zero(t, res.Failed)
}

func TestIndexRespectsCancelledContext(t *testing.T) {
	fx := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &store.Hotel{HotelID: 1, Name: "One", Region: "R", RegionID: "r", StreetAddress: "A", Locality: "L"}
	err := fx.ix.IndexHotel(ctx, h)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReindexAllRebuildsFromStores(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Index.Dir = filepath.Join(dir, "index")
	cfg.Index.ForwardBatchSize = 1000
	cfg.Index.InvertedBatchSize = 1000

	hotelStore, err := store.OpenCSVHotels(cfg.Storage.DataDir)
	require.NoError(t, err)
	reviewStore, err := store.OpenCSVReviews(cfg.Storage.DataDir, cfg.Storage.ReviewBatchSize)
	require.NoError(t, err)
	stores := &store.Stores{Hotels: hotelStore, Reviews: reviewStore}

	ctx := context.Background()
	h, err := hotelStore.Add(ctx, &store.Hotel{
		Name: "Grand Palace", RegionID: "r1", Region: "Ile-de-France",
		StreetAddress: "1 Rue de Rivoli", Locality: "Paris",
	})
	require.NoError(t, err)
	_, err = reviewStore.Add(ctx, &store.Review{HotelID: h.HotelID, Title: "Nice", Text: "Very nice palace"})
	require.NoError(t, err)

	hotels, err := index.OpenStorage(cfg.Index, index.TargetHotels)
	require.NoError(t, err)
	reviews, err := index.OpenStorage(cfg.Index, index.TargetReviews)
	require.NoError(t, err)
	lex, err := lexicon.Open(filepath.Join(cfg.Index.Dir, "lexicon.json"))
	require.NoError(t, err)
	sentiments, err := sentiment.OpenStore(filepath.Join(cfg.Index.Dir, "doc_sentiment.json"))
	require.NoError(t, err)
	m := metrics.NewWith(prometheus.NewRegistry())
	ix := New(*cfg, lex, hotels, reviews, sentiments, nil, m)

	require.NoError(t, ix.ReindexAll(ctx, stores))

	palace := tokenizer.New().Tokenize("palace")[0]
	id, ok := lex.Lookup(palace)
	require.True(t, ok)

	hotelGroup, err := hotels.PostingsFor(id)
	require.NoError(t, err)
	assert.Len(t, hotelGroup.Docs, 1)

	reviewGroup, err := reviews.PostingsFor(id)
	require.NoError(t, err)
	assert.Len(t, reviewGroup.Docs, 1)
	assert.Equal(t, strconv.Itoa(1), reviewGroup.Docs[0].ID)
}
