// Package benchmark contains Go benchmarks for the tokenizer, the index
// write path, and the search pipeline, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/FinesserULTRA/Search-Engine/internal/index"
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/tokenizer"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
)

func benchStorage(b *testing.B) (*index.Storage, *lexicon.Lexicon) {
	b.Helper()
	dir := b.TempDir()
	cfg := config.IndexConfig{
		Dir:               dir,
		ForwardBatchSize:  50000,
		InvertedBatchSize: 20000,
		CacheSize:         5,
	}
	s, err := index.OpenStorage(cfg, index.TargetHotels)
	if err != nil {
		b.Fatal(err)
	}
	lex, err := lexicon.Open(filepath.Join(dir, "lexicon.json"))
	if err != nil {
		b.Fatal(err)
	}
	return s, lex
}

// BenchmarkBuildEntry measures forward-entry construction without disk I/O.
func BenchmarkBuildEntry(b *testing.B) {
	_, lex := benchStorage(b)
	tok := tokenizer.New()
	fields := []index.Field{
		{Name: "name", Text: "Grand Palace Hotel"},
		{Name: "locality", Text: "Paris"},
		{Name: "street-address", Text: "1 Rue de Rivoli"},
		{Name: "region", Text: "Ile-de-France"},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		entry := index.BuildEntry(tok, lex, fields)
		_ = entry
	}
}

// BenchmarkApplyDocument measures the full incremental write path: forward
// shard update plus inverted posting upsert per document.
func BenchmarkApplyDocument(b *testing.B) {
	s, lex := benchStorage(b)
	tok := tokenizer.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fields := []index.Field{
			{Name: "name", Text: fmt.Sprintf("Seaside Resort %d", i)},
			{Name: "locality", Text: "Biarritz"},
		}
		if err := s.ApplyDocument(i, index.BuildEntry(tok, lex, fields)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRebuild measures the parallel inverted rebuild over a 1000
// document forward index.
func BenchmarkRebuild(b *testing.B) {
	s, lex := benchStorage(b)
	tok := tokenizer.New()
	for i := 0; i < 1000; i++ {
		fields := []index.Field{
			{Name: "name", Text: fmt.Sprintf("Hotel Number %d with harbour view", i)},
			{Name: "locality", Text: "Lisbon"},
		}
		if err := s.ApplyDocument(i, index.BuildEntry(tok, lex, fields)); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Rebuild(context.Background(), 4); err != nil {
			b.Fatal(err)
		}
	}
}
