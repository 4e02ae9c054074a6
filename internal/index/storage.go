package index

import (
	"path/filepath"

	"github.com/FinesserULTRA/Search-Engine/internal/barrel"
	"github.com/FinesserULTRA/Search-Engine/pkg/config"
)

// Storage bundles the forward and inverted shard stores of one target.
type Storage struct {
	Target   Target
	Forward  *barrel.Store[ForwardEntry]
	Inverted *barrel.Store[PostingGroup]
}

// OpenStorage opens the shard stores of one target under the configured
// index directory: {dir}/forward/{target} and {dir}/inverted/{target}.
func OpenStorage(cfg config.IndexConfig, target Target) (*Storage, error) {
	fwd, err := barrel.New[ForwardEntry](
		filepath.Join(cfg.Dir, "forward", string(target)),
		"forward_index",
		cfg.ForwardBatchSize, cfg.CacheSize, cfg.StrictCorrupt,
	)
	if err != nil {
		return nil, err
	}
	inv, err := barrel.New[PostingGroup](
		filepath.Join(cfg.Dir, "inverted", string(target)),
		"inverted_index",
		cfg.InvertedBatchSize, cfg.CacheSize, cfg.StrictCorrupt,
	)
	if err != nil {
		return nil, err
	}
	return &Storage{Target: target, Forward: fwd, Inverted: inv}, nil
}

// FieldsFor returns the canonical field order of a target.
func FieldsFor(target Target) []string {
	if target == TargetHotels {
		return HotelFields
	}
	return ReviewFields
}
