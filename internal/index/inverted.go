package index

import (
	"fmt"
	"strconv"

	"github.com/FinesserULTRA/Search-Engine/internal/barrel"
)

// ApplyDocument persists a document's forward entry and folds its postings
// into the inverted index. Postings are grouped by owning shard so each
// touched shard is loaded and written once. The posting upsert replaces any
// previous posting for the document, so re-applying the same document is a
// no-op rather than a double count.
func (s *Storage) ApplyDocument(docID int, entry ForwardEntry) error {
	fwdKey := s.Forward.KeyFor(docID)
	docKey := strconv.Itoa(docID)
	if err := s.Forward.Update(fwdKey, func(contents map[string]ForwardEntry) {
		contents[docKey] = entry
	}); err != nil {
		return fmt.Errorf("writing forward entry for doc %d: %w", docID, err)
	}

	postings := entry.Postings(docKey)
	byShard := make(map[barrel.Key][]int)
	for tokenID := range postings {
		key := s.Inverted.KeyFor(tokenID)
		byShard[key] = append(byShard[key], tokenID)
	}
	for shardKey, tokenIDs := range byShard {
		err := s.Inverted.Update(shardKey, func(contents map[string]PostingGroup) {
			for _, tokenID := range tokenIDs {
				group := contents[strconv.Itoa(tokenID)].Clone()
				group.Upsert(postings[tokenID])
				group.Normalize()
				contents[strconv.Itoa(tokenID)] = group
			}
		})
		if err != nil {
			return fmt.Errorf("updating inverted shard %s for doc %d: %w", shardKey, docID, err)
		}
	}
	return nil
}

// PostingsFor loads the posting group of one token, or an empty group when
// the token has no postings.
func (s *Storage) PostingsFor(tokenID int) (PostingGroup, error) {
	shard, err := s.Inverted.Load(s.Inverted.KeyFor(tokenID))
	if err != nil {
		return PostingGroup{}, err
	}
	return shard[strconv.Itoa(tokenID)], nil
}

// ForwardEntryFor loads one document's forward entry. ok is false when the
// document has never been indexed.
func (s *Storage) ForwardEntryFor(docID int) (ForwardEntry, bool, error) {
	shard, err := s.Forward.Load(s.Forward.KeyFor(docID))
	if err != nil {
		return ForwardEntry{}, false, err
	}
	entry, ok := shard[strconv.Itoa(docID)]
	return entry, ok, nil
}
