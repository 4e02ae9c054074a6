// Package index defines the forward and inverted index records, the merge
// semantics between them, and the batch rebuild pipeline.
package index

import (
	"slices"
	"sort"
	"strconv"
)

// Target identifies which document collection an index belongs to.
type Target string

const (
	TargetHotels  Target = "hotels"
	TargetReviews Target = "reviews"
)

// HotelFields is the canonical field order for hotel documents. Field order
// matters: the per-document position counter runs across all fields in this
// order.
var HotelFields = []string{"name", "locality", "street-address", "region"}

// ReviewFields is the canonical field order for review documents.
var ReviewFields = []string{"title", "text"}

// Field is one named field value of a document being indexed.
type Field struct {
	Name string
	Text string
}

// ForwardEntry is the per-document record in the forward index: token counts,
// per-field token ID lists, and token positions within the document. Position
// is a single monotonic counter across all fields in canonical order.
type ForwardEntry struct {
	WordCounts    map[int]int      `json:"word_counts"`
	FieldMatches  map[string][]int `json:"field_matches"`
	WordPositions map[int][]int    `json:"word_positions"`
}

// Posting records one document's occurrences of a token in the inverted
// index.
type Posting struct {
	ID        string   `json:"id"`
	Freq      int      `json:"freq"`
	Fields    []string `json:"fields"`
	Positions []int    `json:"positions"`
}

// PostingGroup is the inverted-index record for one token: the list of
// documents it occurs in. At most one posting exists per document.
type PostingGroup struct {
	Docs []Posting `json:"docs"`
}

// Upsert replaces the posting for p.ID with p, or appends it if the document
// has no posting yet. Replacement (rather than accumulate) makes re-applying
// the same document update idempotent under retry.
// Clone returns a deep copy of the group. Upsert and Normalize mutate
// posting slices in place, so shard updates clone the stored group first to
// keep previously published shard snapshots untouched.
func (g PostingGroup) Clone() PostingGroup {
	if g.Docs == nil {
		return PostingGroup{}
	}
	docs := make([]Posting, len(g.Docs))
	for i, p := range g.Docs {
		docs[i] = Posting{
			ID:        p.ID,
			Freq:      p.Freq,
			Fields:    slices.Clone(p.Fields),
			Positions: slices.Clone(p.Positions),
		}
	}
	return PostingGroup{Docs: docs}
}

func (g *PostingGroup) Upsert(p Posting) {
	for i := range g.Docs {
		if g.Docs[i].ID == p.ID {
			g.Docs[i] = p
			return
		}
	}
	g.Docs = append(g.Docs, p)
}

// Merge folds another group's postings into g. Postings for documents not
// yet present are appended; postings for documents already present have
// their frequencies summed, fields unioned, and positions appended. Used by
// the batch-rebuild reduce step, where partial groups never carry more than
// one posting per document.
func (g *PostingGroup) Merge(other PostingGroup) {
	for _, p := range other.Docs {
		merged := false
		for i := range g.Docs {
			if g.Docs[i].ID != p.ID {
				continue
			}
			g.Docs[i].Freq += p.Freq
			for _, f := range p.Fields {
				if !slices.Contains(g.Docs[i].Fields, f) {
					g.Docs[i].Fields = append(g.Docs[i].Fields, f)
				}
			}
			g.Docs[i].Positions = append(g.Docs[i].Positions, p.Positions...)
			merged = true
			break
		}
		if !merged {
			g.Docs = append(g.Docs, p)
		}
	}
}

// Normalize sorts postings by numeric document ID and orders each posting's
// fields and positions. After Normalize, a sequential rebuild and a parallel
// rebuild of the same corpus are byte-identical on disk.
func (g *PostingGroup) Normalize() {
	for i := range g.Docs {
		sort.Ints(g.Docs[i].Positions)
		sort.Strings(g.Docs[i].Fields)
	}
	sort.Slice(g.Docs, func(i, j int) bool {
		return docIDLess(g.Docs[i].ID, g.Docs[j].ID)
	})
}

// docIDLess orders document IDs numerically where possible, falling back to
// lexicographic order for non-numeric IDs.
func docIDLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
