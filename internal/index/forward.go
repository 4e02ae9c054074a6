package index

import (
	"github.com/FinesserULTRA/Search-Engine/internal/lexicon"
	"github.com/FinesserULTRA/Search-Engine/internal/tokenizer"
)

// BuildEntry tokenizes a document's fields in the order given and produces
// its forward-index entry, assigning lexicon IDs to previously unseen
// tokens. The position counter is shared across fields, so a token at the
// start of the second field continues where the first field left off.
func BuildEntry(tok *tokenizer.Tokenizer, lex *lexicon.Lexicon, fields []Field) ForwardEntry {
	entry := ForwardEntry{
		WordCounts:    make(map[int]int),
		FieldMatches:  make(map[string][]int),
		WordPositions: make(map[int][]int),
	}
	pos := 0
	for _, field := range fields {
		tokens := tok.Tokenize(field.Text)
		if len(tokens) == 0 {
			continue
		}
		seen := make(map[int]bool, len(tokens))
		for _, t := range tokens {
			id := lex.GetOrAssign(t)
			entry.WordCounts[id]++
			entry.WordPositions[id] = append(entry.WordPositions[id], pos)
			if !seen[id] {
				entry.FieldMatches[field.Name] = append(entry.FieldMatches[field.Name], id)
				seen[id] = true
			}
			pos++
		}
	}
	return entry
}

// FieldsOf returns the token IDs whose postings should name fieldName for
// the given entry, i.e. the entry's field_matches list for that field.
func (e ForwardEntry) FieldsOf(tokenID int) []string {
	var out []string
	for name, ids := range e.FieldMatches {
		for _, id := range ids {
			if id == tokenID {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Postings expands a forward entry into the document's postings, one per
// distinct token, ready for upsert into the inverted index.
func (e ForwardEntry) Postings(docID string) map[int]Posting {
	out := make(map[int]Posting, len(e.WordCounts))
	for tokenID, count := range e.WordCounts {
		out[tokenID] = Posting{
			ID:        docID,
			Freq:      count,
			Fields:    e.FieldsOf(tokenID),
			Positions: append([]int(nil), e.WordPositions[tokenID]...),
		}
	}
	return out
}
