package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tok := New()
	assert.Equal(t, []string{"grand", "palace", "hotel"}, tok.Tokenize("Grand Palace Hotel"))
}

func TestTokenizeRemovesStopWords(t *testing.T) {
	tok := New()
	got := tok.Tokenize("the room was clean and quiet")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "and")
	assert.Contains(t, got, "room")
}

func TestTokenizeStripsURLs(t *testing.T) {
	tok := New()
	got := tok.Tokenize("book at https://example.com/deals now")
	assert.NotContains(t, got, "example")
	assert.NotContains(t, got, "com")
	assert.Contains(t, got, "book")
	assert.Contains(t, got, "now")
}

func TestTokenizeSkipsSingleCharacters(t *testing.T) {
	tok := New()
	assert.Empty(t, tok.Tokenize("a b c 1"))
}

func TestTokenizeEmptyInput(t *testing.T) {
	tok := New()
	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("   !!! ..."))
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := New()
	first := tok.Tokenize("Lovely stay, wonderful staff!")
	second := tok.Tokenize("Lovely stay, wonderful staff!")
	assert.Equal(t, first, second)
}

func TestStemSharedByIndexAndQuery(t *testing.T) {
	tok := New()
	// Plural and singular forms must collapse to the same token or queries
	// silently miss documents.
	assert.Equal(t, tok.Tokenize("view"), tok.Tokenize("views"))
	assert.Equal(t, tok.Tokenize("balcony"), tok.Tokenize("balconies"))
}
