package lexicon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLexicon(t *testing.T) (*Lexicon, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.json")
	lex, err := Open(path)
	require.NoError(t, err)
	return lex, path
}

func TestGetOrAssignRoundTrip(t *testing.T) {
	lex, _ := tempLexicon(t)

	id := lex.GetOrAssign("palace")
	got, ok := lex.Lookup("palace")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	word, ok := lex.Word(id)
	assert.True(t, ok)
	assert.Equal(t, "palace", word)
}

func TestGetOrAssignIsStable(t *testing.T) {
	lex, _ := tempLexicon(t)

	first := lex.GetOrAssign("grand")
	second := lex.GetOrAssign("grand")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, lex.Size())
}

func TestIDsAreMonotonic(t *testing.T) {
	lex, _ := tempLexicon(t)

	a := lex.GetOrAssign("a")
	b := lex.GetOrAssign("b")
	c := lex.GetOrAssign("c")
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, c)
}

func TestPersistAndReload(t *testing.T) {
	lex, path := tempLexicon(t)

	ids := map[string]int{}
	for _, token := range []string{"grand", "palace", "paris", "inn"} {
		ids[token] = lex.GetOrAssign(token)
	}
	require.True(t, lex.Dirty())
	require.NoError(t, lex.Persist())
	assert.False(t, lex.Dirty())

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, len(ids), reloaded.Size())
	for token, id := range ids {
		got, ok := reloaded.Lookup(token)
		assert.True(t, ok, token)
		assert.Equal(t, id, got, token)
	}

	// New assignments continue past the reloaded max ID.
	next := reloaded.GetOrAssign("fresh")
	assert.Equal(t, len(ids), next)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	lex, err := Open(filepath.Join(t.TempDir(), "nope", "lexicon.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, lex.Size())
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	lex, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, lex.Size())
	assert.Equal(t, 0, lex.GetOrAssign("first"))
}

func TestConcurrentAssignments(t *testing.T) {
	lex, _ := tempLexicon(t)

	tokens := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, tok := range tokens {
				lex.GetOrAssign(tok)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(tokens), lex.Size())
	seen := map[int]bool{}
	for _, tok := range tokens {
		id, ok := lex.Lookup(tok)
		assert.True(t, ok)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}
