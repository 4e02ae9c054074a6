package sentiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc_sentiment.json")

	s, err := OpenStore(path)
	require.NoError(t, err)
	s.Set("1", 0.73)
	s.Set("2", -0.41)
	require.NoError(t, s.Persist())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0.73, reopened.Get("1"))
	assert.Equal(t, -0.41, reopened.Get("2"))
	assert.Equal(t, 2, reopened.Len())
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Get("1"))
}

func TestStoreCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc_sentiment.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := OpenStore(path)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestStorePersistIsNoOpWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc_sentiment.json")
	s, err := OpenStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Persist())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clean store should not write a file")
}

func TestVaderPolarity(t *testing.T) {
	a := NewVader()
	assert.Positive(t, a.Compound("Absolutely wonderful stay, the staff were amazing and kind"))
	assert.Negative(t, a.Compound("Horrible experience, dirty rooms and rude staff"))
	assert.Zero(t, a.Compound(""))
}
