package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []Document {
	return []Document{
		{Name: "calendar.md", Chunks: []string{
			"Summer Beverages 1997 ran from 1997-06-01 to 1997-08-31 and promoted beverages.",
			"Winter Classics 1997 covered the winter season with classic confections.",
		}},
		{Name: "returns.md", Chunks: []string{
			"Unopened beverages may be returned within 14 days of purchase.",
			"Perishable produce cannot be returned after delivery.",
		}},
	}
}

func TestSearch_RanksRelevantChunkFirst(t *testing.T) {
	idx := NewIndex(testDocs(), Options{})

	hits := idx.Search("return window for unopened beverages", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "returns.md", hits[0].Source)
	assert.Equal(t, 0, hits[0].Index)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearch_Deterministic(t *testing.T) {
	idx := NewIndex(testDocs(), Options{})

	first := idx.Search("beverages 1997", 4)
	for range 10 {
		again := idx.Search("beverages 1997", 4)
		require.Equal(t, first, again)
	}
}

func TestSearch_TieBreakBySourceThenIndex(t *testing.T) {
	docs := []Document{
		{Name: "b.md", Chunks: []string{"zebra zebra unique"}},
		{Name: "a.md", Chunks: []string{"zebra zebra unique"}},
	}
	idx := NewIndex(docs, Options{})

	hits := idx.Search("zebra unique", 2)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "a.md", hits[0].Source)
	assert.Equal(t, "b.md", hits[1].Source)
}

func TestSearch_EmptyAndOOVQueries(t *testing.T) {
	idx := NewIndex(testDocs(), Options{})

	assert.Empty(t, idx.Search("", 5))
	assert.Empty(t, idx.Search("xylophone quasar", 5))
	assert.Empty(t, idx.Search("beverages", 0))
}

func TestSearch_RespectsK(t *testing.T) {
	idx := NewIndex(testDocs(), Options{})

	hits := idx.Search("beverages returned 1997", 1)
	assert.Len(t, hits, 1)
}

func TestSearch_ScoresDescending(t *testing.T) {
	idx := NewIndex(testDocs(), Options{})

	hits := idx.Search("beverages winter returned", 10)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSplitChunks(t *testing.T) {
	text := "First paragraph long enough to keep.\r\n\r\nshort\n\nSecond paragraph also long enough."
	chunks := SplitChunks(text, 20)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph long enough to keep.", chunks[0])
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Beta document body with plenty of text.\n\nSecond beta chunk with plenty of text."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("Alpha document body with plenty of text."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("not markdown"), 0o644))

	docs, err := LoadCorpus(dir, 20)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Name)
	assert.Equal(t, "b.md", docs[1].Name)
	assert.Len(t, docs[1].Chunks, 2)
}

func TestLoadCorpus_EmptyIsError(t *testing.T) {
	_, err := LoadCorpus(t.TempDir(), 20)
	assert.Error(t, err)
}
