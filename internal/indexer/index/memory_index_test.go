package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComputesTermFrequencies(t *testing.T) {
	mi := NewMemoryIndex(4)
	mi.Add(1, []string{"пушистый", "кот", "пушистый", "хвост"})

	assert.Equal(t, map[string]float64{
		"пушистый": 0.5,
		"кот":      0.25,
		"хвост":    0.25,
	}, mi.DocTerms(1))

	pl, ok := mi.Postings("пушистый")
	require.True(t, ok)
	assert.Equal(t, PostingList{1: 0.5}, pl)
	assert.True(t, mi.Contains("кот", 1))
	assert.False(t, mi.Contains("кот", 2))
	require.NoError(t, mi.CheckConsistency())
}

func TestAddWithoutTokens(t *testing.T) {
	mi := NewMemoryIndex(4)
	mi.Add(3, nil)

	assert.False(t, mi.HasRow(3))
	assert.Empty(t, mi.DocTerms(3))
	assert.Equal(t, 0, mi.Docs())
}

func TestTermsAreInterned(t *testing.T) {
	mi := NewMemoryIndex(4)
	mi.Add(1, []string{"cat", "dog"})
	mi.Add(2, []string{"cat"})

	assert.Equal(t, 2, mi.terms.Len())
	assert.Equal(t, 2, mi.Terms())
}

func TestRemoveStrategiesLeaveIdenticalState(t *testing.T) {
	build := func() *MemoryIndex {
		mi := NewMemoryIndex(3)
		for doc := 0; doc < 20; doc++ {
			tokens := make([]string, 0, 8)
			for w := 0; w < 8; w++ {
				tokens = append(tokens, fmt.Sprintf("w%d", (doc*3+w)%11))
			}
			mi.Add(doc, tokens)
		}
		return mi
	}

	seq := build()
	par := build()
	for _, doc := range []int{4, 0, 19, 7, 7, 42} {
		seq.Remove(doc, false, 0)
		par.Remove(doc, true, 4)
	}

	require.NoError(t, seq.CheckConsistency())
	require.NoError(t, par.CheckConsistency())
	assert.Equal(t, seq.Snapshot(), par.Snapshot())
	assert.Equal(t, 16, seq.Docs())
	for _, doc := range []int{4, 0, 19, 7} {
		assert.Empty(t, par.DocTerms(doc))
	}
}

func TestRemoveLeavesOtherRowsUntouched(t *testing.T) {
	mi := NewMemoryIndex(2)
	mi.Add(1, []string{"a", "b", "c"})
	mi.Add(2, []string{"b", "c", "c"})
	before := mi.DocTerms(2)

	mi.Add(3, []string{"a", "c"})
	mi.Remove(3, true, 0)

	assert.Equal(t, before, mi.DocTerms(2))
	assert.Equal(t, PostingList{1: 1.0 / 3}, mustPostings(t, mi, "a"))
	require.NoError(t, mi.CheckConsistency())
}

func TestRemoveDropsEmptyPostingLists(t *testing.T) {
	mi := NewMemoryIndex(2)
	mi.Add(1, []string{"solo"})
	mi.Remove(1, false, 0)

	_, ok := mi.Postings("solo")
	assert.False(t, ok)
	assert.Equal(t, 0, mi.Terms())
}

func TestSnapshotIsSortedByTerm(t *testing.T) {
	mi := NewMemoryIndex(8)
	mi.Add(1, []string{"zebra", "apple", "mango"})
	snap := mi.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "apple", snap[0].Term)
	assert.Equal(t, "mango", snap[1].Term)
	assert.Equal(t, "zebra", snap[2].Term)
}

func mustPostings(t *testing.T, mi *MemoryIndex, term string) PostingList {
	t.Helper()
	pl, ok := mi.Postings(term)
	require.True(t, ok, "term %q", term)
	return pl
}
