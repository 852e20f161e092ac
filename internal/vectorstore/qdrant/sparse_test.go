package qdrant

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSparseDeterministic(t *testing.T) {
	text := "hybrid search combines dense and sparse retrieval"

	i1, v1 := encodeSparse(text)
	i2, v2 := encodeSparse(text)

	assert.Equal(t, i1, i2)
	assert.Equal(t, v1, v2)
	assert.NotEmpty(t, i1)
}

func TestEncodeSparseIndicesSorted(t *testing.T) {
	indices, values := encodeSparse("the quick brown fox jumps over the lazy dog")

	require.Equal(t, len(indices), len(values))
	assert.True(t, sort.SliceIsSorted(indices, func(i, j int) bool {
		return indices[i] < indices[j]
	}))
}

func TestEncodeSparseTermFrequency(t *testing.T) {
	// "repeat" appears three times, "once" once. Weights are 1 + ln(tf).
	indices, values := encodeSparse("repeat repeat repeat once")
	require.Len(t, indices, 2)

	var maxVal, minVal float32 = values[0], values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
		if v < minVal {
			minVal = v
		}
	}

	assert.InDelta(t, 1.0, float64(minVal), 1e-6)
	assert.InDelta(t, 1+math.Log(3), float64(maxVal), 1e-6)
}

func TestEncodeSparseCaseInsensitive(t *testing.T) {
	i1, _ := encodeSparse("Vector Database")
	i2, _ := encodeSparse("vector database")

	assert.Equal(t, i1, i2)
}

func TestEncodeSparseDropsShortTokens(t *testing.T) {
	// Single-rune fragments carry no signal.
	indices, values := encodeSparse("a b c")
	assert.Nil(t, indices)
	assert.Nil(t, values)
}

func TestEncodeSparseEmptyInput(t *testing.T) {
	indices, values := encodeSparse("")
	assert.Nil(t, indices)
	assert.Nil(t, values)

	indices, values = encodeSparse("   \t\n")
	assert.Nil(t, indices)
	assert.Nil(t, values)
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	tokens := tokenize("semantic-search, cache: hit/miss!")
	assert.Equal(t, []string{"semantic", "search", "cache", "hit", "miss"}, tokens)
}
