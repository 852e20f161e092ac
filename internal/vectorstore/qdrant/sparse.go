package qdrant

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
)

// encodeSparse converts raw text into a hashed bag-of-words sparse vector:
// each token maps to a 32-bit FNV-1a index with a log-scaled term frequency
// as its weight. The collection's sparse field is configured with the IDF
// modifier, so inverse document frequency is applied server-side at query
// time; the client only contributes term frequencies.
//
// The encoding is deterministic: identical input always yields identical
// indices and values, with indices sorted ascending.
func encodeSparse(text string) ([]uint32, []float32) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	counts := make(map[uint32]int, len(tokens))
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		counts[h.Sum32()]++
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(1 + math.Log(float64(counts[idx])))
	}
	return indices, values
}

// tokenize lowercases and splits on non-letter, non-digit runes, dropping
// single-rune fragments.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
