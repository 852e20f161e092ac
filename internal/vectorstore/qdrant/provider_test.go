package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minirag/minirag/internal/vectorstore"
)

func TestSearchQueryHybrid(t *testing.T) {
	q := searchQuery("collection_42", []float32{1, 0, 0}, 5, "alpha beta")

	assert.Equal(t, "collection_42", q.CollectionName)
	require.NotNil(t, q.Limit)
	assert.Equal(t, uint64(5), *q.Limit)

	// Both fields prefetched with the same limit, fused server-side; the
	// top-level query carries no vector or field of its own.
	require.Len(t, q.Prefetch, 2)
	assert.Equal(t, denseField, *q.Prefetch[0].Using)
	assert.Equal(t, uint64(5), *q.Prefetch[0].Limit)
	assert.NotNil(t, q.Prefetch[0].Query.GetNearest())
	assert.Equal(t, sparseField, *q.Prefetch[1].Using)
	assert.Equal(t, uint64(5), *q.Prefetch[1].Limit)

	assert.Equal(t, qdrant.Fusion_DBSF, q.Query.GetFusion())
	assert.Nil(t, q.Using)
}

func TestSearchQueryDenseOnlyWithoutText(t *testing.T) {
	for _, text := range []string{"", "   ", "!!! ???"} {
		q := searchQuery("collection_42", []float32{1, 0, 0}, 3, text)

		assert.Empty(t, q.Prefetch, "text %q", text)
		require.NotNil(t, q.Using, "text %q", text)
		assert.Equal(t, denseField, *q.Using)
		require.NotNil(t, q.Query.GetNearest(), "text %q", text)
		assert.Equal(t, []float32{1, 0, 0}, q.Query.GetNearest().GetDense().GetData())
	}
}

func TestPointCarriesSparseFieldFromText(t *testing.T) {
	p := New(Config{}, nil)

	pt := p.point(vectorstore.Record{ID: 7, Text: "alpha beta", Vector: []float32{1, 0}})
	fields := pt.Vectors.GetVectors().GetVectors()
	assert.Contains(t, fields, denseField)
	assert.Contains(t, fields, sparseField)

	// No usable terms, no sparse field on the point.
	pt = p.point(vectorstore.Record{ID: 8, Text: "", Vector: []float32{1, 0}})
	fields = pt.Vectors.GetVectors().GetVectors()
	assert.Contains(t, fields, denseField)
	assert.NotContains(t, fields, sparseField)
}
