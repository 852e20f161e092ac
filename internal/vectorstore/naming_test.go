package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "collection_42", CollectionName(42))
	assert.Equal(t, "collection_1", CollectionName(1))
}

func TestCacheName(t *testing.T) {
	assert.Equal(t, "cache_collection_42", CacheName(42))
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "collection_42_vector_idx", IndexName(CollectionName(42)))
}

func TestNamingIsDeterministic(t *testing.T) {
	assert.Equal(t, CollectionName(7), CollectionName(7))
	assert.Equal(t, CacheName(7), CacheName(7))
}
