package qdrant

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcqdrant "github.com/testcontainers/testcontainers-go/modules/qdrant"

	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/vectorstore"
)

// setupQdrant starts a Qdrant container and returns a connected Provider
// and CacheProvider pointed at it. Deployments put the cache on its own
// endpoint; one server is enough here since the two keep independent
// clients either way.
func setupQdrant(t *testing.T) (*Provider, *CacheProvider, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcqdrant.Run(ctx, "qdrant/qdrant:v1.12.4")
	if err != nil {
		t.Fatalf("starting Qdrant container: %v", err)
	}

	endpoint, err := ctr.GRPCEndpoint(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("getting gRPC endpoint: %v", err)
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := Config{Host: host, Port: port, Distance: vectorstore.DistanceCosine}

	provider := New(cfg, log.NewNop())
	require.NoError(t, provider.Connect(ctx))

	cache := NewCache(cfg, log.NewNop())
	require.NoError(t, cache.Connect(ctx))

	cleanup := func() {
		_ = provider.Disconnect(ctx)
		_ = cache.Disconnect(ctx)
		_ = ctr.Terminate(ctx)
	}
	return provider, cache, cleanup
}

func TestIntegrationCollectionLifecycle(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CollectionName(42)

	created, err := provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)
	assert.True(t, created)

	// Creating again without reset is a no-op, not an error.
	created, err = provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := provider.CollectionExists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := provider.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)

	info, err := provider.GetCollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)
	assert.Equal(t, int64(0), info.RecordCount)

	deleted, err := provider.DeleteCollection(ctx, name)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting a missing collection is also a no-op.
	deleted, err = provider.DeleteCollection(ctx, name)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = provider.GetCollectionInfo(ctx, name)
	require.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestIntegrationHybridSearch(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CollectionName(42)
	_, err := provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)

	texts := []string{"alpha text", "beta text", "gamma text"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	ok, err := provider.InsertMany(ctx, name, texts, vectors, nil, []int64{1, 2, 3}, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := provider.GetCollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.RecordCount)

	// Dense and sparse signals agree on the alpha document; fusion keeps
	// it on top.
	docs, err := provider.SearchByVector(ctx, name, []float32{1, 0, 0}, 2, "alpha")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha text", docs[0].Text)
}

func TestIntegrationDenseOnlySearch(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CollectionName(42)
	_, err := provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)

	ok, err := provider.InsertMany(ctx, name,
		[]string{"alpha text", "beta text", "gamma text"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
		nil, []int64{1, 2, 3}, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// Empty query text degrades to a plain dense search with cosine scores.
	docs, err := provider.SearchByVector(ctx, name, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "alpha text", docs[0].Text)
	assert.InDelta(t, 1.0, float64(docs[0].Score), 1e-4)
	assert.Equal(t, "gamma text", docs[1].Text)
	assert.Greater(t, docs[0].Score, docs[1].Score)
}

func TestIntegrationBatchSizeIsTransparent(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	texts := []string{"alpha text", "beta text", "gamma text", "delta text", "epsilon text"}
	vectors := [][]float32{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.5, 0}, {0, 0.5, 0.5},
	}
	ids := []int64{1, 2, 3, 4, 5}

	for _, tc := range []struct {
		name      string
		batchSize int
	}{
		{"collection_small_batches", 2},
		{"collection_one_batch", 5},
	} {
		_, err := provider.CreateCollection(ctx, tc.name, 3, false)
		require.NoError(t, err)

		ok, err := provider.InsertMany(ctx, tc.name, texts, vectors, nil, ids, tc.batchSize)
		require.NoError(t, err)
		assert.True(t, ok)

		info, err := provider.GetCollectionInfo(ctx, tc.name)
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.RecordCount)
	}

	// Same data, same query, same results regardless of batch size.
	query := []float32{0.6, 0.4, 0}
	a, err := provider.SearchByVector(ctx, "collection_small_batches", query, 3, "")
	require.NoError(t, err)
	b, err := provider.SearchByVector(ctx, "collection_one_batch", query, 3, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIntegrationDimensionMismatch(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CollectionName(42)
	_, err := provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)

	_, err = provider.InsertMany(ctx, name,
		[]string{"alpha text"}, [][]float32{{1, 0}}, nil, []int64{1}, 10)
	require.ErrorIs(t, err, vectorstore.ErrPrecondition)

	_, err = provider.InsertOne(ctx, name, vectorstore.Record{
		ID: 1, Text: "alpha text", Vector: []float32{1, 0, 0, 0},
	})
	require.ErrorIs(t, err, vectorstore.ErrPrecondition)
}

func TestIntegrationInsertIntoMissingCollection(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()

	ok, err := provider.InsertMany(context.Background(), "collection_999",
		[]string{"alpha text"}, [][]float32{{1, 0, 0}}, nil, []int64{1}, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegrationCreateWithReset(t *testing.T) {
	provider, _, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CollectionName(42)
	_, err := provider.CreateCollection(ctx, name, 3, false)
	require.NoError(t, err)

	_, err = provider.InsertMany(ctx, name,
		[]string{"alpha text", "beta text"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}, nil, []int64{1, 2}, 10)
	require.NoError(t, err)

	created, err := provider.CreateCollection(ctx, name, 3, true)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := provider.GetCollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.RecordCount)
}

func TestIntegrationCache(t *testing.T) {
	_, cache, cleanup := setupQdrant(t)
	defer cleanup()
	ctx := context.Background()

	name := vectorstore.CacheName(42)

	// Probing a missing cache reports ErrNotFound.
	_, err := cache.Probe(ctx, name, []float32{1, 0, 0})
	require.ErrorIs(t, err, vectorstore.ErrNotFound)

	// Storing into a missing cache recovers locally.
	ok, err := cache.Store(ctx, name, []float32{1, 0, 0}, "orphan answer")
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := cache.CreateCache(ctx, name, 3, false)
	require.NoError(t, err)
	assert.True(t, created)

	// Empty cache probes are (nil, nil).
	hit, err := cache.Probe(ctx, name, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, hit)

	ok, err = cache.Store(ctx, name, []float32{1, 0, 0}, "the cached answer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Store(ctx, name, []float32{0, 1, 0}, "another answer")
	require.NoError(t, err)
	assert.True(t, ok)

	// Nearest neighbor by Euclidean distance, raw distance reported.
	hit, err = cache.Probe(ctx, name, []float32{0.9, 0.1, 0})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "the cached answer", hit.Record.ResponseText)
	assert.NotEqual(t, [16]byte{}, [16]byte(hit.Record.ID))
	assert.InDelta(t, 0.1414, float64(hit.Distance), 0.01)

	// A reset empties the cache.
	created, err = cache.CreateCache(ctx, name, 3, true)
	require.NoError(t, err)
	assert.True(t, created)

	hit, err = cache.Probe(ctx, name, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, hit)
}
