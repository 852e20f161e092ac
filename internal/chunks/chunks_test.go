package chunks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/testutil"
)

func TestStorePagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, "INSERT INTO projects (project_id) VALUES (1), (2)")
	require.NoError(t, err)

	store := NewStore(db.Pool, log.NewNop())

	texts := []string{"one", "two", "three", "four", "five"}
	metadatas := []map[string]any{
		{"page": float64(1)}, nil, nil, nil, nil,
	}
	ids, err := store.Insert(ctx, 1, texts, metadatas)
	require.NoError(t, err)
	require.Len(t, ids, 5)

	// A second project's chunks must not leak into the first.
	_, err = store.Insert(ctx, 2, []string{"other project"}, nil)
	require.NoError(t, err)

	count, err := store.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// Page through with limit 2: 2 + 2 + 1, then empty.
	page, err := store.Page(ctx, 1, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "one", page[0].Text)
	assert.Equal(t, map[string]any{"page": float64(1)}, page[0].Metadata)

	page, err = store.Page(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Text)

	page, err = store.Page(ctx, 1, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "five", page[0].Text)

	page, err = store.Page(ctx, 1, 6, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStoreInsertLengthMismatch(t *testing.T) {
	store := NewStore(nil, log.NewNop())

	_, err := store.Insert(context.Background(), 1,
		[]string{"one", "two"}, []map[string]any{nil})
	require.Error(t, err)
}
