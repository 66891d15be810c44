package memory

import (
	"context"
	"errors"
	"testing"

	"firestore-copier/internal/copier/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore_SeedAndList(t *testing.T) {
	store := NewDocumentStore()
	store.Seed("src",
		model.NewDocument("b", map[string]interface{}{"x": 2}),
		model.NewDocument("a", map[string]interface{}{"x": 1}),
	)

	docs, err := store.ListDocuments(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	empty, err := store.ListDocuments(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDocumentStore_ListReturnsCopies(t *testing.T) {
	store := NewDocumentStore()
	store.Seed("src", model.NewDocument("a", map[string]interface{}{"x": 1}))

	docs, err := store.ListDocuments(context.Background(), "src")
	require.NoError(t, err)
	docs[0].Data["x"] = 99

	data, ok := store.Get("src", "a")
	require.True(t, ok)
	assert.Equal(t, 1, data["x"])
}

func TestDocumentStore_BatchCommitOverwrites(t *testing.T) {
	store := NewDocumentStore()
	store.Seed("dst", model.NewDocument("a", map[string]interface{}{"old": true, "x": 0}))

	batch := store.NewBatch()
	batch.Set("dst", "a", map[string]interface{}{"x": 1})
	batch.Set("dst", "b", map[string]interface{}{"x": 2})
	assert.Equal(t, 2, batch.Size())

	assert.Equal(t, 1, store.Count("dst"))
	require.NoError(t, batch.Commit(context.Background()))

	data, ok := store.Get("dst", "a")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"x": 1}, data)
	assert.Equal(t, 2, store.Count("dst"))
	assert.Equal(t, []int{2}, store.Commits())
}

func TestDocumentStore_StagedDataIsIsolated(t *testing.T) {
	store := NewDocumentStore()
	payload := map[string]interface{}{"x": 1}

	batch := store.NewBatch()
	batch.Set("dst", "a", payload)
	payload["x"] = 2
	require.NoError(t, batch.Commit(context.Background()))

	data, _ := store.Get("dst", "a")
	assert.Equal(t, 1, data["x"])
}

func TestDocumentStore_CommitHookRejectsWholeBatch(t *testing.T) {
	store := NewDocumentStore()
	boom := errors.New("boom")
	store.CommitHook = func(commit, size int) error {
		if commit == 2 {
			return boom
		}
		return nil
	}

	first := store.NewBatch()
	first.Set("dst", "a", nil)
	require.NoError(t, first.Commit(context.Background()))

	second := store.NewBatch()
	second.Set("dst", "b", nil)
	second.Set("dst", "c", nil)
	assert.ErrorIs(t, second.Commit(context.Background()), boom)

	assert.Equal(t, 1, store.Count("dst"))
	assert.Equal(t, []int{1}, store.Commits())
	_, ok := store.Get("dst", "b")
	assert.False(t, ok)
}

func TestDocumentStore_ListHook(t *testing.T) {
	store := NewDocumentStore()
	boom := errors.New("unreachable")
	store.ListHook = func(collection string) error { return boom }

	_, err := store.ListDocuments(context.Background(), "src")
	assert.ErrorIs(t, err, boom)
}

func TestDocumentStore_CancelledContext(t *testing.T) {
	store := NewDocumentStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListDocuments(ctx, "src")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)

	batch := store.NewBatch()
	batch.Set("dst", "a", nil)
	assert.ErrorIs(t, batch.Commit(ctx), context.Canceled)
	assert.NoError(t, store.Close())
}
