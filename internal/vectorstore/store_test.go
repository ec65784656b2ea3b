package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/embedding"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	provider, err := embedding.NewLexicalProvider(256)
	require.NoError(t, err)
	return NewStore("doc-1", dir, provider, 2, logger.NewNop())
}

func refs(texts []string) []entity.ChunkRef {
	out := make([]entity.ChunkRef, len(texts))
	for i, text := range texts {
		out[i] = entity.ChunkRef{
			ChunkID:    fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-1",
			ChunkIndex: i,
			ChunkText:  text,
		}
	}
	return out
}

func TestSearchReturnsMatchingChunk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	texts := []string{
		"The capital of France is Paris, a major European city.",
		"Cats sleep for around sixteen hours every day.",
		"Photosynthesis converts sunlight into chemical energy.",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "What is the capital of France?", 5, 0.1)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "chunk-0", results[0].Ref.ChunkID)
	assert.Greater(t, results[0].Score, 0.1)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.1)
	}
}

func TestSearchTopRankedSingleResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	texts := []string{
		"Paris is the capital of France.",
		"The Eiffel Tower is in Paris.",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "What is the capital of France?", 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-0", results[0].Ref.ChunkID)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	// Identical texts embed identically, so their scores tie exactly.
	texts := []string{
		"migratory birds follow the coastline",
		"migratory birds follow the coastline",
		"migratory birds follow the coastline",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "migratory birds coastline", 3, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Ref.ChunkIndex)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	results, err := store.SimilaritySearch(ctx, "anything", 5, 0.3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchSortedDescendingCappedAtK(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	texts := []string{
		"rivers flow toward the ocean",
		"the river delta floods every spring",
		"volcanic eruptions reshape the landscape",
		"a river carries sediment downstream",
		"glaciers carve valleys over millennia",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "river water flow", 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchThresholdFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	texts := []string{
		"quantum entanglement links particle states",
		"the recipe calls for flour and sugar",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "quantum particle physics", 5, 0.99)
	require.NoError(t, err)
	assert.Empty(t, results, "no chunk scores a near-perfect match")
}

func TestRebuildReplacesContents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	old := []string{"stale content about typewriters"}
	_, err := store.AddTexts(ctx, old, refs(old))
	require.NoError(t, err)

	fresh := []string{"solar panels generate electricity", "wind turbines spin in the breeze"}
	_, err = store.Rebuild(ctx, fresh, refs(fresh))
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.VectorCount)

	results, err := store.SimilaritySearch(ctx, "typewriters", 5, 0.1)
	require.NoError(t, err)
	assert.Empty(t, results, "old rows must be gone after rebuild")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := newTestStore(t, dir)

	texts := []string{
		"the moon orbits the earth",
		"tides follow the lunar cycle",
	}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)
	require.NoError(t, store.Save())

	reopened := newTestStore(t, dir)
	stats := reopened.Stats()
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, 256, stats.Dimension)

	results, err := reopened.SimilaritySearch(ctx, "moon orbit", 1, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-0", results[0].Ref.ChunkID)
}

func TestLoadMissingSnapshotStartsEmpty(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	stats := store.Stats()
	assert.Equal(t, 0, stats.VectorCount)
	assert.Equal(t, 256, stats.Dimension)
}

func TestClearIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := newTestStore(t, dir)

	texts := []string{"content to be discarded"}
	_, err := store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)
	require.NoError(t, store.Save())

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	assert.Equal(t, 0, store.Stats().VectorCount)

	// Snapshot files are gone too: a reopen starts empty.
	reopened := newTestStore(t, dir)
	assert.Equal(t, 0, reopened.Stats().VectorCount)
}

func TestAddTextsLengthMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())

	_, err := store.AddTexts(ctx, []string{"one", "two"}, refs([]string{"one"}))
	assert.Error(t, err)
	assert.Equal(t, 0, store.Stats().VectorCount, "nothing appended on error")
}

func TestManagerDeleteStoreRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	provider, err := embedding.NewLexicalProvider(256)
	require.NoError(t, err)
	mgr, err := NewManager(dir, provider, 2, logger.NewNop())
	require.NoError(t, err)

	store := mgr.GetStore("doc-1")
	texts := []string{"ephemeral content"}
	_, err = store.AddTexts(ctx, texts, refs(texts))
	require.NoError(t, err)
	require.NoError(t, store.Save())

	require.NoError(t, mgr.DeleteStore("doc-1"))

	fresh := mgr.GetStore("doc-1")
	assert.Equal(t, 0, fresh.Stats().VectorCount)
}
