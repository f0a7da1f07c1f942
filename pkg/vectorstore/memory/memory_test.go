package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/multitenancy"
	"github.com/tagus/agentlab/pkg/vectorstore"
)

// fakeEmbedder maps known texts to fixed vectors so similarity ordering is
// deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore() *Store {
	return New(
		WithEmbedder(&fakeEmbedder{vectors: map[string][]float32{
			"cats":      {1, 0, 0},
			"dogs":      {0.9, 0.1, 0},
			"airplanes": {0, 0, 1},
			"pets":      {1, 0.05, 0},
		}}),
		WithLogger(logging.NoOp()),
	)
}

func TestStoreAndSearch(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{
		{ID: "1", Content: "cats"},
		{ID: "2", Content: "dogs"},
		{ID: "3", Content: "airplanes"},
	}))

	results, err := store.Search(ctx, "pets", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Results ordered by similarity; animal documents outrank airplanes.
	assert.Equal(t, "1", results[0].Document.ID)
	assert.Equal(t, "2", results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchMinScore(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{
		{ID: "1", Content: "cats"},
		{ID: "3", Content: "airplanes"},
	}))

	results, err := store.Search(ctx, "pets", 10, interfaces.WithMinScore(0.5))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Document.ID)
}

func TestSearchWithMetadataFilters(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{
		{ID: "1", Content: "cats", Metadata: map[string]interface{}{"source": "wiki"}},
		{ID: "2", Content: "dogs", Metadata: map[string]interface{}{"source": "blog"}},
	}))

	results, err := store.Search(ctx, "pets", 10,
		interfaces.WithFilters(map[string]interface{}{"source": "blog"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].Document.ID)

	// Operator conditions work through the same option.
	results, err = store.Search(ctx, "pets", 10,
		interfaces.WithFilters(map[string]interface{}{
			"source": vectorstore.Cond{Op: vectorstore.OpIn, Value: []string{"wiki", "docs"}},
		}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Document.ID)
}

func TestOrgIsolation(t *testing.T) {
	store := newTestStore()

	orgA := multitenancy.WithOrgID(context.Background(), "org-a")
	orgB := multitenancy.WithOrgID(context.Background(), "org-b")

	require.NoError(t, store.Store(orgA, []interfaces.Document{{ID: "1", Content: "cats"}}))

	results, err := store.Search(orgB, "pets", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "documents must not leak across organizations")

	results, err = store.Search(orgA, "pets", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCollections(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{{ID: "1", Content: "cats"}},
		interfaces.WithCollection("animals")))
	require.NoError(t, store.Store(ctx, []interfaces.Document{{ID: "2", Content: "airplanes"}},
		interfaces.WithCollection("machines")))

	assert.Equal(t, 1, store.Count(ctx, interfaces.WithCollection("animals")))
	assert.Equal(t, 1, store.Count(ctx, interfaces.WithCollection("machines")))
	assert.Equal(t, 0, store.Count(ctx))
}

func TestGetAndDelete(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{{ID: "1", Content: "cats"}}))

	doc, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "cats", doc.Content)

	require.NoError(t, store.Delete(ctx, []string{"1"}))
	_, err = store.Get(ctx, "1")
	assert.Error(t, err)
}

func TestStoreAssignsIDs(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	docs := []interfaces.Document{{Content: "cats"}}
	require.NoError(t, store.Store(ctx, docs))
	assert.Equal(t, 1, store.Count(ctx))
}

func TestStorePrecomputedVector(t *testing.T) {
	store := New(WithLogger(logging.NoOp())) // no embedder
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []interfaces.Document{
		{ID: "1", Content: "anything", Vector: []float32{1, 0}},
	}))

	results, err := store.SearchByVector(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestStoreWithoutVectorOrEmbedderFails(t *testing.T) {
	store := New(WithLogger(logging.NoOp()))
	err := store.Store(context.Background(), []interfaces.Document{{ID: "1", Content: "text"}})
	assert.Error(t, err)
}
