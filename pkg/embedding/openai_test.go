package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/logging"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAIEmbedder("test-key",
		WithBaseURL(server.URL),
		WithLogger(logging.NoOp()),
	)
}

func embeddingResponse(vectors ...[]float64) map[string]interface{} {
	data := make([]map[string]interface{}, len(vectors))
	for i, vector := range vectors {
		data[i] = map[string]interface{}{
			"object":    "embedding",
			"index":     i,
			"embedding": vector,
		}
	}
	return map[string]interface{}{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data":   data,
		"usage":  map[string]interface{}{"prompt_tokens": 5, "total_tokens": 5},
	}
}

func TestEmbed(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "text-embedding-3-small", reqBody["model"])

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(embeddingResponse([]float64{0.1, 0.2, 0.3})))
	})

	vector, err := embedder.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEmbedBatch(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, []string{"first", "second"}, reqBody.Input)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(embeddingResponse(
			[]float64{1, 0}, []float64{0, 1})))
	})

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	embedder := NewOpenAIEmbedder("test-key", WithLogger(logging.NoOp()))
	_, err := embedder.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			similarity, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, similarity, 1e-9)
		})
	}
}

func TestCosineSimilarityErrors(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1})
	assert.Error(t, err)

	_, err = CosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.Error(t, err)

	_, err = CosineSimilarity(nil, nil)
	assert.Error(t, err)
}
