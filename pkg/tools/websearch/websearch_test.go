package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, requests *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)

		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-engine", r.URL.Query().Get("cx"))

		response := map[string]interface{}{
			"items": []map[string]string{
				{"title": "Go Programming", "link": "https://go.dev", "snippet": "The Go programming language."},
				{"title": "Go Blog", "link": "https://go.dev/blog", "snippet": "News from the Go team."},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestWebSearchRun(t *testing.T) {
	var requests int32
	server := newTestServer(t, &requests)
	defer server.Close()

	tool := New("test-key", "test-engine", WithBaseURL(server.URL))

	result, err := tool.Run(context.Background(), "golang")
	require.NoError(t, err)
	assert.Contains(t, result, "Search results for 'golang'")
	assert.Contains(t, result, "Go Programming")
	assert.Contains(t, result, "https://go.dev")
}

func TestWebSearchJSONInput(t *testing.T) {
	var requests int32
	server := newTestServer(t, &requests)
	defer server.Close()

	tool := New("test-key", "test-engine", WithBaseURL(server.URL))

	result, err := tool.Run(context.Background(), `{"query": "golang", "num_results": 2}`)
	require.NoError(t, err)
	assert.Contains(t, result, "Go Blog")
}

func TestWebSearchCaching(t *testing.T) {
	var requests int32
	server := newTestServer(t, &requests)
	defer server.Close()

	tool := New("test-key", "test-engine", WithBaseURL(server.URL))

	_, err := tool.Run(context.Background(), "golang")
	require.NoError(t, err)
	_, err = tool.Run(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestWebSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	tool := New("test-key", "test-engine", WithBaseURL(server.URL))

	_, err := tool.Run(context.Background(), "golang")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestWebSearchEmptyQuery(t *testing.T) {
	tool := New("test-key", "test-engine")

	_, err := tool.Run(context.Background(), "")
	require.Error(t, err)

	_, err = tool.Execute(context.Background(), `{}`)
	require.Error(t, err)
}
