// Package websearch provides a web search tool backed by the Google Custom
// Search JSON API. Results are cached per query for an hour.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tagus/agentlab/pkg/interfaces"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Tool implements a web search tool
type Tool struct {
	apiKey     string
	engineID   string
	baseURL    string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	result    string
	timestamp time.Time
}

// Option represents an option for configuring the tool
type Option func(*Tool)

// WithHTTPClient sets the HTTP client for the tool
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithBaseURL overrides the search API endpoint
func WithBaseURL(baseURL string) Option {
	return func(t *Tool) {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithCacheTTL sets how long query results are cached
func WithCacheTTL(ttl time.Duration) Option {
	return func(t *Tool) {
		t.cacheTTL = ttl
	}
}

// New creates a new web search tool
func New(apiKey, engineID string, options ...Option) *Tool {
	tool := &Tool{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   1 * time.Hour,
		cache:      make(map[string]cacheEntry),
	}

	for _, option := range options {
		option(tool)
	}

	return tool
}

// Name returns the name of the tool
func (t *Tool) Name() string {
	return "web_search"
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (t *Tool) DisplayName() string {
	return "Web Search"
}

// Description returns a description of what the tool does
func (t *Tool) Description() string {
	return "Search the web for information on a given query"
}

// Internal implements interfaces.InternalTool.Internal
func (t *Tool) Internal() bool {
	return false
}

// Parameters returns the parameters that the tool accepts
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: "The search query",
			Required:    true,
		},
		"num_results": {
			Type:        "integer",
			Description: "Number of results to return",
			Required:    false,
			Default:     5,
		},
	}
}

// Run executes a search. Input may be a JSON object with query/num_results
// or a bare query string.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	query := input
	numResults := 5

	var params struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := json.Unmarshal([]byte(input), &params); err == nil && params.Query != "" {
		query = params.Query
		if params.NumResults > 0 {
			numResults = params.NumResults
		}
	}

	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	return t.search(ctx, query, numResults)
}

// Execute implements interfaces.Tool.Execute
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse args: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	numResults := params.NumResults
	if numResults <= 0 {
		numResults = 5
	}

	return t.search(ctx, params.Query, numResults)
}

func (t *Tool) search(ctx context.Context, query string, numResults int) (string, error) {
	if cached, ok := t.cached(query); ok {
		return cached, nil
	}

	searchURL := fmt.Sprintf("%s?key=%s&cx=%s&q=%s&num=%d",
		t.baseURL, t.apiKey, t.engineID, url.QueryEscape(query), numResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status code %d: %s", resp.StatusCode, resp.Status)
	}

	var result struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Search results for '%s':\n\n", query))
	for i, item := range result.Items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title))
		sb.WriteString(fmt.Sprintf("   URL: %s\n", item.Link))
		sb.WriteString(fmt.Sprintf("   %s\n\n", item.Snippet))
	}

	t.store(query, sb.String())
	return sb.String(), nil
}

func (t *Tool) cached(query string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.cache[query]
	if !ok || time.Since(entry.timestamp) >= t.cacheTTL {
		return "", false
	}
	return entry.result, true
}

func (t *Tool) store(query, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache[query] = cacheEntry{result: result, timestamp: time.Now()}
}
