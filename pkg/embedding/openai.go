// Package embedding provides text embedding clients and vector similarity
// helpers used by the retrieval pipeline.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/retry"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedder implements interfaces.Embedder using the OpenAI
// embeddings API.
type OpenAIEmbedder struct {
	Client openai.Client
	Model  string

	baseURL       string
	httpClient    *http.Client
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// EmbedderOption configures the embedder.
type EmbedderOption func(*OpenAIEmbedder)

// WithModel sets the embedding model.
func WithModel(model string) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.Model = model
	}
}

// WithBaseURL points the embedder at a different endpoint.
func WithBaseURL(baseURL string) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.logger = logger
	}
}

// WithRetry enables retries with the given policy options.
func WithRetry(opts ...retry.Option) EmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey string, options ...EmbedderOption) *OpenAIEmbedder {
	embedder := &OpenAIEmbedder{
		Model:  defaultEmbeddingModel,
		logger: logging.New(),
	}

	for _, opt := range options {
		opt(embedder)
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if embedder.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(embedder.baseURL))
	}
	if embedder.httpClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(embedder.httpClient))
	}

	embedder.Client = openai.NewClient(requestOptions...)

	return embedder
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds multiple texts in a single request. The returned vectors
// are in the same order as the input texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.Model),
	}

	var resp *openai.CreateEmbeddingResponse

	operation := func() error {
		var err error
		resp, err = e.Client.Embeddings.New(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to create embeddings: %w", err)
		}
		return nil
	}

	var err error
	if e.retryExecutor != nil {
		err = e.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	e.logger.Debug(ctx, "Created embeddings", map[string]interface{}{
		"model": e.Model,
		"count": len(resp.Data),
	})

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vector[i] = float32(v)
		}
		vectors[item.Index] = vector
	}

	return vectors, nil
}
