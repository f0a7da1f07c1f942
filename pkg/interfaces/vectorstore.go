package interfaces

import "context"

// Document is a unit of content stored in a vector store.
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Vector   []float32              `json:"vector,omitempty"`
}

// SearchResult is a document with its similarity score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float32  `json:"score"`
}

// StoreOptions configures a store or get operation.
type StoreOptions struct {
	// Collection overrides the default collection/class name.
	Collection string
}

// StoreOption configures a store or get operation.
type StoreOption func(*StoreOptions)

// WithCollection overrides the target collection.
func WithCollection(name string) StoreOption {
	return func(o *StoreOptions) {
		o.Collection = name
	}
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	Collection string
	// Filters restricts results by metadata equality.
	Filters map[string]interface{}
	// MinScore drops results below this similarity.
	MinScore float32
}

// SearchOption configures a similarity search.
type SearchOption func(*SearchOptions)

// WithSearchCollection overrides the collection searched.
func WithSearchCollection(name string) SearchOption {
	return func(o *SearchOptions) {
		o.Collection = name
	}
}

// WithFilters restricts results by metadata equality.
func WithFilters(filters map[string]interface{}) SearchOption {
	return func(o *SearchOptions) {
		o.Filters = filters
	}
}

// WithMinScore drops results below the given similarity.
func WithMinScore(score float32) SearchOption {
	return func(o *SearchOptions) {
		o.MinScore = score
	}
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Collection string
}

// DeleteOption configures a delete operation.
type DeleteOption func(*DeleteOptions)

// WithDeleteCollection overrides the collection deleted from.
func WithDeleteCollection(name string) DeleteOption {
	return func(o *DeleteOptions) {
		o.Collection = name
	}
}

// VectorStore stores documents with embeddings and retrieves them by
// similarity. Implementations scope data by the org ID in the context.
type VectorStore interface {
	// Store embeds (when needed) and persists documents.
	Store(ctx context.Context, documents []Document, options ...StoreOption) error

	// Search embeds the query and returns the most similar documents.
	Search(ctx context.Context, query string, limit int, options ...SearchOption) ([]SearchResult, error)

	// SearchByVector returns the documents most similar to a raw vector.
	SearchByVector(ctx context.Context, vector []float32, limit int, options ...SearchOption) ([]SearchResult, error)

	// Get returns a document by ID.
	Get(ctx context.Context, id string, options ...StoreOption) (*Document, error)

	// Delete removes documents by ID.
	Delete(ctx context.Context, ids []string, options ...DeleteOption) error
}

// VectorStoreConfig carries connection settings for remote stores.
type VectorStoreConfig struct {
	Host        string
	Scheme      string
	APIKey      string
	ClassPrefix string
}

// Embedder converts text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
