// Package memory provides an in-process VectorStore for development and
// tests. Documents are held per organization and per collection; search
// ranks by cosine similarity.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tagus/agentlab/pkg/embedding"
	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/multitenancy"
	"github.com/tagus/agentlab/pkg/vectorstore"
)

// Store implements the VectorStore interface in process memory.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]map[string]interfaces.Document // key: orgID/collection -> docID -> doc
	embedder interfaces.Embedder
	logger   logging.Logger

	defaultCollection string
}

// Option configures the store.
type Option func(*Store)

// WithEmbedder sets the embedder used for documents and queries.
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(s *Store) {
		s.embedder = embedder
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDefaultCollection sets the collection used when none is specified.
func WithDefaultCollection(collection string) Option {
	return func(s *Store) {
		s.defaultCollection = collection
	}
}

// New creates an empty in-memory store.
func New(options ...Option) *Store {
	store := &Store{
		docs:              make(map[string]map[string]interfaces.Document),
		logger:            logging.New(),
		defaultCollection: "default",
	}
	for _, opt := range options {
		opt(store)
	}
	return store
}

func (s *Store) bucketKey(ctx context.Context, collection string) string {
	if collection == "" {
		collection = s.defaultCollection
	}
	return multitenancy.OrgIDOrDefault(ctx) + "/" + collection
}

// Store adds documents, embedding any that lack a vector.
func (s *Store) Store(ctx context.Context, documents []interfaces.Document, options ...interfaces.StoreOption) error {
	opts := &interfaces.StoreOptions{}
	for _, option := range options {
		option(opts)
	}

	key := s.bucketKey(ctx, opts.Collection)

	for i := range documents {
		if documents[i].ID == "" {
			documents[i].ID = uuid.NewString()
		}
		if documents[i].Vector == nil {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no vector and no embedder is configured", documents[i].ID)
			}
			vector, err := s.embedder.Embed(ctx, documents[i].Content)
			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}
			documents[i].Vector = vector
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.docs[key]
	if !ok {
		bucket = make(map[string]interfaces.Document)
		s.docs[key] = bucket
	}
	for _, doc := range documents {
		bucket[doc.ID] = doc
	}

	s.logger.Debug(ctx, "Stored documents", map[string]interface{}{
		"bucket": key,
		"count":  len(documents),
	})

	return nil
}

// Search embeds the query and ranks documents by cosine similarity.
func (s *Store) Search(ctx context.Context, query string, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured for text search")
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding for query: %w", err)
	}

	return s.SearchByVector(ctx, vector, limit, options...)
}

// SearchByVector ranks documents by cosine similarity to the given vector.
func (s *Store) SearchByVector(ctx context.Context, vector []float32, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	opts := &interfaces.SearchOptions{}
	for _, option := range options {
		option(opts)
	}

	key := s.bucketKey(ctx, opts.Collection)

	s.mu.RLock()
	bucket := s.docs[key]
	candidates := make([]interfaces.Document, 0, len(bucket))
	for _, doc := range bucket {
		candidates = append(candidates, doc)
	}
	s.mu.RUnlock()

	var results []interfaces.SearchResult
	for _, doc := range candidates {
		if !vectorstore.Matches(doc.Metadata, opts.Filters) {
			continue
		}
		similarity, err := embedding.CosineSimilarity(vector, doc.Vector)
		if err != nil {
			s.logger.Warn(ctx, "Skipping document with incompatible vector", map[string]interface{}{
				"documentId": doc.ID,
				"error":      err.Error(),
			})
			continue
		}
		score := float32(similarity)
		if score < opts.MinScore {
			continue
		}
		results = append(results, interfaces.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Get retrieves a single document by ID.
func (s *Store) Get(ctx context.Context, id string, options ...interfaces.StoreOption) (*interfaces.Document, error) {
	opts := &interfaces.StoreOptions{}
	for _, option := range options {
		option(opts)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[s.bucketKey(ctx, opts.Collection)][id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &doc, nil
}

// Delete removes documents by ID. Missing IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids []string, options ...interfaces.DeleteOption) error {
	opts := &interfaces.DeleteOptions{}
	for _, option := range options {
		option(opts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.docs[s.bucketKey(ctx, opts.Collection)]
	for _, id := range ids {
		delete(bucket, id)
	}
	return nil
}

// Count returns the number of documents visible to the calling tenant.
func (s *Store) Count(ctx context.Context, options ...interfaces.StoreOption) int {
	opts := &interfaces.StoreOptions{}
	for _, option := range options {
		option(opts)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[s.bucketKey(ctx, opts.Collection)])
}

