// Package weaviate implements the VectorStore interface on top of a
// Weaviate instance. Tenant isolation uses a single class with an orgId
// property rather than per-tenant classes.
package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/multitenancy"
)

const defaultBatchSize = 100

// Store implements the VectorStore interface for Weaviate
type Store struct {
	client      *weaviate.Client
	classPrefix string
	embedder    interfaces.Embedder
	logger      logging.Logger
}

// Option represents an option for configuring the Weaviate store
type Option func(*Store)

// WithClassPrefix sets the default class name for the Weaviate store
func WithClassPrefix(prefix string) Option {
	return func(s *Store) {
		s.classPrefix = prefix
	}
}

// WithEmbedder sets the embedder used for documents and queries
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(s *Store) {
		s.embedder = embedder
	}
}

// WithLogger sets the logger for the Weaviate store
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Weaviate store
func New(config *interfaces.VectorStoreConfig, options ...Option) (*Store, error) {
	store := &Store{
		classPrefix: "Document",
		logger:      logging.New(),
	}
	if config.ClassPrefix != "" {
		store.classPrefix = config.ClassPrefix
	}

	for _, option := range options {
		option(store)
	}

	cfg := weaviate.Config{
		Host:   config.Host,
		Scheme: config.Scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	store.client = client

	return store, nil
}

func (s *Store) className(collection string) string {
	if collection != "" {
		return collection
	}
	return s.classPrefix
}

// Store stores documents in Weaviate, batching writes and stamping the
// organization ID from the context into each object.
func (s *Store) Store(ctx context.Context, documents []interfaces.Document, options ...interfaces.StoreOption) error {
	opts := &interfaces.StoreOptions{}
	for _, option := range options {
		option(opts)
	}

	className := s.className(opts.Collection)
	orgID := multitenancy.OrgIDOrDefault(ctx)

	batch := s.client.Batch().ObjectsBatcher()
	batchCount := 0

	for _, doc := range documents {
		vector := doc.Vector
		if vector == nil {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no vector and no embedder is configured", doc.ID)
			}
			var err error
			vector, err = s.embedder.Embed(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}
		}

		properties := map[string]interface{}{
			"content": doc.Content,
			"orgId":   orgID,
		}
		for k, v := range doc.Metadata {
			properties[k] = v
		}

		batch.WithObjects(&models.Object{
			Class:      className,
			ID:         strfmt.UUID(doc.ID),
			Properties: properties,
			Vector:     vector,
		})
		batchCount++

		if batchCount >= defaultBatchSize {
			if _, err := batch.Do(ctx); err != nil {
				return fmt.Errorf("failed to store batch: %w", err)
			}
			batch = s.client.Batch().ObjectsBatcher()
			batchCount = 0
		}
	}

	if batchCount > 0 {
		if _, err := batch.Do(ctx); err != nil {
			return fmt.Errorf("failed to store final batch: %w", err)
		}
	}

	s.logger.Debug(ctx, "Stored documents in Weaviate", map[string]interface{}{
		"class": className,
		"count": len(documents),
	})

	return nil
}

// Search embeds the query and searches for similar documents
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

// SearchByVector searches for similar documents using a raw vector
func (s *Store) SearchByVector(ctx context.Context, vector []float32, limit int, options ...interfaces.SearchOption) ([]interfaces.SearchResult, error) {
	opts := &interfaces.SearchOptions{}
	for _, option := range options {
		option(opts)
	}

	className := s.className(opts.Collection)

	queryBuilder := s.client.GraphQL().Get().
		WithClassName(className).
		WithFields(graphql.Field{Name: "content _additional { certainty id }"}).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)).
		WithLimit(limit)

	if whereFilter := s.buildWhereFilter(ctx, opts.Filters); whereFilter != nil {
		queryBuilder = queryBuilder.WithWhere(whereFilter)
	}

	result, err := queryBuilder.Do(ctx)
	if err != nil {
		s.logger.Error(ctx, "GraphQL query failed", map[string]interface{}{
			"error": err.Error(),
			"class": className,
		})
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	searchResults, err := s.parseSearchResults(ctx, result, className)
	if err != nil {
		return nil, err
	}

	if opts.MinScore > 0 {
		filtered := searchResults[:0]
		for _, r := range searchResults {
			if r.Score >= opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		searchResults = filtered
	}

	return searchResults, nil
}

// Get retrieves a single document by ID
func (s *Store) Get(ctx context.Context, id string, options ...interfaces.StoreOption) (*interfaces.Document, error) {
	opts := &interfaces.StoreOptions{}
	for _, option := range options {
		option(opts)
	}

	result, err := s.client.Data().ObjectsGetter().
		WithClassName(s.className(opts.Collection)).
		WithID(id).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("document %s not found", id)
	}

	properties, ok := result[0].Properties.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected properties format for document %s", id)
	}

	doc := &interfaces.Document{
		ID:       id,
		Metadata: make(map[string]interface{}),
	}
	for k, v := range properties {
		switch k {
		case "content":
			doc.Content, _ = v.(string)
		case "orgId":
		default:
			doc.Metadata[k] = v
		}
	}

	return doc, nil
}

// Delete removes documents from Weaviate
func (s *Store) Delete(ctx context.Context, ids []string, options ...interfaces.DeleteOption) error {
	opts := &interfaces.DeleteOptions{}
	for _, option := range options {
		option(opts)
	}

	className := s.className(opts.Collection)

	for _, id := range ids {
		if err := s.client.Data().Deleter().
			WithClassName(className).
			WithID(id).
			Do(ctx); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
	}

	return nil
}

// buildWhereFilter combines the org isolation filter with caller filters.
// Caller filters are simple equality by default; a map value of the form
// {"operator": ..., "value": ...} selects a comparison operator.
func (s *Store) buildWhereFilter(ctx context.Context, filterMap map[string]interface{}) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	operands = append(operands, filters.Where().
		WithPath([]string{"orgId"}).
		WithOperator(filters.Equal).
		WithValueString(multitenancy.OrgIDOrDefault(ctx)))

	for field, value := range filterMap {
		if valueMap, ok := value.(map[string]interface{}); ok {
			operator, _ := valueMap["operator"].(string)
			val := valueMap["value"]

			condition := filters.Where().WithPath([]string{field})
			switch operator {
			case "equals", "":
				condition = condition.WithOperator(filters.Equal).WithValueString(fmt.Sprint(val))
			case "notEquals":
				condition = condition.WithOperator(filters.NotEqual).WithValueString(fmt.Sprint(val))
			case "greaterThan":
				condition = condition.WithOperator(filters.GreaterThan).WithValueNumber(toFloat64(val))
			case "greaterThanEqual":
				condition = condition.WithOperator(filters.GreaterThanEqual).WithValueNumber(toFloat64(val))
			case "lessThan":
				condition = condition.WithOperator(filters.LessThan).WithValueNumber(toFloat64(val))
			case "lessThanEqual":
				condition = condition.WithOperator(filters.LessThanEqual).WithValueNumber(toFloat64(val))
			case "like", "contains":
				condition = condition.WithOperator(filters.Like).WithValueString(fmt.Sprint(val))
			case "in":
				values, ok := val.([]interface{})
				if !ok {
					s.logger.Warn(ctx, "Invalid value for in filter", map[string]interface{}{"field": field})
					continue
				}
				strValues := make([]string, len(values))
				for i, v := range values {
					strValues[i] = fmt.Sprint(v)
				}
				condition = condition.WithOperator(filters.ContainsAny).WithValueString(strValues...)
			default:
				s.logger.Warn(ctx, "Unsupported filter operator", map[string]interface{}{
					"field":    field,
					"operator": operator,
				})
				continue
			}
			operands = append(operands, condition)
			continue
		}

		operands = append(operands, filters.Where().
			WithPath([]string{field}).
			WithOperator(filters.Equal).
			WithValueString(fmt.Sprint(value)))
	}

	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}

func (s *Store) parseSearchResults(ctx context.Context, result *models.GraphQLResponse, className string) ([]interfaces.SearchResult, error) {
	var searchResults []interfaces.SearchResult

	if result.Data == nil {
		s.logger.Warn(ctx, "Empty response data from Weaviate", nil)
		return searchResults, nil
	}

	getMap, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		s.logger.Error(ctx, "Invalid response format", map[string]interface{}{"data": result.Data})
		return searchResults, nil
	}

	results, ok := getMap[className].([]interface{})
	if !ok {
		return searchResults, nil
	}

	for _, r := range results {
		entry, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		additional, ok := entry["_additional"].(map[string]interface{})
		if !ok {
			s.logger.Warn(ctx, "Missing _additional field in result", map[string]interface{}{"result": entry})
			continue
		}
		content, _ := entry["content"].(string)
		id, ok := additional["id"].(string)
		if !ok {
			continue
		}
		certainty, ok := additional["certainty"].(float64)
		if !ok {
			certainty = 0.5
		}

		doc := interfaces.Document{
			ID:       id,
			Content:  content,
			Metadata: make(map[string]interface{}),
		}
		for k, v := range entry {
			if k != "content" && k != "_additional" && k != "orgId" {
				doc.Metadata[k] = v
			}
		}

		searchResults = append(searchResults, interfaces.SearchResult{
			Document: doc,
			Score:    float32(certainty),
		})
	}

	return searchResults, nil
}
