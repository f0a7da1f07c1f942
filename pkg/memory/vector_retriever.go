package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

// VectorStoreRetriever implements a memory that mirrors messages into a
// vector store so past messages can be recalled by semantic similarity.
type VectorStoreRetriever struct {
	buffer      *ConversationBuffer
	vectorStore interfaces.VectorStore
	logger      logging.Logger
	docIDs      map[string][]string
	mu          sync.RWMutex
}

// RetrieverOption represents an option for configuring the vector store retriever
type RetrieverOption func(*VectorStoreRetriever)

// WithRetrieverLogger sets the logger
func WithRetrieverLogger(logger logging.Logger) RetrieverOption {
	return func(v *VectorStoreRetriever) {
		v.logger = logger
	}
}

// NewVectorStoreRetriever creates a new vector store retriever memory
func NewVectorStoreRetriever(vectorStore interfaces.VectorStore, options ...RetrieverOption) *VectorStoreRetriever {
	retriever := &VectorStoreRetriever{
		buffer:      NewConversationBuffer(),
		vectorStore: vectorStore,
		logger:      logging.New(),
		docIDs:      make(map[string][]string),
	}

	for _, option := range options {
		option(retriever)
	}

	return retriever
}

// AddMessage adds a message to the buffer and the vector store
func (v *VectorStoreRetriever) AddMessage(ctx context.Context, message interfaces.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.buffer.AddMessage(ctx, message); err != nil {
		return err
	}

	if message.Content == "" {
		return nil
	}

	key := conversationKey(ctx)
	doc := interfaces.Document{
		ID:      uuid.NewString(),
		Content: message.Content,
		Metadata: map[string]interface{}{
			"role":         string(message.Role),
			"conversation": key,
		},
	}

	if err := v.vectorStore.Store(ctx, []interfaces.Document{doc}); err != nil {
		return fmt.Errorf("failed to store message in vector store: %w", err)
	}
	v.docIDs[key] = append(v.docIDs[key], doc.ID)

	return nil
}

// GetMessages returns buffered messages, or a semantic search over past
// messages when a query option is given.
func (v *VectorStoreRetriever) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	opts := &interfaces.GetMessagesOptions{}
	for _, option := range options {
		option(opts)
	}

	if opts.Query == "" {
		return v.buffer.GetMessages(ctx, options...)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = 5
	}

	results, err := v.vectorStore.Search(ctx, opts.Query, limit,
		interfaces.WithFilters(map[string]interface{}{"conversation": conversationKey(ctx)}))
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	var messages []interfaces.Message
	for _, result := range results {
		role, _ := result.Document.Metadata["role"].(string)
		messages = append(messages, interfaces.Message{
			Role:    interfaces.MessageRole(role),
			Content: result.Document.Content,
			Metadata: map[string]interface{}{
				"score": result.Score,
			},
		})
	}

	return messages, nil
}

// Clear clears the buffer and removes this conversation's documents from
// the vector store.
func (v *VectorStoreRetriever) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.buffer.Clear(ctx); err != nil {
		return err
	}

	key := conversationKey(ctx)
	if ids := v.docIDs[key]; len(ids) > 0 {
		if err := v.vectorStore.Delete(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete messages from vector store: %w", err)
		}
		delete(v.docIDs, key)
	}

	return nil
}
