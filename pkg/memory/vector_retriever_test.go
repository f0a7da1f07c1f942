package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	vsmemory "github.com/tagus/agentlab/pkg/vectorstore/memory"
)

// retrieverEmbedder maps known texts to fixed vectors so similarity
// ordering is deterministic.
type retrieverEmbedder struct {
	vectors map[string][]float32
}

func (e *retrieverEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (e *retrieverEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func newRetrieverStore() *vsmemory.Store {
	return vsmemory.New(
		vsmemory.WithEmbedder(&retrieverEmbedder{vectors: map[string][]float32{
			"my cat is named Miso":     {1, 0, 0},
			"the deploy runs at noon":  {0, 0, 1},
			"what pets do I have?":     {0.95, 0.05, 0},
			"when does the job start?": {0, 0.05, 0.95},
		}}),
		vsmemory.WithLogger(logging.NoOp()),
	)
}

func TestVectorRetrieverBuffersAndRecalls(t *testing.T) {
	store := newRetrieverStore()
	retriever := NewVectorStoreRetriever(store, WithRetrieverLogger(logging.NoOp()))
	ctx := context.Background()

	require.NoError(t, retriever.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "my cat is named Miso"}))
	require.NoError(t, retriever.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "the deploy runs at noon"}))

	// Without a query the retriever behaves like a plain buffer.
	messages, err := retriever.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "my cat is named Miso", messages[0].Content)
	assert.Equal(t, "the deploy runs at noon", messages[1].Content)

	// A query switches to semantic recall over past messages.
	messages, err = retriever.GetMessages(ctx,
		interfaces.WithQuery("what pets do I have?"),
		interfaces.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "my cat is named Miso", messages[0].Content)
	assert.Equal(t, interfaces.MessageRoleUser, messages[0].Role)
	assert.Contains(t, messages[0].Metadata, "score")
}

func TestVectorRetrieverSkipsEmptyContent(t *testing.T) {
	store := newRetrieverStore()
	retriever := NewVectorStoreRetriever(store, WithRetrieverLogger(logging.NoOp()))
	ctx := context.Background()

	// Tool-call placeholders have no content and must not be embedded.
	require.NoError(t, retriever.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleAssistant, Content: ""}))
	assert.Equal(t, 0, store.Count(ctx))
}

func TestVectorRetrieverClear(t *testing.T) {
	store := newRetrieverStore()
	retriever := NewVectorStoreRetriever(store, WithRetrieverLogger(logging.NoOp()))
	ctx := context.Background()

	require.NoError(t, retriever.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "my cat is named Miso"}))
	require.Equal(t, 1, store.Count(ctx))

	require.NoError(t, retriever.Clear(ctx))

	messages, err := retriever.GetMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, 0, store.Count(ctx), "cleared messages must leave the vector store")
}

func TestVectorRetrieverConversationIsolation(t *testing.T) {
	store := newRetrieverStore()
	retriever := NewVectorStoreRetriever(store, WithRetrieverLogger(logging.NoOp()))

	convA := WithConversationID(context.Background(), "conv-a")
	convB := WithConversationID(context.Background(), "conv-b")

	require.NoError(t, retriever.AddMessage(convA, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "my cat is named Miso"}))

	messages, err := retriever.GetMessages(convB, interfaces.WithQuery("what pets do I have?"))
	require.NoError(t, err)
	assert.Empty(t, messages, "recall must not cross conversations")

	messages, err = retriever.GetMessages(convA, interfaces.WithQuery("what pets do I have?"))
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}
