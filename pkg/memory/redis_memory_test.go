package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/multitenancy"
)

// MockLLM is a mock implementation of the LLM interface
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	args := m.Called(ctx, prompt, options)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Chat(ctx context.Context, messages []interfaces.Message, options ...interfaces.GenerateOption) (string, error) {
	args := m.Called(ctx, messages, options)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	args := m.Called(ctx, prompt, tools, options)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Name() string {
	return "mock-llm"
}

func setupTestRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestRedisMemoryBasics(t *testing.T) {
	client, mr := setupTestRedisClient(t)
	defer mr.Close()

	memory := NewRedisMemory(client, WithTTL(1*time.Hour))

	ctx := multitenancy.WithOrgID(context.Background(), "test-org")
	ctx = WithConversationID(ctx, "test-conversation")

	assert.NoError(t, memory.AddMessage(ctx, interfaces.Message{
		Role:    interfaces.MessageRoleUser,
		Content: "hello",
	}))
	assert.NoError(t, memory.AddMessage(ctx, interfaces.Message{
		Role:    interfaces.MessageRoleAssistant,
		Content: "hi there",
	}))

	messages, err := memory.GetMessages(ctx)
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, interfaces.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "hi there", messages[1].Content)

	// Another conversation of the same org is isolated.
	otherCtx := WithConversationID(multitenancy.WithOrgID(context.Background(), "test-org"), "other")
	messages, err = memory.GetMessages(otherCtx)
	assert.NoError(t, err)
	assert.Empty(t, messages)

	// Role filtering.
	messages, err = memory.GetMessages(ctx, interfaces.WithRoles("assistant"))
	assert.NoError(t, err)
	assert.Len(t, messages, 1)

	conversations, err := memory.GetAllConversations(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"test-conversation"}, conversations)

	assert.NoError(t, memory.Clear(ctx))
	messages, err = memory.GetMessages(ctx)
	assert.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRedisMemoryWithSummarization(t *testing.T) {
	client, mr := setupTestRedisClient(t)
	defer mr.Close()

	mockLLM := new(MockLLM)

	memory := NewRedisMemory(
		client,
		WithSummarization(mockLLM, 5, 2), // Summarize after 5 messages, keep 2 summaries
		WithTTL(1*time.Hour),
	)

	ctx := context.Background()
	ctx = multitenancy.WithOrgID(ctx, "test-org")
	ctx = WithConversationID(ctx, "test-conversation")

	t.Run("BelowThreshold", func(t *testing.T) {
		assert.NoError(t, memory.Clear(ctx))

		for i := 0; i < 4; i++ {
			err := memory.AddMessage(ctx, interfaces.Message{
				Role:    interfaces.MessageRoleUser,
				Content: "Test message " + string(rune('A'+i)),
			})
			assert.NoError(t, err)
		}

		messages, err := memory.GetMessages(ctx)
		assert.NoError(t, err)
		assert.Len(t, messages, 4)

		for _, msg := range messages {
			assert.NotEqual(t, interfaces.MessageRoleSystem, msg.Role)
		}
	})

	t.Run("TriggerSummarization", func(t *testing.T) {
		assert.NoError(t, memory.Clear(ctx))

		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return("This is a summary of the conversation.", nil).Once()

		for i := 0; i < 6; i++ {
			err := memory.AddMessage(ctx, interfaces.Message{
				Role:    interfaces.MessageRoleUser,
				Content: "Test message " + string(rune('A'+i)),
			})
			assert.NoError(t, err)
		}

		messages, err := memory.GetMessages(ctx)
		assert.NoError(t, err)

		summaryCount := 0
		for _, msg := range messages {
			if msg.Metadata != nil {
				if isSummary, ok := msg.Metadata["is_summary"].(bool); ok && isSummary {
					summaryCount++
					assert.Contains(t, msg.Content, "Previous conversation summary")
				}
			}
		}
		assert.Equal(t, 1, summaryCount)

		mockLLM.AssertCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MultipleSummarizations", func(t *testing.T) {
		assert.NoError(t, memory.Clear(ctx))

		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return("Summary of conversation.", nil)

		for i := 0; i < 20; i++ {
			err := memory.AddMessage(ctx, interfaces.Message{
				Role:    interfaces.MessageRoleUser,
				Content: "Test message " + string(rune('A'+i)),
			})
			assert.NoError(t, err)
		}

		messages, err := memory.GetMessages(ctx)
		assert.NoError(t, err)

		summaryCount := 0
		for _, msg := range messages {
			if msg.Metadata != nil {
				if isSummary, ok := msg.Metadata["is_summary"].(bool); ok && isSummary {
					summaryCount++
				}
			}
		}

		assert.LessOrEqual(t, summaryCount, 2)
	})

	t.Run("ClearWithSummaries", func(t *testing.T) {
		mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
			Return("Summary of conversation.", nil).Maybe()

		for i := 0; i < 10; i++ {
			err := memory.AddMessage(ctx, interfaces.Message{
				Role:    interfaces.MessageRoleUser,
				Content: "Test message for clear " + string(rune('A'+i)),
			})
			assert.NoError(t, err)
		}

		assert.NoError(t, memory.Clear(ctx))

		messages, err := memory.GetMessages(ctx)
		assert.NoError(t, err)
		assert.Len(t, messages, 0)
	})
}

func TestRedisMemoryOptions(t *testing.T) {
	client, mr := setupTestRedisClient(t)
	defer mr.Close()

	t.Run("DefaultOptions", func(t *testing.T) {
		memory := NewRedisMemory(client)

		assert.Equal(t, 24*time.Hour, memory.ttl)
		assert.Equal(t, "agent:memory:", memory.keyPrefix)
		assert.False(t, memory.summarizationEnabled)
		assert.Equal(t, 50, memory.messageThreshold)
		assert.Equal(t, 5, memory.summaryCount)
	})

	t.Run("CustomOptions", func(t *testing.T) {
		mockLLM := new(MockLLM)
		memory := NewRedisMemory(
			client,
			WithTTL(2*time.Hour),
			WithKeyPrefix("custom:"),
			WithMaxMessageSize(2048),
			WithSummarization(mockLLM, 20, 3),
		)

		assert.Equal(t, 2*time.Hour, memory.ttl)
		assert.Equal(t, "custom:", memory.keyPrefix)
		assert.Equal(t, 2048, memory.maxMessageSize)
		assert.True(t, memory.summarizationEnabled)
		assert.Equal(t, 20, memory.messageThreshold)
		assert.Equal(t, 3, memory.summaryCount)
		assert.Equal(t, "custom:summary:", memory.summaryKeyPrefix)
	})
}
