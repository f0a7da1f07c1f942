package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/interfaces"
)

func TestConversationSummaryBelowThreshold(t *testing.T) {
	mockLLM := new(MockLLM)
	memory := NewConversationSummary(mockLLM, WithMaxBufferSize(5))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, memory.AddMessage(ctx, interfaces.Message{
			Role:    interfaces.MessageRoleUser,
			Content: fmt.Sprintf("message %d", i),
		}))
	}

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
	assert.Empty(t, memory.Summary(ctx))
	mockLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationSummaryTriggersAtThreshold(t *testing.T) {
	mockLLM := new(MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("The user sent four test messages.", nil).Once()

	memory := NewConversationSummary(mockLLM, WithMaxBufferSize(4), WithSummaryLength(50))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, memory.AddMessage(ctx, interfaces.Message{
			Role:    interfaces.MessageRoleUser,
			Content: fmt.Sprintf("message %d", i),
		}))
	}

	assert.Equal(t, "The user sent four test messages.", memory.Summary(ctx))

	// The buffer was cleared, so only the summary message remains.
	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, interfaces.MessageRoleSystem, messages[0].Role)
	isSummary, _ := messages[0].Metadata["is_summary"].(bool)
	assert.True(t, isSummary)

	// New messages appear after the summary.
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{
		Role:    interfaces.MessageRoleUser,
		Content: "after the summary",
	}))
	messages, err = memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "after the summary", messages[1].Content)

	mockLLM.AssertExpectations(t)
}

func TestConversationSummarySurfacesLLMError(t *testing.T) {
	mockLLM := new(MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("model unavailable"))

	memory := NewConversationSummary(mockLLM, WithMaxBufferSize(2))
	ctx := context.Background()

	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "one"}))
	err := memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate summary")
}

func TestConversationSummaryClear(t *testing.T) {
	mockLLM := new(MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("summary", nil)

	memory := NewConversationSummary(mockLLM, WithMaxBufferSize(2))
	ctx := context.Background()

	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "one"}))
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "two"}))
	require.NotEmpty(t, memory.Summary(ctx))

	require.NoError(t, memory.Clear(ctx))
	assert.Empty(t, memory.Summary(ctx))

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
