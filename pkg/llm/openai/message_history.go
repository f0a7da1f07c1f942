package openai

import (
	"context"

	"github.com/openai/openai-go/v2"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

// messageHistoryBuilder converts stored conversation history into OpenAI
// message params.
type messageHistoryBuilder struct {
	logger logging.Logger
}

func newMessageHistoryBuilder(logger logging.Logger) *messageHistoryBuilder {
	return &messageHistoryBuilder{logger: logger}
}

// buildMessages returns the conversation in OpenAI format, preserving
// chronological order. When no memory is attached, the current prompt becomes
// the only user message; with memory attached the caller is expected to have
// written the prompt into it already.
func (b *messageHistoryBuilder) buildMessages(ctx context.Context, prompt string, memory interfaces.Memory) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{}

	if memory == nil {
		return append(messages, openai.UserMessage(prompt))
	}

	history, err := memory.GetMessages(ctx)
	if err != nil {
		b.logger.Error(ctx, "Failed to retrieve memory messages", map[string]interface{}{
			"error": err.Error(),
		})
		return append(messages, openai.UserMessage(prompt))
	}

	for _, msg := range history {
		if converted := b.convertMemoryMessage(msg); converted != nil {
			messages = append(messages, *converted)
		}
	}

	return messages
}

func (b *messageHistoryBuilder) convertMemoryMessage(msg interfaces.Message) *openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case interfaces.MessageRoleSystem:
		converted := openai.SystemMessage(msg.Content)
		return &converted

	case interfaces.MessageRoleUser:
		converted := openai.UserMessage(msg.Content)
		return &converted

	case interfaces.MessageRoleAssistant:
		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnion, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			converted := assistantMsg.ToParam()
			return &converted
		}
		if msg.Content != "" {
			converted := openai.AssistantMessage(msg.Content)
			return &converted
		}

	case interfaces.MessageRoleTool:
		if msg.ToolCallID != "" {
			converted := openai.ToolMessage(msg.Content, msg.ToolCallID)
			return &converted
		}
	}

	return nil
}
