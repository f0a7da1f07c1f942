package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// buildMessages assembles the request history from memory and the current
// prompt, returning the extracted system prompt and an alternating
// user/assistant sequence as the Messages API requires.
func (c *AnthropicClient) buildMessages(ctx context.Context, prompt string, params *interfaces.GenerateOptions) (string, []anthropic.MessageParam, error) {
	var history []interfaces.Message

	if params.Memory != nil {
		stored, err := params.Memory.GetMessages(ctx)
		if err != nil {
			c.logger.Error(ctx, "Failed to retrieve memory messages", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			history = stored
		}
	}

	if params.Memory == nil {
		history = append(history, interfaces.Message{
			Role:    interfaces.MessageRoleUser,
			Content: prompt,
		})
	}

	system, messages := convertHistory(history)
	if params.SystemMessage != "" {
		system = strings.TrimSpace(params.SystemMessage + "\n\n" + system)
	}

	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	return system, messages, nil
}

// convertHistory maps stored messages onto Anthropic params. System messages
// move to the system prompt; tool results and other non-assistant turns merge
// into user messages so the sequence alternates user/assistant and ends on a
// user turn.
func convertHistory(history []interfaces.Message) (string, []anthropic.MessageParam) {
	var systemParts []string
	var merged []anthropic.MessageParam
	var pendingUserParts []string

	flushUser := func() {
		if len(pendingUserParts) == 0 {
			return
		}
		merged = append(merged, anthropic.NewUserMessage(
			anthropic.NewTextBlock(strings.Join(pendingUserParts, "\n\n"))))
		pendingUserParts = nil
	}

	for _, msg := range history {
		switch msg.Role {
		case interfaces.MessageRoleSystem:
			systemParts = append(systemParts, msg.Content)

		case interfaces.MessageRoleAssistant:
			// Tool call records without content have no representable text.
			if msg.Content == "" {
				continue
			}
			flushUser()
			// Consecutive assistant turns would break alternation; merge into
			// the previous assistant message.
			if len(merged) > 0 && merged[len(merged)-1].Role == anthropic.MessageParamRoleAssistant {
				merged[len(merged)-1].Content = append(merged[len(merged)-1].Content,
					anthropic.NewTextBlock(msg.Content))
				continue
			}
			merged = append(merged, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))

		case interfaces.MessageRoleTool:
			if msg.Content != "" {
				pendingUserParts = append(pendingUserParts, fmt.Sprintf("Tool result: %s", msg.Content))
			}

		default: // user
			if msg.Content != "" {
				pendingUserParts = append(pendingUserParts, msg.Content)
			}
		}
	}
	flushUser()

	// The API requires the sequence to end with a user turn.
	if len(merged) > 0 && merged[len(merged)-1].Role == anthropic.MessageParamRoleAssistant {
		merged = append(merged, anthropic.NewUserMessage(anthropic.NewTextBlock("Continue.")))
	}

	return strings.Join(systemParts, "\n\n"), merged
}
