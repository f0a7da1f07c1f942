package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// RunStream executes the agent and streams events as the response is
// produced. The returned channel is always closed; errors arrive as error
// events. Providers without streaming support fall back to a single content
// event carrying the full response.
func (a *Agent) RunStream(ctx context.Context, input string) (<-chan interfaces.AgentStreamEvent, error) {
	if input == "" {
		return nil, fmt.Errorf("input cannot be empty")
	}

	if a.memory != nil {
		if err := a.memory.AddMessage(ctx, interfaces.Message{
			Role:    interfaces.MessageRoleUser,
			Content: input,
		}); err != nil {
			return nil, fmt.Errorf("failed to add user message to memory: %w", err)
		}
	}

	streamer, ok := a.llm.(interfaces.StreamingLLM)
	if !ok {
		return a.runStreamFallback(ctx, input), nil
	}

	options := a.generateOptions()

	var (
		source <-chan interfaces.StreamEvent
		err    error
	)
	if len(a.tools) > 0 {
		source, err = streamer.GenerateWithToolsStream(ctx, input, a.tools, options...)
	} else {
		source, err = streamer.GenerateStream(ctx, input, options...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	events := make(chan interfaces.AgentStreamEvent)
	go func() {
		defer close(events)

		var content strings.Builder
		for event := range source {
			agentEvent := convertStreamEvent(event)
			if agentEvent == nil {
				continue
			}
			if agentEvent.Type == interfaces.AgentEventContent {
				content.WriteString(agentEvent.Content)
			}
			events <- *agentEvent
		}

		a.storeStreamedResponse(ctx, content.String())
		events <- interfaces.AgentStreamEvent{
			Type:      interfaces.AgentEventComplete,
			Timestamp: time.Now(),
		}
	}()

	return events, nil
}

// runStreamFallback runs the agent synchronously and emits the result as one
// content event.
func (a *Agent) runStreamFallback(ctx context.Context, input string) <-chan interfaces.AgentStreamEvent {
	events := make(chan interfaces.AgentStreamEvent, 2)

	go func() {
		defer close(events)

		tracker := newUsageTracker(false)
		content, err := a.generate(ctx, input, tracker)
		if err != nil {
			events <- interfaces.AgentStreamEvent{
				Type:      interfaces.AgentEventError,
				Error:     err,
				Timestamp: time.Now(),
			}
			return
		}

		a.storeStreamedResponse(ctx, content)
		events <- interfaces.AgentStreamEvent{
			Type:      interfaces.AgentEventContent,
			Content:   content,
			Timestamp: time.Now(),
		}
		events <- interfaces.AgentStreamEvent{
			Type:      interfaces.AgentEventComplete,
			Timestamp: time.Now(),
		}
	}()

	return events
}

func (a *Agent) storeStreamedResponse(ctx context.Context, content string) {
	if a.memory == nil || content == "" {
		return
	}
	if err := a.memory.AddMessage(ctx, interfaces.Message{
		Role:    interfaces.MessageRoleAssistant,
		Content: content,
	}); err != nil {
		a.logger.Error(ctx, "Failed to store streamed response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func convertStreamEvent(event interfaces.StreamEvent) *interfaces.AgentStreamEvent {
	agentEvent := &interfaces.AgentStreamEvent{
		Timestamp: event.Timestamp,
		Metadata:  event.Metadata,
	}

	switch event.Type {
	case interfaces.StreamEventContentDelta:
		agentEvent.Type = interfaces.AgentEventContent
		agentEvent.Content = event.Content
	case interfaces.StreamEventThinking:
		agentEvent.Type = interfaces.AgentEventThinking
		agentEvent.ThinkingStep = event.Content
	case interfaces.StreamEventToolUse:
		agentEvent.Type = interfaces.AgentEventToolCall
		if event.ToolCall != nil {
			agentEvent.ToolCall = &interfaces.ToolCallEvent{
				ID:        event.ToolCall.ID,
				Name:      event.ToolCall.Name,
				Arguments: event.ToolCall.Arguments,
			}
		}
	case interfaces.StreamEventToolResult:
		agentEvent.Type = interfaces.AgentEventToolResult
		if event.ToolCall != nil {
			agentEvent.ToolCall = &interfaces.ToolCallEvent{
				ID:     event.ToolCall.ID,
				Name:   event.ToolCall.Name,
				Result: event.Content,
			}
		}
	case interfaces.StreamEventError:
		agentEvent.Type = interfaces.AgentEventError
		agentEvent.Error = event.Error
	default:
		// message_start, content_complete, and message_stop carry no
		// agent-level information.
		return nil
	}

	return agentEvent
}
