package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/agentlab/pkg/interfaces"
)

const defaultStreamBufferSize = 100

func streamBufferSize(params *interfaces.GenerateOptions) int {
	if params.StreamConfig != nil && params.StreamConfig.BufferSize > 0 {
		return params.StreamConfig.BufferSize
	}
	return defaultStreamBufferSize
}

// GenerateStream implements interfaces.StreamingLLM. Events are delivered on a
// buffered channel that is always closed when the stream ends.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (<-chan interfaces.StreamEvent, error) {
	params := applyOptions(options...)

	eventChan := make(chan interfaces.StreamEvent, streamBufferSize(params))

	go func() {
		defer close(eventChan)

		messages := []openai.ChatCompletionMessageParamUnion{}
		if params.SystemMessage != "" {
			messages = append(messages, openai.SystemMessage(params.SystemMessage))
		}
		builder := newMessageHistoryBuilder(c.logger)
		messages = append(messages, builder.buildMessages(ctx, prompt, params.Memory)...)

		req := c.buildRequest(messages, params)

		stream := c.ChatService.Completions.NewStreaming(ctx, req)

		eventChan <- interfaces.StreamEvent{
			Type:      interfaces.StreamEventMessageStart,
			Timestamp: time.Now(),
			Metadata:  map[string]interface{}{"model": c.Model},
		}

		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					eventChan <- interfaces.StreamEvent{
						Type:      interfaces.StreamEventContentDelta,
						Content:   choice.Delta.Content,
						Timestamp: time.Now(),
					}
				}
				if choice.FinishReason != "" {
					eventChan <- interfaces.StreamEvent{
						Type:      interfaces.StreamEventContentComplete,
						Timestamp: time.Now(),
						Metadata:  map[string]interface{}{"finish_reason": choice.FinishReason},
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			c.logger.Error(ctx, "OpenAI streaming error", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			eventChan <- interfaces.StreamEvent{
				Type:      interfaces.StreamEventError,
				Error:     fmt.Errorf("openai streaming error: %w", err),
				Timestamp: time.Now(),
			}
			return
		}

		eventChan <- interfaces.StreamEvent{
			Type:      interfaces.StreamEventMessageStop,
			Timestamp: time.Now(),
		}
	}()

	return eventChan, nil
}

// GenerateWithToolsStream implements interfaces.StreamingLLM with iterative
// tool calling. Tool invocations surface as tool_use/tool_result events.
func (c *OpenAIClient) GenerateWithToolsStream(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (<-chan interfaces.StreamEvent, error) {
	params := applyOptions(options...)

	maxIterations := params.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	eventChan := make(chan interfaces.StreamEvent, streamBufferSize(params))

	go func() {
		defer close(eventChan)

		openaiTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
		for i, tool := range tools {
			openaiTools[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        tool.Name(),
				Description: openai.String(tool.Description()),
				Parameters:  convertToOpenAISchema(tool.Parameters()),
			})
		}

		messages := []openai.ChatCompletionMessageParamUnion{}
		if params.SystemMessage != "" {
			messages = append(messages, openai.SystemMessage(params.SystemMessage))
		}
		builder := newMessageHistoryBuilder(c.logger)
		messages = append(messages, builder.buildMessages(ctx, prompt, params.Memory)...)

		eventChan <- interfaces.StreamEvent{
			Type:      interfaces.StreamEventMessageStart,
			Timestamp: time.Now(),
			Metadata: map[string]interface{}{
				"model": c.Model,
				"tools": len(openaiTools),
			},
		}

		for iteration := 0; iteration < maxIterations; iteration++ {
			req := c.buildRequest(messages, params)
			req.Tools = openaiTools
			req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}

			stream := c.ChatService.Completions.NewStreaming(ctx, req)

			// Tool call fragments arrive incrementally, keyed by index.
			type toolCallState struct {
				id        string
				name      string
				arguments strings.Builder
			}
			calls := map[int64]*toolCallState{}
			order := []int64{}

			var content strings.Builder
			finishedWithTools := false

			for stream.Next() {
				chunk := stream.Current()
				for _, choice := range chunk.Choices {
					if choice.Delta.Content != "" {
						content.WriteString(choice.Delta.Content)
						eventChan <- interfaces.StreamEvent{
							Type:      interfaces.StreamEventContentDelta,
							Content:   choice.Delta.Content,
							Timestamp: time.Now(),
							Metadata:  map[string]interface{}{"iteration": iteration + 1},
						}
					}
					for _, fragment := range choice.Delta.ToolCalls {
						state, ok := calls[fragment.Index]
						if !ok {
							state = &toolCallState{}
							calls[fragment.Index] = state
							order = append(order, fragment.Index)
						}
						if fragment.ID != "" {
							state.id = fragment.ID
						}
						if fragment.Function.Name != "" {
							state.name = fragment.Function.Name
						}
						state.arguments.WriteString(fragment.Function.Arguments)
					}
					if choice.FinishReason == "tool_calls" {
						finishedWithTools = true
					}
				}
			}

			if err := stream.Err(); err != nil {
				eventChan <- interfaces.StreamEvent{
					Type:      interfaces.StreamEventError,
					Error:     fmt.Errorf("openai streaming error: %w", err),
					Timestamp: time.Now(),
				}
				return
			}

			if !finishedWithTools || len(calls) == 0 {
				eventChan <- interfaces.StreamEvent{
					Type:      interfaces.StreamEventMessageStop,
					Timestamp: time.Now(),
				}
				return
			}

			// Rebuild the assistant message so the next request carries the
			// tool calls the model just made.
			assistantMsg := openai.ChatCompletionMessage{Role: "assistant", Content: content.String()}
			for _, index := range order {
				state := calls[index]
				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   state.id,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      state.name,
						Arguments: state.arguments.String(),
					},
				})
			}
			messages = append(messages, assistantMsg.ToParam())

			for _, index := range order {
				state := calls[index]
				call := &interfaces.ToolCall{
					ID:        state.id,
					Name:      state.name,
					Arguments: state.arguments.String(),
				}

				eventChan <- interfaces.StreamEvent{
					Type:      interfaces.StreamEventToolUse,
					ToolCall:  call,
					Timestamp: time.Now(),
					Metadata:  map[string]interface{}{"iteration": iteration + 1},
				}

				result, err := c.executeToolCall(ctx, tools, openai.ChatCompletionMessageToolCallUnion{
					ID: state.id,
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      state.name,
						Arguments: state.arguments.String(),
					},
				}, params.Memory)
				if err != nil {
					result = fmt.Sprintf("Error: %v", err)
				}

				eventChan <- interfaces.StreamEvent{
					Type:      interfaces.StreamEventToolResult,
					Content:   result,
					ToolCall:  call,
					Timestamp: time.Now(),
					Metadata:  map[string]interface{}{"iteration": iteration + 1},
				}

				messages = append(messages, openai.ToolMessage(result, state.id))
			}
		}

		// Iteration budget exhausted; stream a conclusion without tools.
		finalReq := c.buildRequest(append(messages,
			openai.SystemMessage("Provide your final response based on the information available. Do not request any additional tools.")), params)

		stream := c.ChatService.Completions.NewStreaming(ctx, finalReq)
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					eventChan <- interfaces.StreamEvent{
						Type:      interfaces.StreamEventContentDelta,
						Content:   choice.Delta.Content,
						Timestamp: time.Now(),
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			eventChan <- interfaces.StreamEvent{
				Type:      interfaces.StreamEventError,
				Error:     fmt.Errorf("openai streaming error: %w", err),
				Timestamp: time.Now(),
			}
			return
		}

		eventChan <- interfaces.StreamEvent{
			Type:      interfaces.StreamEventMessageStop,
			Timestamp: time.Now(),
		}
	}()

	return eventChan, nil
}
