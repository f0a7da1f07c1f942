package openai

import (
	"context"

	"github.com/openai/openai-go/v2"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// GenerateDetailed implements interfaces.DetailedLLM.
func (c *OpenAIClient) GenerateDetailed(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	resp, err := c.generate(ctx, prompt, applyOptions(options...))
	if err != nil {
		return nil, err
	}

	usage := &interfaces.TokenUsage{}
	recordUsage(usage, resp)

	return &interfaces.LLMResponse{
		Content:    resp.Choices[0].Message.Content,
		Model:      string(resp.Model),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage:      usage,
	}, nil
}

// GenerateWithToolsDetailed implements interfaces.DetailedLLM. Usage is
// accumulated across every completion in the tool loop.
func (c *OpenAIClient) GenerateWithToolsDetailed(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	usage := &interfaces.TokenUsage{}

	content, err := c.generateWithTools(ctx, prompt, tools, applyOptions(options...), usage)
	if err != nil {
		return nil, err
	}

	return &interfaces.LLMResponse{
		Content: content,
		Model:   c.Model,
		Usage:   usage,
	}, nil
}

// recordUsage adds a completion's token counts to usage. A nil usage means
// the caller did not ask for tracking.
func recordUsage(usage *interfaces.TokenUsage, resp *openai.ChatCompletion) {
	if usage == nil {
		return
	}
	usage.InputTokens += int(resp.Usage.PromptTokens)
	usage.OutputTokens += int(resp.Usage.CompletionTokens)
	usage.TotalTokens += int(resp.Usage.TotalTokens)
	usage.ReasoningTokens += int(resp.Usage.CompletionTokensDetails.ReasoningTokens)
}
