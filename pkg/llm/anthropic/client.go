// Package anthropic implements the LLM interfaces on top of the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/retry"
)

const (
	defaultModel         = "claude-sonnet-4-20250514"
	defaultMaxTokens     = 4096
	defaultTemperature   = 0.7
	defaultMaxIterations = 2
)

// AnthropicClient talks to the Anthropic API.
type AnthropicClient struct {
	Client anthropic.Client

	Model     string
	MaxTokens int64

	baseURL       string
	httpClient    *http.Client
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option configures the client.
type Option func(*AnthropicClient)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *AnthropicClient) {
		c.Model = model
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *AnthropicClient) {
		c.MaxTokens = maxTokens
	}
}

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *AnthropicClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *AnthropicClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *AnthropicClient) {
		c.logger = logger
	}
}

// WithRetry enables retries with the given policy options.
func WithRetry(opts ...retry.Option) Option {
	return func(c *AnthropicClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates an Anthropic client.
func NewClient(apiKey string, options ...Option) *AnthropicClient {
	client := &AnthropicClient{
		Model:     defaultModel,
		MaxTokens: defaultMaxTokens,
		logger:    logging.New(),
	}

	for _, opt := range options {
		opt(client)
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if client.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(client.baseURL))
	}
	if client.httpClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(client.httpClient))
	}

	client.Client = anthropic.NewClient(requestOptions...)

	return client
}

// Name implements interfaces.LLM.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func applyOptions(options ...interfaces.GenerateOption) *interfaces.GenerateOptions {
	params := &interfaces.GenerateOptions{
		LLMConfig: &interfaces.LLMConfig{Temperature: defaultTemperature},
	}
	for _, opt := range options {
		if opt != nil {
			opt(params)
		}
	}
	if params.LLMConfig == nil {
		params.LLMConfig = &interfaces.LLMConfig{Temperature: defaultTemperature}
	}
	return params
}

func (c *AnthropicClient) buildParams(system string, messages []anthropic.MessageParam, cfg *interfaces.LLMConfig) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Model),
		Messages:  messages,
		MaxTokens: c.MaxTokens,
	}
	if cfg != nil {
		params.Temperature = anthropic.Float(cfg.Temperature)
		if cfg.TopP > 0 {
			params.TopP = anthropic.Float(cfg.TopP)
		}
		if len(cfg.StopSequences) > 0 {
			params.StopSequences = cfg.StopSequences
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system, Type: "text"}}
	}
	return params
}

func (c *AnthropicClient) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var resp *anthropic.Message

	operation := func() error {
		var err error
		resp, err = c.Client.Messages.New(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	}

	var err error
	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from Anthropic API")
	}
	return resp, nil
}

func textContent(resp *anthropic.Message) string {
	var sb strings.Builder
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			sb.WriteString(resp.Content[i].AsText().Text)
		}
	}
	return sb.String()
}

func toolUses(resp *anthropic.Message) []anthropic.ToolUseBlock {
	var uses []anthropic.ToolUseBlock
	for i := range resp.Content {
		if resp.Content[i].Type == "tool_use" {
			uses = append(uses, resp.Content[i].AsToolUse())
		}
	}
	return uses
}

// Generate implements interfaces.LLM.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options...)

	system, messages, err := c.buildMessages(ctx, prompt, params)
	if err != nil {
		return "", err
	}

	c.logger.Debug(ctx, "Sending Anthropic request", map[string]interface{}{
		"model":    c.Model,
		"messages": len(messages),
	})

	resp, err := c.send(ctx, c.buildParams(system, messages, params.LLMConfig))
	if err != nil {
		return "", err
	}

	return textContent(resp), nil
}

// Chat implements interfaces.LLM for an explicit message history.
func (c *AnthropicClient) Chat(ctx context.Context, messages []interfaces.Message, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options...)

	system, converted := convertHistory(messages)
	if params.SystemMessage != "" {
		system = strings.TrimSpace(params.SystemMessage + "\n\n" + system)
	}
	if len(converted) == 0 {
		return "", fmt.Errorf("message list cannot be empty")
	}

	resp, err := c.send(ctx, c.buildParams(system, converted, params.LLMConfig))
	if err != nil {
		return "", err
	}

	return textContent(resp), nil
}

// GenerateWithTools implements interfaces.LLM with an iterative tool loop.
func (c *AnthropicClient) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options...)

	maxIterations := params.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	system, messages, err := c.buildMessages(ctx, prompt, params)
	if err != nil {
		return "", err
	}

	anthropicTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		anthropicTools = append(anthropicTools, convertTool(tool))
	}

	var lastContent string

	for iteration := 0; iteration < maxIterations; iteration++ {
		reqParams := c.buildParams(system, messages, params.LLMConfig)
		reqParams.Tools = anthropicTools
		reqParams.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}

		c.logger.Debug(ctx, "Sending Anthropic request with tools", map[string]interface{}{
			"model":         c.Model,
			"tools":         len(anthropicTools),
			"iteration":     iteration + 1,
			"maxIterations": maxIterations,
		})

		resp, err := c.send(ctx, reqParams)
		if err != nil {
			return "", err
		}

		lastContent = textContent(resp)
		uses := toolUses(resp)
		if len(uses) == 0 {
			return lastContent, nil
		}

		messages = append(messages, resp.ToParam())

		var resultBlocks []anthropic.ContentBlockParamUnion
		for _, use := range uses {
			arguments := string(use.Input)
			result, execErr := c.executeTool(ctx, tools, use.ID, use.Name, arguments, params.Memory)
			isError := execErr != nil
			if isError {
				result = fmt.Sprintf("Error: %v", execErr)
			}
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(use.ID, result, isError))
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
	}

	// Iteration budget exhausted; ask for a conclusion without tools.
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(
		"Provide your final response based on the information available. Do not request any additional tools.")))

	resp, err := c.send(ctx, c.buildParams(system, messages, params.LLMConfig))
	if err != nil {
		if lastContent != "" {
			return lastContent, nil
		}
		return "", err
	}

	return textContent(resp), nil
}

func (c *AnthropicClient) executeTool(ctx context.Context, tools []interfaces.Tool, callID, name, arguments string, memory interfaces.Memory) (string, error) {
	var selected interfaces.Tool
	for _, tool := range tools {
		if tool.Name() == name {
			selected = tool
			break
		}
	}

	if memory != nil {
		_ = memory.AddMessage(ctx, interfaces.Message{
			Role: interfaces.MessageRoleAssistant,
			ToolCalls: []interfaces.ToolCall{{
				ID:        callID,
				Name:      name,
				Arguments: arguments,
			}},
		})
	}

	var result string
	var err error
	if selected == nil {
		err = fmt.Errorf("tool not found: %s", name)
	} else {
		c.logger.Info(ctx, "Executing tool", map[string]interface{}{"toolName": name})
		result, err = selected.Execute(ctx, arguments)
	}

	if memory != nil {
		content := result
		if err != nil {
			content = fmt.Sprintf("Error: %v", err)
		}
		_ = memory.AddMessage(ctx, interfaces.Message{
			Role:       interfaces.MessageRoleTool,
			Content:    content,
			ToolCallID: callID,
			Metadata:   map[string]interface{}{"tool_name": name},
		})
	}

	return result, err
}

// convertTool maps a Tool's parameter specs onto the Anthropic input schema.
func convertTool(tool interfaces.Tool) anthropic.ToolUnionParam {
	properties := make(map[string]interface{})
	var required []string

	for name, param := range tool.Parameters() {
		property := map[string]interface{}{"type": param.Type}
		if param.Description != "" {
			property["description"] = param.Description
		}
		if len(param.Enum) > 0 {
			property["enum"] = param.Enum
		}
		properties[name] = property
		if param.Required {
			required = append(required, name)
		}
	}

	return anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}, tool.Name())
}
