// Package openai implements the LLM interfaces on top of the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/multitenancy"
	"github.com/tagus/agentlab/pkg/retry"
)

const (
	defaultModel          = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTemperature    = 0.7
	defaultMaxIterations  = 2
)

// OpenAIClient talks to the OpenAI API. The embedded services are exported so
// tests can point them at a mock server.
type OpenAIClient struct {
	Client      openai.Client
	ChatService openai.ChatService

	APIKey         string
	Model          string
	EmbeddingModel string

	baseURL       string
	httpClient    *http.Client
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option configures the client.
type Option func(*OpenAIClient)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.Model = model
	}
}

// WithEmbeddingModel sets the model used for embeddings.
func WithEmbeddingModel(model string) Option {
	return func(c *OpenAIClient) {
		c.EmbeddingModel = model
	}
}

// WithBaseURL points the client at a different endpoint, e.g. a proxy or a
// test server.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *OpenAIClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// WithRetry enables retries with the given policy options.
func WithRetry(opts ...retry.Option) Option {
	return func(c *OpenAIClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates an OpenAI client.
func NewClient(apiKey string, options ...Option) *OpenAIClient {
	client := &OpenAIClient{
		APIKey:         apiKey,
		Model:          defaultModel,
		EmbeddingModel: defaultEmbeddingModel,
		logger:         logging.New(),
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

	client.Client = openai.NewClient(requestOptions...)
	client.ChatService = openai.NewChatService(requestOptions...)

	return client
}

// Name implements interfaces.LLM.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// SupportsStreaming reports that this client implements StreamingLLM.
func (c *OpenAIClient) SupportsStreaming() bool {
	return true
}

// WithResponseFormat requests structured output matching a schema.
func WithResponseFormat(format interfaces.ResponseFormat) interfaces.GenerateOption {
	return interfaces.WithResponseFormat(format)
}

// WithReasoning sets the reasoning effort for reasoning-capable models.
func WithReasoning(effort string) interfaces.GenerateOption {
	return interfaces.WithReasoning(effort)
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

func (c *OpenAIClient) buildRequest(messages []openai.ChatCompletionMessageParamUnion, params *interfaces.GenerateOptions) openai.ChatCompletionNewParams {
	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.Model),
		Messages: messages,
	}

	if cfg := params.LLMConfig; cfg != nil {
		req.Temperature = openai.Float(cfg.Temperature)
		if cfg.TopP > 0 {
			req.TopP = openai.Float(cfg.TopP)
		}
		if cfg.FrequencyPenalty != 0 {
			req.FrequencyPenalty = openai.Float(cfg.FrequencyPenalty)
		}
		if cfg.PresencePenalty != 0 {
			req.PresencePenalty = openai.Float(cfg.PresencePenalty)
		}
		if len(cfg.StopSequences) > 0 {
			req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: cfg.StopSequences}
		}
		if cfg.Reasoning != "" {
			req.ReasoningEffort = shared.ReasoningEffort(cfg.Reasoning)
		}
	}

	if params.ResponseFormat != nil {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				Type: "json_schema",
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   params.ResponseFormat.Name,
					Schema: params.ResponseFormat.Schema,
				},
			},
		}
	}

	return req
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	var resp *openai.ChatCompletion

	operation := func() error {
		var err error
		resp, err = c.ChatService.Completions.New(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create chat completion: %w", err)
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
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completions returned")
	}
	return resp, nil
}

// Generate implements interfaces.LLM.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	resp, err := c.generate(ctx, prompt, applyOptions(options...))
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) generate(ctx context.Context, prompt string, params *interfaces.GenerateOptions) (*openai.ChatCompletion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if params.SystemMessage != "" {
		messages = append(messages, openai.SystemMessage(params.SystemMessage))
	}
	builder := newMessageHistoryBuilder(c.logger)
	messages = append(messages, builder.buildMessages(ctx, prompt, params.Memory)...)

	c.logger.Debug(ctx, "Sending OpenAI request", map[string]interface{}{
		"model":    c.Model,
		"messages": len(messages),
	})

	resp, err := c.complete(ctx, c.buildRequest(messages, params))
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Chat implements interfaces.LLM for an explicit message history.
func (c *OpenAIClient) Chat(ctx context.Context, messages []interfaces.Message, options ...interfaces.GenerateOption) (string, error) {
	params := applyOptions(options...)

	converted := []openai.ChatCompletionMessageParamUnion{}
	if params.SystemMessage != "" {
		converted = append(converted, openai.SystemMessage(params.SystemMessage))
	}
	builder := newMessageHistoryBuilder(c.logger)
	for _, msg := range messages {
		if param := builder.convertMemoryMessage(msg); param != nil {
			converted = append(converted, *param)
		}
	}

	resp, err := c.complete(ctx, c.buildRequest(converted, params))
	if err != nil {
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateWithTools implements interfaces.LLM. Tool calls requested by the
// model are executed and fed back until the model answers or MaxIterations is
// reached; after that one final call without tools forces a conclusion.
// Memory supplies the conversation history and receives the tool traffic;
// storing the user prompt and the final assistant reply is the caller's job.
func (c *OpenAIClient) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	return c.generateWithTools(ctx, prompt, tools, applyOptions(options...), nil)
}

// generateWithTools runs the tool loop. When usage is non-nil, token counts
// from every completion are accumulated into it.
func (c *OpenAIClient) generateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, params *interfaces.GenerateOptions, usage *interfaces.TokenUsage) (string, error) {
	maxIterations := params.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	if _, err := multitenancy.GetOrgID(ctx); err != nil {
		ctx = multitenancy.WithOrgID(ctx, multitenancy.DefaultOrgID)
	}

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

	for iteration := 0; iteration < maxIterations; iteration++ {
		req := c.buildRequest(messages, params)
		req.Tools = openaiTools
		req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}

		c.logger.Debug(ctx, "Sending OpenAI request with tools", map[string]interface{}{
			"model":         c.Model,
			"tools":         len(openaiTools),
			"iteration":     iteration + 1,
			"maxIterations": maxIterations,
		})

		resp, err := c.complete(ctx, req)
		if err != nil {
			return "", err
		}
		recordUsage(usage, resp)

		choice := resp.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			return strings.TrimSpace(choice.Message.Content), nil
		}

		// Feed the assistant's tool request back into the conversation.
		messages = append(messages, choice.Message.ToParam())

		for _, toolCall := range choice.Message.ToolCalls {
			result, execErr := c.executeToolCall(ctx, tools, toolCall, params.Memory)
			if execErr != nil {
				result = fmt.Sprintf("Error: %v", execErr)
			}
			messages = append(messages, openai.ToolMessage(result, toolCall.ID))
		}
	}

	// Out of iterations with the model still requesting tools. Ask for a
	// conclusion without offering tools.
	c.logger.Info(ctx, "Maximum tool iterations reached, requesting conclusion", map[string]interface{}{
		"maxIterations": maxIterations,
	})

	finalReq := c.buildRequest(append(messages,
		openai.SystemMessage("Provide your final response based on the information available. Do not request any additional tools.")), params)

	resp, err := c.complete(ctx, finalReq)
	if err != nil {
		return "", fmt.Errorf("failed to create final chat completion: %w", err)
	}
	recordUsage(usage, resp)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// executeToolCall runs one requested tool and records the exchange in memory.
func (c *OpenAIClient) executeToolCall(ctx context.Context, tools []interfaces.Tool, toolCall openai.ChatCompletionMessageToolCallUnion, memory interfaces.Memory) (string, error) {
	var selected interfaces.Tool
	for _, tool := range tools {
		if tool.Name() == toolCall.Function.Name {
			selected = tool
			break
		}
	}

	if memory != nil {
		_ = memory.AddMessage(ctx, interfaces.Message{
			Role: interfaces.MessageRoleAssistant,
			ToolCalls: []interfaces.ToolCall{{
				ID:        toolCall.ID,
				Name:      toolCall.Function.Name,
				Arguments: toolCall.Function.Arguments,
			}},
		})
	}

	if selected == nil {
		err := fmt.Errorf("tool not found: %s", toolCall.Function.Name)
		c.logger.Error(ctx, "Tool not found", map[string]interface{}{
			"toolName": toolCall.Function.Name,
		})
		c.storeToolResult(ctx, memory, toolCall, fmt.Sprintf("Error: %v", err))
		return "", err
	}

	c.logger.Info(ctx, "Executing tool", map[string]interface{}{
		"toolName": selected.Name(),
	})

	result, err := selected.Execute(ctx, toolCall.Function.Arguments)
	if err != nil {
		c.logger.Error(ctx, "Error executing tool", map[string]interface{}{
			"toolName": selected.Name(),
			"error":    err.Error(),
		})
		c.storeToolResult(ctx, memory, toolCall, fmt.Sprintf("Error: %v", err))
		return "", err
	}

	c.storeToolResult(ctx, memory, toolCall, result)
	return result, nil
}

func (c *OpenAIClient) storeToolResult(ctx context.Context, memory interfaces.Memory, toolCall openai.ChatCompletionMessageToolCallUnion, result string) {
	if memory == nil {
		return
	}
	_ = memory.AddMessage(ctx, interfaces.Message{
		Role:       interfaces.MessageRoleTool,
		Content:    result,
		ToolCallID: toolCall.ID,
		Metadata: map[string]interface{}{
			"tool_name": toolCall.Function.Name,
		},
	})
}

// convertToOpenAISchema turns ParameterSpecs into a JSON schema object.
func convertToOpenAISchema(params map[string]interfaces.ParameterSpec) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for name, param := range params {
		property := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			property["default"] = param.Default
		}
		if len(param.Enum) > 0 {
			property["enum"] = param.Enum
		}
		if param.Items != nil {
			items := map[string]interface{}{"type": param.Items.Type}
			if len(param.Items.Enum) > 0 {
				items["enum"] = param.Items.Enum
			}
			property["items"] = items
		}
		properties[name] = property
		if param.Required {
			required = append(required, name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
