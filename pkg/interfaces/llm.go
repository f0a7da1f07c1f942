package interfaces

import "context"

// LLM generates text from prompts, optionally calling tools along the way.
type LLM interface {
	// Name returns the provider/model identifier used for logging.
	Name() string

	// Generate produces a completion for a single prompt.
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// Chat produces a completion for an explicit message history.
	Chat(ctx context.Context, messages []Message, options ...GenerateOption) (string, error)

	// GenerateWithTools produces a completion, executing tool calls the model
	// requests until it answers or the iteration bound is hit.
	GenerateWithTools(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (string, error)
}

// DetailedLLM is implemented by providers that report model and token usage
// metadata alongside completions.
type DetailedLLM interface {
	LLM

	GenerateDetailed(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)
	GenerateWithToolsDetailed(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (*LLMResponse, error)
}

// StreamingLLM is implemented by providers that can stream completions.
type StreamingLLM interface {
	LLM

	GenerateStream(ctx context.Context, prompt string, options ...GenerateOption) (<-chan StreamEvent, error)
	GenerateWithToolsStream(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (<-chan StreamEvent, error)
}

// LLMConfig holds per-request sampling parameters.
type LLMConfig struct {
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
	// Reasoning controls reasoning effort for models that support it
	// ("minimal", "low", "medium", "high"). Empty means provider default.
	Reasoning string
}

// ResponseFormatType identifies how the model output should be constrained.
type ResponseFormatType string

const (
	ResponseFormatText ResponseFormatType = "text"
	ResponseFormatJSON ResponseFormatType = "json_object"
)

// JSONSchema is a JSON schema document used for structured output.
type JSONSchema map[string]interface{}

// ResponseFormat asks the model for structured output matching a schema.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name"`
	Schema JSONSchema         `json:"schema"`
}

// GenerateOptions collects per-call generation settings.
type GenerateOptions struct {
	LLMConfig      *LLMConfig
	SystemMessage  string
	ResponseFormat *ResponseFormat
	Memory         Memory
	MaxIterations  int
	StreamConfig   *StreamConfig
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// WithSystemMessage sets the system prompt for this call.
func WithSystemMessage(message string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemMessage = message
	}
}

// WithLLMConfig sets sampling parameters for this call.
func WithLLMConfig(config LLMConfig) GenerateOption {
	return func(o *GenerateOptions) {
		o.LLMConfig = &config
	}
}

// WithTemperature sets only the sampling temperature.
func WithTemperature(temperature float64) GenerateOption {
	return func(o *GenerateOptions) {
		if o.LLMConfig == nil {
			o.LLMConfig = &LLMConfig{}
		}
		o.LLMConfig.Temperature = temperature
	}
}

// WithTopP sets only the nucleus sampling parameter.
func WithTopP(topP float64) GenerateOption {
	return func(o *GenerateOptions) {
		if o.LLMConfig == nil {
			o.LLMConfig = &LLMConfig{}
		}
		o.LLMConfig.TopP = topP
	}
}

// WithStopSequences sets stop sequences for this call.
func WithStopSequences(sequences []string) GenerateOption {
	return func(o *GenerateOptions) {
		if o.LLMConfig == nil {
			o.LLMConfig = &LLMConfig{}
		}
		o.LLMConfig.StopSequences = sequences
	}
}

// WithReasoning sets the reasoning effort for this call.
func WithReasoning(effort string) GenerateOption {
	return func(o *GenerateOptions) {
		if o.LLMConfig == nil {
			o.LLMConfig = &LLMConfig{}
		}
		o.LLMConfig.Reasoning = effort
	}
}

// WithResponseFormat requests structured output matching a schema.
func WithResponseFormat(format ResponseFormat) GenerateOption {
	return func(o *GenerateOptions) {
		o.ResponseFormat = &format
	}
}

// WithMemory attaches conversation memory; history is sent with the request and
// tool traffic is recorded back into it.
func WithMemory(memory Memory) GenerateOption {
	return func(o *GenerateOptions) {
		o.Memory = memory
	}
}

// WithMaxIterations bounds the tool-calling loop.
func WithMaxIterations(iterations int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxIterations = iterations
	}
}

// WithStreamConfig configures streaming behavior for this call.
func WithStreamConfig(config StreamConfig) GenerateOption {
	return func(o *GenerateOptions) {
		o.StreamConfig = &config
	}
}

// TokenUsage reports token consumption for one or more model calls.
type TokenUsage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	TotalTokens     int `json:"total_tokens"`
}

// LLMResponse is a completion plus provider metadata.
type LLMResponse struct {
	Content    string                 `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason,omitempty"`
	Usage      *TokenUsage            `json:"usage,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
