package chain

import (
	"context"
	"fmt"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/prompt"
)

// Streamer is implemented by runnables whose final step can stream output.
type Streamer interface {
	// StreamInvoke runs the step and streams the model output instead of
	// returning it in one piece.
	StreamInvoke(ctx context.Context, input map[string]interface{}) (<-chan interfaces.StreamEvent, error)
}

// OutputKey is the map key prompt chains store their result under.
const OutputKey = "output"

// PromptChain renders a template, calls the LLM, and optionally parses the
// response.
type PromptChain struct {
	template  *prompt.Template
	llm       interfaces.LLM
	parse     func(string) (interface{}, error)
	outputKey string
	llmOpts   []interfaces.GenerateOption
}

// PromptChainOption represents an option for configuring a prompt chain
type PromptChainOption func(*PromptChain)

// WithParser sets a parse function applied to the raw model output
func WithParser(parse func(string) (interface{}, error)) PromptChainOption {
	return func(p *PromptChain) {
		p.parse = parse
	}
}

// WithOutputKey sets the map key the result is stored under
func WithOutputKey(key string) PromptChainOption {
	return func(p *PromptChain) {
		p.outputKey = key
	}
}

// WithGenerateOptions sets options forwarded to the LLM call
func WithGenerateOptions(options ...interfaces.GenerateOption) PromptChainOption {
	return func(p *PromptChain) {
		p.llmOpts = options
	}
}

// NewPromptChain creates a template -> LLM -> parser chain
func NewPromptChain(template *prompt.Template, llm interfaces.LLM, options ...PromptChainOption) *PromptChain {
	chain := &PromptChain{
		template:  template,
		llm:       llm,
		outputKey: OutputKey,
	}

	for _, option := range options {
		option(chain)
	}

	return chain
}

// Invoke renders the template from the input values, generates, and stores
// the parsed result under the output key alongside the input values.
func (p *PromptChain) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	rendered, err := p.template.Format(input)
	if err != nil {
		return nil, err
	}

	response, err := p.llm.Generate(ctx, rendered, p.llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}

	var result interface{} = response
	if p.parse != nil {
		result, err = p.parse(response)
		if err != nil {
			return nil, err
		}
	}

	output := make(map[string]interface{}, len(input)+1)
	for k, v := range input {
		output[k] = v
	}
	output[p.outputKey] = result

	return output, nil
}

// StreamInvoke renders the template and streams the model output. The LLM
// must implement StreamingLLM; parsers are skipped since output arrives in
// deltas.
func (p *PromptChain) StreamInvoke(ctx context.Context, input map[string]interface{}) (<-chan interfaces.StreamEvent, error) {
	streamer, ok := p.llm.(interfaces.StreamingLLM)
	if !ok {
		return nil, fmt.Errorf("llm %s does not support streaming", p.llm.Name())
	}

	rendered, err := p.template.Format(input)
	if err != nil {
		return nil, err
	}

	return streamer.GenerateStream(ctx, rendered, p.llmOpts...)
}

// StreamInvoke runs every step but the last with Invoke, then streams the
// final step. The final step must implement Streamer.
func (s *sequential) StreamInvoke(ctx context.Context, input map[string]interface{}) (<-chan interfaces.StreamEvent, error) {
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("empty chain cannot stream")
	}

	tail, ok := s.steps[len(s.steps)-1].(Streamer)
	if !ok {
		return nil, fmt.Errorf("final chain step does not support streaming")
	}

	current := input
	for i, step := range s.steps[:len(s.steps)-1] {
		output, err := step.Invoke(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("chain step %d failed: %w", i, err)
		}
		current = output
	}

	return tail.StreamInvoke(ctx, current)
}
