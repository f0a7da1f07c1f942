// Package agent ties an LLM, tools, and memory into a runnable agent with
// optional plan-first prompting and streaming.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

const defaultMaxIterations = 2

// Agent executes prompts against an LLM with its configured tools and memory.
type Agent struct {
	llm            interfaces.LLM
	memory         interfaces.Memory
	tools          []interfaces.Tool
	systemPrompt   string
	name           string
	description    string
	llmConfig      *interfaces.LLMConfig
	responseFormat *interfaces.ResponseFormat
	maxIterations  int
	planFirst      bool
	logger         logging.Logger
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithLLM sets the LLM for the agent
func WithLLM(llm interfaces.LLM) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithMemory sets the memory for the agent
func WithMemory(memory interfaces.Memory) Option {
	return func(a *Agent) {
		a.memory = memory
	}
}

// WithTools sets the tools available to the agent
func WithTools(tools ...interfaces.Tool) Option {
	return func(a *Agent) {
		a.tools = deduplicateTools(tools)
	}
}

// WithSystemPrompt sets the system prompt for the agent
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithName sets the name of the agent
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithDescription sets the description of the agent
func WithDescription(description string) Option {
	return func(a *Agent) {
		a.description = description
	}
}

// WithLLMConfig sets default sampling parameters for the agent's calls
func WithLLMConfig(config interfaces.LLMConfig) Option {
	return func(a *Agent) {
		a.llmConfig = &config
	}
}

// WithResponseFormat requests structured output from every run
func WithResponseFormat(format interfaces.ResponseFormat) Option {
	return func(a *Agent) {
		a.responseFormat = &format
	}
}

// WithMaxIterations bounds the tool-calling loop per run
func WithMaxIterations(maxIterations int) Option {
	return func(a *Agent) {
		a.maxIterations = maxIterations
	}
}

// WithRequirePlanApproval makes the agent draft a short plan before
// answering. The plan is logged and folded into the final prompt. Off by
// default.
func WithRequirePlanApproval(require bool) Option {
	return func(a *Agent) {
		a.planFirst = require
	}
}

// WithLogger sets the logger for the agent
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

func deduplicateTools(tools []interfaces.Tool) []interfaces.Tool {
	seen := make(map[string]bool, len(tools))
	var unique []interfaces.Tool
	for _, tool := range tools {
		if tool == nil || seen[tool.Name()] {
			continue
		}
		seen[tool.Name()] = true
		unique = append(unique, tool)
	}
	return unique
}

// NewAgent creates a new agent
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		name:          "agent",
		maxIterations: defaultMaxIterations,
		logger:        logging.New(),
	}

	for _, option := range options {
		option(agent)
	}

	if agent.llm == nil {
		return nil, fmt.Errorf("agent requires an LLM")
	}

	return agent, nil
}

// GetName returns the agent's name
func (a *Agent) GetName() string {
	return a.name
}

// GetDescription returns the agent's description
func (a *Agent) GetDescription() string {
	return a.description
}

// GetLLM returns the agent's LLM
func (a *Agent) GetLLM() interfaces.LLM {
	return a.llm
}

// GetMemory returns the agent's memory
func (a *Agent) GetMemory() interfaces.Memory {
	return a.memory
}

// GetTools returns the agent's tools
func (a *Agent) GetTools() []interfaces.Tool {
	return a.tools
}

// Run executes the agent and returns the response text
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	response, err := a.run(ctx, input, false)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// RunDetailed executes the agent and returns the response with token usage
// and an execution summary.
func (a *Agent) RunDetailed(ctx context.Context, input string) (*interfaces.AgentResponse, error) {
	return a.run(ctx, input, true)
}

func (a *Agent) run(ctx context.Context, input string, detailed bool) (*interfaces.AgentResponse, error) {
	if input == "" {
		return nil, fmt.Errorf("input cannot be empty")
	}

	start := time.Now()
	tracker := newUsageTracker(detailed)

	a.logger.Debug(ctx, "Agent run started", map[string]interface{}{
		"agent": a.name,
		"tools": len(a.tools),
	})

	if a.memory != nil {
		if err := a.memory.AddMessage(ctx, interfaces.Message{
			Role:    interfaces.MessageRoleUser,
			Content: input,
		}); err != nil {
			return nil, fmt.Errorf("failed to add user message to memory: %w", err)
		}
	}

	prompt := input
	if a.planFirst {
		plan, err := a.draftPlan(ctx, input, tracker)
		if err != nil {
			a.logger.Warn(ctx, "Plan drafting failed, continuing without plan", map[string]interface{}{
				"error": err.Error(),
			})
		} else if plan != "" {
			prompt = fmt.Sprintf("Plan:\n%s\n\nTask: %s\n\nFollow the plan above to complete the task.", plan, input)
		}
	}

	content, err := a.generate(ctx, prompt, tracker)
	if err != nil {
		return nil, err
	}

	if a.memory != nil {
		if err := a.memory.AddMessage(ctx, interfaces.Message{
			Role:    interfaces.MessageRoleAssistant,
			Content: content,
		}); err != nil {
			return nil, fmt.Errorf("failed to add agent message to memory: %w", err)
		}
	}

	tracker.setExecutionTime(time.Since(start).Milliseconds())
	usage, summary, model := tracker.getResults()
	if model == "" {
		model = a.llm.Name()
	}

	a.logger.Info(ctx, "Agent run completed", map[string]interface{}{
		"agent":    a.name,
		"duration": time.Since(start).String(),
	})

	return &interfaces.AgentResponse{
		Content:          content,
		AgentName:        a.name,
		Model:            model,
		Usage:            usage,
		ExecutionSummary: summary,
	}, nil
}

// generate makes one LLM call with the agent's configuration, routing
// through the detailed API when usage tracking is on and the provider
// supports it.
func (a *Agent) generate(ctx context.Context, prompt string, tracker *usageTracker) (string, error) {
	options := a.generateOptions()
	detailedLLM, hasDetailed := a.llm.(interfaces.DetailedLLM)

	if len(a.tools) > 0 {
		for _, tool := range a.tools {
			tracker.addToolCall(tool.Name())
		}

		if tracker.detailed && hasDetailed {
			resp, err := detailedLLM.GenerateWithToolsDetailed(ctx, prompt, a.tools, options...)
			if err != nil {
				return "", fmt.Errorf("failed to generate response: %w", err)
			}
			tracker.addLLMUsage(resp.Usage, resp.Model)
			return resp.Content, nil
		}

		tracker.addLLMUsage(nil, "")
		response, err := a.llm.GenerateWithTools(ctx, prompt, a.tools, options...)
		if err != nil {
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		return response, nil
	}

	if tracker.detailed && hasDetailed {
		resp, err := detailedLLM.GenerateDetailed(ctx, prompt, options...)
		if err != nil {
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		tracker.addLLMUsage(resp.Usage, resp.Model)
		return resp.Content, nil
	}

	tracker.addLLMUsage(nil, "")
	response, err := a.llm.Generate(ctx, prompt, options...)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	return response, nil
}

func (a *Agent) draftPlan(ctx context.Context, input string, tracker *usageTracker) (string, error) {
	planPrompt := fmt.Sprintf("Create a short numbered plan (3 steps or fewer) for this task. Reply with the plan only.\n\nTask: %s", input)

	tracker.addLLMUsage(nil, "")
	plan, err := a.llm.Generate(ctx, planPrompt, interfaces.WithSystemMessage(a.systemPrompt))
	if err != nil {
		return "", err
	}

	a.logger.Info(ctx, "Agent plan drafted", map[string]interface{}{
		"agent": a.name,
		"plan":  plan,
	})
	return plan, nil
}

func (a *Agent) generateOptions() []interfaces.GenerateOption {
	var options []interfaces.GenerateOption

	if a.systemPrompt != "" {
		options = append(options, interfaces.WithSystemMessage(a.systemPrompt))
	}
	if a.llmConfig != nil {
		options = append(options, interfaces.WithLLMConfig(*a.llmConfig))
	}
	if a.responseFormat != nil {
		options = append(options, interfaces.WithResponseFormat(*a.responseFormat))
	}
	if a.memory != nil {
		options = append(options, interfaces.WithMemory(a.memory))
	}
	options = append(options, interfaces.WithMaxIterations(a.maxIterations))

	return options
}
