package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

type contextKey string

const (
	recursionDepthKey contextKey = "recursion_depth"

	// MaxRecursionDepth bounds sub-agent nesting.
	MaxRecursionDepth = 5
)

// SubAgent is the minimal agent surface needed to expose an agent as a tool.
type SubAgent interface {
	Run(ctx context.Context, input string) (string, error)
	RunDetailed(ctx context.Context, input string) (*interfaces.AgentResponse, error)
	GetName() string
	GetDescription() string
}

// AgentTool wraps an agent so another agent can delegate to it as a tool.
type AgentTool struct {
	agent       SubAgent
	name        string
	description string
	timeout     time.Duration
	logger      logging.Logger
}

// NewAgentTool creates a new agent tool wrapper
func NewAgentTool(agent SubAgent) *AgentTool {
	return &AgentTool{
		agent:       agent,
		name:        fmt.Sprintf("%s_agent", agent.GetName()),
		description: agent.GetDescription(),
		timeout:     10 * time.Minute,
		logger:      logging.New(),
	}
}

// WithTimeout sets a custom timeout for the agent tool
func (at *AgentTool) WithTimeout(timeout time.Duration) *AgentTool {
	at.timeout = timeout
	return at
}

// WithLogger sets a custom logger for the agent tool
func (at *AgentTool) WithLogger(logger logging.Logger) *AgentTool {
	at.logger = logger
	return at
}

// SetDescription allows updating the tool description
func (at *AgentTool) SetDescription(description string) {
	at.description = description
}

// Name returns the name of the tool
func (at *AgentTool) Name() string {
	return at.name
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (at *AgentTool) DisplayName() string {
	return fmt.Sprintf("%s Agent", at.agent.GetName())
}

// Description returns the description of what the tool does
func (at *AgentTool) Description() string {
	if at.description != "" {
		return at.description
	}
	return fmt.Sprintf("Delegate a task to the %s agent", at.agent.GetName())
}

// Internal implements interfaces.InternalTool.Internal
func (at *AgentTool) Internal() bool {
	return false
}

// Parameters returns the parameters that the tool accepts
func (at *AgentTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: fmt.Sprintf("The query or task to send to the %s agent", at.agent.GetName()),
			Required:    true,
		},
	}
}

// Run delegates the input to the wrapped agent, bounding recursion depth and
// wall time.
func (at *AgentTool) Run(ctx context.Context, input string) (string, error) {
	agentName := at.agent.GetName()

	depth := recursionDepth(ctx)
	if depth >= MaxRecursionDepth {
		return "", fmt.Errorf("maximum sub-agent recursion depth %d exceeded", MaxRecursionDepth)
	}
	ctx = context.WithValue(ctx, recursionDepthKey, depth+1)

	ctx, cancel := context.WithTimeout(ctx, at.timeout)
	defer cancel()

	start := time.Now()
	at.logger.Debug(ctx, "Invoking sub-agent", map[string]interface{}{
		"sub_agent":       agentName,
		"recursion_depth": depth + 1,
	})

	response, err := at.agent.RunDetailed(ctx, input)
	if err != nil {
		at.logger.Error(ctx, "Sub-agent execution failed", map[string]interface{}{
			"sub_agent": agentName,
			"error":     err.Error(),
			"duration":  time.Since(start).String(),
		})
		return "", fmt.Errorf("sub-agent %s failed: %w", agentName, err)
	}

	fields := map[string]interface{}{
		"sub_agent": agentName,
		"duration":  time.Since(start).String(),
	}
	if response.Usage != nil {
		fields["total_tokens"] = response.Usage.TotalTokens
	}
	at.logger.Info(ctx, "Sub-agent execution completed", fields)

	return response.Content, nil
}

// Execute implements interfaces.Tool.Execute
func (at *AgentTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	return at.Run(ctx, params.Query)
}

func recursionDepth(ctx context.Context) int {
	if depth, ok := ctx.Value(recursionDepthKey).(int); ok {
		return depth
	}
	return 0
}
