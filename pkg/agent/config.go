package agent

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// LLMConfigYAML represents sampling parameters in an agent definition file.
type LLMConfigYAML struct {
	Temperature   *float64 `yaml:"temperature,omitempty"`
	TopP          *float64 `yaml:"top_p,omitempty"`
	StopSequences []string `yaml:"stop_sequences,omitempty"`
	Reasoning     string   `yaml:"reasoning,omitempty"`
}

// AgentConfig represents the configuration for an agent loaded from YAML.
// The system prompt is assembled from role, goal, and backstory.
type AgentConfig struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`

	Description         string         `yaml:"description,omitempty"`
	MaxIterations       *int           `yaml:"max_iterations,omitempty"`
	RequirePlanApproval *bool          `yaml:"require_plan_approval,omitempty"`
	LLMConfig           *LLMConfigYAML `yaml:"llm_config,omitempty"`
}

// AgentConfigs maps agent names to their configurations
type AgentConfigs map[string]AgentConfig

// LoadAgentConfigs loads agent configurations from a YAML file
func LoadAgentConfigs(path string) (AgentConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config file: %w", err)
	}

	var configs AgentConfigs
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse agent config file: %w", err)
	}

	return configs, nil
}

// substituteVariables replaces {variable} placeholders in config text
func substituteVariables(text string, variables map[string]string) string {
	for name, value := range variables {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// SystemPrompt assembles the agent's system prompt from the config fields,
// substituting {variable} placeholders.
func (c AgentConfig) SystemPrompt(variables map[string]string) string {
	var parts []string
	if c.Role != "" {
		parts = append(parts, "You are "+substituteVariables(c.Role, variables)+".")
	}
	if c.Goal != "" {
		parts = append(parts, "Your goal: "+substituteVariables(c.Goal, variables))
	}
	if c.Backstory != "" {
		parts = append(parts, substituteVariables(c.Backstory, variables))
	}
	return strings.Join(parts, "\n\n")
}

// WithAgentConfig applies a YAML agent configuration
func WithAgentConfig(config AgentConfig, variables map[string]string) Option {
	return func(a *Agent) {
		if prompt := config.SystemPrompt(variables); prompt != "" {
			a.systemPrompt = prompt
		}
		if config.Description != "" {
			a.description = substituteVariables(config.Description, variables)
		}
		if config.MaxIterations != nil {
			a.maxIterations = *config.MaxIterations
		}
		if config.RequirePlanApproval != nil {
			a.planFirst = *config.RequirePlanApproval
		}
		if config.LLMConfig != nil {
			llmConfig := &interfaces.LLMConfig{}
			if config.LLMConfig.Temperature != nil {
				llmConfig.Temperature = *config.LLMConfig.Temperature
			}
			if config.LLMConfig.TopP != nil {
				llmConfig.TopP = *config.LLMConfig.TopP
			}
			llmConfig.StopSequences = config.LLMConfig.StopSequences
			llmConfig.Reasoning = config.LLMConfig.Reasoning
			a.llmConfig = llmConfig
		}
	}
}

// NewAgentFromConfig creates an agent by name from loaded configurations
func NewAgentFromConfig(agentName string, configs AgentConfigs, variables map[string]string, options ...Option) (*Agent, error) {
	config, ok := configs[agentName]
	if !ok {
		return nil, fmt.Errorf("agent configuration not found: %s", agentName)
	}

	allOptions := append([]Option{WithName(agentName), WithAgentConfig(config, variables)}, options...)
	return NewAgent(allOptions...)
}

// LoadFromFile creates an agent by name from a YAML definition file
func LoadFromFile(agentName, path string, variables map[string]string, options ...Option) (*Agent, error) {
	configs, err := LoadAgentConfigs(path)
	if err != nil {
		return nil, err
	}
	return NewAgentFromConfig(agentName, configs, variables, options...)
}
