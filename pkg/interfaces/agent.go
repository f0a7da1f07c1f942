package interfaces

// ExecutionSummary records what happened during an agent run.
type ExecutionSummary struct {
	LLMCalls        int      `json:"llm_calls"`
	ToolCalls       int      `json:"tool_calls"`
	UsedTools       []string `json:"used_tools"`
	UsedSubAgents   []string `json:"used_sub_agents"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// AgentResponse is the detailed result of an agent run.
type AgentResponse struct {
	Content          string                 `json:"content"`
	AgentName        string                 `json:"agent_name,omitempty"`
	Model            string                 `json:"model,omitempty"`
	Usage            *TokenUsage            `json:"usage,omitempty"`
	ExecutionSummary *ExecutionSummary      `json:"execution_summary,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}
