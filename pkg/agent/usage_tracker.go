package agent

import (
	"sync"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// usageTracker accumulates token usage and an execution summary across the
// LLM and tool calls of one run. All methods are no-ops unless detailed
// tracking was requested.
type usageTracker struct {
	totalUsage   *interfaces.TokenUsage
	execSummary  *interfaces.ExecutionSummary
	detailed     bool
	primaryModel string
	mu           sync.Mutex
}

func newUsageTracker(detailed bool) *usageTracker {
	return &usageTracker{
		totalUsage: &interfaces.TokenUsage{},
		execSummary: &interfaces.ExecutionSummary{
			UsedTools:     []string{},
			UsedSubAgents: []string{},
		},
		detailed: detailed,
	}
}

// addLLMUsage records one LLM call. usage may be nil when the provider does
// not report token counts.
func (ut *usageTracker) addLLMUsage(usage *interfaces.TokenUsage, model string) {
	if !ut.detailed {
		return
	}

	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.execSummary.LLMCalls++

	if usage != nil {
		ut.totalUsage.InputTokens += usage.InputTokens
		ut.totalUsage.OutputTokens += usage.OutputTokens
		ut.totalUsage.ReasoningTokens += usage.ReasoningTokens
		ut.totalUsage.TotalTokens += usage.TotalTokens
	}
	if ut.primaryModel == "" && model != "" {
		ut.primaryModel = model
	}
}

func (ut *usageTracker) addToolCall(toolName string) {
	if !ut.detailed {
		return
	}

	ut.mu.Lock()
	defer ut.mu.Unlock()

	for _, used := range ut.execSummary.UsedTools {
		if used == toolName {
			return
		}
	}

	ut.execSummary.UsedTools = append(ut.execSummary.UsedTools, toolName)
	ut.execSummary.ToolCalls++
}

func (ut *usageTracker) setExecutionTime(timeMs int64) {
	if !ut.detailed {
		return
	}

	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.execSummary.ExecutionTimeMs = timeMs
}

func (ut *usageTracker) getResults() (*interfaces.TokenUsage, *interfaces.ExecutionSummary, string) {
	if !ut.detailed {
		return nil, nil, ""
	}

	ut.mu.Lock()
	defer ut.mu.Unlock()

	return ut.totalUsage, ut.execSummary, ut.primaryModel
}
