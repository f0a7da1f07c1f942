package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tagus/agentlab/pkg/agent"
	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/outputparser"
)

// AgentRegistry is a registry of agents available to a planner.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*agent.Agent)}
}

// Register adds an agent under an ID, replacing any existing entry.
func (r *AgentRegistry) Register(id string, a *agent.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = a
}

// Get retrieves an agent by ID.
func (r *AgentRegistry) Get(id string) (*agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns the registered agents keyed by ID.
func (r *AgentRegistry) List() map[string]*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make(map[string]*agent.Agent, len(r.agents))
	for id, a := range r.agents {
		agents[id] = a
	}
	return agents
}

// Step is one planned agent invocation. Inputs may reference earlier outputs
// with {{step_N}} placeholders; DependsOn lists the step IDs that must finish
// first.
type Step struct {
	AgentID     string   `json:"agent_id"`
	Input       string   `json:"input"`
	Description string   `json:"description,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// Plan is a sequence of steps produced by the planning LLM. Step IDs are
// positional: the first step is step_1, the second step_2, and so on.
type Plan struct {
	Steps        []Step `json:"steps"`
	FinalAgentID string `json:"final_agent_id"`
}

// Planner asks an LLM to break a task into steps over registered agents, then
// executes the steps in dependency order.
type Planner struct {
	registry *AgentRegistry
	llm      interfaces.LLM
	logger   logging.Logger
}

// NewPlanner creates a planner over a registry of agents.
func NewPlanner(llm interfaces.LLM, registry *AgentRegistry) *Planner {
	return &Planner{
		registry: registry,
		llm:      llm,
		logger:   logging.New(),
	}
}

// WithLogger sets the planner's logger.
func (p *Planner) WithLogger(logger logging.Logger) *Planner {
	p.logger = logger
	return p
}

// Execute plans the task, runs the plan, and synthesizes a final response
// with the plan's final agent.
func (p *Planner) Execute(ctx context.Context, task string) (*WorkflowResult, error) {
	if task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}

	start := time.Now()

	plan, err := p.createPlan(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	p.logger.Info(ctx, "Plan created", map[string]interface{}{
		"steps":       len(plan.Steps),
		"final_agent": plan.FinalAgentID,
	})

	steps, results, err := p.executePlan(ctx, plan)
	if err != nil {
		return nil, err
	}

	output, err := p.finalResponse(ctx, task, plan, results)
	if err != nil {
		return nil, err
	}

	return &WorkflowResult{
		Task:       task,
		Output:     output,
		Steps:      steps,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// createPlan asks the LLM for a JSON plan over the registered agents.
func (p *Planner) createPlan(ctx context.Context, task string) (*Plan, error) {
	prompt := fmt.Sprintf(`You are an orchestrator that breaks a task into steps for specialized agents.

Available agents:
%s

Task: %s

Create an execution plan as JSON:
{
  "steps": [
    {
      "agent_id": "<agent id>",
      "input": "<input for the agent>",
      "description": "<what this step accomplishes>",
      "depends_on": ["step_1"]
    }
  ],
  "final_agent_id": "<agent that synthesizes the final response>"
}

Rules:
- Steps are numbered step_1, step_2, ... in order.
- depends_on lists the steps whose output a step needs; use [] for none.
- Reference an earlier step's output inside an input as {{step_N}}.
- Use only the agent IDs listed above.

Respond with only the JSON plan.`, p.describeAgents(), task)

	response, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(outputparser.ExtractJSON(response)), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}

	for i, step := range plan.Steps {
		if _, ok := p.registry.Get(step.AgentID); !ok {
			return nil, fmt.Errorf("plan step %d references unknown agent: %s", i+1, step.AgentID)
		}
	}
	if plan.FinalAgentID != "" {
		if _, ok := p.registry.Get(plan.FinalAgentID); !ok {
			return nil, fmt.Errorf("plan references unknown final agent: %s", plan.FinalAgentID)
		}
	}

	return &plan, nil
}

func (p *Planner) describeAgents() string {
	var sb strings.Builder
	for id, a := range p.registry.List() {
		description := a.GetDescription()
		if description == "" {
			description = "no description"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", id, description)
	}
	return sb.String()
}

// executePlan runs the steps respecting depends_on ordering. Step outputs are
// substituted into later inputs via {{step_N}}.
func (p *Planner) executePlan(ctx context.Context, plan *Plan) ([]StepResult, map[string]string, error) {
	results := make(map[string]string, len(plan.Steps))
	steps := make([]StepResult, 0, len(plan.Steps))
	completed := make(map[int]bool, len(plan.Steps))

	// Each pass runs every step whose dependencies are satisfied. If a full
	// pass completes nothing, the dependency graph has a cycle or refers to
	// missing steps.
	for len(completed) < len(plan.Steps) {
		progressed := false

		for i, step := range plan.Steps {
			if completed[i] {
				continue
			}

			ready := true
			for _, dep := range step.DependsOn {
				if _, ok := results[dep]; !ok {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}

			stepID := fmt.Sprintf("step_%d", i+1)
			input := step.Input
			for dep, output := range results {
				input = strings.ReplaceAll(input, "{{"+dep+"}}", output)
			}

			a, _ := p.registry.Get(step.AgentID)
			p.logger.Debug(ctx, "Executing plan step", map[string]interface{}{
				"step":  stepID,
				"agent": step.AgentID,
			})

			stepStart := time.Now()
			output, err := a.Run(ctx, input)
			if err != nil {
				return nil, nil, fmt.Errorf("%s (%s) failed: %w", stepID, step.AgentID, err)
			}

			results[stepID] = output
			completed[i] = true
			progressed = true
			steps = append(steps, StepResult{
				AgentName:  step.AgentID,
				Input:      input,
				Output:     output,
				DurationMs: time.Since(stepStart).Milliseconds(),
			})
		}

		if !progressed {
			return nil, nil, fmt.Errorf("plan has unresolvable dependencies")
		}
	}

	return steps, results, nil
}

// finalResponse synthesizes the step outputs with the plan's final agent. If
// no final agent is set, the last step's output is returned as-is.
func (p *Planner) finalResponse(ctx context.Context, task string, plan *Plan, results map[string]string) (string, error) {
	if plan.FinalAgentID == "" {
		return results[fmt.Sprintf("step_%d", len(plan.Steps))], nil
	}

	var sb strings.Builder
	for i, step := range plan.Steps {
		stepID := fmt.Sprintf("step_%d", i+1)
		fmt.Fprintf(&sb, "--- %s (%s) ---\n%s\n\n", stepID, step.AgentID, results[stepID])
	}

	finalAgent, _ := p.registry.Get(plan.FinalAgentID)
	prompt := fmt.Sprintf("Task: %s\n\nStep results:\n%s\nSynthesize the final response to the task.", task, sb.String())

	output, err := finalAgent.Run(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("final response failed: %w", err)
	}
	return output, nil
}
