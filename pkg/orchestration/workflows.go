package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tagus/agentlab/pkg/agent"
	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

const defaultMaxApprovalIterations = 2

// StepResult records one agent invocation inside a workflow.
type StepResult struct {
	AgentName  string `json:"agent_name"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
}

// WorkflowResult is the outcome of a workflow run. Approved and Iterations are
// only meaningful for the approval workflow.
type WorkflowResult struct {
	Task       string       `json:"task"`
	Output     string       `json:"output"`
	Steps      []StepResult `json:"steps"`
	Approved   bool         `json:"approved,omitempty"`
	Iterations int          `json:"iterations,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

// Team holds the standard research, analysis, writer, and critic agents and
// runs them as workflows.
type Team struct {
	researcher *agent.Agent
	analyst    *agent.Agent
	writer     *agent.Agent
	critic     *agent.Agent

	maxApprovalIterations int
	agentOptions          []agent.Option
	logger                logging.Logger
}

// TeamOption configures a Team.
type TeamOption func(*Team)

// WithMaxApprovalIterations bounds the writer/critic review loop.
func WithMaxApprovalIterations(iterations int) TeamOption {
	return func(t *Team) {
		if iterations > 0 {
			t.maxApprovalIterations = iterations
		}
	}
}

// WithLogger sets the logger used by workflow runs.
func WithLogger(logger logging.Logger) TeamOption {
	return func(t *Team) {
		t.logger = logger
	}
}

// WithAgentOptions applies extra options to every agent the team creates,
// for example a shared memory or sampling configuration.
func WithAgentOptions(options ...agent.Option) TeamOption {
	return func(t *Team) {
		t.agentOptions = options
	}
}

// NewTeam builds the four standard agents on the given LLM.
func NewTeam(llm interfaces.LLM, options ...TeamOption) (*Team, error) {
	team := &Team{
		maxApprovalIterations: defaultMaxApprovalIterations,
		logger:                logging.New(),
	}
	for _, option := range options {
		option(team)
	}

	var err error
	if team.researcher, err = NewResearchAgent(llm, team.agentOptions...); err != nil {
		return nil, fmt.Errorf("failed to create research agent: %w", err)
	}
	if team.analyst, err = NewAnalysisAgent(llm, team.agentOptions...); err != nil {
		return nil, fmt.Errorf("failed to create analysis agent: %w", err)
	}
	if team.writer, err = NewWriterAgent(llm, team.agentOptions...); err != nil {
		return nil, fmt.Errorf("failed to create writer agent: %w", err)
	}
	if team.critic, err = NewCriticAgent(llm, team.agentOptions...); err != nil {
		return nil, fmt.Errorf("failed to create critic agent: %w", err)
	}

	return team, nil
}

// Registry returns the team's agents registered under their names, ready for
// use with a Planner.
func (t *Team) Registry() *AgentRegistry {
	registry := NewAgentRegistry()
	registry.Register(t.researcher.GetName(), t.researcher)
	registry.Register(t.analyst.GetName(), t.analyst)
	registry.Register(t.writer.GetName(), t.writer)
	registry.Register(t.critic.GetName(), t.critic)
	return registry
}

// runStep runs one agent and records the invocation.
func runStep(ctx context.Context, a *agent.Agent, input string, steps *[]StepResult) (string, error) {
	start := time.Now()
	output, err := a.Run(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%s step failed: %w", a.GetName(), err)
	}

	*steps = append(*steps, StepResult{
		AgentName:  a.GetName(),
		Input:      input,
		Output:     output,
		DurationMs: time.Since(start).Milliseconds(),
	})
	return output, nil
}

// Sequential runs research, analysis, and writing in order, passing each
// step's output to the next.
func (t *Team) Sequential(ctx context.Context, task string) (*WorkflowResult, error) {
	if task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}

	start := time.Now()
	t.logger.Info(ctx, "Sequential workflow started", map[string]interface{}{"task": task})

	var steps []StepResult

	research, err := runStep(ctx, t.researcher, task, &steps)
	if err != nil {
		return nil, err
	}

	analysis, err := runStep(ctx, t.analyst, analysisInput(task, research), &steps)
	if err != nil {
		return nil, err
	}

	output, err := runStep(ctx, t.writer, writerInput(task, research, analysis), &steps)
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

// Parallel researches each subtask concurrently, aggregates the findings in
// subtask order, then runs analysis and writing over the combined result.
func (t *Team) Parallel(ctx context.Context, task string, subtasks []string) (*WorkflowResult, error) {
	if task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}
	if len(subtasks) == 0 {
		return nil, fmt.Errorf("at least one subtask is required")
	}

	start := time.Now()
	t.logger.Info(ctx, "Parallel workflow started", map[string]interface{}{
		"task":     task,
		"subtasks": len(subtasks),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	findings := make([]StepResult, len(subtasks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, subtask := range subtasks {
		wg.Add(1)
		go func(i int, subtask string) {
			defer wg.Done()

			input := fmt.Sprintf("As part of the overall task %q, research this aspect: %s", task, subtask)
			stepStart := time.Now()
			output, err := t.researcher.Run(ctx, input)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("research for subtask %q failed: %w", subtask, err)
					cancel()
				}
				return
			}
			findings[i] = StepResult{
				AgentName:  t.researcher.GetName(),
				Input:      input,
				Output:     output,
				DurationMs: time.Since(stepStart).Milliseconds(),
			}
		}(i, subtask)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	steps := findings
	var combined strings.Builder
	for i, finding := range findings {
		fmt.Fprintf(&combined, "## %s\n%s\n\n", subtasks[i], finding.Output)
	}

	analysis, err := runStep(ctx, t.analyst, analysisInput(task, combined.String()), &steps)
	if err != nil {
		return nil, err
	}

	output, err := runStep(ctx, t.writer, writerInput(task, combined.String(), analysis), &steps)
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

// HierarchicalApproval has the writer draft and the critic review. The loop
// runs at most the configured number of iterations; the draft is approved when
// the critique contains APPROVED. The last draft is returned either way.
func (t *Team) HierarchicalApproval(ctx context.Context, task string) (*WorkflowResult, error) {
	if task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}

	start := time.Now()
	t.logger.Info(ctx, "Approval workflow started", map[string]interface{}{
		"task":           task,
		"max_iterations": t.maxApprovalIterations,
	})

	var (
		steps      []StepResult
		draft      string
		approved   bool
		iterations int
	)

	draftInput := task
	for i := 0; i < t.maxApprovalIterations; i++ {
		iterations = i + 1

		var err error
		draft, err = runStep(ctx, t.writer, draftInput, &steps)
		if err != nil {
			return nil, err
		}

		critique, err := runStep(ctx, t.critic, critiqueInput(task, draft), &steps)
		if err != nil {
			return nil, err
		}

		if strings.Contains(critique, "APPROVED") {
			approved = true
			break
		}

		t.logger.Debug(ctx, "Draft rejected, revising", map[string]interface{}{
			"iteration": iterations,
		})
		draftInput = fmt.Sprintf("Task: %s\n\nPrevious draft:\n%s\n\nReviewer feedback:\n%s\n\nRevise the draft to address the feedback.",
			task, draft, critique)
	}

	t.logger.Info(ctx, "Approval workflow finished", map[string]interface{}{
		"approved":   approved,
		"iterations": iterations,
	})

	return &WorkflowResult{
		Task:       task,
		Output:     draft,
		Steps:      steps,
		Approved:   approved,
		Iterations: iterations,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func analysisInput(task, research string) string {
	return fmt.Sprintf("Task: %s\n\nResearch findings:\n%s\n\nAnalyze these findings and distill the key insights.", task, research)
}

func writerInput(task, research, analysis string) string {
	return fmt.Sprintf("Task: %s\n\nResearch findings:\n%s\n\nAnalysis:\n%s\n\nWrite the final response.", task, research, analysis)
}

func critiqueInput(task, draft string) string {
	return fmt.Sprintf("Task: %s\n\nDraft:\n%s\n\nReview this draft.", task, draft)
}
