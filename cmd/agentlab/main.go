// Command agentlab runs the multi-agent workflows from the command line.
//
//	agentlab sequential "task"
//	agentlab parallel -subtasks "a,b,c" "task"
//	agentlab hierarchical "task"
//	agentlab plan "task"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tagus/agentlab/pkg/agent"
	"github.com/tagus/agentlab/pkg/config"
	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/llm/anthropic"
	"github.com/tagus/agentlab/pkg/llm/ollama"
	"github.com/tagus/agentlab/pkg/llm/openai"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/orchestration"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	provider := flags.String("provider", "openai", "LLM provider: openai, anthropic, or ollama")
	model := flags.String("model", "", "model name (defaults to the configured model)")
	temperature := flags.Float64("temperature", 0, "sampling temperature (0 uses the provider default)")
	subtasks := flags.String("subtasks", "", "comma-separated subtasks (parallel only)")
	verbose := flags.Bool("verbose", false, "print per-step outputs")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	task := strings.TrimSpace(strings.Join(flags.Args(), " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, "error: a task is required")
		usage()
		os.Exit(2)
	}

	logger := logging.New()
	ctx := context.Background()

	llm, err := buildLLM(*provider, *model, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var agentOptions []agent.Option
	agentOptions = append(agentOptions, agent.WithLogger(logger))
	if *temperature > 0 {
		agentOptions = append(agentOptions, agent.WithLLMConfig(interfaces.LLMConfig{Temperature: *temperature}))
	}

	team, err := orchestration.NewTeam(llm,
		orchestration.WithLogger(logger),
		orchestration.WithMaxApprovalIterations(config.Get().Orchestration.MaxApprovalIterations),
		orchestration.WithAgentOptions(agentOptions...),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var result *orchestration.WorkflowResult
	switch command {
	case "sequential":
		result, err = team.Sequential(ctx, task)
	case "parallel":
		parts := splitSubtasks(*subtasks)
		if len(parts) == 0 {
			fmt.Fprintln(os.Stderr, "error: parallel requires -subtasks \"a,b,c\"")
			os.Exit(2)
		}
		result, err = team.Parallel(ctx, task, parts)
	case "hierarchical":
		result, err = team.HierarchicalApproval(ctx, task)
	case "plan":
		planner := orchestration.NewPlanner(llm, team.Registry()).WithLogger(logger)
		result, err = planner.Execute(ctx, task)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *verbose {
		for _, step := range result.Steps {
			fmt.Printf("== %s (%dms) ==\n%s\n\n", step.AgentName, step.DurationMs, step.Output)
		}
	}
	fmt.Println(result.Output)

	if command == "hierarchical" {
		fmt.Fprintf(os.Stderr, "approved=%v iterations=%d\n", result.Approved, result.Iterations)
	}
}

func buildLLM(provider, model string, logger logging.Logger) (interfaces.LLM, error) {
	cfg := config.Get()

	switch provider {
	case "openai":
		if model == "" {
			model = cfg.LLM.OpenAI.Model
		}
		return openai.NewClient(cfg.LLM.OpenAI.APIKey,
			openai.WithModel(model),
			openai.WithLogger(logger),
		), nil
	case "anthropic":
		if model == "" {
			model = cfg.LLM.Anthropic.Model
		}
		return anthropic.NewClient(cfg.LLM.Anthropic.APIKey,
			anthropic.WithModel(model),
			anthropic.WithLogger(logger),
		), nil
	case "ollama":
		options := []ollama.Option{ollama.WithLogger(logger)}
		if model != "" {
			options = append(options, ollama.WithModel(model))
		}
		return ollama.NewClient(options...), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func splitSubtasks(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: agentlab <command> [flags] "task"

commands:
  sequential    research -> analysis -> writing
  parallel      concurrent research per subtask, then analysis and writing
  hierarchical  writer drafts, critic reviews until approved
  plan          LLM plans and executes steps over the standard agents

flags:
  -provider     openai | anthropic | ollama (default openai)
  -model        model name
  -temperature  sampling temperature
  -subtasks     comma-separated subtasks (parallel)
  -verbose      print per-step outputs`)
}
