// Package orchestration coordinates multiple agents into workflows:
// sequential pipelines, parallel fan-out, a writer/critic approval loop, and
// an LLM-planned execution over a registry of agents.
package orchestration

import (
	"github.com/tagus/agentlab/pkg/agent"
	"github.com/tagus/agentlab/pkg/interfaces"
)

const (
	researchSystemPrompt = "You are a research specialist. Gather relevant facts, figures, and context " +
		"for the task you are given. Report findings as concise bullet points and note " +
		"anything uncertain. Do not draw conclusions, only collect information."

	analysisSystemPrompt = "You are an analyst. Examine the research findings you are given, identify " +
		"patterns and trade-offs, and distill the key insights. Be critical of weak " +
		"evidence and say what follows from the findings and what does not."

	writerSystemPrompt = "You are a technical writer. Turn the material you are given into clear, " +
		"well-structured prose for a general technical audience. Prefer short " +
		"paragraphs and concrete language."

	criticSystemPrompt = "You are an exacting editor reviewing a draft. Check it for accuracy, " +
		"structure, and clarity. If the draft is good enough to publish, reply with " +
		"the single word APPROVED. Otherwise list the specific problems to fix."
)

// NewResearchAgent creates an agent that gathers facts and context for a task.
func NewResearchAgent(llm interfaces.LLM, options ...agent.Option) (*agent.Agent, error) {
	base := []agent.Option{
		agent.WithLLM(llm),
		agent.WithName("researcher"),
		agent.WithDescription("Gathers facts, figures, and context for a topic"),
		agent.WithSystemPrompt(researchSystemPrompt),
	}
	return agent.NewAgent(append(base, options...)...)
}

// NewAnalysisAgent creates an agent that distills insights from research.
func NewAnalysisAgent(llm interfaces.LLM, options ...agent.Option) (*agent.Agent, error) {
	base := []agent.Option{
		agent.WithLLM(llm),
		agent.WithName("analyst"),
		agent.WithDescription("Identifies patterns and key insights in research findings"),
		agent.WithSystemPrompt(analysisSystemPrompt),
	}
	return agent.NewAgent(append(base, options...)...)
}

// NewWriterAgent creates an agent that produces polished prose.
func NewWriterAgent(llm interfaces.LLM, options ...agent.Option) (*agent.Agent, error) {
	base := []agent.Option{
		agent.WithLLM(llm),
		agent.WithName("writer"),
		agent.WithDescription("Writes clear, structured prose from source material"),
		agent.WithSystemPrompt(writerSystemPrompt),
	}
	return agent.NewAgent(append(base, options...)...)
}

// NewCriticAgent creates an agent that reviews drafts and either approves them
// or lists problems to fix.
func NewCriticAgent(llm interfaces.LLM, options ...agent.Option) (*agent.Agent, error) {
	base := []agent.Option{
		agent.WithLLM(llm),
		agent.WithName("critic"),
		agent.WithDescription("Reviews drafts for accuracy, structure, and clarity"),
		agent.WithSystemPrompt(criticSystemPrompt),
	}
	return agent.NewAgent(append(base, options...)...)
}
