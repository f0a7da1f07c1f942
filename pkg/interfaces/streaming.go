package interfaces

import (
	"context"
	"time"
)

// StreamEventType identifies the kind of event emitted on a completion stream.
type StreamEventType string

const (
	StreamEventMessageStart    StreamEventType = "message_start"
	StreamEventContentDelta    StreamEventType = "content_delta"
	StreamEventContentComplete StreamEventType = "content_complete"
	StreamEventThinking        StreamEventType = "thinking"
	StreamEventToolUse         StreamEventType = "tool_use"
	StreamEventToolResult      StreamEventType = "tool_result"
	StreamEventMessageStop     StreamEventType = "message_stop"
	StreamEventError           StreamEventType = "error"
)

// StreamEvent is a single event on an LLM completion stream. The channel is
// always closed by the producer; errors arrive as StreamEventError events.
type StreamEvent struct {
	Type      StreamEventType        `json:"type"`
	Content   string                 `json:"content,omitempty"`
	ToolCall  *ToolCall              `json:"tool_call,omitempty"`
	Error     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StreamConfig tunes streaming behavior.
type StreamConfig struct {
	// BufferSize is the event channel capacity. Zero means the default.
	BufferSize int

	// IncludeThinking forwards reasoning deltas as thinking events.
	IncludeThinking bool
}

// AgentEventType identifies the kind of event emitted on an agent stream.
type AgentEventType string

const (
	AgentEventContent    AgentEventType = "content"
	AgentEventThinking   AgentEventType = "thinking"
	AgentEventToolCall   AgentEventType = "tool_call"
	AgentEventToolResult AgentEventType = "tool_result"
	AgentEventError      AgentEventType = "error"
	AgentEventComplete   AgentEventType = "complete"
)

// ToolCallEvent describes a tool invocation surfaced on an agent stream.
type ToolCallEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Internal    bool   `json:"internal,omitempty"`
	Arguments   string `json:"arguments,omitempty"`
	Result      string `json:"result,omitempty"`
	Status      string `json:"status,omitempty"`
}

// AgentStreamEvent is a single event on an agent run stream.
type AgentStreamEvent struct {
	Type         AgentEventType         `json:"type"`
	Content      string                 `json:"content,omitempty"`
	ThinkingStep string                 `json:"thinking_step,omitempty"`
	ToolCall     *ToolCallEvent         `json:"tool_call,omitempty"`
	Error        error                  `json:"-"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// StreamingAgent is implemented by agents that can stream their runs.
type StreamingAgent interface {
	RunStream(ctx context.Context, input string) (<-chan AgentStreamEvent, error)
}
