package interfaces

import "context"

// ParameterSpec describes a single tool parameter for schema generation.
type ParameterSpec struct {
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Default     interface{}    `json:"default,omitempty"`
	Enum        []string       `json:"enum,omitempty"`
	Items       *ParameterSpec `json:"items,omitempty"`
}

// Tool is a capability the model can invoke during generation.
type Tool interface {
	// Name returns the identifier the model uses to call the tool.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Parameters describes the tool's argument schema.
	Parameters() map[string]ParameterSpec

	// Run executes the tool with free-form input.
	Run(ctx context.Context, input string) (string, error)

	// Execute executes the tool with a JSON argument payload.
	Execute(ctx context.Context, args string) (string, error)
}

// ToolWithDisplayName is implemented by tools with a human-facing name.
type ToolWithDisplayName interface {
	Tool
	DisplayName() string
}

// InternalTool marks tools whose results should not be surfaced verbatim.
type InternalTool interface {
	Tool
	Internal() bool
}

// ToolRegistry holds a named set of tools.
type ToolRegistry interface {
	Register(tool Tool) error
	Get(name string) (Tool, error)
	List() []Tool
}
