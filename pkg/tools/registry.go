// Package tools provides the tool registry and tools that wrap agents as
// callable tools. Concrete tools live in subpackages.
package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// Registry implements the ToolRegistry interface
type Registry struct {
	tools map[string]interfaces.Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry(tools ...interfaces.Tool) *Registry {
	registry := &Registry{
		tools: make(map[string]interfaces.Tool),
	}
	for _, tool := range tools {
		registry.tools[tool.Name()] = tool
	}
	return registry
}

// Register registers a tool. Registering a name twice is an error.
func (r *Registry) Register(tool interfaces.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q is already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get returns a tool by name
func (r *Registry) Get(name string) (interfaces.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	return tool, nil
}

// List returns all registered tools sorted by name
func (r *Registry) List() []interfaces.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]interfaces.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}
