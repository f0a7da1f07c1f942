// Package clock provides a tool returning the current time, optionally in a
// named timezone.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// Tool implements the current-time tool.
type Tool struct {
	// now is replaceable for tests.
	now func() time.Time
}

// Input represents the input for the clock tool
type Input struct {
	Timezone string `json:"timezone,omitempty"`
}

// New creates a new clock tool
func New() *Tool {
	return &Tool{now: time.Now}
}

// Name implements interfaces.Tool.Name
func (t *Tool) Name() string {
	return "get_current_time"
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (t *Tool) DisplayName() string {
	return "Current Time"
}

// Description implements interfaces.Tool.Description
func (t *Tool) Description() string {
	return "Get the current date and time, optionally in a specific timezone (IANA name such as 'Asia/Tokyo')"
}

// Internal implements interfaces.InternalTool.Internal
func (t *Tool) Internal() bool {
	return false
}

// Parameters implements interfaces.Tool.Parameters
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"timezone": {
			Type:        "string",
			Description: "IANA timezone name, defaults to UTC",
			Required:    false,
		},
	}
}

// Run implements interfaces.Tool.Run
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	return t.report(strings.TrimSpace(input))
}

// Execute implements interfaces.Tool.Execute
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var input Input
	if args != "" {
		if err := json.Unmarshal([]byte(args), &input); err != nil {
			return "", fmt.Errorf("failed to parse input: %w", err)
		}
	}
	return t.report(input.Timezone)
}

func (t *Tool) report(timezone string) (string, error) {
	location := time.UTC
	if timezone != "" {
		var err error
		location, err = time.LoadLocation(timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", timezone, err)
		}
	}

	now := t.now().In(location)
	return now.Format("Monday, January 2, 2006 at 15:04:05 MST"), nil
}
