// Package sum provides a tool that adds a list of numbers.
package sum

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// Tool implements the number-summing tool.
type Tool struct{}

// Input represents the input for the sum tool
type Input struct {
	Numbers []float64 `json:"numbers"`
}

// New creates a new sum tool
func New() *Tool {
	return &Tool{}
}

// Name implements interfaces.Tool.Name
func (t *Tool) Name() string {
	return "calculate_sum"
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (t *Tool) DisplayName() string {
	return "Sum Calculator"
}

// Description implements interfaces.Tool.Description
func (t *Tool) Description() string {
	return "Calculate the sum of a list of numbers"
}

// Internal implements interfaces.InternalTool.Internal
func (t *Tool) Internal() bool {
	return false
}

// Parameters implements interfaces.Tool.Parameters
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"numbers": {
			Type:        "array",
			Description: "The numbers to add together",
			Required:    true,
			Items:       &interfaces.ParameterSpec{Type: "number"},
		},
	}
}

// Run accepts numbers separated by commas or whitespace.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})

	var numbers []float64
	for _, field := range fields {
		num, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return "", fmt.Errorf("invalid number: %s", field)
		}
		numbers = append(numbers, num)
	}

	return total(numbers)
}

// Execute implements interfaces.Tool.Execute
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var input Input
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}
	return total(input.Numbers)
}

func total(numbers []float64) (string, error) {
	if len(numbers) == 0 {
		return "", fmt.Errorf("no numbers provided")
	}

	sum := 0.0
	for _, num := range numbers {
		sum += num
	}
	return strconv.FormatFloat(sum, 'g', -1, 64), nil
}
