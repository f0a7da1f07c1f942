// Package calculator provides a tool that evaluates simple arithmetic
// expressions.
package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// Calculator evaluates binary arithmetic expressions: + - * / ^.
type Calculator struct{}

// Input represents the input for the calculator tool
type Input struct {
	Expression string `json:"expression"`
}

// New creates a new calculator tool
func New() *Calculator {
	return &Calculator{}
}

// Name implements interfaces.Tool.Name
func (c *Calculator) Name() string {
	return "calculator"
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (c *Calculator) DisplayName() string {
	return "Calculator"
}

// Description implements interfaces.Tool.Description
func (c *Calculator) Description() string {
	return "Perform mathematical calculations (add, subtract, multiply, divide, exponents)"
}

// Internal implements interfaces.InternalTool.Internal
func (c *Calculator) Internal() bool {
	return false
}

// Parameters implements interfaces.Tool.Parameters
func (c *Calculator) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"expression": {
			Type:        "string",
			Description: "The mathematical expression to evaluate (e.g., '2 + 2', '10 * 5', '7 / 3')",
			Required:    true,
		},
	}
}

// Run implements interfaces.Tool.Run
func (c *Calculator) Run(ctx context.Context, input string) (string, error) {
	return evaluate(input)
}

// Execute implements interfaces.Tool.Execute
func (c *Calculator) Execute(ctx context.Context, args string) (string, error) {
	var input Input
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}
	return evaluate(input.Expression)
}

// evaluate handles a single binary operation or a bare number. Operators are
// checked in an order that keeps a leading minus sign attached to the first
// operand.
func evaluate(expr string) (string, error) {
	expr = strings.ReplaceAll(strings.TrimSpace(expr), " ", "")
	if expr == "" {
		return "", fmt.Errorf("empty expression")
	}

	for _, op := range []string{"+", "*", "/", "^", "-"} {
		if len(expr) < 2 {
			break
		}
		// Skip a leading minus; look for the operator after the first rune.
		idx := strings.Index(expr[1:], op)
		if idx == -1 {
			continue
		}
		idx++

		a, err := strconv.ParseFloat(expr[:idx], 64)
		if err != nil {
			return "", fmt.Errorf("invalid first operand: %s", expr[:idx])
		}
		b, err := strconv.ParseFloat(expr[idx+1:], 64)
		if err != nil {
			return "", fmt.Errorf("invalid second operand: %s", expr[idx+1:])
		}

		result, err := apply(op, a, b)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(result, 'g', -1, 64), nil
	}

	if num, err := strconv.ParseFloat(expr, 64); err == nil {
		return strconv.FormatFloat(num, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("unsupported expression: %s", expr)
}

func apply(op string, a, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	case "^":
		return math.Pow(a, b), nil
	}
	return 0, fmt.Errorf("unknown operator: %s", op)
}
