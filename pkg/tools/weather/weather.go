// Package weather provides a deterministic demo weather tool with canned
// conditions per city. Useful for tool-calling examples and tests that must
// not depend on a live weather API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// Report holds the canned weather for one city.
type Report struct {
	TemperatureC int    `json:"temperature_c"`
	Conditions   string `json:"conditions"`
	Humidity     int    `json:"humidity"`
}

var cannedReports = map[string]Report{
	"tokyo":     {TemperatureC: 22, Conditions: "partly cloudy", Humidity: 65},
	"london":    {TemperatureC: 14, Conditions: "light rain", Humidity: 80},
	"new york":  {TemperatureC: 18, Conditions: "sunny", Humidity: 55},
	"sydney":    {TemperatureC: 25, Conditions: "clear", Humidity: 50},
	"são paulo": {TemperatureC: 27, Conditions: "thunderstorms", Humidity: 75},
}

var defaultReport = Report{TemperatureC: 20, Conditions: "mild", Humidity: 60}

// Tool implements the weather lookup tool.
type Tool struct{}

// Input represents the input for the weather tool
type Input struct {
	City string `json:"city"`
}

// New creates a new weather tool
func New() *Tool {
	return &Tool{}
}

// Name implements interfaces.Tool.Name
func (t *Tool) Name() string {
	return "get_weather"
}

// DisplayName implements interfaces.ToolWithDisplayName.DisplayName
func (t *Tool) DisplayName() string {
	return "Weather Lookup"
}

// Description implements interfaces.Tool.Description
func (t *Tool) Description() string {
	return "Get the current weather conditions for a city"
}

// Internal implements interfaces.InternalTool.Internal
func (t *Tool) Internal() bool {
	return false
}

// Parameters implements interfaces.Tool.Parameters
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"city": {
			Type:        "string",
			Description: "Name of the city to look up",
			Required:    true,
		},
	}
}

// Run implements interfaces.Tool.Run
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	return lookup(input)
}

// Execute implements interfaces.Tool.Execute
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var input Input
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}
	return lookup(input.City)
}

func lookup(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("city is required")
	}

	report, ok := cannedReports[strings.ToLower(city)]
	if !ok {
		report = defaultReport
	}

	return fmt.Sprintf("Weather in %s: %s, %d°C, %d%% humidity",
		city, report.Conditions, report.TemperatureC, report.Humidity), nil
}
