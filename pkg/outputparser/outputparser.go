// Package outputparser turns raw model output into typed values: plain
// strings, comma separated lists, and JSON bound to a struct schema.
package outputparser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/structuredoutput"
)

// ParseError reports a failure to parse model output. Output carries the raw
// text so callers can log or retry with it.
type ParseError struct {
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StringParser passes output through, trimming surrounding whitespace.
type StringParser struct{}

// NewStringParser creates a new string parser
func NewStringParser() *StringParser {
	return &StringParser{}
}

// FormatInstructions returns instructions to append to the prompt
func (p *StringParser) FormatInstructions() string {
	return "Respond with plain text."
}

// Parse returns the trimmed output
func (p *StringParser) Parse(text string) (string, error) {
	return strings.TrimSpace(text), nil
}

// CommaSeparatedListParser splits output on commas into trimmed items.
type CommaSeparatedListParser struct{}

// NewCommaSeparatedListParser creates a new list parser
func NewCommaSeparatedListParser() *CommaSeparatedListParser {
	return &CommaSeparatedListParser{}
}

// FormatInstructions returns instructions to append to the prompt
func (p *CommaSeparatedListParser) FormatInstructions() string {
	return "Your response should be a list of comma separated values, for example: `foo, bar, baz`."
}

// Parse splits the output into trimmed, non-empty items
func (p *CommaSeparatedListParser) Parse(text string) ([]string, error) {
	var items []string
	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, &ParseError{Output: text, Err: fmt.Errorf("no list items found")}
	}

	return items, nil
}

// JSONParser extracts a JSON object from model output and unmarshals it into
// a struct. The schema for the format instructions is derived from the struct
// via reflection.
type JSONParser struct {
	format *interfaces.ResponseFormat
}

// NewJSONParser creates a JSON parser for the given struct type
func NewJSONParser(v interface{}) *JSONParser {
	return &JSONParser{
		format: structuredoutput.NewResponseFormat(v),
	}
}

// ResponseFormat exposes the derived response format so callers can also pass
// it to the LLM as a generate option.
func (p *JSONParser) ResponseFormat() *interfaces.ResponseFormat {
	return p.format
}

// FormatInstructions returns instructions including the JSON schema
func (p *JSONParser) FormatInstructions() string {
	schemaJSON, err := json.MarshalIndent(p.format.Schema, "", "  ")
	if err != nil {
		return "Respond with a JSON object."
	}
	return fmt.Sprintf("Respond with a JSON object matching this schema:\n```json\n%s\n```", schemaJSON)
}

// Parse extracts the JSON payload from the output and unmarshals it into
// target, which must be a pointer.
func (p *JSONParser) Parse(text string, target interface{}) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return &ParseError{Output: text, Err: fmt.Errorf("no JSON object found")}
	}

	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return &ParseError{Output: text, Err: err}
	}

	return nil
}

// ExtractJSON pulls the JSON payload out of model output. Fenced ```json
// blocks are preferred; otherwise the outermost brace or bracket pair is
// used. Returns an empty string when nothing JSON-like is present.
func ExtractJSON(text string) string {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(text, fence)
		if start == -1 {
			continue
		}
		rest := text[start+len(fence):]
		end := strings.Index(rest, "```")
		if end == -1 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if candidate != "" {
			return candidate
		}
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start != -1 && end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}

	return ""
}
