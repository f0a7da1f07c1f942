// Package prompt provides string and chat prompt templates with {variable}
// placeholders, few-shot example formatting, and partial binding.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a prompt template with {variable} placeholders.
type Template struct {
	template string
	partials map[string]interface{}
}

// NewTemplate creates a new template from a format string
func NewTemplate(template string) *Template {
	return &Template{
		template: template,
		partials: make(map[string]interface{}),
	}
}

// Variables returns the placeholder names in the template, in order of first
// appearance, excluding partially bound ones.
func (t *Template) Variables() []string {
	matches := placeholderPattern.FindAllStringSubmatch(t.template, -1)

	seen := make(map[string]bool)
	var variables []string
	for _, match := range matches {
		name := match[1]
		if seen[name] {
			continue
		}
		if _, bound := t.partials[name]; bound {
			continue
		}
		seen[name] = true
		variables = append(variables, name)
	}

	return variables
}

// Partial returns a copy of the template with the given variables pre-bound.
func (t *Template) Partial(values map[string]interface{}) *Template {
	partials := make(map[string]interface{}, len(t.partials)+len(values))
	for k, v := range t.partials {
		partials[k] = v
	}
	for k, v := range values {
		partials[k] = v
	}

	return &Template{
		template: t.template,
		partials: partials,
	}
}

// Format renders the template. Every placeholder must be satisfied either by
// the values map or by a partial binding.
func (t *Template) Format(values map[string]interface{}) (string, error) {
	var missing []string

	result := placeholderPattern.ReplaceAllStringFunc(t.template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := values[name]; ok {
			return fmt.Sprintf("%v", value)
		}
		if value, ok := t.partials[name]; ok {
			return fmt.Sprintf("%v", value)
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return result, nil
}

// MustFormat renders the template and panics on missing variables. Intended
// for templates with static or fully partial-bound inputs.
func (t *Template) MustFormat(values map[string]interface{}) string {
	result, err := t.Format(values)
	if err != nil {
		panic(err)
	}
	return result
}
