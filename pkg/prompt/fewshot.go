package prompt

import (
	"strings"
)

// FewShotTemplate renders a prefix, a formatted example per entry, and a
// suffix containing the actual input.
type FewShotTemplate struct {
	prefix          *Template
	exampleTemplate *Template
	suffix          *Template
	examples        []map[string]interface{}
	separator       string
}

// FewShotOption represents an option for configuring the few-shot template
type FewShotOption func(*FewShotTemplate)

// WithPrefix sets the text rendered before the examples
func WithPrefix(prefix string) FewShotOption {
	return func(f *FewShotTemplate) {
		f.prefix = NewTemplate(prefix)
	}
}

// WithSeparator sets the string joining prefix, examples, and suffix
func WithSeparator(separator string) FewShotOption {
	return func(f *FewShotTemplate) {
		f.separator = separator
	}
}

// NewFewShotTemplate creates a few-shot template. exampleTemplate is rendered
// once per example, suffix once with the Format values.
func NewFewShotTemplate(exampleTemplate, suffix string, examples []map[string]interface{}, options ...FewShotOption) *FewShotTemplate {
	template := &FewShotTemplate{
		exampleTemplate: NewTemplate(exampleTemplate),
		suffix:          NewTemplate(suffix),
		examples:        examples,
		separator:       "\n\n",
	}

	for _, option := range options {
		option(template)
	}

	return template
}

// Format renders the full few-shot prompt
func (f *FewShotTemplate) Format(values map[string]interface{}) (string, error) {
	var parts []string

	if f.prefix != nil {
		prefix, err := f.prefix.Format(values)
		if err != nil {
			return "", err
		}
		parts = append(parts, prefix)
	}

	for _, example := range f.examples {
		rendered, err := f.exampleTemplate.Format(example)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}

	suffix, err := f.suffix.Format(values)
	if err != nil {
		return "", err
	}
	parts = append(parts, suffix)

	return strings.Join(parts, f.separator), nil
}
