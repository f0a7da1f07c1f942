package outputparser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringParser(t *testing.T) {
	parser := NewStringParser()

	result, err := parser.Parse("  hello world \n")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestCommaSeparatedListParser(t *testing.T) {
	parser := NewCommaSeparatedListParser()

	items, err := parser.Parse("red, green ,blue,, ")
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "green", "blue"}, items)

	_, err = parser.Parse("   ")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "   ", parseErr.Output)
}

type movieReview struct {
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
	Tags   []string `json:"tags,omitempty"`
}

func TestJSONParserFencedBlock(t *testing.T) {
	parser := NewJSONParser(movieReview{})

	output := "Here is my review:\n```json\n{\"title\": \"Heat\", \"rating\": 9.5, \"tags\": [\"crime\"]}\n```\nHope that helps!"

	var review movieReview
	require.NoError(t, parser.Parse(output, &review))
	assert.Equal(t, "Heat", review.Title)
	assert.Equal(t, 9.5, review.Rating)
	assert.Equal(t, []string{"crime"}, review.Tags)
}

func TestJSONParserBraceFallback(t *testing.T) {
	parser := NewJSONParser(movieReview{})

	output := `Sure! {"title": "Alien", "rating": 9} is my verdict.`

	var review movieReview
	require.NoError(t, parser.Parse(output, &review))
	assert.Equal(t, "Alien", review.Title)
}

func TestJSONParserErrors(t *testing.T) {
	parser := NewJSONParser(movieReview{})

	var review movieReview
	err := parser.Parse("no json here at all", &review)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "no json here at all", parseErr.Output)

	err = parser.Parse(`{"title": `, &review)
	require.Error(t, err)
}

func TestJSONParserFormatInstructions(t *testing.T) {
	parser := NewJSONParser(movieReview{})

	instructions := parser.FormatInstructions()
	assert.Contains(t, instructions, "```json")
	assert.Contains(t, instructions, `"title"`)

	format := parser.ResponseFormat()
	assert.Equal(t, "movieReview", format.Name)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"bare object", `prefix {"a": 1} suffix`, `{"a": 1}`},
		{"bare array", "values: [1, 2, 3]!", `[1, 2, 3]`},
		{"nothing", "just text", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSON(tt.input))
		})
	}
}
