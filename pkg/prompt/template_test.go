package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/interfaces"
)

func TestTemplateFormat(t *testing.T) {
	template := NewTemplate("Tell me a {adjective} joke about {topic}.")

	result, err := template.Format(map[string]interface{}{
		"adjective": "funny",
		"topic":     "chickens",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tell me a funny joke about chickens.", result)
}

func TestTemplateFormatMissingVariable(t *testing.T) {
	template := NewTemplate("Tell me about {topic} in {language}.")

	_, err := template.Format(map[string]interface{}{"topic": "Go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language")
}

func TestTemplateNonStringValues(t *testing.T) {
	template := NewTemplate("Give me {count} examples with at most {score} words.")

	result, err := template.Format(map[string]interface{}{
		"count": 3,
		"score": 2.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Give me 3 examples with at most 2.5 words.", result)
}

func TestTemplateVariables(t *testing.T) {
	template := NewTemplate("{a} and {b} and {a} again")
	assert.Equal(t, []string{"a", "b"}, template.Variables())
}

func TestTemplatePartial(t *testing.T) {
	template := NewTemplate("Translate {text} from {source} to {target}.")
	bound := template.Partial(map[string]interface{}{
		"source": "English",
		"target": "French",
	})

	assert.Equal(t, []string{"text"}, bound.Variables())

	result, err := bound.Format(map[string]interface{}{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Translate hello from English to French.", result)

	// The original template is unchanged.
	_, err = template.Format(map[string]interface{}{"text": "hello"})
	assert.Error(t, err)

	// Call-time values win over partial bindings.
	result, err = bound.Format(map[string]interface{}{"text": "hello", "target": "German"})
	require.NoError(t, err)
	assert.Contains(t, result, "to German")
}

func TestChatTemplateFormat(t *testing.T) {
	template := NewChatTemplate(
		SystemMessage("You are a {role}."),
		MessagesPlaceholder("history"),
		UserMessage("{question}"),
	)

	history := []interfaces.Message{
		{Role: interfaces.MessageRoleUser, Content: "Hi"},
		{Role: interfaces.MessageRoleAssistant, Content: "Hello!"},
	}

	messages, err := template.Format(map[string]interface{}{
		"role":     "translator",
		"question": "Translate 'cat' to French.",
		"history":  history,
	})
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, interfaces.MessageRoleSystem, messages[0].Role)
	assert.Equal(t, "You are a translator.", messages[0].Content)
	assert.Equal(t, "Hi", messages[1].Content)
	assert.Equal(t, "Translate 'cat' to French.", messages[3].Content)
}

func TestChatTemplateMissingPlaceholderSkipped(t *testing.T) {
	template := NewChatTemplate(
		MessagesPlaceholder("history"),
		UserMessage("{question}"),
	)

	messages, err := template.Format(map[string]interface{}{"question": "hi"})
	require.NoError(t, err)
	require.Len(t, messages, 1)
}

func TestChatTemplatePlaceholderTypeError(t *testing.T) {
	template := NewChatTemplate(MessagesPlaceholder("history"))

	_, err := template.Format(map[string]interface{}{"history": "not messages"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
}

func TestFewShotTemplate(t *testing.T) {
	examples := []map[string]interface{}{
		{"input": "happy", "output": "sad"},
		{"input": "tall", "output": "short"},
	}

	template := NewFewShotTemplate(
		"Input: {input}\nOutput: {output}",
		"Input: {word}\nOutput:",
		examples,
		WithPrefix("Give the antonym of every input."),
	)

	result, err := template.Format(map[string]interface{}{"word": "fast"})
	require.NoError(t, err)

	expected := "Give the antonym of every input.\n\n" +
		"Input: happy\nOutput: sad\n\n" +
		"Input: tall\nOutput: short\n\n" +
		"Input: fast\nOutput:"
	assert.Equal(t, expected, result)
}

func TestFewShotTemplateExampleError(t *testing.T) {
	template := NewFewShotTemplate(
		"Input: {input}\nOutput: {output}",
		"Input: {word}\nOutput:",
		[]map[string]interface{}{{"input": "only input"}},
	)

	_, err := template.Format(map[string]interface{}{"word": "fast"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}
