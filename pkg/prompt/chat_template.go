package prompt

import (
	"fmt"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// MessageTemplate is a single templated chat message.
type MessageTemplate struct {
	Role     interfaces.MessageRole
	Template *Template

	// placeholder, when set, expands to the message history passed under
	// the named variable instead of rendering a template.
	placeholder string
}

// SystemMessage creates a system message template
func SystemMessage(template string) MessageTemplate {
	return MessageTemplate{Role: interfaces.MessageRoleSystem, Template: NewTemplate(template)}
}

// UserMessage creates a user message template
func UserMessage(template string) MessageTemplate {
	return MessageTemplate{Role: interfaces.MessageRoleUser, Template: NewTemplate(template)}
}

// AssistantMessage creates an assistant message template
func AssistantMessage(template string) MessageTemplate {
	return MessageTemplate{Role: interfaces.MessageRoleAssistant, Template: NewTemplate(template)}
}

// MessagesPlaceholder expands to the []interfaces.Message value bound to the
// given variable name, letting callers inject conversation history.
func MessagesPlaceholder(variableName string) MessageTemplate {
	return MessageTemplate{placeholder: variableName}
}

// ChatTemplate renders a list of message templates into chat messages.
type ChatTemplate struct {
	messages []MessageTemplate
}

// NewChatTemplate creates a new chat template
func NewChatTemplate(messages ...MessageTemplate) *ChatTemplate {
	return &ChatTemplate{messages: messages}
}

// Format renders all message templates with the given values. Placeholder
// entries expect a []interfaces.Message value under their variable name; a
// missing placeholder value simply contributes no messages.
func (c *ChatTemplate) Format(values map[string]interface{}) ([]interfaces.Message, error) {
	var messages []interfaces.Message

	for _, mt := range c.messages {
		if mt.placeholder != "" {
			value, ok := values[mt.placeholder]
			if !ok {
				continue
			}
			history, ok := value.([]interfaces.Message)
			if !ok {
				return nil, fmt.Errorf("placeholder %q expects []interfaces.Message, got %T", mt.placeholder, value)
			}
			messages = append(messages, history...)
			continue
		}

		content, err := mt.Template.Format(values)
		if err != nil {
			return nil, err
		}
		messages = append(messages, interfaces.Message{
			Role:    mt.Role,
			Content: content,
		})
	}

	return messages, nil
}
