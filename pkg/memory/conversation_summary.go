package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// ConversationSummary implements a memory that condenses old messages into
// an LLM-generated summary once the buffer grows past its limit.
type ConversationSummary struct {
	buffer          *ConversationBuffer
	llmClient       interfaces.LLM
	maxBufferSize   int
	summaryLength   int
	summaryMessages map[string]interfaces.Message
	mu              sync.RWMutex
}

// SummaryOption represents an option for configuring the conversation summary
type SummaryOption func(*ConversationSummary)

// WithMaxBufferSize sets the maximum number of messages before summarizing
func WithMaxBufferSize(size int) SummaryOption {
	return func(c *ConversationSummary) {
		c.maxBufferSize = size
	}
}

// WithSummaryLength sets the word count target for summaries
func WithSummaryLength(wordCount int) SummaryOption {
	return func(c *ConversationSummary) {
		c.summaryLength = wordCount
	}
}

// NewConversationSummary creates a new conversation summary memory
func NewConversationSummary(llmClient interfaces.LLM, options ...SummaryOption) *ConversationSummary {
	summary := &ConversationSummary{
		buffer:          NewConversationBuffer(WithMaxSize(0)),
		llmClient:       llmClient,
		maxBufferSize:   10,
		summaryLength:   100,
		summaryMessages: make(map[string]interfaces.Message),
	}

	for _, option := range options {
		option(summary)
	}

	return summary
}

// AddMessage adds a message, summarizing and clearing the buffer when it
// reaches the configured size.
func (c *ConversationSummary) AddMessage(ctx context.Context, message interfaces.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.buffer.AddMessage(ctx, message); err != nil {
		return err
	}

	messages, err := c.buffer.GetMessages(ctx)
	if err != nil {
		return err
	}

	if len(messages) >= c.maxBufferSize {
		summary, err := c.summarize(ctx, messages)
		if err != nil {
			return err
		}

		c.summaryMessages[conversationKey(ctx)] = interfaces.Message{
			Role:    interfaces.MessageRoleSystem,
			Content: summary,
			Metadata: map[string]interface{}{
				"is_summary": true,
				"count":      len(messages),
			},
		}

		if err := c.buffer.Clear(ctx); err != nil {
			return err
		}
	}

	return nil
}

// GetMessages returns the summary message, if any, followed by the buffered
// messages.
func (c *ConversationSummary) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages, err := c.buffer.GetMessages(ctx, options...)
	if err != nil {
		return nil, err
	}

	summary, ok := c.summaryMessages[conversationKey(ctx)]
	if !ok {
		return messages, nil
	}

	result := make([]interfaces.Message, 0, len(messages)+1)
	result = append(result, summary)
	result = append(result, messages...)

	return result, nil
}

// Summary returns the current summary text for the conversation, or an
// empty string if nothing has been summarized yet.
func (c *ConversationSummary) Summary(ctx context.Context) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.summaryMessages[conversationKey(ctx)].Content
}

// Clear clears the buffer and the summary
func (c *ConversationSummary) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.buffer.Clear(ctx); err != nil {
		return err
	}

	delete(c.summaryMessages, conversationKey(ctx))

	return nil
}

func (c *ConversationSummary) summarize(ctx context.Context, messages []interfaces.Message) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Summarize the following conversation in a concise summary (about %d words maximum):\n\n", c.summaryLength))
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	sb.WriteString("\nSummary:")

	summary, err := c.llmClient.Generate(ctx, sb.String(), interfaces.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	return strings.TrimSpace(summary), nil
}
