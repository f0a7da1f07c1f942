// Package memory provides conversation history backends implementing the
// Memory interface. Conversations are keyed by organization and
// conversation ID so tenants never see each other's history.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/multitenancy"
)

const defaultBufferSize = 20

// ConversationBuffer implements a simple in-memory conversation buffer.
// When a conversation exceeds the maximum size the oldest messages are
// dropped.
type ConversationBuffer struct {
	messages map[string][]interfaces.Message
	maxSize  int
	mu       sync.RWMutex
}

// Option represents an option for configuring the conversation buffer
type Option func(*ConversationBuffer)

// WithMaxSize sets the maximum number of messages to store per conversation
func WithMaxSize(size int) Option {
	return func(c *ConversationBuffer) {
		c.maxSize = size
	}
}

// NewConversationBuffer creates a new conversation buffer
func NewConversationBuffer(options ...Option) *ConversationBuffer {
	buffer := &ConversationBuffer{
		messages: make(map[string][]interfaces.Message),
		maxSize:  defaultBufferSize,
	}

	for _, option := range options {
		option(buffer)
	}

	return buffer
}

// conversationKey builds the "orgID:conversationID" storage key.
func conversationKey(ctx context.Context) string {
	return fmt.Sprintf("%s:%s",
		multitenancy.OrgIDOrDefault(ctx),
		ConversationIDOrDefault(ctx))
}

// AddMessage adds a message to the buffer
func (c *ConversationBuffer) AddMessage(ctx context.Context, message interfaces.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := conversationKey(ctx)
	c.messages[key] = append(c.messages[key], message)

	if c.maxSize > 0 && len(c.messages[key]) > c.maxSize {
		c.messages[key] = c.messages[key][len(c.messages[key])-c.maxSize:]
	}

	return nil
}

// GetMessages retrieves messages from the buffer
func (c *ConversationBuffer) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages, ok := c.messages[conversationKey(ctx)]
	if !ok {
		return []interfaces.Message{}, nil
	}

	opts := &interfaces.GetMessagesOptions{}
	for _, option := range options {
		option(opts)
	}

	if len(opts.Roles) > 0 {
		var filtered []interfaces.Message
		for _, msg := range messages {
			for _, role := range opts.Roles {
				if msg.Role == interfaces.MessageRole(role) {
					filtered = append(filtered, msg)
					break
				}
			}
		}
		messages = filtered
	}

	if opts.Limit > 0 && opts.Limit < len(messages) {
		messages = messages[len(messages)-opts.Limit:]
	}

	out := make([]interfaces.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// Clear clears the buffer for the current conversation
func (c *ConversationBuffer) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.messages, conversationKey(ctx))

	return nil
}

// GetAllConversations returns the conversation IDs of the calling tenant
func (c *ConversationBuffer) GetAllConversations(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	orgPrefix := multitenancy.OrgIDOrDefault(ctx) + ":"

	var conversations []string
	for key := range c.messages {
		if strings.HasPrefix(key, orgPrefix) {
			conversations = append(conversations, strings.TrimPrefix(key, orgPrefix))
		}
	}

	return conversations, nil
}

// Statistics summarizes the current conversation.
type Statistics struct {
	MessageCount    int            `json:"message_count"`
	RoleCounts      map[string]int `json:"role_counts"`
	EstimatedTokens int            `json:"estimated_tokens"`
}

// GetStatistics returns message counts and a rough token estimate for the
// current conversation. Tokens are estimated at four characters each.
func (c *ConversationBuffer) GetStatistics(ctx context.Context) (*Statistics, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := c.messages[conversationKey(ctx)]

	stats := &Statistics{
		MessageCount: len(messages),
		RoleCounts:   make(map[string]int),
	}

	totalChars := 0
	for _, msg := range messages {
		stats.RoleCounts[string(msg.Role)]++
		totalChars += len(msg.Content)
	}
	stats.EstimatedTokens = totalChars / 4

	return stats, nil
}

// ExportJSON serializes the current conversation as JSON.
func (c *ConversationBuffer) ExportJSON(ctx context.Context) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := c.messages[conversationKey(ctx)]
	if messages == nil {
		messages = []interfaces.Message{}
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export conversation: %w", err)
	}
	return data, nil
}
