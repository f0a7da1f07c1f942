package interfaces

import "context"

// Memory stores conversation history keyed by the org and conversation IDs
// carried in the context.
type Memory interface {
	// AddMessage appends a message to the conversation.
	AddMessage(ctx context.Context, message Message) error

	// GetMessages returns the conversation history, optionally filtered.
	GetMessages(ctx context.Context, options ...GetMessagesOption) ([]Message, error)

	// Clear removes all messages for the conversation.
	Clear(ctx context.Context) error
}

// GetMessagesOptions filters a history read.
type GetMessagesOptions struct {
	// Roles restricts results to messages with these roles.
	Roles []string

	// Limit caps the number of messages returned (most recent first retained).
	Limit int

	// Query is used by retrieval-backed memories to select relevant messages.
	Query string
}

// GetMessagesOption configures a GetMessages call.
type GetMessagesOption func(*GetMessagesOptions)

// WithRoles restricts results to the given roles.
func WithRoles(roles ...string) GetMessagesOption {
	return func(o *GetMessagesOptions) {
		o.Roles = append(o.Roles, roles...)
	}
}

// WithLimit caps the number of messages returned.
func WithLimit(limit int) GetMessagesOption {
	return func(o *GetMessagesOptions) {
		o.Limit = limit
	}
}

// WithQuery selects relevant messages in retrieval-backed memories.
func WithQuery(query string) GetMessagesOption {
	return func(o *GetMessagesOptions) {
		o.Query = query
	}
}
