package memory

import (
	"context"
)

type contextKey string

const conversationIDKey contextKey = "conversation_id"

// DefaultConversationID is used when the context carries no conversation ID.
const DefaultConversationID = "default"

// WithConversationID returns a context scoped to the given conversation.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// GetConversationID returns the conversation ID carried by the context.
func GetConversationID(ctx context.Context) (string, bool) {
	conversationID, ok := ctx.Value(conversationIDKey).(string)
	return conversationID, ok && conversationID != ""
}

// ConversationIDOrDefault returns the conversation ID carried by the context,
// or DefaultConversationID when none is set.
func ConversationIDOrDefault(ctx context.Context) string {
	if conversationID, ok := GetConversationID(ctx); ok {
		return conversationID
	}
	return DefaultConversationID
}
