package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
	"github.com/tagus/agentlab/pkg/multitenancy"
	"github.com/tagus/agentlab/pkg/retry"
)

// RedisMemory implements a Redis-backed memory store. Each conversation is
// a Redis list under "<prefix><orgID>:<conversationID>".
type RedisMemory struct {
	client         *redis.Client
	ttl            time.Duration
	keyPrefix      string
	maxMessageSize int
	logger         logging.Logger
	retryExecutor  *retry.Executor

	summarizationEnabled bool
	llmClient            interfaces.LLM
	messageThreshold     int
	summaryCount         int
	summaryKeyPrefix     string
}

// RedisOption represents an option for configuring the Redis memory
type RedisOption func(*RedisMemory)

// WithTTL sets the TTL for Redis keys
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisMemory) {
		r.ttl = ttl
	}
}

// WithKeyPrefix sets a custom prefix for Redis keys
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisMemory) {
		r.keyPrefix = prefix
	}
}

// WithMaxMessageSize sets the maximum serialized size for stored messages
func WithMaxMessageSize(size int) RedisOption {
	return func(r *RedisMemory) {
		r.maxMessageSize = size
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger logging.Logger) RedisOption {
	return func(r *RedisMemory) {
		r.logger = logger
	}
}

// WithRedisRetry enables retries for Redis writes
func WithRedisRetry(opts ...retry.Option) RedisOption {
	return func(r *RedisMemory) {
		r.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// WithSummarization enables automatic summarization of old messages once a
// conversation passes messageThreshold, keeping at most summaryCount
// summaries.
func WithSummarization(llm interfaces.LLM, messageThreshold int, summaryCount int) RedisOption {
	return func(r *RedisMemory) {
		r.summarizationEnabled = true
		r.llmClient = llm
		r.messageThreshold = messageThreshold
		r.summaryCount = summaryCount
	}
}

// RedisConfig contains configuration for Redis
type RedisConfig struct {
	// URL is the Redis address (e.g., "localhost:6379")
	URL string

	// Password is the Redis password
	Password string

	// DB is the Redis database number
	DB int
}

// NewRedisMemory creates a new Redis-backed memory store
func NewRedisMemory(client *redis.Client, options ...RedisOption) *RedisMemory {
	memory := &RedisMemory{
		client:           client,
		ttl:              24 * time.Hour,
		keyPrefix:        "agent:memory:",
		maxMessageSize:   1024 * 1024,
		logger:           logging.New(),
		messageThreshold: 50,
		summaryCount:     5,
	}

	for _, option := range options {
		option(memory)
	}

	memory.summaryKeyPrefix = memory.keyPrefix + "summary:"

	return memory
}

// NewRedisMemoryFromConfig creates a new Redis memory from configuration
func NewRedisMemoryFromConfig(config RedisConfig, options ...RedisOption) (*RedisMemory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.URL,
		Password: config.Password,
		DB:       config.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisMemory(client, options...), nil
}

func (r *RedisMemory) messagesKey(ctx context.Context) string {
	return r.keyPrefix + conversationKey(ctx)
}

func (r *RedisMemory) summaryKey(ctx context.Context) string {
	return r.summaryKeyPrefix + conversationKey(ctx)
}

// AddMessage appends a message to the conversation list and refreshes the TTL
func (r *RedisMemory) AddMessage(ctx context.Context, message interfaces.Message) error {
	key := r.messagesKey(ctx)

	messageJSON, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if r.maxMessageSize > 0 && len(messageJSON) > r.maxMessageSize {
		return fmt.Errorf("message size exceeds maximum allowed size of %d bytes", r.maxMessageSize)
	}

	push := func() error {
		return r.client.RPush(ctx, key, messageJSON).Err()
	}

	if r.retryExecutor != nil {
		err = r.retryExecutor.Execute(ctx, push)
	} else {
		err = push()
	}
	if err != nil {
		return fmt.Errorf("failed to add message to Redis: %w", err)
	}

	r.client.Expire(ctx, key, r.ttl)

	if r.summarizationEnabled {
		if err := r.checkAndSummarize(ctx); err != nil {
			r.logger.Warn(ctx, "Failed to summarize messages", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return nil
}

// GetMessages retrieves messages, with summaries first when enabled
func (r *RedisMemory) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	opts := &interfaces.GetMessagesOptions{}
	for _, option := range options {
		option(opts)
	}

	var allMessages []interfaces.Message

	if r.summarizationEnabled {
		summaries, err := r.getSummaries(ctx)
		if err != nil {
			r.logger.Warn(ctx, "Failed to get summaries", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			allMessages = append(allMessages, summaries...)
		}
	}

	results, err := r.client.LRange(ctx, r.messagesKey(ctx), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from Redis: %w", err)
	}

	for _, result := range results {
		var message interfaces.Message
		if err := json.Unmarshal([]byte(result), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		allMessages = append(allMessages, message)
	}

	if len(opts.Roles) > 0 {
		var filtered []interfaces.Message
		for _, msg := range allMessages {
			for _, role := range opts.Roles {
				if msg.Role == interfaces.MessageRole(role) {
					filtered = append(filtered, msg)
					break
				}
			}
		}
		allMessages = filtered
	}

	if opts.Limit > 0 && opts.Limit < len(allMessages) {
		allMessages = allMessages[len(allMessages)-opts.Limit:]
	}

	return allMessages, nil
}

// Clear removes the conversation and its summaries
func (r *RedisMemory) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.messagesKey(ctx)).Err(); err != nil {
		return fmt.Errorf("failed to clear memory in Redis: %w", err)
	}

	if r.summarizationEnabled {
		if err := r.client.Del(ctx, r.summaryKey(ctx)).Err(); err != nil {
			return fmt.Errorf("failed to clear summaries in Redis: %w", err)
		}
	}

	return nil
}

// GetAllConversations returns all conversation IDs for the calling tenant
func (r *RedisMemory) GetAllConversations(ctx context.Context) ([]string, error) {
	orgID := multitenancy.OrgIDOrDefault(ctx)

	pattern := fmt.Sprintf("%s%s:*", r.keyPrefix, orgID)
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation keys: %w", err)
	}

	expectedPrefix := fmt.Sprintf("%s%s:", r.keyPrefix, orgID)
	conversations := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, expectedPrefix) {
			conversations = append(conversations, strings.TrimPrefix(key, expectedPrefix))
		}
	}

	return conversations, nil
}

// checkAndSummarize condenses the oldest messages into a summary once the
// conversation passes the threshold, keeping the most recent third.
func (r *RedisMemory) checkAndSummarize(ctx context.Context) error {
	key := r.messagesKey(ctx)

	count, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get message count: %w", err)
	}
	if count < int64(r.messageThreshold) {
		return nil
	}

	keepRecent := r.messageThreshold / 3
	summarizeCount := int(count) - keepRecent

	results, err := r.client.LRange(ctx, key, 0, int64(summarizeCount-1)).Result()
	if err != nil {
		return fmt.Errorf("failed to get messages for summarization: %w", err)
	}

	var messages []interfaces.Message
	for _, result := range results {
		var message interfaces.Message
		if err := json.Unmarshal([]byte(result), &message); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, message)
	}

	summary, err := r.createSummary(ctx, messages)
	if err != nil {
		return err
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	summaryKey := r.summaryKey(ctx)
	if err := r.client.RPush(ctx, summaryKey, summaryJSON).Err(); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	r.client.Expire(ctx, summaryKey, r.ttl)

	for i := 0; i < summarizeCount; i++ {
		if err := r.client.LPop(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to remove summarized message: %w", err)
		}
	}

	return r.rotateSummaries(ctx)
}

func (r *RedisMemory) createSummary(ctx context.Context, messages []interfaces.Message) (interfaces.Message, error) {
	var sb strings.Builder
	sb.WriteString("Summarize the following conversation concisely, preserving key information and context:\n\n")
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	sb.WriteString("\nProvide a concise summary that captures the essential information from this conversation.")

	summary, err := r.llmClient.Generate(ctx, sb.String(), interfaces.WithTemperature(0.3))
	if err != nil {
		return interfaces.Message{}, fmt.Errorf("failed to generate summary: %w", err)
	}

	return interfaces.Message{
		Role:    interfaces.MessageRoleSystem,
		Content: fmt.Sprintf("Previous conversation summary (%d messages): %s", len(messages), strings.TrimSpace(summary)),
		Metadata: map[string]interface{}{
			"is_summary":    true,
			"message_count": len(messages),
			"summarized_at": time.Now().Unix(),
		},
	}, nil
}

func (r *RedisMemory) getSummaries(ctx context.Context) ([]interfaces.Message, error) {
	results, err := r.client.LRange(ctx, r.summaryKey(ctx), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries from Redis: %w", err)
	}

	var summaries []interfaces.Message
	for _, result := range results {
		var summary interfaces.Message
		if err := json.Unmarshal([]byte(result), &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (r *RedisMemory) rotateSummaries(ctx context.Context) error {
	summaryKey := r.summaryKey(ctx)

	count, err := r.client.LLen(ctx, summaryKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get summary count: %w", err)
	}

	for i := int64(r.summaryCount); i < count; i++ {
		if err := r.client.LPop(ctx, summaryKey).Err(); err != nil {
			return fmt.Errorf("failed to remove old summary: %w", err)
		}
	}

	return nil
}

// Close closes the underlying Redis connection
func (r *RedisMemory) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
