package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// MemoryFactory provides factory functions to create memory instances from configuration
type MemoryFactory struct{}

// NewMemoryFactory creates a new memory factory
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{}
}

// CreateMemory creates a memory instance from a configuration map
func (f *MemoryFactory) CreateMemory(config map[string]interface{}, llmClient interfaces.LLM) (interfaces.Memory, error) {
	if config == nil {
		return nil, fmt.Errorf("memory config cannot be nil")
	}

	memoryType, ok := config["type"].(string)
	if !ok {
		return nil, fmt.Errorf("memory type not specified or not a string")
	}

	switch memoryType {
	case "redis":
		return f.createRedisMemory(config, llmClient)
	case "buffer":
		return f.createBufferMemory(config, llmClient)
	case "vector":
		return nil, fmt.Errorf("vector memory requires a vector store instance; use NewVectorStoreRetriever")
	default:
		return nil, fmt.Errorf("unsupported memory type: %s", memoryType)
	}
}

func (f *MemoryFactory) createRedisMemory(config map[string]interface{}, llmClient interfaces.LLM) (*RedisMemory, error) {
	address, ok := config["address"].(string)
	if !ok || address == "" {
		return nil, fmt.Errorf("redis address not specified or empty")
	}

	password, _ := config["password"].(string)
	db := configInt(config, "db", 0)
	ttlHours := configInt(config, "ttl_hours", 24)
	maxMessageSize := configInt(config, "max_message_size", 1048576)

	keyPrefix, ok := config["key_prefix"].(string)
	if !ok {
		keyPrefix = "agent:memory:"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", address, err)
	}

	options := []RedisOption{
		WithTTL(time.Duration(ttlHours) * time.Hour),
		WithKeyPrefix(keyPrefix),
		WithMaxMessageSize(maxMessageSize),
		WithRedisRetry(),
	}

	if llmClient != nil {
		summaryAfterMessages := configInt(config, "summary_after_messages", 10)
		maxSummaries := configInt(config, "max_summaries", 3)
		options = append(options, WithSummarization(llmClient, summaryAfterMessages, maxSummaries))
	}

	return NewRedisMemory(redisClient, options...), nil
}

func (f *MemoryFactory) createBufferMemory(config map[string]interface{}, llmClient interfaces.LLM) (interfaces.Memory, error) {
	bufferSize := configInt(config, "buffer_size", defaultBufferSize)

	if llmClient != nil {
		if summaryEnabled, ok := config["enable_summarization"].(bool); ok && summaryEnabled {
			return NewConversationSummary(llmClient,
				WithMaxBufferSize(configInt(config, "max_buffer_size", bufferSize)),
				WithSummaryLength(configInt(config, "summary_length", 100)),
			), nil
		}
	}

	return NewConversationBuffer(WithMaxSize(bufferSize)), nil
}

// configInt reads an int value that may arrive as int or float64 after JSON
// or YAML decoding.
func configInt(config map[string]interface{}, key string, fallback int) int {
	value, ok := config[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// NewMemoryFromConfig is a convenience function to create memory from a config map
func NewMemoryFromConfig(config map[string]interface{}, llmClient interfaces.LLM) (interfaces.Memory, error) {
	factory := NewMemoryFactory()
	return factory.CreateMemory(config, llmClient)
}
