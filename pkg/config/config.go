// Package config holds global SDK configuration loaded from environment
// variables and an optional YAML file (AGENTLAB_CONFIG) via viper.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the global configuration for the SDK and its demos.
type Config struct {
	LLM struct {
		OpenAI struct {
			APIKey         string
			Model          string
			EmbeddingModel string
			Temperature    float64
			BaseURL        string
			Timeout        time.Duration
		}
		Anthropic struct {
			APIKey      string
			Model       string
			Temperature float64
			BaseURL     string
			Timeout     time.Duration
		}
		Ollama struct {
			BaseURL string
			Model   string
			Timeout time.Duration
		}
	}

	Memory struct {
		// MaxMessages bounds buffer memories.
		MaxMessages int

		Redis struct {
			URL      string
			Password string
			DB       int
			TTL      time.Duration
		}
	}

	Retrieval struct {
		ChunkSize    int
		ChunkOverlap int
		TopK         int

		Weaviate struct {
			Host        string
			Scheme      string
			APIKey      string
			ClassPrefix string
		}
	}

	Orchestration struct {
		// MaxApprovalIterations bounds the writer/critic review loop.
		MaxApprovalIterations int
	}

	Tools struct {
		WebSearch struct {
			GoogleAPIKey         string
			GoogleSearchEngineID string
		}
	}

	Multitenancy struct {
		DefaultOrgID string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.openai.temperature", 0.7)
	v.SetDefault("llm.openai.timeout", 60)

	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.anthropic.temperature", 0.7)
	v.SetDefault("llm.anthropic.timeout", 60)

	v.SetDefault("llm.ollama.base_url", "http://localhost:11434")
	v.SetDefault("llm.ollama.model", "llama3")
	v.SetDefault("llm.ollama.timeout", 120)

	v.SetDefault("memory.max_messages", 20)
	v.SetDefault("memory.redis.url", "localhost:6379")
	v.SetDefault("memory.redis.db", 0)
	v.SetDefault("memory.redis.ttl", 0)

	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.chunk_overlap", 200)
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.weaviate.scheme", "http")
	v.SetDefault("retrieval.weaviate.class_prefix", "AgentLab")

	v.SetDefault("orchestration.max_approval_iterations", 2)

	v.SetDefault("multitenancy.default_org_id", "default")
}

// LoadFromEnv builds a Config from environment variables and, when
// AGENTLAB_CONFIG points at a YAML file, from that file. Nested keys map to
// underscore-separated variables (LLM_OPENAI_API_KEY, MEMORY_REDIS_URL); the
// conventional OPENAI_API_KEY / ANTHROPIC_API_KEY aliases are honored too.
func LoadFromEnv() *Config {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("agentlab_config"); path != "" {
		v.SetConfigFile(path)
		// Missing or malformed file falls back to env and defaults.
		_ = v.ReadInConfig()
	}

	config := &Config{}

	config.LLM.OpenAI.APIKey = firstNonEmpty(v.GetString("llm.openai.api_key"), v.GetString("openai_api_key"))
	config.LLM.OpenAI.Model = firstNonEmpty(v.GetString("openai_model"), v.GetString("llm.openai.model"))
	config.LLM.OpenAI.EmbeddingModel = v.GetString("llm.openai.embedding_model")
	config.LLM.OpenAI.Temperature = v.GetFloat64("llm.openai.temperature")
	config.LLM.OpenAI.BaseURL = firstNonEmpty(v.GetString("llm.openai.base_url"), v.GetString("openai_base_url"))
	config.LLM.OpenAI.Timeout = time.Duration(v.GetInt("llm.openai.timeout")) * time.Second

	config.LLM.Anthropic.APIKey = firstNonEmpty(v.GetString("llm.anthropic.api_key"), v.GetString("anthropic_api_key"))
	config.LLM.Anthropic.Model = firstNonEmpty(v.GetString("anthropic_model"), v.GetString("llm.anthropic.model"))
	config.LLM.Anthropic.Temperature = v.GetFloat64("llm.anthropic.temperature")
	config.LLM.Anthropic.BaseURL = v.GetString("llm.anthropic.base_url")
	config.LLM.Anthropic.Timeout = time.Duration(v.GetInt("llm.anthropic.timeout")) * time.Second

	config.LLM.Ollama.BaseURL = v.GetString("llm.ollama.base_url")
	config.LLM.Ollama.Model = v.GetString("llm.ollama.model")
	config.LLM.Ollama.Timeout = time.Duration(v.GetInt("llm.ollama.timeout")) * time.Second

	config.Memory.MaxMessages = v.GetInt("memory.max_messages")
	config.Memory.Redis.URL = firstNonEmpty(v.GetString("redis_url"), v.GetString("memory.redis.url"))
	config.Memory.Redis.Password = firstNonEmpty(v.GetString("redis_password"), v.GetString("memory.redis.password"))
	config.Memory.Redis.DB = v.GetInt("memory.redis.db")
	config.Memory.Redis.TTL = time.Duration(v.GetInt("memory.redis.ttl")) * time.Second

	config.Retrieval.ChunkSize = v.GetInt("retrieval.chunk_size")
	config.Retrieval.ChunkOverlap = v.GetInt("retrieval.chunk_overlap")
	config.Retrieval.TopK = v.GetInt("retrieval.top_k")
	config.Retrieval.Weaviate.Host = firstNonEmpty(v.GetString("weaviate_host"), v.GetString("retrieval.weaviate.host"))
	config.Retrieval.Weaviate.Scheme = v.GetString("retrieval.weaviate.scheme")
	config.Retrieval.Weaviate.APIKey = firstNonEmpty(v.GetString("weaviate_api_key"), v.GetString("retrieval.weaviate.api_key"))
	config.Retrieval.Weaviate.ClassPrefix = v.GetString("retrieval.weaviate.class_prefix")

	config.Orchestration.MaxApprovalIterations = v.GetInt("orchestration.max_approval_iterations")

	config.Tools.WebSearch.GoogleAPIKey = v.GetString("google_api_key")
	config.Tools.WebSearch.GoogleSearchEngineID = v.GetString("google_search_engine_id")

	config.Multitenancy.DefaultOrgID = firstNonEmpty(v.GetString("default_org_id"), v.GetString("multitenancy.default_org_id"))

	return config
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	mu           sync.RWMutex
	globalConfig = LoadFromEnv()
)

// Get returns the global configuration.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Reload rebuilds the global configuration from the environment.
func Reload() *Config {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = LoadFromEnv()
	return globalConfig
}
