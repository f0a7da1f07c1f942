package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/agentlab/pkg/interfaces"
	"github.com/tagus/agentlab/pkg/logging"
)

type mockTool struct {
	name   string
	result string
	calls  int
}

func (t *mockTool) Name() string        { return t.name }
func (t *mockTool) Description() string { return "mock tool for tests" }

func (t *mockTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"input": {Type: "string", Description: "tool input", Required: true},
	}
}

func (t *mockTool) Run(ctx context.Context, input string) (string, error) {
	t.calls++
	return t.result, nil
}

func (t *mockTool) Execute(ctx context.Context, args string) (string, error) {
	t.calls++
	return t.result, nil
}

type mockMemory struct {
	mu       sync.Mutex
	messages []interfaces.Message
}

func (m *mockMemory) AddMessage(ctx context.Context, message interfaces.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMemory) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interfaces.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

func (m *mockMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	return nil
}

func textResponse(content string) string {
	return fmt.Sprintf(`{
		"id": "msg_test",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "text", "text": %q}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, content)
}

func toolUseResponse(callID, toolName, input string) string {
	return fmt.Sprintf(`{
		"id": "msg_test",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "tool_use", "id": %q, "name": %q, "input": %s}],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, callID, toolName, input)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient("test-key",
		WithModel("claude-test"),
		WithBaseURL(server.URL),
		WithLogger(logging.NoOp()),
	)
}

func TestGenerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-test", reqBody["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, textResponse("test response"))
	})

	resp, err := client.Generate(context.Background(), "test prompt")
	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
}

func TestGenerateWithSystemMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			System []map[string]interface{} `json:"system"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		require.NotEmpty(t, reqBody.System)
		assert.Equal(t, "You are a test assistant.", reqBody.System[0]["text"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, textResponse("ok"))
	})

	_, err := client.Generate(context.Background(), "hello",
		interfaces.WithSystemMessage("You are a test assistant."))
	require.NoError(t, err)
}

func TestChatRepairsAlternation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			System   []map[string]interface{} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		// System messages move out of the message list; consecutive user
		// turns merge so the sequence alternates.
		require.NotEmpty(t, reqBody.System)
		require.Len(t, reqBody.Messages, 3)
		assert.Equal(t, "user", reqBody.Messages[0].Role)
		assert.Equal(t, "assistant", reqBody.Messages[1].Role)
		assert.Equal(t, "user", reqBody.Messages[2].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, textResponse("test response"))
	})

	messages := []interfaces.Message{
		{Role: interfaces.MessageRoleSystem, Content: "Be concise."},
		{Role: interfaces.MessageRoleUser, Content: "first question"},
		{Role: interfaces.MessageRoleAssistant, Content: "first answer"},
		{Role: interfaces.MessageRoleUser, Content: "second question"},
		{Role: interfaces.MessageRoleUser, Content: "with a clarification"},
	}

	resp, err := client.Chat(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
}

func TestGenerateWithMemoryHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		require.Len(t, reqBody.Messages, 3)
		assert.Equal(t, "user", reqBody.Messages[0].Role)
		assert.Equal(t, "assistant", reqBody.Messages[1].Role)
		assert.Equal(t, "user", reqBody.Messages[2].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, textResponse("remembered"))
	})

	memory := &mockMemory{}
	ctx := context.Background()
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "my name is Ada"}))
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleAssistant, Content: "Nice to meet you, Ada."}))
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "what is my name?"}))

	resp, err := client.Generate(ctx, "what is my name?", interfaces.WithMemory(memory))
	require.NoError(t, err)
	assert.Equal(t, "remembered", resp)

	// The client reads history but leaves conversation writes to the caller.
	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
}

func TestGenerateWithTools(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++

		var reqBody struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
			Tools []map[string]interface{} `json:"tools"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		w.Header().Set("Content-Type", "application/json")

		if requests == 1 {
			require.NotEmpty(t, reqBody.Tools, "first request should offer tools")
			assert.Equal(t, "test_tool", reqBody.Tools[0]["name"])
			fmt.Fprint(w, toolUseResponse("toolu_1", "test_tool", `{"input": "value"}`))
			return
		}

		// Second request carries the tool result back as a user turn.
		last := reqBody.Messages[len(reqBody.Messages)-1]
		assert.Equal(t, "user", last.Role)
		assert.Contains(t, string(last.Content), "tool_result")
		assert.Contains(t, string(last.Content), "tool output")

		fmt.Fprint(w, textResponse("final answer"))
	})

	tool := &mockTool{name: "test_tool", result: "tool output"}

	resp, err := client.GenerateWithTools(context.Background(), "use the tool", []interfaces.Tool{tool})
	require.NoError(t, err)
	assert.Equal(t, "final answer", resp)
	assert.Equal(t, 1, tool.calls)
	assert.Equal(t, 2, requests)
}

func TestGenerateWithToolsUnknownTool(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests == 1 {
			fmt.Fprint(w, toolUseResponse("toolu_1", "missing_tool", `{}`))
			return
		}

		var reqBody struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		last := reqBody.Messages[len(reqBody.Messages)-1]
		assert.Contains(t, string(last.Content), "tool not found")

		fmt.Fprint(w, textResponse("recovered"))
	})

	resp, err := client.GenerateWithTools(context.Background(), "use the tool",
		[]interfaces.Tool{&mockTool{name: "test_tool", result: "unused"}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
}

func TestGenerateWithToolsIterationBudget(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests <= 2 {
			fmt.Fprint(w, toolUseResponse(fmt.Sprintf("toolu_%d", requests), "test_tool", `{"input": "again"}`))
			return
		}
		// Conclusion request after the budget is spent carries no tools.
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Nil(t, reqBody["tools"])
		fmt.Fprint(w, textResponse("conclusion"))
	})

	tool := &mockTool{name: "test_tool", result: "tool output"}

	resp, err := client.GenerateWithTools(context.Background(), "keep using tools",
		[]interfaces.Tool{tool}, interfaces.WithMaxIterations(2))
	require.NoError(t, err)
	assert.Equal(t, "conclusion", resp)
	assert.Equal(t, 2, tool.calls)
	assert.Equal(t, 3, requests)
}
