package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/ga4-insights/internal/config"
)

type testToolArgs struct {
	Metrics   []string `json:"metrics" jsonschema:"metric names"`
	StartDate string   `json:"startDate" jsonschema:"start date"`
	Note      string   `json:"note,omitempty"`
}

func testTool(t *testing.T) ToolDefinition {
	t.Helper()
	tool, err := NewToolDefinition[testToolArgs]("getGa4Report", "Runs a report")
	require.NoError(t, err)
	return tool
}

func TestNewToolDefinition(t *testing.T) {
	tool := testTool(t)
	assert.Equal(t, "object", tool.Parameters["type"])
	assert.Contains(t, tool.Properties(), "metrics")
	assert.Contains(t, tool.Properties(), "note")
	assert.ElementsMatch(t, []string{"metrics", "startDate"}, tool.Required())
}

func TestNewLLMService(t *testing.T) {
	cfg := config.DefaultLLMConfig()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Anthropic.APIKey = "ant-test"

	svc, err := NewLLMService(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", svc.GetProviderName())
	assert.Equal(t, "gpt-4o", svc.GetModelName())

	cfg.Provider = "anthropic"
	svc, err = NewLLMService(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", svc.GetProviderName())

	cfg.Provider = "bard"
	_, err = NewLLMService(cfg, nil)
	assert.Error(t, err)

	cfg.Provider = "openai"
	cfg.OpenAI.APIKey = "${UNSET_TEST_OPENAI_KEY}"
	_, err = NewLLMService(cfg, nil)
	assert.Error(t, err)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	var body map[string]any
	assert.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestOpenAIProvider_ToolCallAndSummary(t *testing.T) {
	var calls atomic.Int32
	var second map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body := decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			tools := body["tools"].([]any)
			fn := tools[0].(map[string]any)["function"].(map[string]any)
			assert.Equal(t, "getGa4Report", fn["name"])
			_, _ = w.Write([]byte(`{
				"id": "c1", "object": "chat.completion", "model": "gpt-4o",
				"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
					"role": "assistant", "content": "",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {
						"name": "getGa4Report",
						"arguments": "{\"metrics\":[\"activeUsers\"],\"startDate\":\"7daysAgo\"}"
					}}]
				}}],
				"usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
			}`))
			return
		}
		second = body
		_, _ = w.Write([]byte(`{
			"id": "c2", "object": "chat.completion", "model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Madrid had 42 active users."}}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o", MaxTokens: 256}, 2*time.Second, nil)
	require.NoError(t, err)

	call, err := p.CallTool(context.Background(), "system prompt", "active users last week?", testTool(t))
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "call_1", call.ID)
	assert.JSONEq(t, `{"metrics":["activeUsers"],"startDate":"7daysAgo"}`, string(call.Arguments))

	answer, err := p.Summarize(context.Background(), "summary prompt", "active users last week?", call, []byte(`{"rows":[],"insights":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "Madrid had 42 active users.", answer)

	msgs := second["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	tool := msgs[3].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
	assert.Equal(t, `{"rows":[],"insights":[]}`, tool["content"])
}

func TestOpenAIProvider_NoToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello!"}}]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o"}, 2*time.Second, nil)
	require.NoError(t, err)

	call, err := p.CallTool(context.Background(), "", "hi", testTool(t))
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o"}, 2*time.Second, nil)
	require.NoError(t, err)

	_, err = p.CallTool(context.Background(), "", "hi", testTool(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "model calls are never retried")
}

func TestAnthropicProvider_ToolCallAndSummary(t *testing.T) {
	var calls atomic.Int32
	var second map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ant-test", r.Header.Get("X-Api-Key"))
		body := decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			tools := body["tools"].([]any)
			assert.Equal(t, "getGa4Report", tools[0].(map[string]any)["name"])
			_, _ = w.Write([]byte(`{
				"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
				"content": [
					{"type": "text", "text": "Let me fetch that."},
					{"type": "tool_use", "id": "toolu_1", "name": "getGa4Report", "input": {"metrics": ["sessions"], "startDate": "yesterday"}}
				],
				"stop_reason": "tool_use",
				"usage": {"input_tokens": 30, "output_tokens": 12}
			}`))
			return
		}
		second = body
		_, _ = w.Write([]byte(`{
			"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "Sessions were flat."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 50, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(config.AnthropicConfig{Endpoint: srv.URL, APIKey: "ant-test", Model: "claude-test", MaxTokens: 256}, 2*time.Second, nil)
	require.NoError(t, err)

	call, err := p.CallTool(context.Background(), "system prompt", "sessions yesterday?", testTool(t))
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "Let me fetch that.", call.Text)
	assert.JSONEq(t, `{"metrics":["sessions"],"startDate":"yesterday"}`, string(call.Arguments))

	answer, err := p.Summarize(context.Background(), "summary prompt", "sessions yesterday?", call, []byte(`{"rows":[],"insights":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "Sessions were flat.", answer)

	msgs := second["messages"].([]any)
	require.Len(t, msgs, 3)
	last := msgs[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	block := last["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", block["type"])
	assert.Equal(t, "toolu_1", block["tool_use_id"])
}

func TestAnthropicProvider_NoToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"I can only help with analytics."}],
			"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":5}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(config.AnthropicConfig{Endpoint: srv.URL, APIKey: "ant-test", Model: "claude-test"}, 2*time.Second, nil)
	require.NoError(t, err)

	call, err := p.CallTool(context.Background(), "", "tell me a joke", testTool(t))
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestSummarize_RejectsForeignCall(t *testing.T) {
	p, err := NewAnthropicProvider(config.AnthropicConfig{APIKey: "ant-test", Model: "claude-test"}, time.Second, nil)
	require.NoError(t, err)
	_, err = p.Summarize(context.Background(), "", "q", &ToolCall{ID: "x"}, nil)
	assert.Error(t, err)
}
