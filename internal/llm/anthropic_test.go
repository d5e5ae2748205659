package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{
		client: &client,
		model:  "claude-sonnet-4-20250514",
	}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-20250514",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]any{"type": kind, "message": kind},
	})
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var got map[string]any
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"score":0.6,"explanation":"缺少 WHERE 条件"}`, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "你是评分助手",
		Messages: []Message{
			{Role: RoleUser, Content: "评分"},
			{Role: RoleAssistant, Content: "好的"},
		},
		Schema:      gradeSchema,
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":0.6,"explanation":"缺少 WHERE 条件"}`, string(resp.Content))
	assert.Equal(t, 50, resp.Usage.InputTokens)
	assert.Equal(t, 80, resp.Usage.TotalTokens)
	assert.Equal(t, "end", resp.StopReason)

	assert.Equal(t, "claude-sonnet-4-20250514", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])

	system := got["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "你是评分助手", system[0].(map[string]any)["text"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])

	format := got["output_config"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["properties"], "score")
}

func TestAnthropicProvider_NoSchema(t *testing.T) {
	var got map[string]any
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage("```json\n{\"tags\":[\"JOIN\"]}\n```", "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "x"}},
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":["JOIN"]}`, string(resp.Content))
	assert.NotContains(t, got, "output_config")
	assert.NotContains(t, got, "system")
}

func TestAnthropicProvider_Errors(t *testing.T) {
	req := Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, Schema: gradeSchema, MaxTokens: 64}

	rateLimited := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		anthropicError(w, http.StatusTooManyRequests, "rate_limit_error")
	})
	_, err := rateLimited.Generate(context.Background(), req)
	var rl *ErrRateLimit
	assert.True(t, errors.As(err, &rl), "%T %v", err, err)

	unavailable := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		anthropicError(w, http.StatusInternalServerError, "api_error")
	})
	_, err = unavailable.Generate(context.Background(), req)
	var pu *ErrProviderUnavailable
	assert.True(t, errors.As(err, &pu), "%T %v", err, err)

	truncated := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"score":`, "max_tokens"))
	})
	_, err = truncated.Generate(context.Background(), req)
	var mt *ErrMaxTokensExceeded
	assert.True(t, errors.As(err, &mt), "%T %v", err, err)

	invalid := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"score":3,"explanation":"x"}`, "end_turn"))
	})
	_, err = invalid.Generate(context.Background(), req)
	var inv *ErrInvalidResponse
	assert.True(t, errors.As(err, &inv), "%T %v", err, err)
}

func TestAnthropicModelMapping(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", resolveModel("claude-sonnet", anthropicModels))
	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel("claude-haiku", anthropicModels))
	assert.Equal(t, "claude-opus-x", resolveModel("claude-opus-x", anthropicModels))
}
