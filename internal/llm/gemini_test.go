package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: server.URL + "/"},
	})
	require.NoError(t, err)
	return &GeminiProvider{client: client, model: "gemini-2.0-flash"}
}

func geminiResponse(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":     40,
			"candidatesTokenCount": 10,
			"totalTokenCount":      50,
		},
	}
}

func geminiError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": reason, "status": reason},
	})
}

func TestGeminiProvider_Generate(t *testing.T) {
	var got map[string]any
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiResponse(`{"score":1,"explanation":"完全正确"}`, "STOP"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "你是评分助手",
		Messages: []Message{
			{Role: RoleUser, Content: "评分"},
			{Role: RoleAssistant, Content: "好的"},
		},
		Schema:    gradeSchema,
		MaxTokens: 128,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":1,"explanation":"完全正确"}`, string(resp.Content))
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 10, resp.Usage.OutputTokens)
	assert.Equal(t, 50, resp.Usage.TotalTokens)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)
	assert.Equal(t, "end", resp.StopReason)

	contents := got["contents"].([]any)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].(map[string]any)["role"])
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.Contains(t, got, "systemInstruction")

	gen := got["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.EqualValues(t, 128, gen["maxOutputTokens"])
	schema := gen["responseSchema"].(map[string]any)
	assert.Equal(t, "OBJECT", schema["type"])
	assert.Contains(t, schema["properties"], "explanation")
}

func TestGeminiProvider_Errors(t *testing.T) {
	req := Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, Schema: gradeSchema, MaxTokens: 64}

	rateLimited := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		geminiError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED")
	})
	_, err := rateLimited.Generate(context.Background(), req)
	var rl *ErrRateLimit
	assert.True(t, errors.As(err, &rl), "%T %v", err, err)

	unavailable := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		geminiError(w, http.StatusServiceUnavailable, "UNAVAILABLE")
	})
	_, err = unavailable.Generate(context.Background(), req)
	var pu *ErrProviderUnavailable
	assert.True(t, errors.As(err, &pu), "%T %v", err, err)

	truncated := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiResponse(`{"score":`, "MAX_TOKENS"))
	})
	_, err = truncated.Generate(context.Background(), req)
	var mt *ErrMaxTokensExceeded
	assert.True(t, errors.As(err, &mt), "%T %v", err, err)

	invalid := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiResponse(`{"explanation":"缺少分数"}`, "STOP"))
	})
	_, err = invalid.Generate(context.Background(), req)
	var inv *ErrInvalidResponse
	assert.True(t, errors.As(err, &inv), "%T %v", err, err)
}

func TestMapGeminiError(t *testing.T) {
	var rl *ErrRateLimit
	assert.True(t, errors.As(mapGeminiError(genai.APIError{Code: http.StatusTooManyRequests}), &rl))

	var pu *ErrProviderUnavailable
	assert.True(t, errors.As(mapGeminiError(genai.APIError{Code: http.StatusBadGateway}), &pu))

	assert.ErrorIs(t, mapGeminiError(context.Canceled), context.Canceled)
}

func TestGeminiModelMapping(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "gemini-2.0-pro", resolveModel("gemini-pro", geminiModels))
	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-2.5-flash", geminiModels))
}
