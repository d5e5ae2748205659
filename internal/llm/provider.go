// Package llm wraps chat-completion providers behind a single Provider
// interface used for grading free-text answers.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one request to a model and returns its output.
type Provider interface {
	// Generate returns the model output. When req.Schema is set the
	// returned Content is JSON that has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema asks the provider for structured JSON output. Nil means
	// plain text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// resolveModel maps a short alias to a provider model id; unknown names
// are passed through unchanged.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
