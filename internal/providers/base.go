// Package providers defines the LLM responder backend used by agents.
package providers

import (
	"context"
	"errors"
)

// FinishError is the finish reason a provider reports when the call failed
// upstream. The content then holds the error text.
const FinishError = "error"

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by OpenAI-compatible endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest holds the parameters of one completion call.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// LLMResponse is the normalized response of any provider.
type LLMResponse struct {
	Content      *string        `json:"content"`
	FinishReason string         `json:"finish_reason"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// Text returns the content, or "" when the model sent none.
func (r *LLMResponse) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}
	return *r.Content
}

// Err converts an upstream failure reported in-band into an error.
func (r *LLMResponse) Err() error {
	if r == nil {
		return errors.New("nil response")
	}
	if r.FinishReason == FinishError {
		return errors.New(r.Text())
	}
	return nil
}

// LLMProvider is implemented by every completion backend.
type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error)

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string
}
