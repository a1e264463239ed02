package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/providers"
	"github.com/dayuer/agentchat/internal/utils"
)

// ErrNoContent is returned when the model produced no content at all.
var ErrNoContent = errors.New("responder returned no content")

// Reply is a responder's output: the text to publish and the turn batch
// to record.
type Reply struct {
	Text  string
	Turns history.Entry
}

// Responder produces a reply to prompt given recent channel history.
type Responder interface {
	Respond(ctx context.Context, prompt string, recent []history.Entry) (Reply, error)
}

// LLMResponder answers through an LLMProvider.
type LLMResponder struct {
	Provider    providers.LLMProvider
	Context     *ContextBuilder
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Now         func() time.Time
}

// ResponderConfig holds configuration for creating an LLMResponder.
type ResponderConfig struct {
	Name         string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

// NewLLMResponder creates an LLMResponder for one agent.
func NewLLMResponder(provider providers.LLMProvider, cfg ResponderConfig) *LLMResponder {
	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = providers.DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &LLMResponder{
		Provider:    provider,
		Context:     NewContextBuilder(cfg.Name, cfg.SystemPrompt),
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		Timeout:     timeout,
		Now:         time.Now,
	}
}

// Respond calls the model once. The reply's turns carry the system prompt
// only when the channel had no history yet.
func (r *LLMResponder) Respond(ctx context.Context, prompt string, recent []history.Entry) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	log.Printf("[Agent:%s] 🤖 Processing: %s", r.Context.AgentName, utils.TruncateString(prompt, 100))
	requestedAt := r.Now().UTC()

	resp, err := r.Provider.Chat(ctx, providers.ChatRequest{
		Messages:    r.Context.BuildMessages(recent, prompt),
		Model:       r.Model,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("LLM chat: %w", err)
	}
	if err := resp.Err(); err != nil {
		return Reply{}, fmt.Errorf("LLM chat: %w", err)
	}
	if resp.Content == nil {
		return Reply{}, ErrNoContent
	}
	text := *resp.Content
	log.Printf("[Agent:%s] ✅ Response: %s", r.Context.AgentName, utils.TruncateString(text, 100))

	req := history.RequestTurn{Timestamp: requestedAt}
	if len(recent) == 0 && r.Context.SystemPrompt != "" {
		req.Parts = append(req.Parts, history.Part{PartKind: history.PartSystemPrompt, Content: r.Context.SystemPrompt})
	}
	req.Parts = append(req.Parts, history.Part{PartKind: history.PartUserPrompt, Content: prompt})

	return Reply{
		Text: text,
		Turns: history.Entry{
			req,
			history.ResponseTurn{
				Parts:     []history.Part{{PartKind: history.PartText, Content: text}},
				ModelName: r.Model,
				Timestamp: r.Now().UTC(),
			},
		},
	}, nil
}
