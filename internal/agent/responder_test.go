package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/providers"
)

func newTestResponder(mp *mockProvider) *LLMResponder {
	r := NewLLMResponder(mp, ResponderConfig{Name: "Ada", SystemPrompt: "You are Ada."})
	r.Now = func() time.Time { return fixedNow }
	return r
}

func TestNewLLMResponder_Defaults(t *testing.T) {
	r := NewLLMResponder(&mockProvider{}, ResponderConfig{Name: "Ada"})
	assert.Equal(t, "mock-model", r.Model)
	assert.Equal(t, providers.DefaultMaxTokens, r.MaxTokens)
	assert.Equal(t, time.Minute, r.Timeout)
}

func TestLLMResponder_FirstTurnCarriesSystemPrompt(t *testing.T) {
	mp := &mockProvider{responses: []*providers.LLMResponse{{Content: strP("Hi!"), FinishReason: "stop"}}}
	r := newTestResponder(mp)

	reply, err := r.Respond(context.Background(), "Rebel: Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply.Text)

	require.Len(t, mp.requests, 1)
	req := mp.requests[0]
	assert.Equal(t, "mock-model", req.Model)
	assert.Equal(t, 100, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "You are Ada.", req.Messages[0].Content)

	require.Len(t, reply.Turns, 2)
	rt := reply.Turns[0].(history.RequestTurn)
	assert.Equal(t, "You are Ada.", rt.SystemPrompt())
	assert.Equal(t, "Rebel: Hello", rt.UserPrompt())
	assert.Equal(t, fixedNow, rt.Timestamp)
	resp := reply.Turns[1].(history.ResponseTurn)
	assert.Equal(t, "Hi!", resp.Text())
	assert.Equal(t, "mock-model", resp.ModelName)
}

func TestLLMResponder_LaterTurnOmitsSystemPrompt(t *testing.T) {
	mp := &mockProvider{responses: []*providers.LLMResponse{{Content: strP("sure"), FinishReason: "stop"}}}
	r := newTestResponder(mp)

	reply, err := r.Respond(context.Background(), "Bob: again", []history.Entry{replyWith("Bob: hi", "hello").Turns})
	require.NoError(t, err)

	rt := reply.Turns[0].(history.RequestTurn)
	assert.Empty(t, rt.SystemPrompt())
	assert.Len(t, mp.requests[0].Messages, 4)
}

func TestLLMResponder_Errors(t *testing.T) {
	tests := []struct {
		name string
		mp   *mockProvider
		is   error
	}{
		{"transport", &mockProvider{err: errors.New("dial tcp: refused")}, nil},
		{"in-band", &mockProvider{responses: []*providers.LLMResponse{{Content: strP("Error calling LLM (HTTP 500)"), FinishReason: providers.FinishError}}}, nil},
		{"null content", &mockProvider{responses: []*providers.LLMResponse{{Content: nil, FinishReason: "stop"}}}, ErrNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestResponder(tt.mp).Respond(context.Background(), "Rebel: hi", nil)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLLMResponder_EmptyContentIsSuccess(t *testing.T) {
	mp := &mockProvider{responses: []*providers.LLMResponse{{Content: strP(""), FinishReason: "stop"}}}
	reply, err := newTestResponder(mp).Respond(context.Background(), "Rebel: hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "", reply.Text)
}
