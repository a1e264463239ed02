package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/providers"
)

const testChannel = "chat-2025-01-01-demo"

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeResponder records prompts and returns a canned reply.
type fakeResponder struct {
	mu      sync.Mutex
	prompts []string
	recents [][]history.Entry
	reply   Reply
	err     error
}

func (f *fakeResponder) Respond(_ context.Context, prompt string, recent []history.Entry) (Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.recents = append(f.recents, recent)
	return f.reply, f.err
}

func (f *fakeResponder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// replyWith builds a reply whose turns look like an LLMResponder's.
func replyWith(prompt, text string) Reply {
	return Reply{
		Text: text,
		Turns: history.Entry{
			history.RequestTurn{Parts: []history.Part{{PartKind: history.PartUserPrompt, Content: prompt}}, Timestamp: fixedNow},
			history.ResponseTurn{Parts: []history.Part{{PartKind: history.PartText, Content: text}}, ModelName: "mock-model", Timestamp: fixedNow},
		},
	}
}

// brokenStore fails every read and write.
type brokenStore struct{ history.MemoryStore }

var errStoreDown = errors.New("store down")

func (*brokenStore) Append(context.Context, string, history.Entry) error { return errStoreDown }
func (*brokenStore) Recent(context.Context, string, int) ([]history.Entry, error) {
	return nil, errStoreDown
}

// mockProvider implements providers.LLMProvider for testing.
type mockProvider struct {
	mu        sync.Mutex
	responses []*providers.LLMResponse
	err       error
	requests  []providers.ChatRequest
}

func (m *mockProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.requests) > len(m.responses) {
		return &providers.LLMResponse{Content: strP("No more responses"), FinishReason: "stop"}, nil
	}
	return m.responses[len(m.requests)-1], nil
}

func (m *mockProvider) DefaultModel() string { return "mock-model" }

func strP(s string) *string { return &s }

func newTestLoop(t *testing.T, r Responder, store history.Store) (*Loop, *bus.MemoryBus) {
	t.Helper()
	b := bus.NewMemoryBus(16)
	l := NewLoop(b, store, r, LoopConfig{Name: "Ada", Channel: testChannel})
	l.Now = func() time.Time { return fixedNow }
	return l, b
}

// observe subscribes a spy to the test channel.
func observe(t *testing.T, b bus.Bus) bus.Subscription {
	t.Helper()
	sub, err := b.Subscribe(context.Background(), testChannel)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	return sub
}

func nextEnvelope(t *testing.T, sub bus.Subscription) bus.Envelope {
	t.Helper()
	msg, ok := sub.Poll()
	require.True(t, ok, "expected a published envelope")
	var env bus.Envelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	return env
}

func payload(t *testing.T, sender, content string) []byte {
	t.Helper()
	data, err := bus.NewEnvelope(sender, bus.RoleUser, content, fixedNow).Marshal()
	require.NoError(t, err)
	return data
}
