package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/history"
)

func TestLoop_SelfSuppression(t *testing.T) {
	r := &fakeResponder{reply: replyWith("x", "should not happen")}
	l, b := newTestLoop(t, r, history.NewMemoryStore())
	spy := observe(t, b)

	l.Handle(context.Background(), payload(t, "Ada", "talking to myself"))

	assert.Empty(t, r.calls())
	_, ok := spy.Poll()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, l.State())
}

func TestLoop_RespondsAndRecords(t *testing.T) {
	store := history.NewMemoryStore()
	r := &fakeResponder{reply: replyWith("Rebel: Hello", "  Hi!\n")}
	l, b := newTestLoop(t, r, store)
	spy := observe(t, b)
	ctx := context.Background()

	l.Handle(ctx, payload(t, "Rebel", "Hello"))

	assert.Equal(t, []string{"Rebel: Hello"}, r.calls())

	env := nextEnvelope(t, spy)
	assert.Equal(t, "Ada", env.Sender)
	assert.Equal(t, "Hi!", env.Content)
	assert.Equal(t, bus.RoleUser, env.Role)
	assert.Equal(t, bus.TypeMessage, env.Type)
	assert.Equal(t, bus.ColorFor("Ada"), env.Color)
	assert.Equal(t, "2025-01-01T12:00:00.000Z", env.Timestamp)

	entries, err := store.Recent(ctx, testChannel, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	resp, ok := entries[0][1].(history.ResponseTurn)
	require.True(t, ok)
	assert.Equal(t, "Ada", resp.AgentSender)
}

func TestLoop_PassesRecentHistory(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, store.Append(ctx, testChannel, replyWith("Bob: hi", "hey").Turns))
	}
	r := &fakeResponder{reply: replyWith("Bob: again", "ok")}
	l, _ := newTestLoop(t, r, store)

	l.Handle(ctx, payload(t, "Bob", "again"))

	require.Len(t, r.recents, 1)
	assert.Len(t, r.recents[0], 10)
}

func TestLoop_LegacyResponsePrompt(t *testing.T) {
	r := &fakeResponder{reply: replyWith("", "noted")}
	l, _ := newTestLoop(t, r, history.NewMemoryStore())

	l.Handle(context.Background(), []byte(`{"sender":"Bob","response":"**Bob:** already attributed"}`))

	assert.Equal(t, []string{"**Bob:** already attributed"}, r.calls())
}

func TestLoop_LegacyFromSelfIgnored(t *testing.T) {
	r := &fakeResponder{}
	l, _ := newTestLoop(t, r, history.NewMemoryStore())

	l.Handle(context.Background(), []byte(`{"sender":"Ada","response":"mine"}`))

	assert.Empty(t, r.calls())
}

func TestLoop_MalformedDropped(t *testing.T) {
	r := &fakeResponder{}
	l, b := newTestLoop(t, r, history.NewMemoryStore())
	spy := observe(t, b)
	ctx := context.Background()

	l.Handle(ctx, []byte(`not json`))
	l.Handle(ctx, []byte(`{"content":"no sender"}`))
	l.Handle(ctx, []byte(`{"sender":"Bob"}`))

	assert.Empty(t, r.calls())
	_, ok := spy.Poll()
	assert.False(t, ok)
}

func TestLoop_ResponderFailurePublishesFallback(t *testing.T) {
	store := history.NewMemoryStore()
	r := &fakeResponder{err: errors.New("model timeout")}
	l, b := newTestLoop(t, r, store)
	spy := observe(t, b)
	ctx := context.Background()

	l.Handle(ctx, payload(t, "Rebel", "Hello"))

	env := nextEnvelope(t, spy)
	assert.Equal(t, "Ada", env.Sender)
	assert.Equal(t, DefaultFallback, env.Content)

	n, err := store.Len(ctx, testChannel)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, StateIdle, l.State())
}

func TestLoop_CustomFallback(t *testing.T) {
	r := &fakeResponder{err: errors.New("boom")}
	b := bus.NewMemoryBus(4)
	l := NewLoop(b, history.NewMemoryStore(), r, LoopConfig{Name: "Ada", Channel: testChannel, Fallback: "brb"})
	spy := observe(t, b)

	l.Handle(context.Background(), payload(t, "Rebel", "Hello"))

	assert.Equal(t, "brb", nextEnvelope(t, spy).Content)
}

func TestLoop_HistoryFailureDoesNotBlock(t *testing.T) {
	r := &fakeResponder{reply: replyWith("Rebel: Hello", "Hi!")}
	l, b := newTestLoop(t, r, &brokenStore{})
	spy := observe(t, b)

	l.Handle(context.Background(), payload(t, "Rebel", "Hello"))

	require.Len(t, r.recents, 1)
	assert.Nil(t, r.recents[0])
	assert.Equal(t, "Hi!", nextEnvelope(t, spy).Content)
}

func TestLoop_StepBeforeStart(t *testing.T) {
	l, _ := newTestLoop(t, &fakeResponder{}, history.NewMemoryStore())
	assert.False(t, l.Step(context.Background()))
}

func TestLoop_StartStep(t *testing.T) {
	r := &fakeResponder{reply: replyWith("Rebel: one", "1")}
	l, b := newTestLoop(t, r, history.NewMemoryStore())
	ctx := context.Background()

	// published before Start: never seen
	require.NoError(t, b.Publish(ctx, testChannel, payload(t, "Rebel", "zero")))

	require.NoError(t, l.Start(ctx))
	defer l.Stop()
	assert.False(t, l.Step(ctx))

	require.NoError(t, b.Publish(ctx, testChannel, payload(t, "Rebel", "one")))
	assert.True(t, l.Step(ctx))
	assert.Equal(t, []string{"Rebel: one"}, r.calls())

	// its own reply comes back and is ignored
	assert.True(t, l.Step(ctx))
	assert.Len(t, r.calls(), 1)
	assert.False(t, l.Step(ctx))
}

func TestLoop_Run(t *testing.T) {
	r := &fakeResponder{reply: replyWith("Rebel: ping", "pong")}
	b := bus.NewMemoryBus(16)
	l := NewLoop(b, history.NewMemoryStore(), r, LoopConfig{
		Name:         "Ada",
		Channel:      testChannel,
		PollInterval: 5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.NoError(t, b.Publish(ctx, testChannel, payload(t, "Rebel", "ping")))
	assert.Eventually(t, func() bool { return len(r.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Zero(t, b.Subscribers(testChannel))
}

func TestLoop_CooldownHonoursCancel(t *testing.T) {
	r := &fakeResponder{reply: replyWith("Rebel: hi", "hi")}
	b := bus.NewMemoryBus(4)
	l := NewLoop(b, history.NewMemoryStore(), r, LoopConfig{Name: "Ada", Channel: testChannel, Cooldown: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	l.Handle(ctx, payload(t, "Rebel", "hi"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLoop_Ask(t *testing.T) {
	r := &fakeResponder{reply: replyWith("What is 2+2?", " 4 ")}
	l, b := newTestLoop(t, r, history.NewMemoryStore())
	spy := observe(t, b)

	text, err := l.Ask(context.Background(), "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4", text)
	assert.Equal(t, []string{"What is 2+2?"}, r.calls())

	_, ok := spy.Poll()
	assert.False(t, ok, "Ask must not publish")
}

func TestLoop_AskErrors(t *testing.T) {
	r := &fakeResponder{err: errors.New("down")}
	l, _ := newTestLoop(t, r, history.NewMemoryStore())

	_, err := l.Ask(context.Background(), "  ")
	assert.Error(t, err)
	assert.Empty(t, r.calls())

	_, err = l.Ask(context.Background(), "hi")
	assert.EqualError(t, err, "down")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "DECIDING", StateDeciding.String())
	assert.Equal(t, "RESPONDING", StateResponding.String())
	assert.Equal(t, "PUBLISHING", StatePublishing.String())
	assert.Equal(t, "State(9)", State(9).String())
}
