package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/history"
)

const testChannel = "chat-2025-01-01-demo"

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeConn records what it was sent.
type fakeConn struct {
	id     string
	fail   bool
	mu     sync.Mutex
	sent   []bus.Envelope
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(env bus.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) received() []bus.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bus.Envelope(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestBridge(t *testing.T) (*Bridge, *bus.MemoryBus, *history.MemoryStore) {
	t.Helper()
	b := bus.NewMemoryBus(16)
	store := history.NewMemoryStore()
	br := New(b, store, NewHub(), Config{Channel: testChannel, PollInterval: 5 * time.Millisecond})
	br.Now = func() time.Time { return fixedNow }
	return br, b, store
}

func publish(t *testing.T, b bus.Bus, sender, content string) {
	t.Helper()
	require.NoError(t, bus.PublishEnvelope(context.Background(), b, testChannel,
		bus.NewEnvelope(sender, bus.RoleUser, content, fixedNow)))
}
