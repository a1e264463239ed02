// Package bridge connects external chat clients to a channel: client input
// is stamped and published, channel traffic is fanned out to every client.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/utils"
)

// DefaultRelayName is the identity human clients speak as.
const DefaultRelayName = "Agent Rebel"

// Config configures a Bridge.
type Config struct {
	Channel      string
	RelayName    string
	PollInterval time.Duration
}

// Bridge moves envelopes between the hub's clients and the bus.
type Bridge struct {
	Channel      string
	RelayName    string
	PollInterval time.Duration
	Bus          bus.Bus
	History      history.Store
	Hub          *Hub
	Now          func() time.Time

	mu  sync.Mutex
	sub bus.Subscription
}

// New creates a Bridge.
func New(b bus.Bus, store history.Store, hub *Hub, cfg Config) *Bridge {
	relay := cfg.RelayName
	if relay == "" {
		relay = DefaultRelayName
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Bridge{
		Channel:      cfg.Channel,
		RelayName:    relay,
		PollInterval: poll,
		Bus:          b,
		History:      store,
		Hub:          hub,
		Now:          time.Now,
	}
}

// clientMessage is what clients send. Pointers tell missing from empty.
type clientMessage struct {
	Type    string   `json:"type"`
	Sender  *string  `json:"sender"`
	Role    bus.Role `json:"role"`
	Content *string  `json:"content"`
}

// Ingress handles one raw client message: stamp it, echo it to the sender
// when egress won't, publish it, and record it. The returned error only
// describes bad input; the connection stays usable either way.
func (br *Bridge) Ingress(ctx context.Context, conn Conn, raw []byte) error {
	var m clientMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: %v", bus.ErrMalformed, err)
	}
	if m.Sender == nil || *m.Sender == "" {
		return fmt.Errorf("%w: missing sender", bus.ErrMalformed)
	}
	if m.Content == nil {
		return fmt.Errorf("%w: missing content", bus.ErrMalformed)
	}
	if m.Role != bus.RoleUser && m.Role != bus.RoleModel {
		return fmt.Errorf("%w: role %q", bus.ErrMalformed, m.Role)
	}

	now := br.Now()
	env := bus.NewEnvelope(*m.Sender, m.Role, *m.Content, now)

	// Egress filters the relay identity, so its messages are echoed here.
	if env.Sender == br.RelayName && env.Content != "" {
		if err := conn.Send(env); err != nil {
			log.Printf("[Bridge] ⚠️ Echo to %s failed: %v", conn.ID(), err)
		}
	}

	if err := bus.PublishEnvelope(ctx, br.Bus, br.Channel, env); err != nil {
		log.Printf("[Bridge] ⚠️ Publish failed: %v", err)
		return nil
	}
	log.Printf("[Bridge] 📤 Published from %s: %s", env.Sender, utils.TruncateString(env.Content, 60))

	if err := br.History.Append(ctx, br.Channel, history.PromptEntry(env.Sender+": "+env.Content, now)); err != nil {
		log.Printf("[Bridge] ⚠️ History append: %v", err)
	}
	return nil
}

// Start subscribes the egress side.
func (br *Bridge) Start(ctx context.Context) error {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.sub != nil {
		return nil
	}
	sub, err := br.Bus.Subscribe(ctx, br.Channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", br.Channel, err)
	}
	br.sub = sub
	log.Printf("[Bridge] 👂 Relaying %s", br.Channel)
	return nil
}

// Stop releases the egress subscription.
func (br *Bridge) Stop() {
	br.mu.Lock()
	sub := br.sub
	br.sub = nil
	br.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Egress relays channel traffic to clients until ctx is cancelled.
func (br *Bridge) Egress(ctx context.Context) error {
	if err := br.Start(ctx); err != nil {
		return err
	}
	defer br.Stop()

	ticker := time.NewTicker(br.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for ctx.Err() == nil && br.Step() {
			}
		}
	}
}

// Step polls once and forwards the message if there was one.
func (br *Bridge) Step() bool {
	br.mu.Lock()
	sub := br.sub
	br.mu.Unlock()
	if sub == nil {
		return false
	}
	msg, ok := sub.Poll()
	if !ok {
		return false
	}
	br.Forward(msg.Payload)
	return true
}

// Forward broadcasts one channel payload to every client. Relay-sent and
// empty messages are not forwarded. It reports whether a broadcast happened.
func (br *Bridge) Forward(payload []byte) bool {
	in, err := bus.Decode(payload)
	if err != nil {
		log.Printf("[Bridge] ⚠️ Dropping message: %v", err)
		return false
	}
	if in.From() == br.RelayName || in.Text() == "" {
		return false
	}
	br.Hub.Broadcast(bus.NewEnvelope(in.From(), bus.RoleUser, in.Text(), br.Now()))
	return true
}
