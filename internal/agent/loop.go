// Package agent implements the per-agent turn-taking loop: poll the
// channel, decide whether to answer, call the responder, publish.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/utils"
)

// DefaultFallback is published when the responder fails.
const DefaultFallback = "Sorry, I couldn't process that."

// State is where a Loop is in its current turn.
type State int32

const (
	StateIdle State = iota
	StateDeciding
	StateResponding
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDeciding:
		return "DECIDING"
	case StateResponding:
		return "RESPONDING"
	case StatePublishing:
		return "PUBLISHING"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// LoopConfig holds configuration for creating a Loop.
type LoopConfig struct {
	Name          string
	Channel       string
	PollInterval  time.Duration
	HistoryWindow int
	Cooldown      time.Duration
	Fallback      string
}

// Loop is one agent's listener. Each agent process runs exactly one.
type Loop struct {
	Name          string
	Channel       string
	Bus           bus.Bus
	History       history.Store
	Responder     Responder
	PollInterval  time.Duration
	HistoryWindow int
	Cooldown      time.Duration
	Fallback      string
	Now           func() time.Time

	state atomic.Int32
	mu    sync.Mutex
	sub   bus.Subscription
}

// NewLoop creates a Loop.
func NewLoop(b bus.Bus, store history.Store, r Responder, cfg LoopConfig) *Loop {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	window := cfg.HistoryWindow
	if window <= 0 {
		window = history.DefaultWindow
	}
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Loop{
		Name:          cfg.Name,
		Channel:       cfg.Channel,
		Bus:           b,
		History:       store,
		Responder:     r,
		PollInterval:  poll,
		HistoryWindow: window,
		Cooldown:      cfg.Cooldown,
		Fallback:      fallback,
		Now:           time.Now,
	}
}

// State reports the loop's current state.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Start subscribes to the channel. Messages published before Start are
// never seen.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		return nil
	}
	sub, err := l.Bus.Subscribe(ctx, l.Channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", l.Channel, err)
	}
	l.sub = sub
	log.Printf("[Agent:%s] 👂 Listening on %s", l.Name, l.Channel)
	return nil
}

// Stop releases the subscription.
func (l *Loop) Stop() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()
	if sub != nil {
		sub.Close()
		log.Printf("[Agent:%s] Stopped", l.Name)
	}
}

// Run polls every PollInterval until ctx is cancelled. An in-flight
// responder call is not interrupted by the poll tick; it only delays the
// next poll.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer l.Stop()

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for ctx.Err() == nil && l.Step(ctx) {
			}
		}
	}
}

// Step polls once and handles the message if there was one.
func (l *Loop) Step(ctx context.Context) bool {
	l.mu.Lock()
	sub := l.sub
	l.mu.Unlock()
	if sub == nil {
		return false
	}
	msg, ok := sub.Poll()
	if !ok {
		return false
	}
	l.Handle(ctx, msg.Payload)
	return true
}

// Handle runs one turn for a raw channel payload. Nothing here is fatal:
// bad input is dropped and responder failures become the fallback text.
func (l *Loop) Handle(ctx context.Context, payload []byte) {
	l.setState(StateDeciding)
	defer l.setState(StateIdle)

	in, err := bus.Decode(payload)
	if err != nil {
		log.Printf("[Agent:%s] ⚠️ Dropping message: %v", l.Name, err)
		return
	}
	if in.From() == l.Name {
		return
	}

	prompt := in.Prompt()
	log.Printf("[Agent:%s] 📥 Received from %s: %s", l.Name, in.From(), utils.TruncateString(prompt, 60))

	l.setState(StateResponding)
	reply, err := l.respond(ctx, prompt)

	l.setState(StatePublishing)
	if err != nil {
		log.Printf("[Agent:%s] ❌ Responder failed: %v", l.Name, err)
		if err := l.publish(ctx, l.Fallback); err != nil {
			log.Printf("[Agent:%s] ⚠️ Publish fallback: %v", l.Name, err)
		}
		return
	}

	if err := l.publish(ctx, strings.TrimSpace(reply.Text)); err != nil {
		log.Printf("[Agent:%s] ⚠️ Publish: %v", l.Name, err)
		return
	}
	if len(reply.Turns) > 0 {
		if err := l.History.Append(ctx, l.Channel, history.TagAgent(reply.Turns, l.Name)); err != nil {
			log.Printf("[Agent:%s] ⚠️ History append: %v", l.Name, err)
		}
	}
	l.cooldown(ctx)
}

// Ask answers message directly without publishing it. Used by the HTTP
// chat endpoint.
func (l *Loop) Ask(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("empty message")
	}
	reply, err := l.respond(ctx, message)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

func (l *Loop) respond(ctx context.Context, prompt string) (Reply, error) {
	recent, err := l.History.Recent(ctx, l.Channel, l.HistoryWindow)
	if err != nil {
		log.Printf("[Agent:%s] ⚠️ History unavailable, answering without context: %v", l.Name, err)
		recent = nil
	}
	return l.Responder.Respond(ctx, prompt, recent)
}

func (l *Loop) publish(ctx context.Context, text string) error {
	env := bus.NewEnvelope(l.Name, bus.RoleUser, text, l.Now())
	if err := bus.PublishEnvelope(ctx, l.Bus, l.Channel, env); err != nil {
		return err
	}
	log.Printf("[Agent:%s] 📤 Published: %s", l.Name, utils.TruncateString(text, 60))
	return nil
}

func (l *Loop) cooldown(ctx context.Context) {
	if l.Cooldown <= 0 {
		return
	}
	t := time.NewTimer(l.Cooldown)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
