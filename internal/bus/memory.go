package bus

import (
	"context"
	"log"
	"sync"
)

const defaultBufferSize = 256

// MemoryBus is an in-process Bus backed by one buffered Go channel per
// subscriber. It serves tests and single-process runs; agents in separate
// processes need RedisBus.
type MemoryBus struct {
	mu         sync.RWMutex
	subs       map[string]map[*memorySub]struct{}
	bufferSize int
}

// NewMemoryBus creates a MemoryBus whose subscribers buffer up to
// bufferSize messages (256 when bufferSize <= 0).
func NewMemoryBus(bufferSize int) *MemoryBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &MemoryBus{
		subs:       make(map[string]map[*memorySub]struct{}),
		bufferSize: bufferSize,
	}
}

// Publish hands payload to every current subscriber of channel.
// A subscriber whose buffer is full misses the message.
func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	data := append([]byte(nil), payload...)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[channel] {
		select {
		case s.ch <- Message{Channel: channel, Payload: data}:
		default:
			log.Printf("[Bus] ⚠️ Subscriber buffer full on %s, message dropped", channel)
		}
	}
	return nil
}

// Subscribe registers a new subscriber on channel.
func (b *MemoryBus) Subscribe(_ context.Context, channel string) (Subscription, error) {
	s := &memorySub{
		bus:     b,
		channel: channel,
		ch:      make(chan Message, b.bufferSize),
	}
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySub]struct{})
	}
	b.subs[channel][s] = struct{}{}
	b.mu.Unlock()
	return s, nil
}

// Subscribers returns the number of live subscriptions on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *MemoryBus) remove(s *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[s.channel], s)
	if len(b.subs[s.channel]) == 0 {
		delete(b.subs, s.channel)
	}
}

type memorySub struct {
	bus     *MemoryBus
	channel string
	ch      chan Message
	once    sync.Once
}

func (s *memorySub) Poll() (Message, bool) {
	select {
	case m := <-s.ch:
		return m, true
	default:
		return Message{}, false
	}
}

func (s *memorySub) Close() error {
	s.once.Do(func() { s.bus.remove(s) })
	return nil
}
