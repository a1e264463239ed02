package bus

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisBus publishes over Redis pub/sub, so agents running as separate
// processes share one channel.
type RedisBus struct {
	client     goredis.UniversalClient
	bufferSize int
}

// NewRedisBus wraps a connected client.
func NewRedisBus(client goredis.UniversalClient) *RedisBus {
	return &RedisBus{client: client, bufferSize: defaultBufferSize}
}

// Publish sends payload to the channel's current subscribers.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so nothing
// published after Subscribe returns is missed.
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return &redisSub{
		ps: ps,
		ch: ps.Channel(goredis.WithChannelSize(b.bufferSize)),
	}, nil
}

type redisSub struct {
	ps *goredis.PubSub
	ch <-chan *goredis.Message
}

func (s *redisSub) Poll() (Message, bool) {
	select {
	case m, ok := <-s.ch:
		if !ok {
			return Message{}, false
		}
		return Message{Channel: m.Channel, Payload: []byte(m.Payload)}, true
	default:
		return Message{}, false
	}
}

func (s *redisSub) Close() error {
	return s.ps.Close()
}
