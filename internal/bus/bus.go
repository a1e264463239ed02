package bus

import (
	"context"
	"fmt"
)

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Bus fans a channel's payloads out to its current subscribers.
//
// Delivery is best-effort: a subscriber only sees payloads published while
// it is subscribed, and a publisher is never blocked by a slow subscriber.
// Backlog lives in the history store, not here.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one subscriber's view of a channel.
type Subscription interface {
	// Poll returns the next buffered message without blocking.
	// Messages come back in the order the backend delivered them.
	Poll() (Message, bool)

	// Close releases the subscription.
	Close() error
}

// PublishEnvelope encodes env and publishes it on channel.
func PublishEnvelope(ctx context.Context, b Bus, channel string, env Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return b.Publish(ctx, channel, data)
}
