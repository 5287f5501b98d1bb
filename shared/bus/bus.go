// Package bus abstracts the pub/sub transport between the services. The
// contract is deliberately small: fire-and-forget publish and a blocking
// per-topic subscription. Delivery is at-least-once with no ordering
// guarantee across topics, so every handler must be idempotent.
package bus

import "context"

// Handler processes one raw message payload. Returning an error leaves the
// message unacknowledged so the transport redelivers it.
type Handler func(ctx context.Context, payload []byte) error

type Bus interface {
	// Publish sends payload to topic. It returns once the transport has
	// accepted the message; there is no delivery confirmation beyond that.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe consumes topic with handler until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// Pinger is implemented by transports that can cheaply report reachability.
// The outbox publisher uses it to skip a cycle when the bus is down.
type Pinger interface {
	Ping(ctx context.Context) error
}
