package bus

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBus is an in-process Bus used by tests. It dispatches synchronously
// to subscribed handlers, records every published payload per topic, and can
// simulate a full outage or per-topic publish failures.
type MemoryBus struct {
	mu        sync.Mutex
	handlers  map[string][]Handler
	published map[string][][]byte
	down      bool
	failTopic map[string]bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers:  make(map[string][]Handler),
		published: make(map[string][][]byte),
		failTopic: make(map[string]bool),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	if b.down {
		b.mu.Unlock()
		return fmt.Errorf("bus unreachable")
	}
	if b.failTopic[topic] {
		b.mu.Unlock()
		return fmt.Errorf("publish to %s failed", topic)
	}
	b.published[topic] = append(b.published[topic], payload)
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *MemoryBus) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return fmt.Errorf("bus unreachable")
	}
	return nil
}

// SetDown simulates a total bus outage.
func (b *MemoryBus) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// FailTopic makes publishes to a single topic fail while others succeed.
func (b *MemoryBus) FailTopic(topic string, fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failTopic[topic] = fail
}

// Published returns the payloads delivered to topic, in publish order.
func (b *MemoryBus) Published(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[topic]...)
}
