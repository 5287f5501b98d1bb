package outbox

import (
	"context"
	"log"
	"time"

	"github.com/ElizavetaP/bankapp/shared/bus"
)

// EventSource is the slice of the outbox store the publisher needs.
type EventSource interface {
	OldestBatch(ctx context.Context, limit int) ([]Event, error)
	Delete(ctx context.Context, ids []int64) error
}

// Publisher ships pending outbox rows to the bus on a fixed interval. Within
// one cycle events are published sequentially in creation order; a row is
// deleted only after its publish call returned without error, so delivery is
// at-least-once with no deadline.
type Publisher struct {
	source       EventSource
	bus          bus.Bus
	topics       map[string]string
	defaultTopic string
	interval     time.Duration
	limit        int
}

type PublisherConfig struct {
	// Topics maps outbox event types to bus topics. Types without an entry
	// go to DefaultTopic.
	Topics       map[string]string
	DefaultTopic string
	Interval     time.Duration
	Limit        int
}

func NewPublisher(source EventSource, b bus.Bus, config PublisherConfig) *Publisher {
	if config.Interval == 0 {
		config.Interval = time.Second
	}
	if config.Limit == 0 {
		config.Limit = 10
	}
	return &Publisher{
		source:       source,
		bus:          b,
		topics:       config.Topics,
		defaultTopic: config.DefaultTopic,
		interval:     config.Interval,
		limit:        config.Limit,
	}
}

// Run processes the outbox until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("Outbox publisher started: interval=%s, limit=%d", p.interval, p.limit)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Outbox publisher stopping")
			return
		case <-ticker.C:
			p.Process(ctx)
		}
	}
}

// Process runs one publish cycle. A publish failure for one row leaves that
// row pending for the next cycle without blocking the rest of the batch; an
// unreachable bus makes the whole cycle a no-op.
func (p *Publisher) Process(ctx context.Context) {
	events, err := p.source.OldestBatch(ctx, p.limit)
	if err != nil {
		log.Printf("Failed to read outbox batch: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	if pinger, ok := p.bus.(bus.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			log.Printf("Bus unreachable, skipping outbox cycle: %v", err)
			return
		}
	}

	log.Printf("Processing %d outbox events", len(events))

	var processed []int64
	for _, event := range events {
		topic := p.topicFor(event.EventType)
		if err := p.bus.Publish(ctx, topic, event.Payload); err != nil {
			// Row stays in the outbox and is retried next cycle.
			log.Printf("Failed to publish outbox event: id=%d, type=%s: %v",
				event.ID, event.EventType, err)
			continue
		}
		processed = append(processed, event.ID)
	}

	if len(processed) == 0 {
		log.Printf("No outbox events were published successfully")
		return
	}
	if err := p.source.Delete(ctx, processed); err != nil {
		// The rows will be republished; consumers are idempotent.
		log.Printf("Failed to delete %d processed outbox events: %v", len(processed), err)
		return
	}
	log.Printf("Published and deleted %d outbox events", len(processed))
}

func (p *Publisher) topicFor(eventType string) string {
	if topic, ok := p.topics[eventType]; ok {
		return topic
	}
	log.Printf("Unknown outbox event type %q, using default topic %s", eventType, p.defaultTopic)
	return p.defaultTopic
}
