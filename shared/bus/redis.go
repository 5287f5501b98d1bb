package bus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis Streams. Every topic maps to a stream;
// each service reads through its own consumer group, so messages are
// acknowledged per group and redelivered when a handler fails.
type RedisBus struct {
	client        *redis.Client
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

type RedisBusConfig struct {
	Group         string
	Consumer      string
	BatchSize     int64
	BlockDuration time.Duration
}

func NewRedisBus(client *redis.Client, config RedisBusConfig) *RedisBus {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	return &RedisBus{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
	}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			"payload": payload,
		},
	}
	if _, err := b.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Subscribe blocks reading topic until ctx is cancelled. Messages whose
// handler returns an error are not acknowledged and stay in the group's
// pending list for redelivery.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	err := b.client.XGroupCreateMkStream(ctx, topic, b.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group for %s: %w", topic, err)
	}

	log.Printf("Subscribed: topic=%s, group=%s, consumer=%s", topic, b.group, b.consumer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", topic)
			return ctx.Err()
		default:
			if err := b.readMessages(ctx, topic, handler); err != nil {
				log.Printf("Error reading from %s: %v", topic, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (b *RedisBus) readMessages(ctx context.Context, topic string, handler Handler) error {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.group,
		Consumer: b.consumer,
		Streams:  []string{topic, ">"},
		Count:    b.batchSize,
		Block:    b.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil // no messages
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			payload, ok := message.Values["payload"].(string)
			if !ok {
				// Malformed entry; ack it so it does not wedge the group.
				log.Printf("Dropping malformed message %s on %s", message.ID, topic)
				b.ack(ctx, topic, message.ID)
				continue
			}
			if err := handler(ctx, []byte(payload)); err != nil {
				log.Printf("Failed to process message %s on %s: %v", message.ID, topic, err)
				continue
			}
			b.ack(ctx, topic, message.ID)
		}
	}
	return nil
}

func (b *RedisBus) ack(ctx context.Context, topic, id string) {
	if err := b.client.XAck(ctx, topic, b.group, id).Err(); err != nil {
		log.Printf("Failed to ACK message %s on %s: %v", id, topic, err)
	}
}
