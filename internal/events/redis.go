package events

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "events:"

// Channel returns the pub/sub channel carrying eventType.
func Channel(eventType string) string {
	return channelPrefix + eventType
}

// RedisPublisher publishes events on Redis pub/sub channels.
type RedisPublisher struct {
	rdb redis.UniversalClient
}

// NewRedisPublisher returns a publisher on rdb. A nil client makes every
// publish a no-op.
func NewRedisPublisher(rdb redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload []byte, _ string) error {
	if p.rdb == nil {
		return nil
	}
	return record("redis", p.rdb.Publish(ctx, Channel(eventType), payload).Err())
}

func (p *RedisPublisher) Close() error { return nil }

// Subscribe calls onMessage for every event of the given types until ctx is
// cancelled. A panic in onMessage is logged and the loop continues.
func (p *RedisPublisher) Subscribe(ctx context.Context, onMessage func(eventType string, payload []byte), eventTypes ...string) error {
	if p.rdb == nil {
		return nil
	}
	channels := make([]string, 0, len(eventTypes))
	for _, t := range eventTypes {
		channels = append(channels, Channel(t))
	}
	sub := p.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in event subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel[len(channelPrefix):], []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
