package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riftline/tradecore/internal/domain"
)

// streamMaxLen is the approximate maximum length for Redis streams, enforced
// via XADD MAXLEN ~, matching the teacher's trimming policy.
const streamMaxLen int64 = 10000

// Broker implements domain.Broker over Redis Streams (durable) and Pub/Sub
// (ephemeral), grounded on the teacher's internal/cache/redis/signal_bus.go
// and reconciled against original_source's xread_map/pubsub usage in
// executor.rs.
type Broker struct {
	rdb *redis.Client
}

// NewBroker creates a Broker backed by the given Client.
func NewBroker(c *Client) *Broker {
	return &Broker{rdb: c.Underlying()}
}

// StreamPublish appends payload to stream using XADD with approximate MAXLEN
// trimming, returning the assigned id.
func (b *Broker) StreamPublish(ctx context.Context, stream string, payload []byte) (string, error) {
	id, err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"event": payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redis: stream publish %s: %w", stream, err)
	}
	return id, nil
}

// StreamRead reads up to count messages from stream after lastID, blocking
// for blockMs milliseconds when no entries are immediately available.
func (b *Broker) StreamRead(ctx context.Context, stream, lastID string, count int, blockMs int) ([]domain.StreamMessage, error) {
	args := &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   int64(count),
	}
	if blockMs > 0 {
		args.Block = time.Duration(blockMs) * time.Millisecond
	} else {
		args.Block = -1 // go-redis treats a zero Block as "wait forever"
	}

	results, err := b.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var messages []domain.StreamMessage
	for _, s := range results {
		for _, msg := range s.Messages {
			payload, ok := msg.Values["event"]
			if !ok {
				continue
			}
			var data []byte
			switch v := payload.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}
			messages = append(messages, domain.StreamMessage{ID: msg.ID, Payload: data})
		}
	}
	return messages, nil
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a channel of raw byte
// payloads, closed when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(topic, "*?[") {
		pubsub = b.rdb.PSubscribe(ctx, topic)
	} else {
		pubsub = b.rdb.Subscribe(ctx, topic)
	}

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var _ domain.Broker = (*Broker)(nil)
