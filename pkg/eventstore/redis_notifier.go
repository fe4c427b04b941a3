package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier mirrors every appended event onto a Redis Pub/Sub channel so
// out-of-process observers can follow the log without polling the JSONL
// file. It is purely additive: the in-process synchronous dispatch contract
// SubscribeAll already provides is unchanged by attaching a notifier.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier returns a notifier bound to channel on client.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

const publishTimeout = 5 * time.Second

// Attach subscribes the notifier to store so every future append is
// published, best-effort, after in-process dispatch has already run.
func (n *RedisNotifier) Attach(store *Store) *Subscription {
	return store.SubscribeAll(func(ev StoredEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		_ = n.client.Publish(ctx, n.channel, payload).Err()
	})
}

// Close releases the underlying Redis client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
