package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KV implements allocator.KV (and any other simple overwrite-on-write
// snapshot need) over a plain Redis string key.
type KV struct {
	rdb *redis.Client
}

// NewKV creates a KV backed by the given Client.
func NewKV(c *Client) *KV {
	return &KV{rdb: c.Underlying()}
}

// Set overwrites key with value, with no expiry.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Get retrieves the value at key.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := k.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return val, nil
}
