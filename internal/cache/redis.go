package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPresence keeps the identities connected to one instance in a redis
// set so other processes can see who is connected. Every instance must use
// its own key: Reset drops the whole set. It never stores connections.
type RedisPresence struct {
	client *redis.Client
	key    string
}

func NewRedisPresence(client *redis.Client, key string) *RedisPresence {
	return &RedisPresence{client: client, key: key}
}

func (r RedisPresence) Join(ctx context.Context, id string) error {
	if err := r.client.SAdd(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("adding %q to presence: %w", id, err)
	}
	return nil
}

func (r RedisPresence) Leave(ctx context.Context, id string) error {
	if err := r.client.SRem(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("removing %q from presence: %w", id, err)
	}
	return nil
}

// Reset clears presence left behind by a previous run of this instance.
func (r RedisPresence) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("resetting presence: %w", err)
	}
	return nil
}
