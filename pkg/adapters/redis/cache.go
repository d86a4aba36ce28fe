package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Cache implements ports.FastCache as one Redis hash per session: each hot
// field is a hash entry, so a reload can pull back single fields without
// deserializing the whole answer document.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a fast cache from an existing client.
func NewCache(client *backend.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "stepwise:cache:"
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(sessionID string) string { return c.prefix + sessionID }

// Put stores one field in the session hash.
func (c *Cache) Put(ctx context.Context, sessionID, field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, c.key(sessionID), field, data)
	if c.ttl > 0 {
		pipe.Expire(ctx, c.key(sessionID), c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Get reads one field from the session hash.
func (c *Cache) Get(ctx context.Context, sessionID, field string) (any, bool, error) {
	val, err := c.client.HGet(ctx, c.key(sessionID), field).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var value any
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return value, true, nil
}

// Delete drops the whole session hash.
func (c *Cache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
