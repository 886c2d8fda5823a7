// Package cache stores hint advisor results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/barmen/internal/matching"
)

var _ matching.HintCache = (*HintCache)(nil)

// kv is the subset of redis.Cmdable the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient connects to the Redis instance at url (redis://...).
// Returns nil if url is empty.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// HintCache is a matching.HintCache backed by Redis strings holding JSON.
type HintCache struct {
	client kv
	ttl    time.Duration
}

// NewHintCache creates a cache whose entries expire after ttl.
func NewHintCache(client kv, ttl time.Duration) *HintCache {
	return &HintCache{client: client, ttl: ttl}
}

// Get returns the cached groups for key, if any.
func (c *HintCache) Get(ctx context.Context, key string) ([]matching.HintGroup, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var groups []matching.HintGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return groups, true, nil
}

// Set stores groups under key.
func (c *HintCache) Set(ctx context.Context, key string, groups []matching.HintGroup) error {
	data, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
