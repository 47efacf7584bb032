package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toolpress/toolpress/internal/pkg/env"
)

// TTLs for cached aggregates.
const (
	TTLShort  = 5 * time.Minute
	TTLMedium = 30 * time.Minute
	TTLLong   = 24 * time.Hour
)

var ctx = context.Background()

// Cache wraps a Redis client for memoized read aggregates. Cached values are
// invalidated wholesale on writes, never patched in place.
type Cache struct {
	client *redis.Client
}

// New connects to the cache server configured via CACHE_HOST/CACHE_PORT.
func New() *Cache {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache server: %v", err)
	} else {
		log.Printf("Successfully connected to cache server: %s", pong)
	}

	return &Cache{client: client}
}

// NewWithClient wraps an existing Redis client (used by tests).
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Set stores a value in the cache with the given key and expiration time
func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func (c *Cache) Get(key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// GetInt retrieves an integer value from the cache by key
func (c *Cache) GetInt(key string) (int, error) {
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Delete removes a value from the cache by key
func (c *Cache) Delete(key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeleteByPattern removes all keys matching the given glob pattern and
// returns how many keys were deleted.
func (c *Cache) DeleteByPattern(pattern string) (int64, error) {
	var deleted int64
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// SetJSON marshals value and stores it under key.
func (c *Cache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON loads key and unmarshals it into dest. Returns redis.Nil when the
// key is absent.
func (c *Cache) GetJSON(key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
