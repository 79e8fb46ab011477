package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

var (
	client    *redis.Client
	ctx       = context.Background()
	available bool
)

// SetupCache initializes the connection to the Redis cache server.
// The cache only backs the ephemeral fulfillment ledger, so an unreachable
// server downgrades to a warning instead of failing startup.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "",
		DB:       0,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		available = false
		log.Printf("Warning: could not connect to Redis cache: %v", err)
	} else {
		available = true
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Available reports whether the cache connection was reachable at setup time.
func Available() bool {
	if client == nil {
		SetupCache()
	}
	return available
}

// SetNX stores a value only if the key does not exist yet and reports whether
// the write happened.
func SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, key, value, expiration).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}
