package config

// This file defines the Redis client constructor for the platform.
// Redis backs the permission cache and the session store, both of
// which the authorization and token flows depend on, so unlike an
// optional response cache a connection failure here is fatal: the
// constructor returns an error and the entry point refuses to start.

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from the loaded Config
// and verifies connectivity with a short ping. The same client handle
// is shared by the permission cache and the session store; tests
// construct their own isolated clients instead of relying on any
// package-level state.
func NewRedisClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
