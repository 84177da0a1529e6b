// Package cache holds the shared Redis-backed components consumed by
// every service that needs authorization: the permission cache (a
// read-optimized denormalization of the role-permission relation) and
// the session store (single active refresh token per user). Both take
// an injected *redis.Client at construction time; there is no
// package-level client, so tests run against isolated instances.
package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PermissionCache maps a role id to the JSON-encoded list of
// permission codes currently granted to that role. Entry absence
// means "no permissions" (fail-closed), never an error. Set is
// idempotent, so a cache write lost after a committed role mutation
// can be repaired by simply re-running it.
type PermissionCache struct {
	client *redis.Client
}

// NewPermissionCache wraps an existing Redis client handle.
func NewPermissionCache(client *redis.Client) *PermissionCache {
	return &PermissionCache{client: client}
}

// key is the decimal string of the role's numeric id.
func (c *PermissionCache) key(roleID uint64) string {
	return strconv.FormatUint(roleID, 10)
}

// Get returns the permission codes cached for a role. A missing key
// yields an empty slice and no error.
func (c *PermissionCache) Get(ctx context.Context, roleID uint64) ([]string, error) {
	raw, err := c.client.Get(ctx, c.key(roleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Set overwrites the cached permission list for a role with the given
// codes, encoded as a JSON array. An empty (non-nil or nil) slice is
// stored as "[]" so readers can distinguish "cached empty" from a
// missing entry only by value, which collapses to the same decision.
func (c *PermissionCache) Set(ctx context.Context, roleID uint64, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(roleID), raw, 0).Err()
}

// Del removes the cache entry for a role. Deleting an absent key is
// a no-op.
func (c *PermissionCache) Del(ctx context.Context, roleID uint64) error {
	return c.client.Del(ctx, c.key(roleID)).Err()
}
