package authz

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-platform/internal/cache"
)

func newTestEngine(t *testing.T) (*Engine, *cache.PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	permCache := cache.NewPermissionCache(client)
	return New(permCache, nil), permCache, mr
}

func TestSuperAdminBypassesCache(t *testing.T) {
	engine, _, mr := newTestEngine(t)
	identity := Identity{UserID: 1, SuperAdmin: true}

	// Cache completely empty.
	assert.True(t, engine.Authorize(context.Background(), identity, "manage_role"))

	// Cache erroring entirely.
	mr.Close()
	assert.True(t, engine.Authorize(context.Background(), identity, "delete_user"))
}

func TestExactPermissionGrants(t *testing.T) {
	engine, permCache, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, permCache.Set(ctx, 2, []string{"read_file", "create_file"}))

	identity := Identity{UserID: 1, RoleIDs: []uint64{2}}
	assert.True(t, engine.Authorize(ctx, identity, "read_file"))
	assert.False(t, engine.Authorize(ctx, identity, "delete_file"))
}

func TestManageImpliesCRUD(t *testing.T) {
	engine, permCache, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, permCache.Set(ctx, 3, []string{"manage_file"}))

	identity := Identity{UserID: 1, RoleIDs: []uint64{3}}
	for _, code := range []string{"create_file", "read_file", "update_file", "delete_file", "manage_file"} {
		assert.True(t, engine.Authorize(ctx, identity, code), code)
	}
	assert.False(t, engine.Authorize(ctx, identity, "manage_role"))
	assert.False(t, engine.Authorize(ctx, identity, "read_role"))
}

func TestPermissionsFlattenAcrossRoles(t *testing.T) {
	engine, permCache, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, permCache.Set(ctx, 1, []string{"read_user"}))
	require.NoError(t, permCache.Set(ctx, 2, []string{"manage_file"}))

	identity := Identity{UserID: 1, RoleIDs: []uint64{1, 2}}
	assert.True(t, engine.Authorize(ctx, identity, "read_user"))
	assert.True(t, engine.Authorize(ctx, identity, "update_file"))
	assert.False(t, engine.Authorize(ctx, identity, "delete_user"))
}

func TestMissingCacheEntryFailsClosed(t *testing.T) {
	engine, permCache, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, permCache.Set(ctx, 1, []string{"read_user"}))

	// Role 99 has no cache entry; it contributes nothing but the
	// check still evaluates role 1.
	identity := Identity{UserID: 1, RoleIDs: []uint64{99, 1}}
	assert.True(t, engine.Authorize(ctx, identity, "read_user"))
	assert.False(t, engine.Authorize(ctx, identity, "read_role"))
}

func TestUnparseableEntryFailsClosedPerRole(t *testing.T) {
	engine, permCache, mr := newTestEngine(t)
	ctx := context.Background()
	mr.Set("7", "not json")
	require.NoError(t, permCache.Set(ctx, 8, []string{"read_role"}))

	identity := Identity{UserID: 1, RoleIDs: []uint64{7, 8}}
	// The broken entry never errors the request, and the healthy
	// role's permissions still apply.
	assert.True(t, engine.Authorize(ctx, identity, "read_role"))
	assert.False(t, engine.Authorize(ctx, identity, "read_user"))
}

func TestNoRolesDenies(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	identity := Identity{UserID: 1}
	assert.False(t, engine.Authorize(context.Background(), identity, "read_user"))
}
