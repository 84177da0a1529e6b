// Package authz decides whether an authenticated identity holds a
// requested permission. Decisions consume the denormalized permission
// cache only; the relational store is never touched on the hot path.
package authz

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/identity-platform/internal/cache"
	"github.com/iliyamo/identity-platform/internal/model"
)

// Identity is the authenticated principal derived from a verified
// access token.
type Identity struct {
	UserID     uint64
	Email      string
	RoleIDs    []uint64
	SuperAdmin bool
}

// Engine evaluates permission checks against the permission cache.
// Callers pass the required permission as a plain value; nothing is
// discovered via reflection or metadata. Safe for concurrent use.
type Engine struct {
	cache *cache.PermissionCache
	log   *logrus.Logger
}

// New builds an Engine over an injected permission cache.
func New(permCache *cache.PermissionCache, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{cache: permCache, log: log}
}

// Authorize reports whether the identity may perform the action named
// by the required permission code.
//
// Super admins are granted unconditionally without touching the
// cache. Otherwise the cache entries for all of the identity's roles
// are fetched concurrently (they are independent reads with no
// ordering requirement), flattened into one set, and the set is
// tested for either the exact code or `manage_<resource>`. A missing
// or unreadable entry counts as an empty permission set for that role
// only; the check fails closed per-role, never errors the request.
func (e *Engine) Authorize(ctx context.Context, identity Identity, required string) bool {
	if identity.SuperAdmin {
		return true
	}
	if len(identity.RoleIDs) == 0 {
		return false
	}

	perRole := make([][]string, len(identity.RoleIDs))
	var wg sync.WaitGroup
	for i, roleID := range identity.RoleIDs {
		wg.Add(1)
		go func(i int, roleID uint64) {
			defer wg.Done()
			codes, err := e.cache.Get(ctx, roleID)
			if err != nil {
				e.log.WithError(err).WithField("role_id", roleID).
					Warn("permission cache read failed; treating role as empty")
				return
			}
			perRole[i] = codes
		}(i, roleID)
	}
	wg.Wait()

	granted := make(map[string]struct{})
	for _, codes := range perRole {
		for _, code := range codes {
			granted[code] = struct{}{}
		}
	}

	if _, ok := granted[required]; ok {
		return true
	}
	if manage := model.ManageCodeFor(required); manage != "" {
		if _, ok := granted[manage]; ok {
			return true
		}
	}
	return false
}
