// Package service implements the platform's business flows: role and
// permission administration, and the credential/session lifecycle.
// Both services are thin coordinators over the credential store, the
// Redis-backed caches, the token service and the message publisher;
// all of those are injected at construction time.
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/cache"
	"github.com/iliyamo/identity-platform/internal/model"
	"github.com/iliyamo/identity-platform/internal/repository"
)

// RoleService administers roles, their permission sets and their
// assignment to users. Every mutation runs inside one credential-store
// transaction; the permission-cache write follows strictly after the
// commit and never fails the operation; the cache is eventually
// consistent with the store and repaired by re-running the idempotent
// key write.
type RoleService struct {
	store *repository.Store
	cache *cache.PermissionCache
	log   *logrus.Logger
}

// NewRoleService wires a RoleService.
func NewRoleService(store *repository.Store, permCache *cache.PermissionCache, log *logrus.Logger) *RoleService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoleService{store: store, cache: permCache, log: log}
}

// RoleUpdate carries the optional fields of an update request. Nil
// means "leave unchanged"; a non-nil empty PermissionIDs slice
// replaces the role's permission set with nothing.
type RoleUpdate struct {
	Name          *string
	Description   *string
	PermissionIDs *[]uint64
}

// CreateRole creates a role with the given permission set.
//
// Duplicate permission ids in the input fail with ErrBadRequest
// before any storage is touched; unknown ids fail with ErrNotFound
// naming the offenders; a taken name fails with ErrConflict. With a
// non-empty permission list the full code list is written into the
// permission cache after the transaction commits.
func (s *RoleService) CreateRole(ctx context.Context, name, description string, permissionIDs []uint64) (*model.Role, error) {
	if err := rejectDuplicateIDs(permissionIDs); err != nil {
		return nil, err
	}

	role := &model.Role{Name: name, Description: description}
	var codes []string
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		// Pre-check is an optimization; the unique index on the name
		// column is the actual guard against a concurrent create.
		taken, err := tx.RoleNameTaken(ctx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: role name %q already exists", apperr.ErrConflict, name)
		}
		if err := tx.CreateRole(ctx, role); err != nil {
			return err
		}
		codes, err = validateAndLinkPermissions(ctx, tx, role.ID, permissionIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(codes) > 0 {
		s.writeCache(ctx, role.ID, codes)
	}
	return role, nil
}

// UpdateRole applies the supplied changes to an existing role. When
// PermissionIDs is present (even empty) it replaces the entire
// permission set. A name collision with a different role fails with
// ErrConflict; a missing role with ErrNotFound.
func (s *RoleService) UpdateRole(ctx context.Context, id uint64, update RoleUpdate) (*model.Role, error) {
	if update.PermissionIDs != nil {
		if err := rejectDuplicateIDs(*update.PermissionIDs); err != nil {
			return nil, err
		}
	}

	var role *model.Role
	var codes []string
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		role, err = tx.GetRoleByID(ctx, id)
		if err != nil {
			return err
		}
		if update.Name != nil && *update.Name != role.Name {
			taken, err := tx.RoleNameTaken(ctx, *update.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: role name %q already exists", apperr.ErrConflict, *update.Name)
			}
			role.Name = *update.Name
		}
		if update.Description != nil {
			role.Description = *update.Description
		}
		if err := tx.SaveRole(ctx, role); err != nil {
			return err
		}
		if update.PermissionIDs != nil {
			if err := tx.DeleteRolePermissions(ctx, id); err != nil {
				return err
			}
			codes, err = validateAndLinkPermissions(ctx, tx, id, *update.PermissionIDs)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if update.PermissionIDs != nil {
		// Rewrite the entry from scratch so a stale list never
		// survives a shrink to the empty set.
		if err := s.cache.Del(ctx, id); err != nil {
			s.log.WithError(err).WithField("role_id", id).Warn("permission cache delete failed")
		}
		s.writeCache(ctx, id, codes)
	}
	return role, nil
}

// DeleteRole removes a role, its join rows and its cache entry.
// Deleting an absent role fails with ErrNotFound, which makes the
// call idempotent in effect.
func (s *RoleService) DeleteRole(ctx context.Context, id uint64) error {
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.DeleteRole(ctx, id)
	})
	if err != nil {
		return err
	}
	if err := s.cache.Del(ctx, id); err != nil {
		s.log.WithError(err).WithField("role_id", id).Warn("permission cache delete failed")
	}
	return nil
}

// AssignRoleToUser links a role to a user. Assigning an already-held
// role fails with ErrConflict; a missing role or user with
// ErrNotFound.
func (s *RoleService) AssignRoleToUser(ctx context.Context, roleID, userID uint64) error {
	return s.store.WithTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.GetRoleByID(ctx, roleID); err != nil {
			return err
		}
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}
		held, err := tx.UserHasRole(ctx, userID, roleID)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("%w: user %d already holds role %d", apperr.ErrConflict, userID, roleID)
		}
		return tx.CreateUserRole(ctx, userID, roleID)
	})
}

// UnassignRoleFromUser removes one user-role assignment. A role not
// held, or a missing role or user, fails with ErrNotFound.
func (s *RoleService) UnassignRoleFromUser(ctx context.Context, roleID, userID uint64) error {
	return s.store.WithTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.GetRoleByID(ctx, roleID); err != nil {
			return err
		}
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteUserRole(ctx, userID, roleID)
	})
}

// ListRoles enumerates roles, excluding the reserved super-admin role.
func (s *RoleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.store.ListRoles(ctx)
}

// ListPermissions returns the seeded permission catalog.
func (s *RoleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.store.ListPermissions(ctx)
}

// RolePermissionCodes returns the codes currently linked to a role in
// the credential store (the source of truth, not the cache).
func (s *RoleService) RolePermissionCodes(ctx context.Context, roleID uint64) ([]string, error) {
	if _, err := s.store.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.PermissionCodesForRole(ctx, roleID)
}

// RepairCache re-pushes a role's permission set from the store into
// the cache. Setting the key is idempotent, so this can run any
// number of times to heal a cache write lost after a commit.
func (s *RoleService) RepairCache(ctx context.Context, roleID uint64) error {
	codes, err := s.RolePermissionCodes(ctx, roleID)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, roleID, codes)
}

// writeCache pushes the code list for a role and only logs failures:
// the owning transaction already committed, so the operation stays
// successful and the cache catches up on the next write.
func (s *RoleService) writeCache(ctx context.Context, roleID uint64, codes []string) {
	if err := s.cache.Set(ctx, roleID, codes); err != nil {
		s.log.WithError(err).WithField("role_id", roleID).
			Warn("permission cache write failed; cache is stale until repaired")
	}
}

// rejectDuplicateIDs fails with ErrBadRequest when the same
// permission id appears twice in one request.
func rejectDuplicateIDs(ids []uint64) error {
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate permission id %d", apperr.ErrBadRequest, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// validateAndLinkPermissions checks that every id exists in the
// catalog (ErrNotFound names the offenders otherwise), persists the
// join rows and returns the sorted permission codes for the cache
// write after commit.
func validateAndLinkPermissions(ctx context.Context, tx *repository.Store, roleID uint64, ids []uint64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	perms, err := tx.FindPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(ids) {
		found := make(map[uint64]struct{}, len(perms))
		for _, p := range perms {
			found[p.ID] = struct{}{}
		}
		var missing []uint64
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("%w: permission ids %v", apperr.ErrNotFound, missing)
	}
	if err := tx.CreateRolePermissions(ctx, roleID, ids); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	sort.Strings(codes)
	return codes, nil
}
