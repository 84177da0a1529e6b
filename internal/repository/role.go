package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/model"
)

// CreateRole inserts a new role. The unique index on the name column
// is the backstop against two concurrent creates with the same name;
// a collision maps to apperr.ErrConflict.
func (s *Store) CreateRole(ctx context.Context, role *model.Role) error {
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: role name %q already exists", apperr.ErrConflict, role.Name)
		}
		return err
	}
	return nil
}

// GetRoleByID loads a role by id.
func (s *Store) GetRoleByID(ctx context.Context, id uint64) (*model.Role, error) {
	var role model.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %d", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return &role, nil
}

// GetRoleByName loads a role by its unique name.
func (s *Store) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %q", apperr.ErrNotFound, name)
		}
		return nil, err
	}
	return &role, nil
}

// RoleNameTaken reports whether another role (different id) already
// uses the given name.
func (s *Store) RoleNameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Role{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	return count > 0, err
}

// SaveRole persists changes to an existing role.
func (s *Store) SaveRole(ctx context.Context, role *model.Role) error {
	if err := s.db.WithContext(ctx).Save(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: role name %q already exists", apperr.ErrConflict, role.Name)
		}
		return err
	}
	return nil
}

// ListRoles returns every role except the reserved super-admin role,
// which is excluded from general enumeration.
func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := s.db.WithContext(ctx).
		Where("name <> ?", model.SuperAdminRoleName).
		Order("id").
		Find(&roles).Error
	return roles, err
}

// DeleteRole removes a role row and its join rows. The join deletes
// are issued explicitly so the cascade does not depend on the dialect
// honoring foreign-key constraints.
func (s *Store) DeleteRole(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&model.Role{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: role %d", apperr.ErrNotFound, id)
	}
	return nil
}

// FindPermissionsByIDs loads the catalog rows for the given ids.
// Missing ids are simply absent from the result; callers compare
// lengths to detect them.
func (s *Store) FindPermissionsByIDs(ctx context.Context, ids []uint64) ([]model.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var perms []model.Permission
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

// ListPermissions returns the whole permission catalog.
func (s *Store) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	err := s.db.WithContext(ctx).Order("resource, code").Find(&perms).Error
	return perms, err
}

// CreateRolePermissions inserts join rows linking a role to each
// permission id. The unique (role, permission) index rejects
// duplicates as a backstop; the services reject them up front.
func (s *Store) CreateRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	rows := make([]model.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		rows = append(rows, model.RolePermission{RoleID: roleID, PermissionID: pid})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: duplicate role-permission pair", apperr.ErrConflict)
		}
		return err
	}
	return nil
}

// DeleteRolePermissions removes every join row for a role.
func (s *Store) DeleteRolePermissions(ctx context.Context, roleID uint64) error {
	return s.db.WithContext(ctx).Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error
}

// PermissionCodesForRole returns the codes currently linked to a role,
// ordered by code. This is the source of truth the permission cache
// denormalizes.
func (s *Store) PermissionCodesForRole(ctx context.Context, roleID uint64) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&model.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.code").
		Pluck("permissions.code", &codes).Error
	return codes, err
}

// UserHasRole reports whether an assignment row exists.
func (s *Store) UserHasRole(ctx context.Context, userID, roleID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}

// CreateUserRole links a user to a role.
func (s *Store) CreateUserRole(ctx context.Context, userID, roleID uint64) error {
	row := model.UserRole{UserID: userID, RoleID: roleID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: role already assigned", apperr.ErrConflict)
		}
		return err
	}
	return nil
}

// DeleteUserRole removes one specific user-role assignment.
func (s *Store) DeleteUserRole(ctx context.Context, userID, roleID uint64) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: assignment", apperr.ErrNotFound)
	}
	return nil
}
