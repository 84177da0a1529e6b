package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/model"
)

// CreateUser inserts a new user. The email is lowercased and trimmed
// before persistence. A duplicate email maps to apperr.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
		}
		return err
	}
	return nil
}

// GetUserByEmail loads a user by normalized email, excluding
// soft-deleted accounts. A missing row maps to apperr.ErrNotFound.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user model.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_delete = ?", email, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", apperr.ErrNotFound, email)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID loads a user by id, excluding soft-deleted accounts.
func (s *Store) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_delete = ?", id, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUserPassword replaces the stored password hash for a user.
func (s *Store) UpdateUserPassword(ctx context.Context, id uint64, hash string) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// SoftDeleteUser marks a user deleted without removing the row.
func (s *Store) SoftDeleteUser(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND is_delete = ?", id, false).
		Update("is_delete", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	return nil
}

// UserRoleIDs returns the ids of every role held by a user, in no
// particular order.
func (s *Store) UserRoleIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
