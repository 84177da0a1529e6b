package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/model"
)

// CreateResetToken inserts a new password-reset token row. Older
// unused rows for the same user are deliberately left untouched;
// supersession is enforced at verification time by LatestResetToken.
func (s *Store) CreateResetToken(ctx context.Context, row *model.ResetPasswordToken) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// GetUnusedResetToken finds a reset-token row by its token value where
// used = false. Already-consumed or unknown tokens map to
// apperr.ErrForbidden: the caller cannot distinguish the two, and
// should not.
func (s *Store) GetUnusedResetToken(ctx context.Context, token string) (*model.ResetPasswordToken, error) {
	var row model.ResetPasswordToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND used = ?", token, false).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reset token not usable", apperr.ErrForbidden)
		}
		return nil, err
	}
	return &row, nil
}

// LatestResetToken returns the most recently created reset-token row
// for a user, used or not. Issuing a newer token implicitly
// invalidates all older outstanding ones.
func (s *Store) LatestResetToken(ctx context.Context, userID uint64) (*model.ResetPasswordToken, error) {
	var row model.ResetPasswordToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no reset token for user %d", apperr.ErrNotFound, userID)
		}
		return nil, err
	}
	return &row, nil
}

// MarkResetTokenUsed flips the used flag on a token row. The
// transition is terminal.
func (s *Store) MarkResetTokenUsed(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).
		Model(&model.ResetPasswordToken{}).
		Where("id = ?", id).
		Update("used", true).Error
}
