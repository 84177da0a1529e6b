package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/cache"
	"github.com/iliyamo/identity-platform/internal/model"
	"github.com/iliyamo/identity-platform/internal/queue"
	"github.com/iliyamo/identity-platform/internal/repository"
	"github.com/iliyamo/identity-platform/internal/token"
	"github.com/iliyamo/identity-platform/internal/utils"
)

// resetMailTemplate names the email template the mail service renders
// for password-reset links.
const resetMailTemplate = "reset_password"

// AuthService implements the credential and session flows: register,
// login, refresh, logout, and the two-step password reset.
type AuthService struct {
	store      *repository.Store
	sessions   *cache.SessionStore
	tokens     *token.Service
	publisher  queue.Publisher
	bcryptCost int
	log        *logrus.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(store *repository.Store, sessions *cache.SessionStore, tokens *token.Service, publisher queue.Publisher, bcryptCost int, log *logrus.Logger) *AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		store:      store,
		sessions:   sessions,
		tokens:     tokens,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Register creates a new account. A duplicate email fails with
// ErrConflict. On success a user-created event is emitted to the
// user-profile collaborator fire-and-forget: a delivery failure is
// logged but never rolls back the created user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: email, PasswordHash: hash, IsActive: true}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	event := queue.UserCreatedEvent{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, queue.UserCreatedQueue, event); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).
			Warn("user.created event not delivered")
	}
	return user, nil
}

// Login verifies credentials and issues an access/refresh pair. An
// unknown email and a wrong password produce the same generic
// ErrUnauthorized so accounts cannot be enumerated; a verified but
// inactive account fails with ErrForbidden. On success the session
// store entry is overwritten with the new refresh token, invalidating
// any previously issued one.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
		}
		return nil, err
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", apperr.ErrForbidden)
	}

	claims, err := s.claimsFor(ctx, user)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.Issue(claims, token.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(claims, token.Refresh)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, user.ID, refresh); err != nil {
		return nil, err
	}
	return &TokenPair{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshAccess re-issues an access token from the identity carried
// in a verified refresh token. The token must exactly match the value
// currently held in the session store: logout or a newer login makes
// older refresh tokens fail this equality check. The session store is
// not touched.
func (s *AuthService) RefreshAccess(ctx context.Context, rawRefresh string) (string, error) {
	claims, err := s.tokens.Verify(rawRefresh, token.Refresh)
	if err != nil {
		return "", fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized)
	}
	stored, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if stored == "" || stored != rawRefresh {
		return "", fmt.Errorf("%w: refresh token revoked", apperr.ErrUnauthorized)
	}
	return s.tokens.Issue(claims, token.Access)
}

// Logout overwrites the user's session entry with the empty sentinel.
// The outstanding refresh token immediately stops matching without
// the key ever being deleted.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	return s.sessions.Clear(ctx, userID)
}

// ForgotPassword starts a password reset. The caller always receives
// the same generic success regardless of whether the email exists, so
// nothing can be enumerated; when the account is present and active a
// new reset-token row is created and the mail collaborator asked to
// dispatch the link. Older unused tokens stay untouched in storage;
// ResetPassword enforces most-recent-wins at verification time.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	claims := token.Claims{UserID: user.ID, Email: user.Email}
	reset, err := s.tokens.Issue(claims, token.EmailAction)
	if err != nil {
		return err
	}
	row := &model.ResetPasswordToken{UserID: user.ID, Token: reset}
	if err := s.store.CreateResetToken(ctx, row); err != nil {
		return err
	}

	mail := queue.EmailSendEvent{To: user.Email, Template: resetMailTemplate, Token: reset}
	if err := s.publisher.Publish(ctx, queue.EmailSendQueue, mail); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).
			Warn("reset mail not dispatched")
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
//
// The token must verify as an email-action token (expiry and
// signature failures both surface as ErrForbidden with distinct
// detail), must exist unused in storage, and must be the most
// recently created token for its user; a newer reset request
// supersedes older ones even though they are never marked used.
// Marking the row consumed and updating the password hash happen in
// one transaction. The refresh-token session is intentionally left
// untouched.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	_, err := s.tokens.Verify(rawToken, token.EmailAction)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return fmt.Errorf("%w: reset token expired", apperr.ErrForbidden)
		}
		return fmt.Errorf("%w: reset token invalid", apperr.ErrForbidden)
	}

	row, err := s.store.GetUnusedResetToken(ctx, rawToken)
	if err != nil {
		return err
	}
	latest, err := s.store.LatestResetToken(ctx, row.UserID)
	if err != nil {
		return err
	}
	if latest.ID != row.ID {
		return fmt.Errorf("%w: reset token superseded by a newer request", apperr.ErrForbidden)
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.MarkResetTokenUsed(ctx, row.ID); err != nil {
			return err
		}
		return tx.UpdateUserPassword(ctx, row.UserID, hash)
	})
}

// claimsFor builds the current claim set for a user from the
// credential store: its role ids and super-admin flag.
func (s *AuthService) claimsFor(ctx context.Context, user *model.User) (token.Claims, error) {
	roleIDs, err := s.store.UserRoleIDs(ctx, user.ID)
	if err != nil {
		return token.Claims{}, err
	}
	return token.Claims{
		UserID:     user.ID,
		Email:      user.Email,
		RoleIDs:    roleIDs,
		SuperAdmin: user.SuperAdmin,
	}, nil
}
