package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-platform/internal/apperr"
	"github.com/iliyamo/identity-platform/internal/model"
	"github.com/iliyamo/identity-platform/internal/queue"
	"github.com/iliyamo/identity-platform/internal/token"
	"github.com/iliyamo/identity-platform/internal/utils"
)

func TestRegisterNormalizesEmailAndPublishes(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register(context.Background(), "  User@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.True(t, user.IsActive)

	events := env.publisher.events(queue.UserCreatedQueue)
	require.Len(t, events, 1)
	created, ok := events[0].Data.(queue.UserCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, user.ID, created.UserID)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, "USER@example.com", "another-pass")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterSurvivesPublisherFailure(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")

	user, err := env.auth.Register(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestLoginWrongPasswordLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	_, err := env.auth.Login(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	stored, err := env.sessions.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored)
}

func TestLoginUnknownEmailSameGenericError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	// Same non-enumerating message as the wrong-password case.
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginInactiveAccountForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", false)

	_, err := env.auth.Login(ctx, "user@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := env.sessions.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored)
}

func TestLoginStoresRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := env.sessions.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored)
}

func TestLoginClaimsCarryRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)
	role, err := env.roles.CreateRole(ctx, "editor", "", nil)
	require.NoError(t, err)
	require.NoError(t, env.roles.AssignRoleToUser(ctx, role.ID, user.ID))

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	claims, err := env.tokens.Verify(pair.AccessToken, token.Access)
	require.NoError(t, err)
	assert.Equal(t, []uint64{role.ID}, claims.RoleIDs)
	assert.False(t, claims.SuperAdmin)
}

func TestRefreshAccessRequiresMatchingSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "user@example.com", true)

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	access, err := env.auth.RefreshAccess(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(access, token.Access)
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, claims.UserID)

	// A second login overwrites the session; the old refresh token
	// stops matching even though it has not expired.
	pair2, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, pair2.RefreshToken)

	_, err = env.auth.RefreshAccess(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = env.auth.RefreshAccess(ctx, pair2.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, user.ID))

	_, err = env.auth.RefreshAccess(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRefreshAccessRejectsNonRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "user@example.com", true)

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, err = env.auth.RefreshAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.auth.ForgotPassword(context.Background(), "nobody@example.com"))

	var count int64
	require.NoError(t, env.db.Model(&model.ResetPasswordToken{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.publisher.events(queue.EmailSendQueue))
}

func TestForgotPasswordInactiveAccountIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "user@example.com", false)

	require.NoError(t, env.auth.ForgotPassword(context.Background(), "user@example.com"))

	var count int64
	require.NoError(t, env.db.Model(&model.ResetPasswordToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestForgotPasswordCreatesRowAndSendsMail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	require.NoError(t, env.auth.ForgotPassword(ctx, "user@example.com"))

	var rows []model.ResetPasswordToken
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Used)

	mails := env.publisher.events(queue.EmailSendQueue)
	require.Len(t, mails, 1)
	mail, ok := mails[0].Data.(queue.EmailSendEvent)
	require.True(t, ok)
	assert.Equal(t, rows[0].Token, mail.Token)
}

func TestResetPasswordLatestWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.auth.ForgotPassword(ctx, "user@example.com"))
	}

	var rows []model.ResetPasswordToken
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 3)

	// The first two are superseded even though used=false.
	err := env.auth.ResetPassword(ctx, rows[0].Token, "new-password-1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	err = env.auth.ResetPassword(ctx, rows[1].Token, "new-password-1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Password unchanged so far.
	var fresh model.User
	require.NoError(t, env.db.First(&fresh, user.ID).Error)
	assert.True(t, utils.VerifyPassword(fresh.PasswordHash, "password123"))

	// The latest token succeeds exactly once.
	require.NoError(t, env.auth.ResetPassword(ctx, rows[2].Token, "new-password-2"))

	require.NoError(t, env.db.First(&fresh, user.ID).Error)
	assert.True(t, utils.VerifyPassword(fresh.PasswordHash, "new-password-2"))

	var consumed model.ResetPasswordToken
	require.NoError(t, env.db.First(&consumed, rows[2].ID).Error)
	assert.True(t, consumed.Used)

	// Replay fails.
	err = env.auth.ResetPassword(ctx, rows[2].Token, "new-password-3")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	// Same secrets, negative email TTL: the issued token is already
	// expired but correctly signed.
	expiredIssuer, err := token.New(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		EmailSecret:   "email-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Minute,
		EmailTTL:      -time.Minute,
	})
	require.NoError(t, err)
	raw, err := expiredIssuer.Issue(token.Claims{UserID: user.ID, Email: user.Email}, token.EmailAction)
	require.NoError(t, err)

	err = env.auth.ResetPassword(ctx, raw, "new-password")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Contains(t, err.Error(), "expired")
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.ResetPassword(context.Background(), "garbage", "new-password")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestResetPasswordLeavesSessionIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com", true)

	pair, err := env.auth.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.auth.ForgotPassword(ctx, "user@example.com"))
	var row model.ResetPasswordToken
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Order("id DESC").First(&row).Error)
	require.NoError(t, env.auth.ResetPassword(ctx, row.Token, "new-password"))

	// The existing refresh session deliberately survives the change.
	_, err = env.auth.RefreshAccess(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}
