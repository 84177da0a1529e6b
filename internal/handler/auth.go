package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/middleware"
	"github.com/iliyamo/identity-platform/internal/queue"
	"github.com/iliyamo/identity-platform/internal/service"
)

// genericResetMessage is returned by forgot-password regardless of
// whether the email exists, so accounts cannot be enumerated.
const genericResetMessage = "if the account exists, a reset link has been sent"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth      *service.AuthService
	Requester queue.Requester
}

// NewAuthHandler wires an AuthHandler.
func NewAuthHandler(auth *service.AuthService, requester queue.Requester) *AuthHandler {
	return &AuthHandler{Auth: auth, Requester: requester}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}
type loginResp struct {
	User         userPart `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

// Register creates an account and emits the user-created event.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": userPart{ID: user.ID, Email: user.Email}})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		User:         userPart{ID: pair.User.ID, Email: pair.User.Email},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh returns a new access token for a still-valid refresh token.
// The refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Auth.RefreshAccess(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

// Logout invalidates the caller's refresh token (protected route).
func (h *AuthHandler) Logout(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, identity.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword starts a password reset; the response is identical
// whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": genericResetMessage})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me returns the caller's identity together with the profile held by
// the user service, fetched over a ttl-bounded request/response
// exchange on the broker.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	resp, err := h.Requester.Request(c.Request().Context(),
		queue.UserProfileQueue,
		queue.ProfileRequest{UserID: identity.UserID},
		5*time.Second)
	if err != nil {
		return respondError(c, err)
	}
	if resp.Error {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": resp.Reason})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"roles":   identity.RoleIDs,
		"profile": resp.Data,
	})
}

// reqCtx bounds handler-side store and cache calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
