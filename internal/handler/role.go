package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/model"
	"github.com/iliyamo/identity-platform/internal/service"
)

// RoleHandler bundles dependencies for the role-administration
// endpoints.
type RoleHandler struct {
	Roles *service.RoleService
}

// NewRoleHandler wires a RoleHandler.
func NewRoleHandler(roles *service.RoleService) *RoleHandler {
	return &RoleHandler{Roles: roles}
}

// ----- DTOs -----

type createRoleReq struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []uint64 `json:"permission_ids"`
}
type updateRoleReq struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	PermissionIDs *[]uint64 `json:"permission_ids"`
}
type assignRoleReq struct {
	UserID uint64 `json:"user_id"`
}

type roleResp struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions,omitempty"`
}

func toRoleResp(role *model.Role, codes []string) roleResp {
	return roleResp{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: codes,
	}
}

// Create creates a role with its permission set.
func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.CreateRole(ctx, req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		return respondError(c, err)
	}
	codes, err := h.Roles.RolePermissionCodes(ctx, role.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toRoleResp(role, codes))
}

// Update applies partial changes; a present permission_ids field
// (even empty) replaces the whole permission set.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.UpdateRole(ctx, id, service.RoleUpdate{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	codes, err := h.Roles.RolePermissionCodes(ctx, role.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRoleResp(role, codes))
}

// Delete removes a role and its assignments.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.DeleteRole(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List enumerates roles; the reserved super-admin role is excluded.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.ListRoles(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]roleResp, 0, len(roles))
	for i := range roles {
		out = append(out, toRoleResp(&roles[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

// Permissions returns the seeded permission catalog.
func (h *RoleHandler) Permissions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	perms, err := h.Roles.ListPermissions(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

// Assign links the role in the path to the user in the body.
func (h *RoleHandler) Assign(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.AssignRoleToUser(ctx, id, req.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unassign removes the user's assignment of the role in the path.
func (h *RoleHandler) Unassign(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.UnassignRoleFromUser(ctx, id, req.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
