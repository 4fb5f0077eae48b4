package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// RoleHandler exposes role management.
type RoleHandler struct {
	roles *usecase.RoleService
}

// NewRoleHandler constructs a RoleHandler.
func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
	{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role code already taken"},
}

// Create provisions a role.
func (h *RoleHandler) Create(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	id, err := h.roles.Create(c.Request.Context(), middleware.UserIDFrom(c), usecase.RoleInput{
		Name:               req.Name,
		Code:               req.Code,
		Description:        req.Description,
		MenuPermissions:    req.MenuPermissions,
		FeaturePermissions: req.FeaturePermissions,
		ApiPermissions:     req.ApiPermissions,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "create role failed")
		return
	}

	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

// Get returns one role.
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	role, err := h.roles.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "load role failed")
		return
	}

	c.JSON(http.StatusOK, toRoleView(*role))
}

// List pages roles with fuzzy filters.
func (h *RoleHandler) List(c *gin.Context) {
	filter := port.RoleFilter{
		Name:     c.Query("name"),
		Code:     c.Query("code"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}

	roles, total, err := h.roles.List(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "list roles failed")
		return
	}

	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toRoleView(role))
	}

	c.JSON(http.StatusOK, RoleListResponse{
		Roles: views,
		Meta:  PageMeta{Page: filter.Page, PageSize: filter.PageSize, Total: total},
	})
}

// ListAll returns every role for assignment pickers.
func (h *RoleHandler) ListAll(c *gin.Context) {
	roles, err := h.roles.ListAll(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "list roles failed")
		return
	}

	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toRoleView(role))
	}

	c.JSON(http.StatusOK, views)
}

// Update replaces a role's fields and permission grants.
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	err := h.roles.Update(c.Request.Context(), middleware.UserIDFrom(c), usecase.RoleInput{
		ID:                 id,
		Name:               req.Name,
		Code:               req.Code,
		Description:        req.Description,
		MenuPermissions:    req.MenuPermissions,
		FeaturePermissions: req.FeaturePermissions,
		ApiPermissions:     req.ApiPermissions,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "update role failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role updated"})
}

// Delete removes one role.
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.roles.Delete(c.Request.Context(), middleware.UserIDFrom(c), id); err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "delete role failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

// DeleteMany removes a batch of roles.
func (h *RoleHandler) DeleteMany(c *gin.Context) {
	var req BatchIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid batch payload"))
		return
	}

	deleted, err := h.roles.DeleteMany(c.Request.Context(), middleware.UserIDFrom(c), req.IDs)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "delete roles failed")
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: deleted})
}
