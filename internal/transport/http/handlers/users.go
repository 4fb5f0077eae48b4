package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// UserHandler exposes account management and the authenticated-user surface.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

var userErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: usecase.ErrUserExists, Status: http.StatusConflict, Message: "username already taken"},
	{Err: usecase.ErrRoleNotFound, Status: http.StatusBadRequest, Message: "unknown role id"},
	{Err: usecase.ErrWrongPassword, Status: http.StatusBadRequest, Message: "current password is incorrect"},
	{Err: usecase.ErrSuperAdminProtected, Status: http.StatusForbidden, Message: "super admin accounts cannot be modified"},
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Info returns the caller's profile, visible menu tree, and permission codes.
func (h *UserHandler) Info(c *gin.Context) {
	userID := middleware.UserIDFrom(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	info, err := h.users.Info(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "load user info failed")
		return
	}

	c.JSON(http.StatusOK, UserInfoResponse{
		UserInfo:           toUserProfile(info.User),
		Menus:              toMenuNodeViews(info.Menus),
		MenuPermissions:    emptyIfNil(info.Permissions.Menu),
		FeaturePermissions: emptyIfNil(info.Permissions.Feature),
		ApiPermissions:     emptyIfNil(info.Permissions.Api),
	})
}

// Create provisions an account.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	id, err := h.users.Create(c.Request.Context(), middleware.UserIDFrom(c), usecase.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		NickName: req.NickName,
		Email:    req.Email,
		Phone:    req.Phone,
		HeadPic:  req.HeadPic,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		var policyErr *security.PasswordPolicyError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "create user failed")
		return
	}

	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

// Get returns one account with its role IDs.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "load user failed")
		return
	}

	roleIDs := detail.RoleIDs
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	c.JSON(http.StatusOK, UserDetailResponse{
		UserProfile: toUserProfile(detail.User),
		RoleIDs:     roleIDs,
	})
}

// List pages non-super-admin accounts with fuzzy filters.
func (h *UserHandler) List(c *gin.Context) {
	filter := port.UserFilter{
		Username: c.Query("username"),
		NickName: c.Query("nickName"),
		Email:    c.Query("email"),
		Phone:    c.Query("phone"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}

	users, total, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "list users failed")
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toUserProfile(user))
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users: profiles,
		Meta:  PageMeta{Page: filter.Page, PageSize: filter.PageSize, Total: total},
	})
}

// Update replaces an account's profile and role set.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	err := h.users.Update(c.Request.Context(), middleware.UserIDFrom(c), usecase.UpdateUserInput{
		ID:       id,
		NickName: req.NickName,
		Email:    req.Email,
		Phone:    req.Phone,
		HeadPic:  req.HeadPic,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "update user failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user updated"})
}

// ChangePassword rotates the caller's own password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID := middleware.UserIDFrom(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		var policyErr *security.PasswordPolicyError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "change password failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// SetFrozen freezes or unfreezes an account.
func (h *UserHandler) SetFrozen(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Frozen == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid freeze payload"))
		return
	}

	if err := h.users.SetFrozen(c.Request.Context(), middleware.UserIDFrom(c), id, *req.Frozen); err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "freeze user failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user frozen state updated"})
}

// Delete removes one account.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), middleware.UserIDFrom(c), id); err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "delete user failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// DeleteMany removes a batch of accounts.
func (h *UserHandler) DeleteMany(c *gin.Context) {
	var req BatchIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid batch payload"))
		return
	}

	deleted, err := h.users.DeleteMany(c.Request.Context(), middleware.UserIDFrom(c), req.IDs)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "delete users failed")
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: deleted})
}
