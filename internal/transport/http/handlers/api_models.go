package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// IDResponse returns the identifier of a newly created resource.
type IDResponse struct {
	ID int64 `json:"id"`
}

// CountResponse reports how many rows a batch operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// PageMeta carries pagination metadata alongside list payloads.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// HealthResponse reports liveness status.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// LoginRequest carries credentials for authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginResponse bundles the authenticated profile with its tokens.
type LoginResponse struct {
	UserInfo UserProfile   `json:"userInfo"`
	Tokens   TokenResponse `json:"tokens"`
}

// UserProfile is the wire view of an account.
type UserProfile struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	NickName     *string   `json:"nickName,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	HeadPic      *string   `json:"headPic,omitempty"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	IsFrozen     bool      `json:"isFrozen"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toUserProfile(user domain.User) UserProfile {
	return UserProfile{
		ID:           user.ID,
		Username:     user.Username,
		NickName:     user.NickName,
		Email:        user.Email,
		Phone:        user.Phone,
		HeadPic:      user.HeadPic,
		IsSuperAdmin: user.IsSuperAdmin,
		IsFrozen:     user.IsFrozen,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// UserDetailResponse joins a profile with its role IDs.
type UserDetailResponse struct {
	UserProfile
	RoleIDs []int64 `json:"roleIds"`
}

// UserListResponse pages user profiles.
type UserListResponse struct {
	Users []UserProfile `json:"users"`
	Meta  PageMeta      `json:"meta"`
}

// UserInfoResponse is the authenticated user's bootstrap payload: profile,
// visible menu tree, and effective permission codes.
type UserInfoResponse struct {
	UserInfo           UserProfile    `json:"userInfo"`
	Menus              []MenuNodeView `json:"menus"`
	MenuPermissions    []string       `json:"menuPermissions"`
	FeaturePermissions []string       `json:"featurePermissions"`
	ApiPermissions     []string       `json:"apiPermissions"`
}

// CreateUserRequest carries the payload for provisioning an account.
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	NickName *string `json:"nickName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	HeadPic  *string `json:"headPic"`
	RoleIDs  []int64 `json:"roleIds"`
}

// UpdateUserRequest carries a profile update with the replacement role set.
type UpdateUserRequest struct {
	NickName *string `json:"nickName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	HeadPic  *string `json:"headPic"`
	RoleIDs  []int64 `json:"roleIds"`
}

// ChangePasswordRequest carries a password rotation payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// FreezeRequest toggles an account's frozen flag.
type FreezeRequest struct {
	Frozen *bool `json:"frozen" binding:"required"`
}

// BatchIDsRequest carries the targets of a batch operation.
type BatchIDsRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// RoleRequest carries the payload for creating or updating a role.
type RoleRequest struct {
	Name               string   `json:"name" binding:"required"`
	Code               string   `json:"code" binding:"required"`
	Description        *string  `json:"description"`
	MenuPermissions    []string `json:"menuPermissions"`
	FeaturePermissions []string `json:"featurePermissions"`
	ApiPermissions     []string `json:"apiPermissions"`
}

// RoleView is the wire view of a role.
type RoleView struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Code               string    `json:"code"`
	Description        *string   `json:"description,omitempty"`
	MenuPermissions    []string  `json:"menuPermissions"`
	FeaturePermissions []string  `json:"featurePermissions"`
	ApiPermissions     []string  `json:"apiPermissions"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toRoleView(role domain.Role) RoleView {
	return RoleView{
		ID:                 role.ID,
		Name:               role.Name,
		Code:               role.Code,
		Description:        role.Description,
		MenuPermissions:    emptyIfNil(role.MenuPermissions),
		FeaturePermissions: emptyIfNil(role.FeaturePermissions),
		ApiPermissions:     emptyIfNil(role.ApiPermissions),
		CreatedAt:          role.CreatedAt,
		UpdatedAt:          role.UpdatedAt,
	}
}

func emptyIfNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

// RoleListResponse pages role views.
type RoleListResponse struct {
	Roles []RoleView `json:"roles"`
	Meta  PageMeta   `json:"meta"`
}

// MenuRequest carries the payload for creating or updating a menu node.
type MenuRequest struct {
	ParentID  *int64  `json:"parentId"`
	Type      string  `json:"type" binding:"required"`
	Code      *string `json:"code"`
	Title     string  `json:"title" binding:"required"`
	Icon      *string `json:"icon"`
	Path      *string `json:"path"`
	Component *string `json:"component"`
	Sort      int32   `json:"sort"`
	Hidden    bool    `json:"hidden"`
}

// MenuView is the wire view of a menu row.
type MenuView struct {
	ID        int64   `json:"id"`
	ParentID  *int64  `json:"parentId,omitempty"`
	Type      string  `json:"type"`
	Code      *string `json:"code,omitempty"`
	Title     string  `json:"title"`
	Icon      *string `json:"icon,omitempty"`
	Path      *string `json:"path,omitempty"`
	Component *string `json:"component,omitempty"`
	Sort      int32   `json:"sort"`
	Hidden    bool    `json:"hidden"`
}

func toMenuView(menu domain.Menu) MenuView {
	return MenuView{
		ID:        menu.ID,
		ParentID:  menu.ParentID,
		Type:      string(menu.Type),
		Code:      menu.Code,
		Title:     menu.Title,
		Icon:      menu.Icon,
		Path:      menu.Path,
		Component: menu.Component,
		Sort:      menu.Sort,
		Hidden:    menu.Hidden,
	}
}

// MenuNodeView is a menu view with resolved children.
type MenuNodeView struct {
	MenuView
	Children []MenuNodeView `json:"children,omitempty"`
}

func toMenuNodeViews(nodes []*domain.MenuNode) []MenuNodeView {
	views := make([]MenuNodeView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, MenuNodeView{
			MenuView: toMenuView(node.Menu),
			Children: toMenuNodeViews(node.Children),
		})
	}
	return views
}

// ApiRequest carries the payload for creating or updating an API record.
type ApiRequest struct {
	ParentID *int64  `json:"parentId"`
	Type     string  `json:"type" binding:"required"`
	Code     *string `json:"code"`
	Method   *string `json:"method"`
	Path     *string `json:"path"`
	Title    string  `json:"title" binding:"required"`
	Sort     int32   `json:"sort"`
}

// ApiView is the wire view of an API record.
type ApiView struct {
	ID       int64   `json:"id"`
	ParentID *int64  `json:"parentId,omitempty"`
	Type     string  `json:"type"`
	Code     *string `json:"code,omitempty"`
	Method   *string `json:"method,omitempty"`
	Path     *string `json:"path,omitempty"`
	Title    string  `json:"title"`
	Sort     int32   `json:"sort"`
}

func toApiView(api domain.Api) ApiView {
	return ApiView{
		ID:       api.ID,
		ParentID: api.ParentID,
		Type:     string(api.Type),
		Code:     api.Code,
		Method:   api.Method,
		Path:     api.Path,
		Title:    api.Title,
		Sort:     api.Sort,
	}
}

// ApiNodeView is an API view with resolved children.
type ApiNodeView struct {
	ApiView
	Children []ApiNodeView `json:"children,omitempty"`
}

func toApiNodeViews(nodes []*domain.ApiNode) []ApiNodeView {
	views := make([]ApiNodeView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, ApiNodeView{
			ApiView:  toApiView(node.Api),
			Children: toApiNodeViews(node.Children),
		})
	}
	return views
}

// CacheStatsResponse reports cache usage for the admin surface.
type CacheStatsResponse struct {
	TotalKeys   int    `json:"totalKeys"`
	MemoryUsage string `json:"memoryUsage"`
}

// CacheKeysResponse lists the cached keys matching a prefix query.
type CacheKeysResponse struct {
	Keys  []string `json:"keys"`
	Total int      `json:"total"`
}

// CacheClearRequest targets a prefix for manual invalidation. An empty
// prefix clears the whole namespace.
type CacheClearRequest struct {
	Prefix string `json:"prefix"`
}

func toTokenResponse(pair usecase.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}
