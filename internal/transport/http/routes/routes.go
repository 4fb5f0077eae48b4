package routes

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/handlers"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// Permission codes enforced by the authorization gate. Grants are matched
// against the apiPermissions claim of the caller's access token.
const (
	PermUserCreate = "system:user:create"
	PermUserRead   = "system:user:read"
	PermUserUpdate = "system:user:update"
	PermUserDelete = "system:user:delete"

	PermRoleCreate = "system:role:create"
	PermRoleRead   = "system:role:read"
	PermRoleUpdate = "system:role:update"
	PermRoleDelete = "system:role:delete"

	PermMenuCreate = "system:menu:create"
	PermMenuRead   = "system:menu:read"
	PermMenuUpdate = "system:menu:update"
	PermMenuDelete = "system:menu:delete"

	PermApiCreate = "system:api:create"
	PermApiRead   = "system:api:read"
	PermApiUpdate = "system:api:update"
	PermApiDelete = "system:api:delete"

	PermCacheRead   = "system:cache:read"
	PermCacheDelete = "system:cache:delete"
)

// Cache prefixes group response-cache entries per route family.
const (
	CachePrefixRoleList       = "role:list"
	CachePrefixRoleAll        = "role:all"
	CachePrefixMenuTree       = "menu:tree"
	CachePrefixMenuFlat       = "menu:flat"
	CachePrefixMenuPermission = "menu:permission"
	CachePrefixApiTree        = "api:tree"
	CachePrefixApiFlat        = "api:flat"
	CachePrefixApiPermission  = "api:permission"
	CachePrefixUserInfo       = "user:info"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Users *usecase.UserService
	Roles *usecase.RoleService
	Menus *usecase.MenuService
	Apis  *usecase.ApiService
	Cache *usecase.CacheService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	Services      ServiceSet
	TokenVerifier middleware.TokenVerifier
	ResponseCache *middleware.ResponseCache
	Metrics       *middleware.HTTPMetrics
	Database      DatabaseChecker
	Cache         CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	guard := func(permissions ...string) gin.HandlerFunc {
		return middleware.Authorize(deps.TokenVerifier, middleware.RouteAuth{Permissions: permissions})
	}

	rc := deps.ResponseCache

	checks := make([]handlers.ReadyCheck, 0, 2)
	if deps.Database != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "database", Check: deps.Database.Ping})
	}
	if deps.Cache != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "redis", Check: deps.Cache.HealthCheck})
	}
	healthHandler := handlers.NewHealthHandler(checks...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(deps.Services.Auth)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)

	userHandler := handlers.NewUserHandler(deps.Services.Users)

	// The bootstrap payload is permission-filtered, so entries are scoped per
	// user and evicted when the account or the menu tree changes.
	userSelf := api.Group("/user")
	userSelf.GET("/info",
		guard(),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixUserInfo, PerUser: true}),
		userHandler.Info)
	userSelf.POST("/password", guard(), userHandler.ChangePassword)

	targetUserIDs := func(c *gin.Context) []int64 {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return nil
		}
		return []int64{id}
	}

	users := api.Group("/users")
	users.GET("", guard(PermUserRead), userHandler.List)
	users.GET("/:id", guard(PermUserRead), userHandler.Get)
	users.POST("", guard(PermUserCreate), userHandler.Create)
	users.PUT("/:id",
		guard(PermUserUpdate),
		rc.Invalidate(middleware.InvalidateOptions{PerUserPrefixes: []string{CachePrefixUserInfo}, UserIDs: targetUserIDs}),
		userHandler.Update)
	users.PATCH("/:id/freeze", guard(PermUserUpdate), userHandler.SetFrozen)
	users.DELETE("/:id",
		guard(PermUserDelete),
		rc.Invalidate(middleware.InvalidateOptions{PerUserPrefixes: []string{CachePrefixUserInfo}, UserIDs: targetUserIDs}),
		userHandler.Delete)
	users.POST("/batch/delete", guard(PermUserDelete), userHandler.DeleteMany)

	roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
	invalidateRoles := rc.Invalidate(middleware.InvalidateOptions{
		Prefixes: []string{CachePrefixRoleList, CachePrefixRoleAll, CachePrefixUserInfo},
	})

	roles := api.Group("/roles")
	roles.GET("",
		guard(PermRoleRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixRoleList}),
		roleHandler.List)
	roles.GET("/all",
		guard(PermRoleRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixRoleAll}),
		roleHandler.ListAll)
	roles.GET("/:id", guard(PermRoleRead), roleHandler.Get)
	roles.POST("", guard(PermRoleCreate), invalidateRoles, roleHandler.Create)
	roles.PUT("/:id", guard(PermRoleUpdate), invalidateRoles, roleHandler.Update)
	roles.DELETE("/:id", guard(PermRoleDelete), invalidateRoles, roleHandler.Delete)
	roles.POST("/batch/delete", guard(PermRoleDelete), invalidateRoles, roleHandler.DeleteMany)

	menuHandler := handlers.NewMenuHandler(deps.Services.Menus)
	invalidateMenus := rc.Invalidate(middleware.InvalidateOptions{
		Prefixes: []string{CachePrefixMenuTree, CachePrefixMenuFlat, CachePrefixMenuPermission, CachePrefixUserInfo},
	})

	menus := api.Group("/menus")
	menus.GET("",
		guard(PermMenuRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixMenuFlat}),
		menuHandler.Flat)
	menus.GET("/tree",
		guard(PermMenuRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixMenuTree}),
		menuHandler.Tree)
	menus.GET("/permissions",
		guard(PermMenuRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixMenuPermission}),
		menuHandler.PermissionCodes)
	menus.GET("/:id", guard(PermMenuRead), menuHandler.Get)
	menus.POST("", guard(PermMenuCreate), invalidateMenus, menuHandler.Create)
	menus.PUT("/:id", guard(PermMenuUpdate), invalidateMenus, menuHandler.Update)
	menus.DELETE("/:id", guard(PermMenuDelete), invalidateMenus, menuHandler.Delete)

	apiHandler := handlers.NewApiHandler(deps.Services.Apis)
	invalidateApis := rc.Invalidate(middleware.InvalidateOptions{
		Prefixes: []string{CachePrefixApiTree, CachePrefixApiFlat, CachePrefixApiPermission},
	})

	apis := api.Group("/apis")
	apis.GET("",
		guard(PermApiRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixApiFlat}),
		apiHandler.Flat)
	apis.GET("/tree",
		guard(PermApiRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixApiTree}),
		apiHandler.Tree)
	apis.GET("/permissions",
		guard(PermApiRead),
		rc.Cached(middleware.CacheOptions{Prefix: CachePrefixApiPermission}),
		apiHandler.Permissions)
	apis.GET("/:id", guard(PermApiRead), apiHandler.Get)
	apis.POST("", guard(PermApiCreate), invalidateApis, apiHandler.Create)
	apis.PUT("/:id", guard(PermApiUpdate), invalidateApis, apiHandler.Update)
	apis.DELETE("/:id", guard(PermApiDelete), invalidateApis, apiHandler.Delete)

	cacheHandler := handlers.NewCacheAdminHandler(deps.Services.Cache)
	cacheGroup := api.Group("/cache")
	cacheGroup.GET("/stats", guard(PermCacheRead), cacheHandler.Stats)
	cacheGroup.GET("/keys", guard(PermCacheRead), cacheHandler.Keys)
	cacheGroup.POST("/clear", guard(PermCacheDelete), cacheHandler.Clear)

	return r
}
