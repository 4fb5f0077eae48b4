package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/database"
	kafkainfra "github.com/sunhaoxiang/pure-admin-service/internal/infra/kafka"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/logger"
	redisinfra "github.com/sunhaoxiang/pure-admin-service/internal/infra/redis"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/telemetry"
	postgresrepo "github.com/sunhaoxiang/pure-admin-service/internal/repository/postgres"
	redisrepo "github.com/sunhaoxiang/pure-admin-service/internal/repository/redis"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/routes"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// Application bundles the wired service with its owned resources.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New wires configuration into a ready-to-run application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	cacheRepo := redisrepo.NewCacheRepository(redisClient.Client())

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordPolicy := security.NewPasswordPolicy()

	authService := usecase.NewAuthService(repos.Users, tokenIssuer, eventPublisher, log)
	userService := usecase.NewUserService(repos.Users, repos.Roles, repos.Menus, passwordPolicy, eventPublisher, log)
	roleService := usecase.NewRoleService(repos.Roles, eventPublisher, log)
	menuService := usecase.NewMenuService(repos.Menus, eventPublisher, log)
	apiService := usecase.NewApiService(repos.Apis, eventPublisher, log)
	cacheService := usecase.NewCacheService(cacheRepo, cfg.Cache.Namespace, log)

	responseCache := middleware.NewResponseCache(cacheRepo, cfg.Cache, middleware.ResponseCacheCounters{
		Hits:          provider.CacheHits(),
		Misses:        provider.CacheMisses(),
		Invalidations: provider.CacheInvalidations(),
	}, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:        cfg,
		Logger:        log,
		TokenVerifier: tokenIssuer,
		ResponseCache: responseCache,
		Metrics:       metrics,
		Database:      pool,
		Cache:         redisClient,
		Services: routes.ServiceSet{
			Auth:  authService,
			Users: userService,
			Roles: roleService,
			Menus: menuService,
			Apis:  apiService,
			Cache: cacheService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting admin API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
