package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/escuelalink/parent-gateway/internal/app"
	"github.com/escuelalink/parent-gateway/internal/config"
	"github.com/escuelalink/parent-gateway/internal/database"
	"github.com/escuelalink/parent-gateway/internal/deeplink"
	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/health"
	"github.com/escuelalink/parent-gateway/internal/http/handler"
	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/router"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/permission"
	"github.com/escuelalink/parent-gateway/internal/repository"
	"github.com/escuelalink/parent-gateway/internal/security"
	"github.com/escuelalink/parent-gateway/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideBackendClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewSessionRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideTokenVault,
	provideLoginLockout,
	provideSnapshotStore,
	provideAuthComponents,
	provideAuthService,
	provideSnapshotResolver,
	provideContentService,
	wire.Bind(new(service.AuthProvider), new(*service.AuthService)),
	wire.Bind(new(service.SessionStore), new(*service.TokenService)),
	wire.Bind(new(service.ContentProvider), new(*service.ContentService)),
)

var DeepLinkSet = wire.NewSet(
	provideDeepLinkResolver,
	providePendingStore,
	providePermissionDebugLog,
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewSessionHandler,
	handler.NewContentHandler,
	handler.NewDeepLinkHandler,
	handler.NewDebugHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}

func (m *MigrationRunner) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *MigrationRunner) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideBackendClient(cfg *config.Config) *directus.Client {
	return directus.NewClient(cfg.DirectusBaseURL, cfg.DirectusTimeout)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideTokenService(cfg *config.Config, jwt *security.JWTManager, sessionRepo repository.SessionRepository) *service.TokenService {
	return service.NewTokenService(jwt, sessionRepo, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideTokenVault(cfg *config.Config, redisClient redis.UniversalClient) service.TokenVault {
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisTokenVault(redisClient, cfg.RedisPrefix+":vault")
	}
	return service.NewInMemoryTokenVault()
}

func provideLoginLockout(cfg *config.Config, redisClient redis.UniversalClient) service.LoginLockout {
	policy := service.LockoutPolicy{
		MaxAttempts:     cfg.LoginMaxAttempts,
		LockoutDuration: cfg.LoginLockoutDuration,
	}
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisLoginLockout(redisClient, cfg.RedisPrefix+":lockout", policy)
	}
	return service.NewInMemoryLoginLockout(policy)
}

func provideSnapshotStore(cfg *config.Config, redisClient redis.UniversalClient) service.SnapshotStore {
	if cfg.PermissionCacheTTL == 0 {
		return service.NewNoopSnapshotStore()
	}
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisSnapshotStore(redisClient, cfg.RedisPrefix+":perm_snapshot")
	}
	return service.NewInMemorySnapshotStore()
}

// authComponents breaks the construction cycle between the auth
// service and the snapshot resolver: the resolver fetches grants
// through the service, the service resolves snapshots through the
// resolver.
type authComponents struct {
	authSvc  *service.AuthService
	resolver service.SnapshotResolver
}

func provideAuthComponents(
	cfg *config.Config,
	backend *directus.Client,
	tokenSvc *service.TokenService,
	vault service.TokenVault,
	lockout service.LoginLockout,
	store service.SnapshotStore,
	pending deeplink.PendingStore,
) *authComponents {
	authSvc := service.NewAuthService(cfg, backend, tokenSvc, vault, lockout, pending, nil)
	resolver := service.NewCachedSnapshotResolver(store, authSvc, cfg.PermissionCacheTTL)
	authSvc.SetResolver(resolver)
	return &authComponents{authSvc: authSvc, resolver: resolver}
}

func provideAuthService(c *authComponents) *service.AuthService { return c.authSvc }

func provideSnapshotResolver(c *authComponents) service.SnapshotResolver { return c.resolver }

func provideContentService(backend *directus.Client, authSvc *service.AuthService) *service.ContentService {
	return service.NewContentService(backend, authSvc)
}

func provideDeepLinkResolver(logger *slog.Logger) *deeplink.Resolver {
	return deeplink.NewResolver(logger)
}

func providePendingStore(cfg *config.Config, redisClient redis.UniversalClient) deeplink.PendingStore {
	if cfg.RedisEnabled && redisClient != nil {
		return deeplink.NewRedisPendingStore(redisClient, cfg.RedisPrefix+":pending_link", cfg.PendingDeepLinkTTL)
	}
	return deeplink.NewMemoryPendingStore(cfg.PendingDeepLinkTTL)
}

func providePermissionDebugLog(cfg *config.Config, logger *slog.Logger) *permission.DebugLog {
	debugLog := permission.NewDebugLog(cfg.PermissionDebugCap)
	if cfg.PermissionDebugLog && logger != nil {
		debugLog.Subscribe(func(d permission.DeniedCheck) {
			logger.Warn("permission denied",
				slog.String("collection", d.Collection),
				slog.String("action", string(d.Action)),
				slog.String("message", d.Message),
			)
		})
	}
	return debugLog
}

func provideAuthHandler(authSvc service.AuthProvider, cookieMgr *security.CookieManager, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix+":rl:api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix+":rl:auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	contentHandler *handler.ContentHandler,
	deepLinkHandler *handler.DeepLinkHandler,
	debugHandler *handler.DebugHandler,
	jwt *security.JWTManager,
	resolver service.SnapshotResolver,
	debugLog *permission.DebugLog,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		SessionHandler:    sessionHandler,
		ContentHandler:    contentHandler,
		DeepLinkHandler:   deepLinkHandler,
		DebugHandler:      debugHandler,
		JWTManager:        jwt,
		Resolver:          resolver,
		DebugLog:          debugLog,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
		EnableDebugRoutes: cfg.PermissionDebugLog,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, backend *directus.Client) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 3)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	if c := health.NewBackendChecker(backend); c != nil {
		checkers = append(checkers, c)
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient)
}
