package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/akorenev/credential-service/internal/infra/config"
	"github.com/akorenev/credential-service/internal/transport/http/handlers"
	"github.com/akorenev/credential-service/internal/transport/http/middleware"
	"github.com/akorenev/credential-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
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
	r.Use(middleware.CORS([]string{"*"}))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("failed to initialise http metrics", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Services.Auth)
	registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
	passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)

	loginHandlers := appendLimited(deps, "login_ip", loginLimit(deps), authHandler.Login)
	registerHandlers := appendLimited(deps, "register_ip", registerLimit(deps), registrationHandler.Register)
	changeHandlers := appendLimited(deps, "password_change_ip", passwordChangeLimit(deps), passwordHandler.ChangePassword)

	r.POST("/login", loginHandlers...)
	r.POST("/register", registerHandlers...)
	r.POST("/change-password", changeHandlers...)

	return r
}

func loginLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.LoginMaxAttempts
}

func registerLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.RegisterMaxAttempts
}

func passwordChangeLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.PasswordChangeMaxAttempts
}

func appendLimited(deps Dependencies, ruleName string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, 2)

	if deps.RateLimiter != nil && limit > 0 {
		window := time.Minute
		if deps.Config != nil && deps.Config.RateLimit.WindowDuration > 0 {
			window = deps.Config.RateLimit.WindowDuration
		}

		rule := middleware.RateLimitRule{
			Name:       ruleName,
			Limit:      limit,
			Window:     window,
			Identifier: middleware.ClientIPIdentifier(),
		}

		chain = append(chain, deps.RateLimiter.RateLimit(rule))
	}

	return append(chain, handler)
}
