package api

import (
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/ulule/limiter/v3"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/partpulse/partpulse/internal/api/handler"
	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth      ports.AuthService
	Transfers ports.TransferService
	Claims    ports.ClaimService
	Documents ports.DocumentService
	Admin     ports.AdminService
	Reports   ports.ReportService
}

// Dependencies are probed by /health/ready. Nil entries are skipped, except Postgres.
type Dependencies struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Mongo    *mongo.Database
	Mail     handler.MailVerifier
}

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	JWTSecret     string
	Env           string
	MissingVars   []string
	LimiterStore  limiter.Store
	AuthRate      limiter.Rate
	APIRate       limiter.Rate
	StoragePath   string // local directory served under StorageURL; empty disables
	StorageURL    string
	MetricsPrefix string
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig, svc Services, deps Dependencies, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "partpulse"
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Secure(middleware.SecureOptions(cfg.Env == "development")))
	e.Use(echomiddleware.BodyLimit("10M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  cfg.MetricsPrefix,
		Registerer: cfg.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Health probes and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler(cfg.Env, cfg.MissingVars)
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Postgres, deps.Redis, deps.Mongo, deps.Mail)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: cfg.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if cfg.StoragePath != "" && strings.HasPrefix(cfg.StorageURL, "/") {
		e.Static(cfg.StorageURL, cfg.StoragePath)
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	transferHandler := handler.NewTransferHandler(svc.Transfers)
	claimHandler := handler.NewClaimHandler(svc.Claims)
	pdfHandler := handler.NewPDFHandler(svc.Documents)
	adminHandler := handler.NewAdminHandler(svc.Admin)
	reportHandler := handler.NewReportHandler(svc.Reports)

	authMiddleware := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	staff := middleware.RBAC(domain.RoleAdmin, domain.RoleTechnician)

	var authLimit, apiLimit echo.MiddlewareFunc = passThrough, passThrough
	if cfg.LimiterStore != nil {
		authLimit = middleware.RateLimit(cfg.LimiterStore, cfg.AuthRate, "auth", log)
		apiLimit = middleware.RateLimit(cfg.LimiterStore, cfg.APIRate, "api", log)
	}

	apiGroup := e.Group("/api", apiLimit)

	// --- Auth routes ---
	auth := apiGroup.Group("/auth")
	auth.POST("/login", authHandler.Login, authLimit)
	auth.POST("/logout", authHandler.Logout, authMiddleware)
	auth.GET("/me", authHandler.Me, authMiddleware)
	auth.POST("/invite", authHandler.Invite, authMiddleware, adminOnly)
	auth.GET("/verify-invitation", authHandler.VerifyInvitation)
	auth.POST("/complete-signup", authHandler.CompleteSignup, authLimit)
	auth.GET("/can-create-first-admin", authHandler.CanCreateFirstAdmin)
	auth.POST("/create-first-admin", authHandler.CreateFirstAdmin, authLimit)
	auth.POST("/request-password-reset", authHandler.RequestPasswordReset, authLimit)
	auth.POST("/reset-password", authHandler.ResetPassword, authLimit)

	// --- Records ---
	transfers := apiGroup.Group("/internal-transfers", authMiddleware, staff)
	transfers.POST("", transferHandler.Create)
	transfers.GET("", transferHandler.List)
	transfers.GET("/:id", transferHandler.Get)
	transfers.PATCH("/:id/status", transferHandler.UpdateStatus, adminOnly)

	claims := apiGroup.Group("/warranty-claims", authMiddleware, staff)
	claims.POST("", claimHandler.Create)
	claims.GET("", claimHandler.List)
	claims.GET("/:id", claimHandler.Get)
	claims.PATCH("/:id/review", claimHandler.Review, adminOnly)

	pdf := apiGroup.Group("/pdf", authMiddleware, staff)
	pdf.POST("", pdfHandler.Generate)
	pdf.GET("/:type/:id", pdfHandler.Download)

	// --- Admin dashboard ---
	admin := apiGroup.Group("/admin", authMiddleware, adminOnly)
	admin.GET("/users", adminHandler.Users)
	admin.POST("/password-reset", adminHandler.ResetPassword)
	admin.GET("/logs", adminHandler.Logs)
	admin.GET("/communications", adminHandler.Communications)

	// --- Reports ---
	reports := apiGroup.Group("/reports", authMiddleware, staff)
	reports.GET("", reportHandler.Index)
	reports.GET("/transfers", reportHandler.Transfers)
	reports.GET("/claims", reportHandler.Claims)

	return e
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
