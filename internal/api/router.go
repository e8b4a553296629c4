package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hollis/reportline/internal/api/handlers"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/assist"
	"github.com/hollis/reportline/internal/audit"
	"github.com/hollis/reportline/internal/auth"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/notify"
	"github.com/hollis/reportline/internal/ratelimit"
	"github.com/hollis/reportline/internal/reports"
	"github.com/hollis/reportline/internal/storage"
	"github.com/hollis/reportline/internal/tenant"
	"github.com/hollis/reportline/pkg/crypto"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Encryptor      *crypto.Encryptor
	Directory      *tenant.Directory
	Ledger         *audit.Ledger
	Dispatcher     notify.Dispatcher
	Completer      assist.Completer
	FileStore      storage.FileStore
	AssistLimiter  *ratelimit.Limiter
	AllowedOrigins []string
	RateLimitReqs  int // Global per-IP limit per window
	RateLimitSecs  int // Global window in seconds
	ProvisionToken string
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		global := ratelimit.NewLimiter(cfg.RateLimitReqs, time.Duration(cfg.RateLimitSecs)*time.Second)
		r.Use(middleware.RateLimit(global))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TenantHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	reportService := reports.NewService(reports.ServiceConfig{
		DB:         cfg.DB,
		Logger:     cfg.Logger,
		Encryptor:  cfg.Encryptor,
		Ledger:     cfg.Ledger,
		Dispatcher: cfg.Dispatcher,
		Files:      cfg.FileStore,
	})
	gateway := assist.NewGateway(cfg.Completer, cfg.AssistLimiter, cfg.Ledger, cfg.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	reportHandler := handlers.NewReportHandler(reportService)
	assistHandler := handlers.NewAssistHandler(gateway)
	auditHandler := handlers.NewAuditHandler(cfg.Ledger)
	tenantHandler := handlers.NewTenantHandler(cfg.Directory, cfg.ProvisionToken)

	// Health endpoints (no tenant, no auth)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Provisioning sits above the tenant scope: it creates partitions.
	r.Post("/api/tenants", tenantHandler.Provision)

	// Everything else operates inside one tenant partition.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Tenant(cfg.Directory))

		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)

		// Public reporter surface: submission, lookup, and writing
		// assistance work without an account.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTService))

			r.Post("/reports", reportHandler.Create)
			r.Get("/reports/{id}", reportHandler.Get)
			r.Get("/ai/tasks", assistHandler.Tasks)
			r.Post("/ai/assist", assistHandler.Assist)
		})

		// Staff routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/me", authHandler.Me)
			r.Get("/tenants/current", tenantHandler.Current)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", reportHandler.List)
				r.Get("/stats", reportHandler.Stats)
				r.Put("/{id}/status", reportHandler.UpdateStatus)
				r.Put("/{id}/assignee", reportHandler.Assign)
				r.Get("/{id}/updates", reportHandler.ListUpdates)
				r.Post("/{id}/updates", reportHandler.AddUpdate)
				r.Get("/{id}/attachments", reportHandler.ListAttachments)
				r.Post("/{id}/attachments", reportHandler.AddAttachment)

				// Decrypted contact details are restricted to roles that
				// run investigations.
				r.With(middleware.RequireRole(
					string(models.RoleAdmin),
					string(models.RoleManager),
					string(models.RoleCompliance),
				)).Get("/{id}/contact", reportHandler.Contact)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(middleware.RequireRole(
					string(models.RoleAdmin),
					string(models.RoleCompliance),
				))
				r.Get("/", auditHandler.List)
				r.Get("/usage", auditHandler.Usage)
			})
		})
	})

	return &Router{r}
}
