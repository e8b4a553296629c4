package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hollis/reportline/internal/api"
	"github.com/hollis/reportline/internal/assist"
	"github.com/hollis/reportline/internal/audit"
	"github.com/hollis/reportline/internal/auth"
	"github.com/hollis/reportline/internal/database"
	"github.com/hollis/reportline/internal/notify"
	"github.com/hollis/reportline/internal/ratelimit"
	"github.com/hollis/reportline/internal/storage"
	"github.com/hollis/reportline/internal/tenant"
	"github.com/hollis/reportline/pkg/config"
	"github.com/hollis/reportline/pkg/crypto"
	"github.com/hollis/reportline/pkg/queue"
	"github.com/hollis/reportline/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting reportline server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, events will be logged only", "error", err)
		redisClient = nil
	}

	// Notification dispatch goes through the queue when Redis is up,
	// otherwise events are logged and dropped.
	var asynqClient *asynq.Client
	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		dispatcher = notify.NewQueueDispatcher(asynqClient, logger)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	directory := tenant.NewDirectory(db, logger)
	ledger := audit.NewLedger(db, logger)

	// Initialize encryptor for reporter contact details
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - contact details will be unreadable after restart")
	}

	// Seed the default tenant partitions
	if err := directory.Seed(context.Background()); err != nil {
		logger.Error("failed to seed tenants", "error", err)
		os.Exit(1)
	}

	// AI assistance: degraded without an API key
	var completer assist.Completer
	if cfg.Assist.APIKey != "" {
		completer = assist.NewOpenAICompleter(&cfg.Assist)
	} else {
		logger.Warn("ASSIST_API_KEY not set, AI assistance runs in degraded mode")
	}
	assistLimiter := ratelimit.NewLimiter(cfg.Assist.RateRequests, cfg.Assist.RateWindow())

	// Attachment object store is optional
	var fileStore storage.FileStore
	if cfg.Storage.Endpoint != "" {
		fileStore, err = storage.NewMinioStore(context.Background(), &cfg.Storage)
		if err != nil {
			logger.Error("failed to connect to object store", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("STORAGE_ENDPOINT not set, attachment uploads disabled")
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		Encryptor:      encryptor,
		Directory:      directory,
		Ledger:         ledger,
		Dispatcher:     dispatcher,
		Completer:      completer,
		FileStore:      fileStore,
		AssistLimiter:  assistLimiter,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		ProvisionToken: cfg.Server.ProvisionToken,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
