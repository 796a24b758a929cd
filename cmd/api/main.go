package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/api"
	"github.com/modelmagic/portal/internal/api/handlers"
	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/queue/tasks"
	"github.com/modelmagic/portal/internal/repository"
	"github.com/modelmagic/portal/internal/services"
	"github.com/modelmagic/portal/internal/storage"
	"github.com/modelmagic/portal/pkg/config"
	"github.com/modelmagic/portal/pkg/database"
	"github.com/modelmagic/portal/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting ModelMagic portal API",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Email goes through the worker queue
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	mailer := tasks.NewQueueMailer(asynqClient)

	// JWT Secret from environment
	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Lifecycle core
	links := lifecycle.Links{AppURL: cfg.AppURL}
	notificationSvc := services.NewNotificationService(notificationRepo)
	executor := lifecycle.NewExecutor(repository.NewTransitionStore(db))
	dispatcher := lifecycle.NewDispatcher(projectRepo, mailer, notificationSvc, links, cfg.AdminEmail)
	if missing := dispatcher.MissingHandlers(); len(missing) > 0 {
		log.Fatal("side effects without a handler", zap.Any("effects", missing))
	}

	authSvc := services.NewAuthService(userRepo, mailer, cfg.AppURL, jwtSecret)
	lifecycleSvc := services.NewLifecycleService(projectRepo, executor, dispatcher, authSvc)
	projectSvc := services.NewProjectService(userRepo, projectRepo, executor, mailer, links)

	var store storage.ObjectStore
	if cfg.StorageEnabled() {
		ms, err := storage.NewMinioStore(storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
			PublicURL: cfg.StoragePublicURL,
		})
		if err != nil {
			log.Fatal("Failed to configure object storage", zap.Error(err))
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err))
		}
		store = ms
	} else {
		log.Warn("object storage not configured, uploads are disabled")
	}
	assetSvc := services.NewAssetService(assetRepo, projectRepo, store, lifecycleSvc)

	var oidcProvider handlers.OIDCProvider
	if cfg.OIDCEnabled() {
		oidcSvc, err := services.NewOIDCService(ctx, services.OIDCConfig{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		}, authSvc)
		if err != nil {
			log.Fatal("Failed to configure OIDC", zap.Error(err))
		}
		oidcProvider = oidcSvc
	}

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		HMACSecret:    jwtSecret,
		AllowedOrigin: cfg.AppURL,
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		AuthHandler:          handlers.NewAuthHandler(authSvc, oidcProvider, cfg.AppURL),
		IntakeHandler:        handlers.NewIntakeHandler(projectSvc),
		ProjectsHandler:      handlers.NewProjectsHandler(projectSvc, assetSvc),
		AssetsHandler:        handlers.NewAssetsHandler(assetSvc),
		NotificationsHandler: handlers.NewNotificationsHandler(notificationSvc),
		AdminHandler:         handlers.NewAdminHandler(projectSvc, lifecycleSvc, assetSvc),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
