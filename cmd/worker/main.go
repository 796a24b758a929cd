package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/pkg/config"
	"github.com/modelmagic/portal/pkg/database"
	"github.com/modelmagic/portal/pkg/logger"

	"github.com/modelmagic/portal/internal/mail"
	"github.com/modelmagic/portal/internal/queue/tasks"
	"github.com/modelmagic/portal/internal/repository"
	"github.com/modelmagic/portal/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
	})
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}
	notificationSvc := services.NewNotificationService(repository.NewNotificationRepository(db))

	var sender mail.Sender = mail.LogSender{}
	if cfg.ResendAPIKey != "" {
		sender = mail.NewResendSender(cfg.ResendAPIKey)
	} else {
		log.Warn("RESEND_API_KEY not set, emails are only logged")
	}
	renderer, err := mail.NewRenderer(cfg.AppName)
	if err != nil {
		log.Fatal("failed to load email templates", zap.Error(err))
	}
	mailer := mail.NewDirectMailer(cfg.EmailFrom, renderer, sender)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEmailSend, tasks.NewEmailTaskHandler(mailer).HandleSend)
	mux.HandleFunc(tasks.TypeNotificationCleanup,
		tasks.NewCleanupTaskHandler(notificationSvc, cfg.NotificationRetentionDays).HandleCleanup)

	scheduler := cron.New()
	if _, err := tasks.ScheduleCleanup(scheduler, client, cfg.NotificationCleanupSpec); err != nil {
		log.Fatal("invalid notification cleanup schedule", zap.Error(err))
	}
	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	<-scheduler.Stop().Done()
	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
