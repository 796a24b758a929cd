package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/pkg/logger"
)

// NotificationCleaner deletes read notifications past their retention.
type NotificationCleaner interface {
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

type CleanupTaskHandler struct {
	cleaner       NotificationCleaner
	retentionDays int
}

func NewCleanupTaskHandler(cleaner NotificationCleaner, retentionDays int) *CleanupTaskHandler {
	return &CleanupTaskHandler{cleaner: cleaner, retentionDays: retentionDays}
}

func (h *CleanupTaskHandler) HandleCleanup(ctx context.Context, _ *asynq.Task) error {
	n, err := h.cleaner.CleanupOld(ctx, h.retentionDays)
	if err != nil {
		logger.Named("queue").Error("notification cleanup failed", zap.Error(err))
		return err
	}
	logger.Named("queue").Info("notification cleanup finished", zap.Int64("deleted", n))
	return nil
}

// ScheduleCleanup registers a cron entry that enqueues the cleanup task.
// Unique keeps several worker replicas from queueing the same run twice.
func ScheduleCleanup(c *cron.Cron, client Enqueuer, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, cleanupJob(client))
}

func cleanupJob(client Enqueuer) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		task := asynq.NewTask(TypeNotificationCleanup, nil, asynq.Unique(time.Hour), asynq.MaxRetry(1))
		if _, err := client.EnqueueContext(ctx, task); err != nil {
			logger.Named("queue").Warn("enqueue notification cleanup failed", zap.Error(err))
		}
	}
}
