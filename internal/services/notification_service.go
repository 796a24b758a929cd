package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/repository"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

// NotificationService manages in-app notifications. It also satisfies
// lifecycle.Notifier.
type NotificationService interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	// CleanupOld deletes read notifications older than retentionDays.
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

var _ NotificationService = (*notificationService)(nil)

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo, now: time.Now}
}

func (s *notificationService) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == uuid.Nil || n.Title == "" {
		return appErr.New(appErr.CodeInvalid, "notification needs a user and a title")
	}
	return s.repo.Create(ctx, n)
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, page, pageSize)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, appErr.New(appErr.CodeInvalid, "retention must be at least one day")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	n, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	logger.L().Info("old notifications deleted",
		zap.Int64("count", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}
