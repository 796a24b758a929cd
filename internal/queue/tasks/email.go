package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/mail"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

const (
	TypeEmailSend           = "email:send"
	TypeNotificationCleanup = "notification:cleanup"

	emailMaxRetry = 5
)

// Enqueuer is the part of *asynq.Client the producers need.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer implements mail.Mailer by handing each message to the worker.
// The API process never talks to the email provider directly.
type QueueMailer struct {
	client Enqueuer
}

var _ mail.Mailer = (*QueueMailer)(nil)

func NewQueueMailer(client Enqueuer) *QueueMailer {
	return &QueueMailer{client: client}
}

func (q *QueueMailer) Send(ctx context.Context, msg mail.Message) error {
	if err := msg.Validate(); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid email message")
	}
	pb, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailSend, pb, asynq.MaxRetry(emailMaxRetry))
	if q.client == nil {
		logger.Named("queue").Warn("asynq client not configured, skipping email enqueue",
			zap.String("template", string(msg.Template)),
		)
		return nil
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		logger.Named("queue").Error("enqueue email task failed", zap.Error(err), zap.String("template", string(msg.Template)))
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue email task failed")
	}
	logger.Named("queue").Debug("email enqueued",
		zap.String("task_id", info.ID),
		zap.String("template", string(msg.Template)),
	)
	return nil
}

// EmailTaskHandler delivers queued emails.
type EmailTaskHandler struct {
	mailer mail.Mailer
}

func NewEmailTaskHandler(mailer mail.Mailer) *EmailTaskHandler {
	return &EmailTaskHandler{mailer: mailer}
}

func (h *EmailTaskHandler) HandleSend(ctx context.Context, t *asynq.Task) error {
	var msg mail.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		logger.Named("queue").Error("invalid email task payload", zap.Error(err))
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := msg.Validate(); err != nil {
		logger.Named("queue").Error("invalid email message in task", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger.Named("queue").Info("handling email task", zap.String("template", string(msg.Template)))
	if err := h.mailer.Send(ctx, msg); err != nil {
		logger.Named("queue").Error("email delivery failed", zap.Error(err), zap.String("template", string(msg.Template)))
		return err
	}
	return nil
}
