package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/pkg/logger"
)

// Email is a rendered message addressed to a single recipient.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender hands a rendered email to a delivery provider.
type Sender interface {
	Deliver(ctx context.Context, e Email) (string, error)
}

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Deliver(ctx context.Context, e Email) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.From,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}

// LogSender only logs emails. Used when no provider key is configured.
type LogSender struct{}

func (LogSender) Deliver(_ context.Context, e Email) (string, error) {
	logger.L().Info("email delivery disabled, logging instead",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
	)
	return "", nil
}

// DirectMailer renders and delivers in the calling goroutine.
type DirectMailer struct {
	from     string
	renderer *Renderer
	sender   Sender
}

var _ Mailer = (*DirectMailer)(nil)

func NewDirectMailer(from string, renderer *Renderer, sender Sender) *DirectMailer {
	return &DirectMailer{from: from, renderer: renderer, sender: sender}
}

func (m *DirectMailer) Send(ctx context.Context, msg Message) error {
	r, err := m.renderer.Render(msg)
	if err != nil {
		return err
	}
	id, err := m.sender.Deliver(ctx, Email{From: m.from, To: msg.To, Subject: r.Subject, HTML: r.HTML})
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", msg.Template, msg.To, err)
	}
	logger.L().Info("email sent",
		zap.String("template", string(msg.Template)),
		zap.String("to", msg.To),
		zap.String("message_id", id),
	)
	return nil
}
