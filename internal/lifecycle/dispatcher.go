package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/modelmagic/portal/internal/mail"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/pkg/logger"
)

// Transition describes a committed status change handed to the dispatcher.
type Transition struct {
	From  models.ProjectStatus
	To    models.ProjectStatus
	Notes *string
}

// ProjectLoader reads the data side effects are rendered from.
type ProjectLoader interface {
	// GetWithOwner returns the project with User populated.
	GetWithOwner(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	CountAssets(ctx context.Context, projectID uuid.UUID, assetType models.AssetType) (int64, error)
}

// Notifier persists in-app notifications.
type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Links builds the absolute URLs embedded in emails.
type Links struct {
	AppURL string
}

func (l Links) Dashboard(projectID uuid.UUID) string {
	return strings.TrimRight(l.AppURL, "/") + "/dashboard/projects/" + projectID.String()
}

func (l Links) Admin(projectID uuid.UUID) string {
	return strings.TrimRight(l.AppURL, "/") + "/admin/projects/" + projectID.String()
}

// EffectResult reports how one side effect ended.
type EffectResult struct {
	Effect  SideEffect
	Skipped bool
	Err     error
}

// SideEffectDispatcher runs the side effects of a committed transition.
// Failures are isolated per effect and never returned as errors.
type SideEffectDispatcher interface {
	Dispatch(ctx context.Context, projectID uuid.UUID, t Transition, effects []SideEffect) []EffectResult
}

type effectHandler func(ctx context.Context, dc *dispatchContext) error

type Dispatcher struct {
	projects   ProjectLoader
	mailer     mail.Mailer
	notifier   Notifier
	links      Links
	adminEmail string
	handlers   map[SideEffect]effectHandler
}

var _ SideEffectDispatcher = (*Dispatcher)(nil)

func NewDispatcher(projects ProjectLoader, mailer mail.Mailer, notifier Notifier, links Links, adminEmail string) *Dispatcher {
	d := &Dispatcher{
		projects:   projects,
		mailer:     mailer,
		notifier:   notifier,
		links:      links,
		adminEmail: adminEmail,
	}
	d.handlers = map[SideEffect]effectHandler{
		EffectSendPaymentEmail:         d.sendPaymentEmail,
		EffectSendMagicLink:            d.sendMagicLink,
		EffectSendAssetsReadyEmail:     d.sendAssetsReadyEmail,
		EffectSendRevisionEmailToAdmin: d.sendRevisionEmailToAdmin,
		EffectSendCompletionEmail:      d.sendCompletionEmail,
		EffectCreateNotification:       d.createNotification,
	}
	return d
}

// MissingHandlers lists side effects the dispatcher cannot run.
func (d *Dispatcher) MissingHandlers() []SideEffect {
	var missing []SideEffect
	for _, e := range AllSideEffects() {
		if _, ok := d.handlers[e]; !ok {
			missing = append(missing, e)
		}
	}
	return missing
}

type dispatchContext struct {
	project    *models.Project
	transition Transition
	generated  *int64
}

func (dc *dispatchContext) owner() *models.User { return dc.project.User }

type skipError struct{ reason string }

func (e *skipError) Error() string { return "skipped: " + e.reason }

func skip(reason string) error { return &skipError{reason: reason} }

// Dispatch runs effects in order against freshly loaded project data.
func (d *Dispatcher) Dispatch(ctx context.Context, projectID uuid.UUID, t Transition, effects []SideEffect) []EffectResult {
	results := make([]EffectResult, 0, len(effects))
	if len(effects) == 0 {
		return results
	}

	project, err := d.projects.GetWithOwner(ctx, projectID)
	if err != nil {
		logger.Named("lifecycle").Error("side effects not run: project load failed",
			zap.String("project_id", projectID.String()),
			zap.String("transition", Edge{t.From, t.To}.String()),
			zap.Error(err),
		)
		for _, e := range effects {
			results = append(results, EffectResult{Effect: e, Err: err})
		}
		return results
	}

	dc := &dispatchContext{project: project, transition: t}
	for _, e := range effects {
		results = append(results, d.run(ctx, dc, e))
	}
	return results
}

func (d *Dispatcher) run(ctx context.Context, dc *dispatchContext, effect SideEffect) (res EffectResult) {
	res.Effect = effect
	fields := []zap.Field{
		zap.String("project_id", dc.project.ID.String()),
		zap.String("effect", string(effect)),
		zap.String("transition", Edge{dc.transition.From, dc.transition.To}.String()),
	}
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("panic: %v", rec)
			logger.Named("lifecycle").Error("side effect panicked", append(fields, zap.Any("panic", rec))...)
		}
	}()

	h, ok := d.handlers[effect]
	if !ok {
		res.Err = fmt.Errorf("no handler for side effect %s", effect)
		logger.Named("lifecycle").Error("side effect failed", append(fields, zap.Error(res.Err))...)
		return res
	}

	err := h(ctx, dc)
	var se *skipError
	switch {
	case err == nil:
		logger.Named("lifecycle").Debug("side effect done", fields...)
	case errors.As(err, &se):
		res.Skipped = true
		logger.Named("lifecycle").Info("side effect skipped", append(fields, zap.String("reason", se.reason))...)
	default:
		res.Err = err
		logger.Named("lifecycle").Error("side effect failed", append(fields, zap.Error(err))...)
	}
	return res
}

func (d *Dispatcher) generatedCount(ctx context.Context, dc *dispatchContext) (int64, error) {
	if dc.generated != nil {
		return *dc.generated, nil
	}
	n, err := d.projects.CountAssets(ctx, dc.project.ID, models.AssetGenerated)
	if err != nil {
		return 0, err
	}
	dc.generated = &n
	return n, nil
}

func (d *Dispatcher) sendPaymentEmail(ctx context.Context, dc *dispatchContext) error {
	owner := dc.owner()
	if owner == nil || owner.Email == "" {
		return skip("project owner has no email")
	}
	if dc.project.PaymentLinkURL == nil || *dc.project.PaymentLinkURL == "" {
		return skip("project has no payment link")
	}
	return d.mailer.Send(ctx, mail.Message{
		Template: mail.TemplatePaymentRequest,
		To:       owner.Email,
		Data: mail.Data{
			ClientName:  owner.DisplayName(),
			ProjectID:   dc.project.ID.String(),
			PackageType: derefOr(dc.project.PackageType, "Standard"),
			PaymentURL:  *dc.project.PaymentLinkURL,
		},
	})
}

// Magic links are issued by the auth service when an admin asks for one.
func (d *Dispatcher) sendMagicLink(_ context.Context, dc *dispatchContext) error {
	logger.Named("lifecycle").Debug("magic link handled by auth service", zap.String("project_id", dc.project.ID.String()))
	return nil
}

func (d *Dispatcher) sendAssetsReadyEmail(ctx context.Context, dc *dispatchContext) error {
	owner := dc.owner()
	if owner == nil || owner.Email == "" {
		return skip("project owner has no email")
	}
	n, err := d.generatedCount(ctx, dc)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, mail.Message{
		Template: mail.TemplateAssetsReady,
		To:       owner.Email,
		Data: mail.Data{
			ClientName:   owner.DisplayName(),
			ProjectID:    dc.project.ID.String(),
			AssetCount:   n,
			DashboardURL: d.links.Dashboard(dc.project.ID),
		},
	})
}

func (d *Dispatcher) sendRevisionEmailToAdmin(ctx context.Context, dc *dispatchContext) error {
	if d.adminEmail == "" {
		return skip("no admin email configured")
	}
	owner := dc.owner()
	data := mail.Data{
		ClientName:    owner.DisplayName(),
		ProjectID:     dc.project.ID.String(),
		RevisionNotes: derefOr(dc.transition.Notes, "No notes provided"),
		AdminURL:      d.links.Admin(dc.project.ID),
	}
	if owner != nil {
		data.ClientEmail = owner.Email
	}
	return d.mailer.Send(ctx, mail.Message{Template: mail.TemplateRevisionRequest, To: d.adminEmail, Data: data})
}

func (d *Dispatcher) sendCompletionEmail(ctx context.Context, dc *dispatchContext) error {
	owner := dc.owner()
	if owner == nil || owner.Email == "" {
		return skip("project owner has no email")
	}
	return d.mailer.Send(ctx, mail.Message{
		Template: mail.TemplateProjectCompleted,
		To:       owner.Email,
		Data: mail.Data{
			ClientName:   owner.DisplayName(),
			ProjectID:    dc.project.ID.String(),
			DashboardURL: d.links.Dashboard(dc.project.ID),
		},
	})
}

func (d *Dispatcher) createNotification(ctx context.Context, dc *dispatchContext) error {
	n, err := d.notificationFor(ctx, dc)
	if err != nil {
		return err
	}
	return d.notifier.Create(ctx, n)
}

// notificationFor picks the template of the exact (from, to) pair, so the
// revision loop back to GENERATING gets its own message. Pairs without a
// template are skipped.
func (d *Dispatcher) notificationFor(ctx context.Context, dc *dispatchContext) (*models.Notification, error) {
	t := dc.transition
	projectID := dc.project.ID
	meta, err := json.Marshal(map[string]string{"from": string(t.From), "to": string(t.To)})
	if err != nil {
		return nil, err
	}
	n := &models.Notification{
		UserID:    dc.project.UserID,
		ProjectID: &projectID,
		Metadata:  datatypes.JSON(meta),
	}

	switch (Edge{t.From, t.To}) {
	case Edge{models.StatusIntakeNew, models.StatusAwaitingPayment}:
		n.Type = models.NotificationPaymentRequested
		n.Title = "Payment Required"
		n.Message = "A package has been assigned to your project. Please complete payment to proceed."
	case Edge{models.StatusAwaitingPayment, models.StatusPaid}:
		n.Type = models.NotificationPaymentConfirmed
		n.Title = "Payment Confirmed"
		n.Message = "Your payment has been confirmed. Your project is now in the production queue."
	case Edge{models.StatusGenerating, models.StatusReviewReady}:
		count, err := d.generatedCount(ctx, dc)
		if err != nil {
			return nil, err
		}
		n.Type = models.NotificationAssetsReady
		n.Title = "Images Ready for Review"
		n.Message = fmt.Sprintf("%d model shots are ready for your review.", count)
	case Edge{models.StatusReviewReady, models.StatusGenerating}:
		n.Type = models.NotificationRevisionSubmitted
		n.Title = "Revision Request Submitted"
		n.Message = "Your revision request has been submitted. Our team will work on it shortly."
	case Edge{models.StatusReviewReady, models.StatusCompleted}:
		n.Type = models.NotificationProjectCompleted
		n.Title = "Project Completed!"
		n.Message = "Your project is complete. All images are ready for download."
	default:
		return nil, skip("no notification template for " + Edge{t.From, t.To}.String())
	}
	return n, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
