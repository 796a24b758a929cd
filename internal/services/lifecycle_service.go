package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/pkg/logger"
)

const (
	notePaymentConfirmed = "Payment confirmed"
	noteAddedToQueue     = "Added to production queue"
)

// ProjectLifecycleService is the entry point for every status change. It
// composes the transition executor with the side-effect dispatcher.
type ProjectLifecycleService interface {
	AssignPackage(ctx context.Context, projectID uuid.UUID, in *AssignPackageInput) (*lifecycle.TransitionResult, error)
	MarkProjectPaid(ctx context.Context, projectID uuid.UUID, in *MarkPaidInput) (*MarkPaidResult, error)
	UpdateProjectStatus(ctx context.Context, projectID uuid.UUID, to models.ProjectStatus, actorID *uuid.UUID, notes *string) (*lifecycle.TransitionResult, error)
}

type AssignPackageInput struct {
	PackageType    string
	PaymentLinkURL string
	ActorID        *uuid.UUID
	// SendEmail false suppresses the payment email; the notification is
	// still created.
	SendEmail bool
}

type MarkPaidInput struct {
	ActorID       *uuid.UUID
	SendMagicLink bool
	Notes         *string
}

// MarkPaidResult holds both hops of the payment confirmation. Queued is nil
// when the second hop was not applied.
type MarkPaidResult struct {
	Paid   *lifecycle.TransitionResult `json:"paid"`
	Queued *lifecycle.TransitionResult `json:"queued,omitempty"`
}

// PackageWriter updates the commercial fields of a project.
type PackageWriter interface {
	GetByID(ctx context.Context, id any, dest *models.Project) error
	SetPackage(ctx context.Context, projectID uuid.UUID, packageType, paymentLinkURL string) error
}

// LoginLinkSender emails a sign-in link to an existing user.
type LoginLinkSender interface {
	SendLoginLinkToUser(ctx context.Context, userID uuid.UUID) error
}

type lifecycleService struct {
	projects   PackageWriter
	executor   lifecycle.TransitionExecutor
	dispatcher lifecycle.SideEffectDispatcher
	loginLinks LoginLinkSender
}

var _ ProjectLifecycleService = (*lifecycleService)(nil)

// NewLifecycleService wires the lifecycle service. loginLinks may be nil, in
// which case SendMagicLink is ignored.
func NewLifecycleService(projects PackageWriter, executor lifecycle.TransitionExecutor, dispatcher lifecycle.SideEffectDispatcher, loginLinks LoginLinkSender) ProjectLifecycleService {
	return &lifecycleService{projects: projects, executor: executor, dispatcher: dispatcher, loginLinks: loginLinks}
}

func (s *lifecycleService) AssignPackage(ctx context.Context, projectID uuid.UUID, in *AssignPackageInput) (*lifecycle.TransitionResult, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	// Package fields are only written when the transition can follow.
	if !lifecycle.CanTransition(p.Status, models.StatusAwaitingPayment) {
		return nil, lifecycle.InvalidTransition(p.Status, models.StatusAwaitingPayment)
	}
	if err := s.projects.SetPackage(ctx, projectID, in.PackageType, in.PaymentLinkURL); err != nil {
		return nil, err
	}

	notes := "Package assigned: " + in.PackageType
	res, err := s.executor.Execute(ctx, lifecycle.TransitionRequest{
		ProjectID: projectID,
		To:        models.StatusAwaitingPayment,
		ActorID:   in.ActorID,
		Notes:     &notes,
	})
	if err != nil {
		return nil, err
	}

	effects := res.SideEffects
	if !in.SendEmail {
		effects = without(effects, lifecycle.EffectSendPaymentEmail)
	}
	s.dispatch(ctx, projectID, res.Transition(&notes), effects)
	return res, nil
}

// MarkProjectPaid confirms payment and immediately queues the project for
// production. The second hop only runs when the first one committed.
func (s *lifecycleService) MarkProjectPaid(ctx context.Context, projectID uuid.UUID, in *MarkPaidInput) (*MarkPaidResult, error) {
	notes := in.Notes
	if notes == nil || *notes == "" {
		n := notePaymentConfirmed
		notes = &n
	}
	paid, err := s.executor.Execute(ctx, lifecycle.TransitionRequest{
		ProjectID: projectID,
		To:        models.StatusPaid,
		ActorID:   in.ActorID,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, projectID, paid.Transition(notes), paid.SideEffects)

	if in.SendMagicLink && s.loginLinks != nil {
		if err := s.loginLinks.SendLoginLinkToUser(ctx, paid.Project.UserID); err != nil {
			logger.L().Warn("send login link after payment failed",
				zap.String("project_id", projectID.String()),
				zap.Error(err),
			)
		}
	}

	queueNote := noteAddedToQueue
	queued, err := s.executor.Execute(ctx, lifecycle.TransitionRequest{
		ProjectID: projectID,
		To:        models.StatusInQueue,
		ActorID:   in.ActorID,
		Notes:     &queueNote,
	})
	if err != nil {
		return &MarkPaidResult{Paid: paid}, err
	}
	s.dispatch(ctx, projectID, queued.Transition(&queueNote), queued.SideEffects)
	return &MarkPaidResult{Paid: paid, Queued: queued}, nil
}

func (s *lifecycleService) UpdateProjectStatus(ctx context.Context, projectID uuid.UUID, to models.ProjectStatus, actorID *uuid.UUID, notes *string) (*lifecycle.TransitionResult, error) {
	res, err := s.executor.Execute(ctx, lifecycle.TransitionRequest{
		ProjectID: projectID,
		To:        to,
		ActorID:   actorID,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, projectID, res.Transition(notes), res.SideEffects)
	return res, nil
}

func (s *lifecycleService) dispatch(ctx context.Context, projectID uuid.UUID, t lifecycle.Transition, effects []lifecycle.SideEffect) {
	if len(effects) == 0 {
		return
	}
	results := s.dispatcher.Dispatch(ctx, projectID, t, effects)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		logger.L().Warn("some side effects failed",
			zap.String("project_id", projectID.String()),
			zap.String("transition", lifecycle.Edge{From: t.From, To: t.To}.String()),
			zap.Int("failed", failed),
			zap.Int("total", len(results)),
		)
	}
}

func without(effects []lifecycle.SideEffect, drop lifecycle.SideEffect) []lifecycle.SideEffect {
	out := make([]lifecycle.SideEffect, 0, len(effects))
	for _, e := range effects {
		if e != drop {
			out = append(out, e)
		}
	}
	return out
}
