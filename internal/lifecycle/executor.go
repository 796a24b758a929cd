package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

// Store gives the executor transactional access to projects and the ledger.
type Store interface {
	// InTx runs fn in a single database transaction. The transaction commits
	// only if fn returns nil.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
	// ListHistory returns the ledger of a project, newest first.
	ListHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error)
}

// TxStore is the set of operations available inside a transaction.
type TxStore interface {
	// CurrentStatus returns not_found when the project does not exist.
	CurrentStatus(ctx context.Context, projectID uuid.UUID) (models.ProjectStatus, error)
	// UpdateStatus moves the project from -> to only if its status still
	// equals from, and returns conflict otherwise.
	UpdateStatus(ctx context.Context, projectID uuid.UUID, from, to models.ProjectStatus, stamps Stamps) (*models.Project, error)
	AppendHistory(ctx context.Context, entry *models.ProjectStatusHistory) error
}

// Stamps carries the timestamp columns written alongside a status change.
type Stamps struct {
	At          time.Time
	PaidAt      *time.Time
	CompletedAt *time.Time
}

// TransitionRequest asks for one project to move to a target status.
type TransitionRequest struct {
	ProjectID uuid.UUID
	To        models.ProjectStatus
	ActorID   *uuid.UUID
	Notes     *string
}

// TransitionResult is returned after a transition has committed.
type TransitionResult struct {
	Project        *models.Project
	PreviousStatus models.ProjectStatus
	SideEffects    []SideEffect
}

// Transition returns the (from, to, notes) triple handed to the dispatcher.
func (r *TransitionResult) Transition(notes *string) Transition {
	return Transition{From: r.PreviousStatus, To: r.Project.Status, Notes: notes}
}

// TransitionExecutor applies status transitions atomically.
type TransitionExecutor interface {
	Execute(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	History(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error)
}

// Executor validates transitions against the registry and persists the
// status change together with its ledger row. It never runs side effects.
type Executor struct {
	store Store
	now   func() time.Time
}

var _ TransitionExecutor = (*Executor)(nil)

type ExecutorOption func(*Executor)

// WithClock overrides the time source used for ledger and timestamp columns.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(store Store, opts ...ExecutorOption) *Executor {
	e := &Executor{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute moves a project to req.To. On success exactly one ledger row has
// been written in the same transaction as the status update. On failure
// nothing has been written.
func (e *Executor) Execute(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	var result *TransitionResult

	err := e.store.InTx(ctx, func(tx TxStore) error {
		current, err := tx.CurrentStatus(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		if !CanTransition(current, req.To) {
			return InvalidTransition(current, req.To)
		}

		now := e.now()
		stamps := Stamps{At: now}
		switch req.To {
		case models.StatusPaid:
			stamps.PaidAt = &now
		case models.StatusCompleted:
			stamps.CompletedAt = &now
		}

		project, err := tx.UpdateStatus(ctx, req.ProjectID, current, req.To, stamps)
		if err != nil {
			return err
		}

		from := current
		entry := &models.ProjectStatusHistory{
			ProjectID:   req.ProjectID,
			FromStatus:  &from,
			ToStatus:    req.To,
			ChangedByID: req.ActorID,
			Notes:       req.Notes,
			CreatedAt:   now,
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return err
		}

		result = &TransitionResult{
			Project:        project,
			PreviousStatus: current,
			SideEffects:    SideEffectsFor(current, req.To),
		}
		return nil
	})
	if err != nil {
		e.logFailure(req, err)
		return nil, classify(err)
	}

	logger.Named("lifecycle").Info("project status changed",
		zap.String("project_id", req.ProjectID.String()),
		zap.String("from", string(result.PreviousStatus)),
		zap.String("to", string(req.To)),
		zap.Int("side_effects", len(result.SideEffects)),
	)
	return result, nil
}

// History returns the ledger of a project, newest first. A ledger that does
// not replay as a legal walk is still returned, with a warning logged.
func (e *Executor) History(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	out, err := e.store.ListHistory(ctx, projectID)
	if err != nil {
		return nil, classify(err)
	}
	if err := replayLedger(out); err != nil {
		logger.Named("lifecycle").Warn("status history does not replay",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
	return out, nil
}

// replayLedger walks newest-first rows from oldest to newest. Only the first
// row may lack a source status, and it must create the project in INTAKE_NEW.
// Every other row must follow a legal edge out of the previous row's target.
func replayLedger(rows []models.ProjectStatusHistory) error {
	var prev *models.ProjectStatus
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		step := len(rows) - 1 - i
		switch {
		case row.FromStatus == nil:
			if prev != nil || row.ToStatus != models.StatusIntakeNew {
				return fmt.Errorf("step %d: creation entry to %s out of place", step, row.ToStatus)
			}
		case prev != nil && *row.FromStatus != *prev:
			return fmt.Errorf("step %d: starts at %s, previous entry ended at %s", step, *row.FromStatus, *prev)
		case !CanTransition(*row.FromStatus, row.ToStatus):
			return fmt.Errorf("step %d: %s is not a legal transition", step, Edge{*row.FromStatus, row.ToStatus})
		}
		to := row.ToStatus
		prev = &to
	}
	return nil
}

func (e *Executor) logFailure(req TransitionRequest, err error) {
	fields := []zap.Field{
		zap.String("project_id", req.ProjectID.String()),
		zap.String("to", string(req.To)),
		zap.Error(err),
	}
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalidTransition, appErr.CodeNotFound, appErr.CodeConflict:
		logger.Named("lifecycle").Warn("project transition rejected", fields...)
	default:
		logger.Named("lifecycle").Error("project transition failed", fields...)
	}
}

// InvalidTransition builds the error returned for an illegal (from, to) pair.
func InvalidTransition(from, to models.ProjectStatus) *appErr.AppError {
	e := appErr.New(appErr.CodeInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to)).
		WithMeta("from", string(from)).
		WithMeta("to", string(to))
	if from == to {
		e.WithMeta("already_applied", true)
	}
	return e
}

// classify keeps domain errors and reports anything else as a persistence
// failure.
func classify(err error) error {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalidTransition, appErr.CodeNotFound, appErr.CodeConflict, appErr.CodeInternal:
		return err
	}
	return appErr.Wrap(err, appErr.CodeInternal, "persist transition failed")
}
