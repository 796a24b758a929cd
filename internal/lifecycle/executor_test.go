package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

// memStore is an in-memory Store. InTx snapshots state and restores it when
// fn fails, mirroring a database rollback.
type memStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]models.Project
	history  []models.ProjectStatusHistory

	appendErr error
	afterRead func(s *memStore, id uuid.UUID)
}

func newMemStore() *memStore {
	return &memStore{projects: map[uuid.UUID]models.Project{}}
}

func (s *memStore) seed(status models.ProjectStatus) uuid.UUID {
	id := uuid.New()
	s.projects[id] = models.Project{ID: id, UserID: uuid.New(), Status: status}
	return id
}

func (s *memStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := make(map[uuid.UUID]models.Project, len(s.projects))
	for k, v := range s.projects {
		projects[k] = v
	}
	history := append([]models.ProjectStatusHistory(nil), s.history...)

	if err := fn(memTx{s}); err != nil {
		s.projects = projects
		s.history = history
		return err
	}
	return nil
}

func (s *memStore) ListHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	var out []models.ProjectStatusHistory
	for _, h := range s.history {
		if h.ProjectID == projectID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) historyFor(id uuid.UUID) []models.ProjectStatusHistory {
	out, _ := s.ListHistory(context.Background(), id)
	return out
}

type memTx struct{ s *memStore }

func (t memTx) CurrentStatus(ctx context.Context, id uuid.UUID) (models.ProjectStatus, error) {
	p, ok := t.s.projects[id]
	if !ok {
		return "", appErr.New(appErr.CodeNotFound, "project not found")
	}
	if t.s.afterRead != nil {
		t.s.afterRead(t.s, id)
	}
	return p.Status, nil
}

func (t memTx) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ProjectStatus, st Stamps) (*models.Project, error) {
	p := t.s.projects[id]
	if p.Status != from {
		return nil, appErr.New(appErr.CodeConflict, "project status changed concurrently")
	}
	p.Status = to
	p.UpdatedAt = st.At
	if st.PaidAt != nil {
		p.PaidAt = st.PaidAt
	}
	if st.CompletedAt != nil {
		p.CompletedAt = st.CompletedAt
	}
	t.s.projects[id] = p
	return &p, nil
}

func (t memTx) AppendHistory(ctx context.Context, e *models.ProjectStatusHistory) error {
	if t.s.appendErr != nil {
		return t.s.appendErr
	}
	e.ID = uuid.New()
	t.s.history = append(t.s.history, *e)
	return nil
}

type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestExecutor(s *memStore) (*Executor, *tickClock) {
	clock := &tickClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewExecutor(s, WithClock(clock.now)), clock
}

func strPtr(s string) *string { return &s }

func TestExecuteAssignsPackage(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusIntakeNew)
	exec, _ := newTestExecutor(s)
	actor := uuid.New()

	res, err := exec.Execute(context.Background(), TransitionRequest{
		ProjectID: id,
		To:        models.StatusAwaitingPayment,
		ActorID:   &actor,
		Notes:     strPtr("Package assigned: 20-shots"),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusIntakeNew, res.PreviousStatus)
	require.Equal(t, models.StatusAwaitingPayment, res.Project.Status)
	require.Equal(t, []SideEffect{EffectSendPaymentEmail, EffectCreateNotification}, res.SideEffects)

	hist := s.historyFor(id)
	require.Len(t, hist, 1)
	require.Equal(t, models.StatusIntakeNew, *hist[0].FromStatus)
	require.Equal(t, models.StatusAwaitingPayment, hist[0].ToStatus)
	require.Equal(t, actor, *hist[0].ChangedByID)
	require.Equal(t, "Package assigned: 20-shots", *hist[0].Notes)
}

func TestExecuteRejectsSkippedStep(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusAwaitingPayment)
	exec, _ := newTestExecutor(s)

	res, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusInQueue})
	require.Nil(t, res)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	var ae *appErr.AppError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "AWAITING_PAYMENT", ae.Meta["from"])
	require.Equal(t, "IN_QUEUE", ae.Meta["to"])
	require.NotContains(t, ae.Meta, "already_applied")

	require.Equal(t, models.StatusAwaitingPayment, s.projects[id].Status)
	require.Empty(t, s.historyFor(id))
}

func TestExecuteEveryPair(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			edge := Edge{from, to}
			t.Run(edge.String(), func(t *testing.T) {
				s := newMemStore()
				id := s.seed(from)
				exec, _ := newTestExecutor(s)

				res, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: to})
				if legal[edge] {
					require.NoError(t, err)
					require.Equal(t, from, res.PreviousStatus)
					require.Equal(t, to, s.projects[id].Status)
					require.Len(t, s.historyFor(id), 1)
					return
				}
				require.Nil(t, res)
				require.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
				require.Equal(t, from, s.projects[id].Status)
				require.Nil(t, s.projects[id].PaidAt)
				require.Nil(t, s.projects[id].CompletedAt)
				require.Empty(t, s.historyFor(id))
			})
		}
	}
}

func TestExecuteRejectsRepeatedTransition(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusPaid)
	exec, _ := newTestExecutor(s)

	_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusPaid})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	var ae *appErr.AppError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, true, ae.Meta["already_applied"])
	require.Empty(t, s.historyFor(id))
}

func TestExecuteCompletedIsTerminal(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusCompleted)
	exec, _ := newTestExecutor(s)

	for _, to := range AllStatuses() {
		_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: to})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition), to)
	}
	require.Equal(t, models.StatusCompleted, s.projects[id].Status)
	require.Empty(t, s.historyFor(id))
}

func TestExecuteProjectNotFound(t *testing.T) {
	exec, _ := newTestExecutor(newMemStore())
	_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: uuid.New(), To: models.StatusPaid})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestExecuteStampsPaidAndCompleted(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusAwaitingPayment)
	exec, _ := newTestExecutor(s)

	res, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusPaid})
	require.NoError(t, err)
	require.NotNil(t, res.Project.PaidAt)
	require.Nil(t, res.Project.CompletedAt)
	require.Equal(t, []SideEffect{EffectSendMagicLink, EffectCreateNotification}, res.SideEffects)

	p := s.projects[id]
	p.Status = models.StatusReviewReady
	s.projects[id] = p

	res, err = exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, res.Project.CompletedAt)
	require.NotNil(t, res.Project.PaidAt)
	require.True(t, res.Project.CompletedAt.After(*res.Project.PaidAt))
}

func TestExecuteRevisionLoop(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusReviewReady)
	exec, _ := newTestExecutor(s)
	notes := "Make the background warmer"

	res, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusGenerating, Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, []SideEffect{EffectSendRevisionEmailToAdmin, EffectCreateNotification}, res.SideEffects)
	require.Equal(t, Transition{From: models.StatusReviewReady, To: models.StatusGenerating, Notes: &notes}, res.Transition(&notes))

	_, err = exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusCompleted})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	hist := s.historyFor(id)
	require.Len(t, hist, 1)
	require.Equal(t, notes, *hist[0].Notes)
}

func TestExecuteRollsBackWhenLedgerWriteFails(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusInQueue)
	s.appendErr = errors.New("connection reset")
	exec, _ := newTestExecutor(s)

	_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusGenerating})
	require.True(t, appErr.IsCode(err, appErr.CodeInternal))
	require.ErrorContains(t, err, "connection reset")
	require.Equal(t, models.StatusInQueue, s.projects[id].Status)
	require.Empty(t, s.historyFor(id))
}

func TestExecuteDetectsConcurrentTransition(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusGenerating)
	// Another writer moves the project between our read and our write.
	s.afterRead = func(s *memStore, id uuid.UUID) {
		p := s.projects[id]
		p.Status = models.StatusReviewReady
		s.projects[id] = p
		s.afterRead = nil
	}
	exec, _ := newTestExecutor(s)

	_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusReviewReady})
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))
	require.Empty(t, s.historyFor(id))
}

func TestLedgerReplaysAsLegalWalk(t *testing.T) {
	s := newMemStore()
	id := s.seed(models.StatusIntakeNew)
	exec, _ := newTestExecutor(s)

	steps := []models.ProjectStatus{
		models.StatusAwaitingPayment,
		models.StatusPaid,
		models.StatusInQueue,
		models.StatusGenerating,
		models.StatusReviewReady,
		models.StatusGenerating,
		models.StatusReviewReady,
		models.StatusCompleted,
	}
	for _, to := range steps {
		_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: to})
		require.NoError(t, err, to)
	}
	// Illegal attempts along the way leave no trace.
	_, err := exec.Execute(context.Background(), TransitionRequest{ProjectID: id, To: models.StatusGenerating})
	require.Error(t, err)

	hist, err := exec.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, hist, len(steps))
	require.Equal(t, models.StatusCompleted, hist[0].ToStatus)

	walk := []models.ProjectStatus{models.StatusIntakeNew}
	for i := len(hist) - 1; i >= 0; i-- {
		require.Equal(t, walk[len(walk)-1], *hist[i].FromStatus)
		walk = append(walk, hist[i].ToStatus)
	}
	require.NoError(t, replayLedger(hist))
}

func ledgerRow(from *models.ProjectStatus, to models.ProjectStatus, at time.Time) models.ProjectStatusHistory {
	return models.ProjectStatusHistory{FromStatus: from, ToStatus: to, CreatedAt: at}
}

func statusPtr(s models.ProjectStatus) *models.ProjectStatus { return &s }

func TestReplayLedger(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	// newest first, as the store returns it
	full := []models.ProjectStatusHistory{
		ledgerRow(statusPtr(models.StatusAwaitingPayment), models.StatusPaid, at.Add(2*time.Second)),
		ledgerRow(statusPtr(models.StatusIntakeNew), models.StatusAwaitingPayment, at.Add(time.Second)),
		ledgerRow(nil, models.StatusIntakeNew, at),
	}
	require.NoError(t, replayLedger(nil))
	require.NoError(t, replayLedger(full))
	require.NoError(t, replayLedger(full[:2]))

	cases := map[string][]models.ProjectStatusHistory{
		"illegal edge": {
			ledgerRow(statusPtr(models.StatusIntakeNew), models.StatusPaid, at.Add(time.Second)),
			ledgerRow(nil, models.StatusIntakeNew, at),
		},
		"gap between entries": {
			ledgerRow(statusPtr(models.StatusPaid), models.StatusInQueue, at.Add(time.Second)),
			ledgerRow(nil, models.StatusIntakeNew, at),
		},
		"late creation entry": {
			ledgerRow(nil, models.StatusIntakeNew, at.Add(time.Second)),
			ledgerRow(nil, models.StatusIntakeNew, at),
		},
		"creation in wrong state": {
			ledgerRow(nil, models.StatusPaid, at),
		},
	}
	for name, rows := range cases {
		require.Error(t, replayLedger(rows), name)
	}
}

func TestHistoryWarnsOnCorruptLedger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	s := newMemStore()
	id := s.seed(models.StatusPaid)
	row := ledgerRow(statusPtr(models.StatusIntakeNew), models.StatusPaid, time.Now())
	row.ProjectID = id
	s.history = append(s.history, row)
	exec, _ := newTestExecutor(s)

	hist, err := exec.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, 1, logs.FilterMessage("status history does not replay").Len())
}
