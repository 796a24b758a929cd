package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

// TransitionStore is the gorm implementation of lifecycle.Store.
type TransitionStore struct {
	db *gorm.DB
}

var _ lifecycle.Store = (*TransitionStore)(nil)

func NewTransitionStore(db *gorm.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

func (s *TransitionStore) InTx(ctx context.Context, fn func(tx lifecycle.TxStore) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

func (s *TransitionStore) ListHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	var out []models.ProjectStatusHistory
	err := s.db.WithContext(ctx).
		Preload("ChangedBy").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list status history failed")
	}
	return out, nil
}

type txStore struct {
	tx *gorm.DB
}

func (t *txStore) CurrentStatus(ctx context.Context, projectID uuid.UUID) (models.ProjectStatus, error) {
	var p models.Project
	if err := t.tx.WithContext(ctx).Select("id", "status").First(&p, "id = ?", projectID).Error; err != nil {
		return "", notFound(err, "project")
	}
	return p.Status, nil
}

// UpdateStatus is gated on the status read earlier in the transaction, so a
// concurrent transition that committed first turns this into a conflict.
func (t *txStore) UpdateStatus(ctx context.Context, projectID uuid.UUID, from, to models.ProjectStatus, st lifecycle.Stamps) (*models.Project, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": st.At,
	}
	if st.PaidAt != nil {
		updates["paid_at"] = *st.PaidAt
	}
	if st.CompletedAt != nil {
		updates["completed_at"] = *st.CompletedAt
	}

	res := t.tx.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error, "update project status failed")
	}
	if res.RowsAffected == 0 {
		return nil, appErr.New(appErr.CodeConflict, "project status changed concurrently").
			WithMeta("expected", string(from))
	}

	var p models.Project
	if err := t.tx.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		return nil, notFound(err, "project")
	}
	return &p, nil
}

func (t *txStore) AppendHistory(ctx context.Context, entry *models.ProjectStatusHistory) error {
	if err := t.tx.WithContext(ctx).Omit("Project", "ChangedBy").Create(entry).Error; err != nil {
		return translate(err, "append status history failed")
	}
	return nil
}
