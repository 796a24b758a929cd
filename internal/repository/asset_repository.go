package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

type AssetRepository interface {
	BaseRepository[models.Asset]
	CreateBatch(ctx context.Context, assets []models.Asset) error
	ListByProject(ctx context.Context, projectID uuid.UUID, assetType models.AssetType) ([]models.Asset, error)
	SetStatus(ctx context.Context, assetID uuid.UUID, status models.AssetStatus, revisionNotes *string) error
}

type assetRepository struct {
	BaseRepository[models.Asset]
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{BaseRepository: NewBaseRepository[models.Asset](db), db: db}
}

func (r *assetRepository) CreateBatch(ctx context.Context, assets []models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&assets).Error; err != nil {
		return translate(err, "create assets failed")
	}
	return nil
}

// ListByProject returns assets oldest first. An empty assetType lists all.
func (r *assetRepository) ListByProject(ctx context.Context, projectID uuid.UUID, assetType models.AssetType) ([]models.Asset, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if assetType != "" {
		q = q.Where("type = ?", assetType)
	}
	var out []models.Asset
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, translate(err, "list assets failed")
	}
	return out, nil
}

func (r *assetRepository) SetStatus(ctx context.Context, assetID uuid.UUID, status models.AssetStatus, revisionNotes *string) error {
	updates := map[string]any{"status": string(status), "updated_at": time.Now().UTC()}
	if revisionNotes != nil {
		updates["revision_notes"] = *revisionNotes
	}
	res := r.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", assetID).Updates(updates)
	if res.Error != nil {
		return translate(res.Error, "update asset status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "asset not found")
	}
	return nil
}
