package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

// ProjectFilter narrows project listings. Zero values mean "any".
type ProjectFilter struct {
	UserID    *uuid.UUID
	Statuses  []models.ProjectStatus
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

var projectSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

// StatusCount is the number of projects currently in a status.
type StatusCount struct {
	Status models.ProjectStatus
	Count  int64
}

type ProjectRepository interface {
	BaseRepository[models.Project]
	// CreateWithIntake writes a new project, its reference assets and the
	// initial ledger entry in one transaction.
	CreateWithIntake(ctx context.Context, p *models.Project, refs []models.Asset, initial *models.ProjectStatusHistory) error
	GetWithOwner(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	GetWithAssets(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	List(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error)
	CountByStatus(ctx context.Context, userID *uuid.UUID) ([]StatusCount, error)
	CountAssets(ctx context.Context, projectID uuid.UUID, assetType models.AssetType) (int64, error)
	SetPackage(ctx context.Context, projectID uuid.UUID, packageType, paymentLinkURL string) error
	UpdateBrief(ctx context.Context, projectID uuid.UUID, productType, creativeBrief *string) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) CreateWithIntake(ctx context.Context, p *models.Project, refs []models.Asset, initial *models.ProjectStatusHistory) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := tx.Omit("User", "Assets").Create(p).Error; err != nil {
		tx.Rollback()
		return translate(err, "create project failed")
	}
	for i := range refs {
		refs[i].ProjectID = p.ID
		refs[i].Type = models.AssetReference
	}
	if len(refs) > 0 {
		if err := tx.Create(&refs).Error; err != nil {
			tx.Rollback()
			return translate(err, "create reference assets failed")
		}
	}
	initial.ProjectID = p.ID
	if err := tx.Omit("Project", "ChangedBy").Create(initial).Error; err != nil {
		tx.Rollback()
		return translate(err, "create initial status history failed")
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	p.Assets = refs
	return nil
}

func (r *projectRepository) GetWithOwner(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Preload("User").First(&p, "id = ?", projectID).Error; err != nil {
		return nil, notFound(err, "project")
	}
	return &p, nil
}

func (r *projectRepository) GetWithAssets(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Assets", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&p, "id = ?", projectID).Error
	if err != nil {
		return nil, notFound(err, "project")
	}
	return &p, nil
}

func (f ProjectFilter) scope(db *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		db = db.Where("projects.user_id = ?", *f.UserID)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("projects.status IN ?", f.Statuses)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		db = db.Joins("JOIN users ON users.id = projects.user_id").
			Where("LOWER(projects.product_type) LIKE ? OR LOWER(projects.creative_brief) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(users.name) LIKE ?",
				like, like, like, like)
	}
	return db
}

func (f ProjectFilter) order() string {
	col, ok := projectSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return "projects." + col + " " + dir
}

func (r *projectRepository) List(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error) {
	_, limit, offset := paginate(f.Page, f.Limit)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count projects failed")
	}

	var out []models.Project
	err := r.db.WithContext(ctx).
		Scopes(f.scope).
		Preload("User").
		Order(f.order()).
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err, "list projects failed")
	}
	return out, total, nil
}

func (r *projectRepository) CountByStatus(ctx context.Context, userID *uuid.UUID) ([]StatusCount, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var out []StatusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&out).Error; err != nil {
		return nil, translate(err, "count projects by status failed")
	}
	return out, nil
}

func (r *projectRepository) CountAssets(ctx context.Context, projectID uuid.UUID, assetType models.AssetType) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Asset{}).
		Where("project_id = ? AND type = ?", projectID, assetType).
		Count(&n).Error
	if err != nil {
		return 0, translate(err, "count assets failed")
	}
	return n, nil
}

// SetPackage writes the commercial fields only. Status is left to the
// lifecycle executor.
func (r *projectRepository) SetPackage(ctx context.Context, projectID uuid.UUID, packageType, paymentLinkURL string) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Updates(map[string]any{
		"package_type":     packageType,
		"payment_link_url": paymentLinkURL,
		"updated_at":       time.Now().UTC(),
	})
	if res.Error != nil {
		return translate(res.Error, "set project package failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

func (r *projectRepository) UpdateBrief(ctx context.Context, projectID uuid.UUID, productType, creativeBrief *string) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if productType != nil {
		updates["product_type"] = *productType
	}
	if creativeBrief != nil {
		updates["creative_brief"] = *creativeBrief
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, models.StatusIntakeNew).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error, "update project brief failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeConflict, "project can no longer be edited")
	}
	return nil
}
