package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/repository"
	"github.com/modelmagic/portal/internal/storage"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
	"github.com/modelmagic/portal/pkg/utils"
)

// MaxUploadSize is the largest image accepted for upload.
const MaxUploadSize = 10 * 1024 * 1024

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type AssetService interface {
	RequestUploadURL(ctx context.Context, viewer Viewer, input *UploadURLInput) (*UploadURL, error)
	AddGeneratedAssets(ctx context.Context, projectID uuid.UUID, files []AssetFile) ([]models.Asset, error)
	ListProjectAssets(ctx context.Context, projectID uuid.UUID, viewer Viewer) (*ProjectAssets, error)
	DownloadURL(ctx context.Context, assetID uuid.UUID, viewer Viewer) (string, error)
	ApproveAsset(ctx context.Context, assetID uuid.UUID, viewer Viewer) (*models.Asset, error)
	RequestRevision(ctx context.Context, assetID uuid.UUID, viewer Viewer, notes string) (*models.Asset, error)
	DeleteAsset(ctx context.Context, assetID uuid.UUID) error
}

type UploadURLInput struct {
	ProjectID *uuid.UUID
	Type      models.AssetType
	FileName  string
	MimeType  string
	FileSize  int64
}

type UploadURL struct {
	UploadURL string           `json:"upload_url"`
	FileKey   string           `json:"file_key"`
	FileURL   string           `json:"file_url"`
	FileName  string           `json:"file_name"`
	MimeType  string           `json:"mime_type"`
	FileSize  int64            `json:"file_size"`
	Type      models.AssetType `json:"type"`
	ExpiresIn int              `json:"expires_in"`
}

// AssetFile describes an object already uploaded to storage.
type AssetFile struct {
	FileName string
	FileKey  string
	MimeType string
	FileSize int64
	Width    *int
	Height   *int
}

type ProjectAssets struct {
	Reference []models.Asset `json:"reference"`
	Generated []models.Asset `json:"generated"`
	Total     int            `json:"total"`
}

type assetService struct {
	assets    repository.AssetRepository
	projects  repository.ProjectRepository
	store     storage.ObjectStore
	lifecycle ProjectLifecycleService
	now       func() time.Time
}

var _ AssetService = (*assetService)(nil)

// NewAssetService wires the asset service. store may be nil when object
// storage is not configured; operations that need it then fail with
// unavailable.
func NewAssetService(assets repository.AssetRepository, projects repository.ProjectRepository, store storage.ObjectStore, lc ProjectLifecycleService) AssetService {
	return &assetService{
		assets:    assets,
		projects:  projects,
		store:     store,
		lifecycle: lc,
		now:       time.Now,
	}
}

func validateFile(mimeType string, size int64) error {
	if !allowedMimeTypes[mimeType] {
		return appErr.New(appErr.CodeInvalid, "invalid file type, allowed types: image/jpeg, image/png, image/webp, image/gif").
			WithMeta("mime_type", mimeType)
	}
	if size <= 0 || size > MaxUploadSize {
		return appErr.New(appErr.CodeInvalid, fmt.Sprintf("file too large, maximum size: %dMB", MaxUploadSize/1024/1024)).
			WithMeta("file_size", size)
	}
	return nil
}

func (s *assetService) requireStore() error {
	if s.store == nil {
		return appErr.New(appErr.CodeUnavailable, "file storage is not configured")
	}
	return nil
}

func (s *assetService) RequestUploadURL(ctx context.Context, viewer Viewer, input *UploadURLInput) (*UploadURL, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "file name is required")
	}
	if err := validateFile(input.MimeType, input.FileSize); err != nil {
		return nil, err
	}
	kind := input.Type
	if kind == "" {
		kind = models.AssetReference
	}
	if kind == models.AssetGenerated && !viewer.IsAdmin() {
		return nil, appErr.New(appErr.CodeForbidden, "only admins upload generated assets")
	}

	projectID := ""
	if input.ProjectID != nil {
		var p models.Project
		if err := s.projects.GetByID(ctx, *input.ProjectID, &p); err != nil {
			return nil, err
		}
		if !viewer.canSee(&p) {
			return nil, appErr.New(appErr.CodeNotFound, "project not found")
		}
		projectID = p.ID.String()
	}

	key := utils.ObjectKey(projectID, string(kind), input.FileName, s.now())
	url, err := s.store.PresignPut(ctx, key, storage.DefaultURLTTL)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "presign upload failed")
	}
	return &UploadURL{
		UploadURL: url,
		FileKey:   key,
		FileURL:   s.store.PublicURL(key),
		FileName:  input.FileName,
		MimeType:  input.MimeType,
		FileSize:  input.FileSize,
		Type:      kind,
		ExpiresIn: int(storage.DefaultURLTTL.Seconds()),
	}, nil
}

// AddGeneratedAssets registers delivered model shots. The project must be in
// production or under review.
func (s *assetService) AddGeneratedAssets(ctx context.Context, projectID uuid.UUID, files []AssetFile) ([]models.Asset, error) {
	if len(files) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "at least one file is required")
	}
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.Status != models.StatusGenerating && p.Status != models.StatusReviewReady {
		return nil, appErr.New(appErr.CodeConflict, "generated assets can only be added while generating or in review").
			WithMeta("status", string(p.Status))
	}

	out := make([]models.Asset, 0, len(files))
	for _, f := range files {
		if err := validateFile(f.MimeType, f.FileSize); err != nil {
			return nil, err
		}
		fileURL := f.FileKey
		if s.store != nil {
			fileURL = s.store.PublicURL(f.FileKey)
		}
		out = append(out, models.Asset{
			ProjectID: projectID,
			Type:      models.AssetGenerated,
			Status:    models.AssetReady,
			FileName:  f.FileName,
			FileKey:   f.FileKey,
			FileURL:   fileURL,
			MimeType:  f.MimeType,
			FileSize:  f.FileSize,
			Width:     f.Width,
			Height:    f.Height,
		})
	}
	if err := s.assets.CreateBatch(ctx, out); err != nil {
		return nil, err
	}
	logger.L().Info("generated assets added",
		zap.String("project_id", projectID.String()),
		zap.Int("count", len(out)),
	)
	return out, nil
}

func (s *assetService) ListProjectAssets(ctx context.Context, projectID uuid.UUID, viewer Viewer) (*ProjectAssets, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if !viewer.canSee(&p) {
		return nil, appErr.New(appErr.CodeNotFound, "project not found")
	}
	all, err := s.assets.ListByProject(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	out := &ProjectAssets{Reference: []models.Asset{}, Generated: []models.Asset{}, Total: len(all)}
	for _, a := range all {
		if a.Type == models.AssetGenerated {
			out.Generated = append(out.Generated, a)
		} else {
			out.Reference = append(out.Reference, a)
		}
	}
	return out, nil
}

// load returns an asset together with its project after the ownership check.
func (s *assetService) load(ctx context.Context, assetID uuid.UUID, viewer Viewer) (*models.Asset, *models.Project, error) {
	var a models.Asset
	if err := s.assets.GetByID(ctx, assetID, &a); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil, appErr.New(appErr.CodeNotFound, "asset not found")
		}
		return nil, nil, err
	}
	var p models.Project
	if err := s.projects.GetByID(ctx, a.ProjectID, &p); err != nil {
		return nil, nil, err
	}
	if !viewer.canSee(&p) {
		return nil, nil, appErr.New(appErr.CodeNotFound, "asset not found")
	}
	return &a, &p, nil
}

func (s *assetService) DownloadURL(ctx context.Context, assetID uuid.UUID, viewer Viewer) (string, error) {
	if err := s.requireStore(); err != nil {
		return "", err
	}
	a, _, err := s.load(ctx, assetID, viewer)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, a.FileKey, storage.DefaultURLTTL)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "presign download failed")
	}
	return url, nil
}

func (s *assetService) ApproveAsset(ctx context.Context, assetID uuid.UUID, viewer Viewer) (*models.Asset, error) {
	a, _, err := s.load(ctx, assetID, viewer)
	if err != nil {
		return nil, err
	}
	if a.Type != models.AssetGenerated {
		return nil, appErr.New(appErr.CodeInvalid, "only generated assets can be approved")
	}
	if err := s.assets.SetStatus(ctx, assetID, models.AssetApproved, nil); err != nil {
		return nil, err
	}
	a.Status = models.AssetApproved
	return a, nil
}

// RequestRevision flags a generated asset. If the project is under review it
// goes back to GENERATING with the notes recorded in the ledger. While a
// revision round is already running only the asset is flagged.
func (s *assetService) RequestRevision(ctx context.Context, assetID uuid.UUID, viewer Viewer, notes string) (*models.Asset, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, appErr.New(appErr.CodeInvalid, "revision notes are required")
	}
	a, p, err := s.load(ctx, assetID, viewer)
	if err != nil {
		return nil, err
	}
	if a.Type != models.AssetGenerated {
		return nil, appErr.New(appErr.CodeInvalid, "revisions can only be requested for generated assets")
	}

	switch {
	case lifecycle.CanRequestRevision(p.Status):
		actor := viewer.UserID
		if _, err := s.lifecycle.UpdateProjectStatus(ctx, p.ID, models.StatusGenerating, &actor, &notes); err != nil {
			return nil, err
		}
	case p.Status == models.StatusGenerating:
	default:
		return nil, lifecycle.InvalidTransition(p.Status, models.StatusGenerating)
	}

	if err := s.assets.SetStatus(ctx, assetID, models.AssetRevisionRequested, &notes); err != nil {
		return nil, err
	}
	a.Status = models.AssetRevisionRequested
	a.RevisionNotes = &notes
	return a, nil
}

// DeleteAsset removes the row; the stored object is removed best-effort.
func (s *assetService) DeleteAsset(ctx context.Context, assetID uuid.UUID) error {
	var a models.Asset
	if err := s.assets.GetByID(ctx, assetID, &a); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return appErr.New(appErr.CodeNotFound, "asset not found")
		}
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, a.FileKey); err != nil {
			logger.L().Warn("delete stored file failed",
				zap.String("asset_id", assetID.String()),
				zap.String("file_key", a.FileKey),
				zap.Error(err),
			)
		}
	}
	return s.assets.Delete(ctx, assetID)
}
