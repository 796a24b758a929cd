package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/mail"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/repository"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
	"github.com/modelmagic/portal/pkg/utils"
)

const noteCreatedViaIntake = "Project created via intake form"

// Viewer is the authenticated caller. Clients only ever see their own
// projects; admins see everything.
type Viewer struct {
	UserID uuid.UUID
	Role   models.Role
}

func (v Viewer) IsAdmin() bool { return v.Role == models.RoleAdmin }

func (v Viewer) canSee(p *models.Project) bool {
	return v.IsAdmin() || p.UserID == v.UserID
}

// Service interface and related DTOs
type ProjectService interface {
	CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID, viewer Viewer) (*models.Project, error)
	ListProjects(ctx context.Context, viewer Viewer, filters *ProjectFilters) ([]models.Project, int64, error)
	UpdateBrief(ctx context.Context, projectID uuid.UUID, viewer Viewer, updates *UpdateBriefInput) (*models.Project, error)
	GetStats(ctx context.Context, viewer Viewer) (*ProjectStats, error)

	GetTransitionHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error)
	NextStatuses(ctx context.Context, projectID uuid.UUID) ([]lifecycle.StatusInfo, error)
}

type ReferenceImage struct {
	FileName string
	FileURL  string
	FileKey  string
	MimeType string
	FileSize int64
}

type CreateProjectInput struct {
	Name            string
	Email           string
	ProductType     string
	CreativeBrief   string
	ReferenceImages []ReferenceImage
}

type UpdateBriefInput struct {
	ProductType   *string
	CreativeBrief *string
}

type ProjectFilters struct {
	Statuses  []models.ProjectStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

type ProjectStats struct {
	Total         int64                          `json:"total"`
	ByStatus      map[models.ProjectStatus]int64 `json:"by_status"`
	Active        int64                          `json:"active"`
	Completed     int64                          `json:"completed"`
	PendingReview int64                          `json:"pending_review"`
}

type projectService struct {
	users       repository.UserRepository
	projectRepo repository.ProjectRepository
	history     lifecycle.TransitionExecutor
	mailer      mail.Mailer
	links       lifecycle.Links
}

var _ ProjectService = (*projectService)(nil)

func NewProjectService(users repository.UserRepository, projectRepo repository.ProjectRepository, history lifecycle.TransitionExecutor, mailer mail.Mailer, links lifecycle.Links) ProjectService {
	return &projectService{
		users:       users,
		projectRepo: projectRepo,
		history:     history,
		mailer:      mailer,
		links:       links,
	}
}

// CreateProject handles a new intake submission. The project, its reference
// images and the first ledger row are written together; the confirmation
// email is best-effort.
func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || strings.TrimSpace(input.ProductType) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "email and product type are required")
	}

	// Intake may only reference uploads issued for anonymous submissions.
	for _, img := range input.ReferenceImages {
		if !utils.IsTempKey(img.FileKey) {
			return nil, appErr.New(appErr.CodeInvalid, "reference image key was not issued for intake").
				WithMeta("file_key", img.FileKey)
		}
	}

	user, created, err := s.users.FindOrCreate(ctx, email, strings.TrimSpace(input.Name))
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		UserID:        user.ID,
		ProductType:   strings.TrimSpace(input.ProductType),
		CreativeBrief: input.CreativeBrief,
		Status:        models.StatusIntakeNew,
	}
	refs := make([]models.Asset, 0, len(input.ReferenceImages))
	for _, img := range input.ReferenceImages {
		refs = append(refs, models.Asset{
			Type:     models.AssetReference,
			Status:   models.AssetPending,
			FileName: img.FileName,
			FileURL:  img.FileURL,
			FileKey:  img.FileKey,
			MimeType: img.MimeType,
			FileSize: img.FileSize,
		})
	}
	note := noteCreatedViaIntake
	initial := &models.ProjectStatusHistory{
		ToStatus: models.StatusIntakeNew,
		Notes:    &note,
	}
	if err := s.projectRepo.CreateWithIntake(ctx, project, refs, initial); err != nil {
		return nil, err
	}
	project.User = user

	logger.L().Info("project created via intake",
		zap.String("project_id", project.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Bool("new_user", created),
		zap.Int("reference_images", len(refs)),
	)

	err = s.mailer.Send(ctx, mail.Message{
		Template: mail.TemplateIntakeConfirmation,
		To:       user.Email,
		Data: mail.Data{
			ClientName:   user.DisplayName(),
			ProjectID:    project.ID.String(),
			ProductType:  project.ProductType,
			DashboardURL: s.links.Dashboard(project.ID),
		},
	})
	if err != nil {
		logger.L().Warn("intake confirmation email failed",
			zap.String("project_id", project.ID.String()),
			zap.Error(err),
		)
	}
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID, viewer Viewer) (*models.Project, error) {
	p, err := s.projectRepo.GetWithAssets(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// Another client's project reads as missing.
	if !viewer.canSee(p) {
		return nil, appErr.New(appErr.CodeNotFound, "project not found")
	}
	return p, nil
}

func (s *projectService) ListProjects(ctx context.Context, viewer Viewer, filters *ProjectFilters) ([]models.Project, int64, error) {
	if filters == nil {
		filters = &ProjectFilters{}
	}
	f := repository.ProjectFilter{
		Statuses:  filters.Statuses,
		Search:    filters.Search,
		Page:      filters.Page,
		Limit:     filters.PageSize,
		SortBy:    filters.SortBy,
		SortOrder: filters.SortOrder,
	}
	if !viewer.IsAdmin() {
		uid := viewer.UserID
		f.UserID = &uid
	}
	return s.projectRepo.List(ctx, f)
}

func (s *projectService) UpdateBrief(ctx context.Context, projectID uuid.UUID, viewer Viewer, updates *UpdateBriefInput) (*models.Project, error) {
	if updates == nil || (updates.ProductType == nil && updates.CreativeBrief == nil) {
		return nil, appErr.New(appErr.CodeInvalid, "nothing to update")
	}
	if updates.ProductType != nil && strings.TrimSpace(*updates.ProductType) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "product type cannot be empty")
	}

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if !viewer.canSee(&p) {
		return nil, appErr.New(appErr.CodeNotFound, "project not found")
	}
	if !lifecycle.CanClientEdit(p.Status) {
		return nil, appErr.New(appErr.CodeConflict, "project can no longer be edited").
			WithMeta("status", string(p.Status))
	}
	if err := s.projectRepo.UpdateBrief(ctx, projectID, updates.ProductType, updates.CreativeBrief); err != nil {
		return nil, err
	}
	return s.projectRepo.GetWithAssets(ctx, projectID)
}

func (s *projectService) GetStats(ctx context.Context, viewer Viewer) (*ProjectStats, error) {
	var userID *uuid.UUID
	if !viewer.IsAdmin() {
		uid := viewer.UserID
		userID = &uid
	}
	counts, err := s.projectRepo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &ProjectStats{ByStatus: make(map[models.ProjectStatus]int64, len(lifecycle.AllStatuses()))}
	for _, st := range lifecycle.AllStatuses() {
		stats.ByStatus[st] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}
	stats.Active = stats.ByStatus[models.StatusInQueue] + stats.ByStatus[models.StatusGenerating]
	stats.Completed = stats.ByStatus[models.StatusCompleted]
	stats.PendingReview = stats.ByStatus[models.StatusReviewReady]
	return stats, nil
}

// GetTransitionHistory returns the ledger of a project, newest first.
func (s *projectService) GetTransitionHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return s.history.History(ctx, projectID)
}

func (s *projectService) NextStatuses(ctx context.Context, projectID uuid.UUID) ([]lifecycle.StatusInfo, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	next := lifecycle.ValidNextStates(p.Status)
	out := make([]lifecycle.StatusInfo, 0, len(next))
	for _, st := range next {
		out = append(out, lifecycle.Info(st))
	}
	return out, nil
}
