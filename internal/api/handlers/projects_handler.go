package handlers

import (
	"net/http"

	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/services"
)

// ProjectsHandler serves the client dashboard. Every call is scoped to the
// caller through services.Viewer.
type ProjectsHandler struct {
	projects services.ProjectService
	assets   services.AssetService
}

func NewProjectsHandler(projects services.ProjectService, assets services.AssetService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, assets: assets}
}

// projectView adds the registry metadata the dashboard renders next to a project.
type projectView struct {
	*models.Project
	StatusInfo         lifecycle.StatusInfo `json:"status_info"`
	CanEdit            bool                 `json:"can_edit"`
	CanRequestRevision bool                 `json:"can_request_revision"`
}

func newProjectView(p *models.Project) projectView {
	return projectView{
		Project:            p,
		StatusInfo:         lifecycle.Info(p.Status),
		CanEdit:            lifecycle.CanClientEdit(p.Status),
		CanRequestRevision: lifecycle.CanRequestRevision(p.Status),
	}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, size := pageParams(r)
	filters := &services.ProjectFilters{Page: page, PageSize: size}
	if s, ok := lifecycle.ParseStatus(r.URL.Query().Get("status")); ok {
		filters.Statuses = []models.ProjectStatus{s}
	}
	items, total, err := h.projects.ListProjects(r.Context(), viewer, filters)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]projectView, 0, len(items))
	for i := range items {
		out = append(out, newProjectView(&items[i]))
	}
	writePage(w, r, out, page, size, total)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.projects.GetProject(r.Context(), id, viewer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, newProjectView(p))
}

func (h *ProjectsHandler) UpdateBrief(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req types.UpdateBriefRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.UpdateBrief(r.Context(), id, viewer, &services.UpdateBriefInput{
		ProductType:   req.ProductType,
		CreativeBrief: req.CreativeBrief,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, newProjectView(p))
}

func (h *ProjectsHandler) Assets(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.assets.ListProjectAssets(r.Context(), id, viewer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

func (h *ProjectsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	stats, err := h.projects.GetStats(r.Context(), viewer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, stats)
}
