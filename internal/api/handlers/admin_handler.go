package handlers

import (
	"net/http"
	"strings"

	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/services"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

// AdminHandler drives the project lifecycle. Routes are mounted behind
// middleware.RequireAdmin.
type AdminHandler struct {
	projects  services.ProjectService
	lifecycle services.ProjectLifecycleService
	assets    services.AssetService
}

func NewAdminHandler(projects services.ProjectService, lc services.ProjectLifecycleService, assets services.AssetService) *AdminHandler {
	return &AdminHandler{projects: projects, lifecycle: lc, assets: assets}
}

type transitionView struct {
	Project        projectView            `json:"project"`
	PreviousStatus models.ProjectStatus   `json:"previous_status"`
	SideEffects    []lifecycle.SideEffect `json:"side_effects"`
}

func newTransitionView(res *lifecycle.TransitionResult) *transitionView {
	if res == nil {
		return nil
	}
	return &transitionView{
		Project:        newProjectView(res.Project),
		PreviousStatus: res.PreviousStatus,
		SideEffects:    res.SideEffects,
	}
}

func (h *AdminHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	q := r.URL.Query()
	page, size := pageParams(r)
	filters := &services.ProjectFilters{
		Search:    q.Get("search"),
		Page:      page,
		PageSize:  size,
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, ok := lifecycle.ParseStatus(part)
			if !ok {
				fail(w, r, appErr.New(appErr.CodeInvalid, "unknown status").WithMeta("status", part))
				return
			}
			filters.Statuses = append(filters.Statuses, s)
		}
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

func (h *AdminHandler) AssignPackage(w http.ResponseWriter, r *http.Request) {
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
	var req types.AssignPackageRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.lifecycle.AssignPackage(r.Context(), id, &services.AssignPackageInput{
		PackageType:    req.PackageType,
		PaymentLinkURL: req.PaymentLinkURL,
		ActorID:        &viewer.UserID,
		SendEmail:      boolOr(req.SendEmail, true),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, newTransitionView(res))
}

func (h *AdminHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
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
	var req types.MarkPaidRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.lifecycle.MarkProjectPaid(r.Context(), id, &services.MarkPaidInput{
		ActorID:       &viewer.UserID,
		SendMagicLink: boolOr(req.SendMagicLink, true),
		Notes:         req.Notes,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]*transitionView{
		"paid":   newTransitionView(res.Paid),
		"queued": newTransitionView(res.Queued),
	})
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	var req types.UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	to, ok := lifecycle.ParseStatus(req.Status)
	if !ok {
		fail(w, r, appErr.New(appErr.CodeInvalid, "unknown status").WithMeta("status", req.Status))
		return
	}
	res, err := h.lifecycle.UpdateProjectStatus(r.Context(), id, to, &viewer.UserID, req.Notes)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, newTransitionView(res))
}

func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	rows, err := h.projects.GetTransitionHistory(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rows)
}

func (h *AdminHandler) NextStatuses(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	next, err := h.projects.NextStatuses(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, next)
}

func (h *AdminHandler) AddAssets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req types.AddAssetsRequest
	if !decode(w, r, &req) {
		return
	}
	files := make([]services.AssetFile, 0, len(req.Assets))
	for _, a := range req.Assets {
		files = append(files, services.AssetFile{
			FileName: a.FileName,
			FileKey:  a.FileKey,
			MimeType: a.MimeType,
			FileSize: a.FileSize,
			Width:    a.Width,
			Height:   a.Height,
		})
	}
	out, err := h.assets.AddGeneratedAssets(r.Context(), id, files)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, out)
}

func (h *AdminHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.assets.DeleteAsset(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
