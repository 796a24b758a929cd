package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/services"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

type AssetsHandler struct {
	assets services.AssetService
}

func NewAssetsHandler(assets services.AssetService) *AssetsHandler {
	return &AssetsHandler{assets: assets}
}

// UploadURL is reachable without a session so the intake form can upload
// reference images before a project exists. Such uploads land under temp/.
func (h *AssetsHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req types.UploadURLRequest
	if !decode(w, r, &req) {
		return
	}
	viewer, _ := viewerFrom(r)
	in := &services.UploadURLInput{
		Type:     models.AssetType(req.Type),
		FileName: req.FileName,
		MimeType: req.MimeType,
		FileSize: req.FileSize,
	}
	if req.ProjectID != "" {
		if viewer.UserID == uuid.Nil {
			fail(w, r, appErr.New(appErr.CodeUnauthorized, "sign in to upload to a project"))
			return
		}
		id := uuid.MustParse(req.ProjectID)
		in.ProjectID = &id
	}
	out, err := h.assets.RequestUploadURL(r.Context(), viewer, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

func (h *AssetsHandler) Download(w http.ResponseWriter, r *http.Request) {
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
	url, err := h.assets.DownloadURL(r.Context(), id, viewer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]string{"download_url": url})
}

func (h *AssetsHandler) Approve(w http.ResponseWriter, r *http.Request) {
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
	a, err := h.assets.ApproveAsset(r.Context(), id, viewer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, a)
}

func (h *AssetsHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
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
	var req types.RevisionRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.assets.RequestRevision(r.Context(), id, viewer, req.Notes)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, a)
}
