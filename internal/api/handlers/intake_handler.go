package handlers

import (
	"net/http"

	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/services"
)

// IntakeHandler accepts the public intake form.
type IntakeHandler struct {
	projects services.ProjectService
}

func NewIntakeHandler(projects services.ProjectService) *IntakeHandler {
	return &IntakeHandler{projects: projects}
}

func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req types.IntakeRequest
	if !decode(w, r, &req) {
		return
	}
	in := &services.CreateProjectInput{
		Name:          req.Name,
		Email:         req.Email,
		ProductType:   req.ProductType,
		CreativeBrief: req.CreativeBrief,
	}
	for _, img := range req.ReferenceImages {
		in.ReferenceImages = append(in.ReferenceImages, services.ReferenceImage{
			FileName: img.FileName,
			FileURL:  img.FileURL,
			FileKey:  img.FileKey,
			MimeType: img.MimeType,
			FileSize: img.FileSize,
		})
	}
	p, err := h.projects.CreateProject(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]any{
		"project_id": p.ID,
		"status":     p.Status,
		"message":    "Your request has been received. Check your email for next steps.",
	})
}
