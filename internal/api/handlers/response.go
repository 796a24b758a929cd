package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmagic/portal/internal/api/middleware"
	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/api/validators"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/services"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writePage(w http.ResponseWriter, r *http.Request, data any, page, size int, total int64) {
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    data,
		Meta: &types.Meta{
			RequestID: middleware.GetRequestID(r.Context()),
			Page:      page,
			PageSize:  size,
			Total:     total,
		},
	})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// fail maps err to its HTTP status. Server-side failures are logged with the
// request id; client errors are not.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		msg, details := validators.Describe(err)
		writeJSON(w, http.StatusBadRequest, types.APIResponse{
			Success: false,
			Error:   &types.APIError{Code: string(appErr.CodeInvalid), Message: msg, Details: details},
		})
		return false
	}
	return true
}

func viewerFrom(r *http.Request) (services.Viewer, error) {
	uid, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		return services.Viewer{}, appErr.New(appErr.CodeUnauthorized, "invalid session")
	}
	return services.Viewer{UserID: uid, Role: models.Role(middleware.GetRole(r.Context()))}, nil
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeInvalid, "invalid "+name).WithMeta(name, chi.URLParam(r, name))
	}
	return id, nil
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
