package types

import (
	"net/http"

	appErr "github.com/modelmagic/portal/pkg/errors"
)

// FromAppError converts err into the wire error. Internal failures never
// leak their wrapped cause.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	e := appErr.As(err)
	msg := e.Message
	if e.Code == appErr.CodeInternal || e.Code == appErr.CodeUnknown {
		msg = "internal server error"
	}
	out := &APIError{Code: string(e.Code), Message: msg}
	if len(e.Meta) > 0 {
		out.Details = e.Meta
	}
	return out
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalid, appErr.CodeInvalidTransition:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict, appErr.CodeAlreadyExists:
		return http.StatusConflict
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	case appErr.CodeDeadline:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
