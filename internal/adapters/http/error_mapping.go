package httpadapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// mapErrorToHTTPStatus reports a rejection under its code's kind only; the
// collaborator error it wraps never changes the status.
func mapErrorToHTTPStatus(err error) int {
	if code, ok := domain.RejectionCodeOf(err); ok {
		err = code.Kind()
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrThrottled):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

type failureResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeFailure(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	noteFailureCode(ctx, code)
	writeJSON(w, status, failureResponse{OK: false, Code: code, Message: message})
}

// writeError answers a pipeline error with its code and the localized text.
// Errors without a rejection code never expose their text.
func (rt *Router) writeError(ctx context.Context, w http.ResponseWriter, err error, lang domain.Language) {
	status := mapErrorToHTTPStatus(err)
	code, ok := domain.RejectionCodeOf(err)
	if !ok {
		slog.ErrorContext(ctx, "unclassified_pipeline_error", "request_id", requestIDFromContext(ctx), "error", err)
		writeFailure(ctx, w, status, codeInternal, rt.catalog.Message(codeInternal, lang))
		return
	}
	writeFailure(ctx, w, status, string(code), rt.catalog.Message(string(code), lang))
}
