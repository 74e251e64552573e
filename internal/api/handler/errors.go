package handler

import (
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
)

// writeError renders a service error. Internal causes are logged and never
// shown to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	response.AppError(w, err)
}

func badRequest(w http.ResponseWriter, message string, details any) {
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", message, details)
}
