// Package response writes the JSON envelopes every endpoint returns.
//
// Success bodies are {"data": ...}, listings add {"meta": ...} and failures are
// {"error": {"code", "message", "details"}}. Application records carry
// applicant data, so nothing is cacheable by intermediaries.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/jobmarket/internal/apperr"
)

type envelope struct {
	Data any `json:"data"`
}

type pageEnvelope struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindInvalidTransition: http.StatusUnprocessableEntity,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// StatusFor is the HTTP status an error kind is reported with.
func StatusFor(kind apperr.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

// Page writes one page of a listing. An empty page is rendered as [] rather
// than null.
func Page[T any](w http.ResponseWriter, items []T, page, limit, total int) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, pageEnvelope{Data: items, Meta: PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	}})
}

// AppError reports a service error by its kind. Internal errors get a
// generic message; the cause stays with the caller for logging.
func AppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	Error(w, StatusFor(kind), string(kind), apperr.Reason(err), nil)
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "status", status, "error", err)
	}
}
