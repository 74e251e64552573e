package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/jobmarket/internal/api/middleware"
	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/internal/lifecycle"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("application_status", func(fl validator.FieldLevel) bool {
		_, ok := lifecycle.ParseApplicationStatus(fl.Field().String())
		return ok
	})
	v.RegisterValidation("job_status", func(fl validator.FieldLevel) bool {
		_, ok := lifecycle.ParseJobStatus(fl.Field().String())
		return ok
	})
	return v
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// decodeBody reads a JSON body into dst and validates it. On failure it writes
// a 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "Invalid JSON body", nil)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			badRequest(w, "Invalid request", nil)
			return false
		}
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		badRequest(w, "Request validation failed", details)
		return false
	}
	return true
}

// pathID parses a UUID URL parameter. On failure it writes a 400 and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, name+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		badRequest(w, name+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and limit. Missing or malformed values fall back to
// the store defaults.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func actorFrom(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := mw.GetActor(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing actor", nil)
	}
	return actor, ok
}
