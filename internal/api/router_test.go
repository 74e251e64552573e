package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/api"
	mw "github.com/kiranshivaraju/jobmarket/internal/api/middleware"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub key store ---

type stubKeyStore struct {
	keys []*models.APIKey
}

func (s *stubKeyStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}
func (s *stubKeyStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

// --- stub counter ---

type stubCounter struct{}

func (c *stubCounter) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter(keys ...*models.APIKey) http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubKeyStore{keys: keys}),
		RateLimit: mw.NewRateLimit(&stubCounter{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func keyWithRole(t *testing.T, raw string, role models.Role) *models.APIKey {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.APIKey{ID: uuid.New(), UserID: uuid.New(), Role: role, KeyHash: string(h), KeyPrefix: raw[:8]}
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()
	id := uuid.New().String()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs/" + id},
		{"POST", "/api/v1/jobs/" + id + "/transitions"},
		{"POST", "/api/v1/jobs/" + id + "/applications"},
		{"GET", "/api/v1/jobs/" + id + "/applications"},
		{"GET", "/api/v1/applications"},
		{"GET", "/api/v1/applications/" + id},
		{"POST", "/api/v1/applications/" + id + "/transitions"},
		{"POST", "/api/v1/admin/expire"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_RoleGatedEndpoints(t *testing.T) {
	const (
		companyKey    = "jm_comp_1234567890abcdef"
		ambassadorKey = "jm_amba_1234567890abcdef"
		adminKey      = "jm_admn_1234567890abcdef"
	)
	router := newTestRouter(
		keyWithRole(t, companyKey, models.RoleCompany),
		keyWithRole(t, ambassadorKey, models.RoleAmbassador),
		keyWithRole(t, adminKey, models.RoleAdmin),
	)
	jobPath := "/api/v1/jobs/" + uuid.New().String() + "/applications"

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		// Unwired handlers answer 501 once the role check passes.
		{"company creates job", "POST", "/api/v1/jobs", companyKey, http.StatusNotImplemented},
		{"ambassador cannot create job", "POST", "/api/v1/jobs", ambassadorKey, http.StatusForbidden},
		{"ambassador submits", "POST", jobPath, ambassadorKey, http.StatusNotImplemented},
		{"company cannot submit", "POST", jobPath, companyKey, http.StatusForbidden},
		{"admin cannot submit", "POST", jobPath, adminKey, http.StatusForbidden},
		{"admin expires", "POST", "/api/v1/admin/expire", adminKey, http.StatusNotImplemented},
		{"company cannot expire", "POST", "/api/v1/admin/expire", companyKey, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.key)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	var got string
	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubKeyStore{}),
		RateLimit: mw.NewRateLimit(&stubCounter{}, 60),
		HealthHandler: func(w http.ResponseWriter, r *http.Request) {
			got = chimw.GetReqID(r.Context())
			w.WriteHeader(http.StatusOK)
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, got)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
