package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/jobmarket/internal/api/middleware"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock KeyStore ---

type mockKeyStore struct {
	keys []*models.APIKey
	err  error
}

func (m *mockKeyStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return m.keys, m.err
}
func (m *mockKeyStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

// --- Mock Counter ---

type mockCounter struct {
	counter int64
	err     error
}

func (m *mockCounter) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	m.counter++
	return m.counter, m.err
}

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func hashKey(t *testing.T, rawKey string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func keyFor(t *testing.T, rawKey string, role models.Role) *models.APIKey {
	t.Helper()
	return &models.APIKey{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Role:      role,
		KeyHash:   hashKey(t, rawKey),
		KeyPrefix: rawKey[:8],
	}
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func authed(rawKey string) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	return req
}

// ========================================
// Auth Middleware Tests
// ========================================

func TestAuth_MissingAuthHeader(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{})
	handler := auth.Authenticate(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errBody(t, w)["code"])
}

func TestAuth_InvalidBearerFormat(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{})
	handler := auth.Authenticate(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_KeyTooShort(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{})
	handler := auth.Authenticate(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed("short"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_KeyNotFound(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{}})
	handler := auth.Authenticate(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed("jm_test1234567890"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_StoreError(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{err: errors.New("db down")})
	handler := auth.Authenticate(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed("jm_test1234567890"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestAuth_WrongPassword(t *testing.T) {
	rawKey := "jm_test1234567890abcdef"
	key := keyFor(t, "different_key_entirely", models.RoleCompany)
	key.KeyPrefix = rawKey[:8]
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{key}})
	handler := auth.Authenticate(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed(rawKey))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_SystemRoleKeyRejected(t *testing.T) {
	rawKey := "jm_sys__1234567890abcdef"
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{keyFor(t, rawKey, models.RoleSystem)}})
	handler := auth.Authenticate(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed(rawKey))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidKey(t *testing.T) {
	rawKey := "jm_test1234567890abcdef"
	key := keyFor(t, rawKey, models.RoleAmbassador)
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{key}})

	var got models.Actor
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotOK = mw.GetActor(r)
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Authenticate(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed(rawKey))

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, gotOK)
	assert.Equal(t, key.UserID, got.ID)
	assert.Equal(t, models.RoleAmbassador, got.Role)
}

func TestAuth_RequireRole_Allowed(t *testing.T) {
	rawKey := "jm_admin_1234567890abcdef"
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{keyFor(t, rawKey, models.RoleAdmin)}})

	handler := auth.Authenticate(auth.RequireRole(models.RoleCompany, models.RoleAdmin)(okHandler()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed(rawKey))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_RequireRole_Denied(t *testing.T) {
	rawKey := "jm_amb__1234567890abcdef"
	auth := mw.NewAuth(&mockKeyStore{keys: []*models.APIKey{keyFor(t, rawKey, models.RoleAmbassador)}})

	handler := auth.Authenticate(auth.RequireRole(models.RoleAdmin)(okHandler()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authed(rawKey))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errBody(t, w)["code"])
}

func TestAuth_RequireRole_NoActor(t *testing.T) {
	auth := mw.NewAuth(&mockKeyStore{})
	handler := auth.RequireRole(models.RoleAdmin)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func withPrefix(prefix string) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	return req.WithContext(mw.SetKeyPrefix(req.Context(), prefix))
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	rl := mw.NewRateLimit(&mockCounter{}, 60)
	handler := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withPrefix("jm_test1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	mc := &mockCounter{counter: 60} // next IncrWithExpiry will return 61
	rl := mw.NewRateLimit(mc, 60)
	handler := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withPrefix("jm_over1"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody(t, w)["code"])
}

func TestRateLimit_CounterErrorFailsOpen(t *testing.T) {
	rl := mw.NewRateLimit(&mockCounter{err: errors.New("redis down")}, 60)
	handler := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withPrefix("jm_test1"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_DefaultLimit(t *testing.T) {
	rl := mw.NewRateLimit(&mockCounter{}, 0)
	handler := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withPrefix("jm_test1"))

	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_NoKeyPrefix_PassThrough(t *testing.T) {
	rl := mw.NewRateLimit(&mockCounter{}, 60)
	handler := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	handler := mw.Recovery(panicking)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := mw.Recovery(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_SetsStatus(t *testing.T) {
	handler := chimw.RequestID(mw.Logger(okHandler()))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogger_PassesThroughErrorStatus(t *testing.T) {
	handler := mw.Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}
