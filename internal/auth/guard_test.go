package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewGuardRejectsMatchAllRoutes(t *testing.T) {
	for _, route := range []string{"*", "**", "/*", "/**"} {
		_, err := NewGuard([]string{"/health", route})
		assert.Error(t, err, route)
	}
}

func TestNewGuardRejectsRelativeRoutes(t *testing.T) {
	_, err := NewGuard([]string{"health"})
	assert.Error(t, err)
}

func TestGuardPublicMatching(t *testing.T) {
	guard, err := NewGuard([]string{"/api/users/login", " /docs/** ", ""})
	require.NoError(t, err)

	assert.True(t, guard.IsPublic("/api/users/login"))
	assert.True(t, guard.IsPublic("/docs"))
	assert.True(t, guard.IsPublic("/docs/index.html"))

	assert.False(t, guard.IsPublic("/api/users/login/extra"))
	assert.False(t, guard.IsPublic("/docsx"))
	assert.False(t, guard.IsPublic("/api/users/me"))
	assert.False(t, guard.IsPublic("/"))
}

func TestGuardDeniesAnonymousOnProtectedRoute(t *testing.T) {
	guard, err := NewGuard([]string{"/health"})
	require.NoError(t, err)
	handler := guard.Middleware(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ForbiddenMessage, body["message"])
	assert.Equal(t, "UNAUTHORIZED", body["httpStatus"])
}

func TestGuardAllowsAuthenticatedRequest(t *testing.T) {
	guard, err := NewGuard(nil)
	require.NoError(t, err)

	ctx := WithPrincipal(context.Background(), Principal{Username: "alice"})
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	guard.Middleware(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthority(t *testing.T) {
	handler := RequireAuthority(AuthorityUserUpdate, okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/bob/unlock", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reader := WithPrincipal(context.Background(), Principal{Username: "alice", Authorities: []string{AuthorityUserRead}})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/bob/unlock", nil).WithContext(reader))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), AccessDeniedMessage)

	admin := WithPrincipal(context.Background(), Principal{Username: "root", Authorities: SuperAdminAuthorities})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/bob/unlock", nil).WithContext(admin))
	assert.Equal(t, http.StatusOK, rec.Code)
}
