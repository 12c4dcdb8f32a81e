package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	called    bool
	principal Principal
	present   bool
}

func captureHandler(captured *capturedRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.called = true
		captured.principal, captured.present = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func serveGate(t *testing.T, gate *Gate, req *http.Request) (*httptest.ResponseRecorder, capturedRequest) {
	t.Helper()

	var captured capturedRequest
	rec := httptest.NewRecorder()
	gate.Middleware(captureHandler(&captured)).ServeHTTP(rec, req)
	return rec, captured
}

func TestGateAnswersPreflightWithoutCallingNext(t *testing.T) {
	gate := NewGate(newTestCodec(t), discardLogger(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec, captured := serveGate(t, gate, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, captured.called)
}

func TestGatePassesRequestsWithoutBearerHeader(t *testing.T) {
	gate := NewGate(newTestCodec(t), discardLogger(), nil)

	for name, header := range map[string]string{
		"missing":      "",
		"basic scheme": "Basic YWxpY2U6c2VjcmV0",
		"lowercase":    "bearer abc",
		"no space":     "Bearerabc",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec, captured := serveGate(t, gate, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.True(t, captured.called)
			assert.False(t, captured.present)
		})
	}
}

func TestGateInstallsPrincipalForValidToken(t *testing.T) {
	codec := newTestCodec(t)
	gate := NewGate(codec, discardLogger(), nil)

	token, err := codec.Issue(Principal{Username: "alice", Authorities: []string{AuthorityUserRead}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	_, captured := serveGate(t, gate, req)

	require.True(t, captured.present)
	assert.Equal(t, "alice", captured.principal.Username)
	assert.Equal(t, []string{AuthorityUserRead}, captured.principal.Authorities)
}

func TestGateClearsPrincipalForInvalidToken(t *testing.T) {
	gate := NewGate(newTestCodec(t), discardLogger(), nil)

	ctx := WithPrincipal(context.Background(), Principal{Username: "stale"})
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil).WithContext(ctx)
	req.Header.Set("Authorization", TokenPrefix+"not-a-token")
	rec, captured := serveGate(t, gate, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, captured.called)
	assert.False(t, captured.present)
}

func TestGateClearsPrincipalForExpiredToken(t *testing.T) {
	codec := newTestCodec(t)
	clock := newFakeClock()
	codec.now = clock.Now
	gate := NewGate(codec, discardLogger(), nil)

	token, err := codec.Issue(Principal{Username: "alice", Authorities: []string{AuthorityUserRead}})
	require.NoError(t, err)
	clock.Advance(DefaultTokenExpiration + time.Minute)

	ctx := WithPrincipal(context.Background(), Principal{Username: "stale"})
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil).WithContext(ctx)
	req.Header.Set("Authorization", TokenPrefix+token)
	_, captured := serveGate(t, gate, req)

	assert.True(t, captured.called)
	assert.False(t, captured.present)
}

func TestPrincipalContextIsolation(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{Username: "alice"})

	principal, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", principal.Username)

	_, ok = PrincipalFromContext(clearPrincipal(ctx))
	assert.False(t, ok)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
