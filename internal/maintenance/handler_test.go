package maintenance

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-portal/internal/observability"
)

type stubSweeper struct {
	removed int
	left    int
	calls   int
}

func (s *stubSweeper) Sweep() int {
	s.calls++
	return s.removed
}

func (s *stubSweeper) Len() int { return s.left }

func newCleanup(sweeper Sweeper, secret string) *CleanupHandler {
	return NewCleanupHandler(sweeper, observability.NewLoggerTo(io.Discard), nil, secret)
}

func TestCleanupDisabledWithoutSecret(t *testing.T) {
	sweeper := &stubSweeper{}
	rec := httptest.NewRecorder()
	newCleanup(sweeper, "").Handle(rec, httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, sweeper.calls)
}

func TestCleanupRejectsWrongSecret(t *testing.T) {
	sweeper := &stubSweeper{}
	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer nope")

	rec := httptest.NewRecorder()
	newCleanup(sweeper, "cron-secret").Handle(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, sweeper.calls)
}

func TestCleanupSweeps(t *testing.T) {
	sweeper := &stubSweeper{removed: 3, left: 1}
	req := httptest.NewRequest(http.MethodGet, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")

	rec := httptest.NewRecorder()
	newCleanup(sweeper, "cron-secret").Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sweeper.calls)

	var body struct {
		Status string         `json:"status"`
		Result map[string]int `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Result["deleted_login_attempts"])
	assert.Equal(t, 1, body.Result["remaining"])
}

func TestCleanupMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/internal/maintenance/cleanup", nil)
	rec := httptest.NewRecorder()
	newCleanup(&stubSweeper{}, "cron-secret").Handle(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
