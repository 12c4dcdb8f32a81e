package maintenance

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"user-portal/internal/httpresponse"
	"user-portal/internal/observability"
)

// Sweeper purges expired login attempt records.
type Sweeper interface {
	Sweep() int
	Len() int
}

type CleanupHandler struct {
	sweeper    Sweeper
	logger     *observability.Logger
	metrics    *observability.Metrics
	cronSecret string
}

func NewCleanupHandler(sweeper Sweeper, logger *observability.Logger, metrics *observability.Metrics, cronSecret string) *CleanupHandler {
	return &CleanupHandler{
		sweeper:    sweeper,
		logger:     logger,
		metrics:    metrics,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" || h.sweeper == nil {
		httpresponse.Error(w, http.StatusNotFound, "There is no mapping for this URL")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, secret, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(secret)), []byte(h.cronSecret)) != 1 {
		httpresponse.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	removed := h.sweeper.Sweep()
	h.metrics.RecordAttemptsSwept(r.Context(), removed)
	h.logger.Info("login_attempt_cleanup_completed", map[string]any{
		"deleted_login_attempts": removed,
		"remaining":              h.sweeper.Len(),
	})

	httpresponse.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": map[string]int{
			"deleted_login_attempts": removed,
			"remaining":              h.sweeper.Len(),
		},
	})
}
