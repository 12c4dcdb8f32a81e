package auth

import (
	"context"
	"strings"

	"user-portal/internal/observability"
)

// FailureListener feeds rejected credential checks into the attempt
// tracker. The login flow calls it directly.
type FailureListener struct {
	attempts AttemptTracker
	logger   *observability.Logger
	metrics  *observability.Metrics
}

func NewFailureListener(attempts AttemptTracker, logger *observability.Logger, metrics *observability.Metrics) *FailureListener {
	return &FailureListener{attempts: attempts, logger: logger, metrics: metrics}
}

func (l *FailureListener) OnBadCredentials(ctx context.Context, event BadCredentialsEvent) {
	if event.Principal != nil {
		return
	}
	username := strings.TrimSpace(event.Username)
	if username == "" {
		return
	}

	l.metrics.RecordLoginFailure(ctx)
	if err := l.attempts.RecordFailure(ctx, username); err != nil {
		l.logger.Error("record_login_failure_failed", map[string]any{
			"username": username,
			"error":    err.Error(),
		})
	}
}
