package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "user-portal/auth"

// Metrics holds the security counters of the authentication core. A nil
// *Metrics records nothing.
type Metrics struct {
	TokensIssued   metric.Int64Counter
	TokensRejected metric.Int64Counter
	LoginFailures  metric.Int64Counter
	AccountsLocked metric.Int64Counter
	AttemptsSwept  metric.Int64Counter
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{}

	var err error
	m.TokensIssued, err = meter.Int64Counter(
		"auth.tokens.issued",
		metric.WithDescription("Number of session tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}

	m.TokensRejected, err = meter.Int64Counter(
		"auth.tokens.rejected",
		metric.WithDescription("Number of bearer tokens rejected by the request gate"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.rejected counter: %w", err)
	}

	m.LoginFailures, err = meter.Int64Counter(
		"auth.login.failures",
		metric.WithDescription("Number of failed credential checks"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login.failures counter: %w", err)
	}

	m.AccountsLocked, err = meter.Int64Counter(
		"auth.accounts.locked",
		metric.WithDescription("Number of accounts locked after too many failed logins"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounts.locked counter: %w", err)
	}

	m.AttemptsSwept, err = meter.Int64Counter(
		"auth.attempts.swept",
		metric.WithDescription("Number of expired login attempt records purged"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts.swept counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordTokenIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.TokensIssued.Add(ctx, 1)
}

func (m *Metrics) RecordTokenRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.TokensRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordLoginFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.LoginFailures.Add(ctx, 1)
}

func (m *Metrics) RecordAccountLocked(ctx context.Context) {
	if m == nil {
		return
	}
	m.AccountsLocked.Add(ctx, 1)
}

func (m *Metrics) RecordAttemptsSwept(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.AttemptsSwept.Add(ctx, int64(count))
}
