package auth

import (
	"errors"
	"net/http"
	"strings"

	"user-portal/internal/observability"
)

// Gate turns a bearer token into a request scoped principal. It never
// rejects a request itself: invalid or expired tokens leave the request
// anonymous and the route guard decides.
type Gate struct {
	codec   *TokenCodec
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewGate(codec *TokenCodec, logger *observability.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{codec: codec, logger: logger, metrics: metrics}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Method, OptionsHTTPMethod) {
			w.WriteHeader(http.StatusOK)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, TokenPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		principal, err := g.codec.Validate(header[len(TokenPrefix):])
		switch {
		case err == nil:
			ctx = WithPrincipal(ctx, principal)
		case errors.Is(err, ErrTokenExpired):
			g.metrics.RecordTokenRejected(ctx, "expired")
			g.logger.Info("token_expired", map[string]any{"path": r.URL.Path})
			ctx = clearPrincipal(ctx)
		default:
			g.metrics.RecordTokenRejected(ctx, "invalid")
			ctx = clearPrincipal(ctx)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
