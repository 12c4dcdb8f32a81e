package observability

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"user-portal/internal/httpresponse"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the identifier assigned by RequestLoggingMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.statusCode = status
	r.ResponseWriter.WriteHeader(status)
}

// FieldsFunc contributes request specific fields, such as the authenticated
// username, to the access log entry. It runs after the handler.
type FieldsFunc func(r *http.Request) map[string]any

// RequestLoggingMiddleware tags each request with an id, echoes it in the
// response and writes one access log entry per request.
func RequestLoggingMiddleware(logger *Logger, enrich FieldsFunc, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		fields := map[string]any{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          ClientIP(r),
		}
		if enrich != nil {
			for key, value := range enrich(r) {
				fields[key] = value
			}
		}
		logger.Info("http_request", fields)
	})
}

// RecoverMiddleware binds a Sentry hub to the request and turns a panic
// into a 500 with the standard error body.
func RecoverMiddleware(logger *Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := hubFor(r)
		r = r.WithContext(sentry.SetHubOnContext(r.Context(), hub))

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("stack", string(debug.Stack()))
				hub.RecoverWithContext(r.Context(), rec)
			})
			logger.Error("panic_recovered", map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"panic":  rec,
			})

			httpresponse.Error(w, http.StatusInternalServerError, "An error occurred while processing the request")
		}()

		next.ServeHTTP(w, r)
	})
}
