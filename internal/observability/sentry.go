package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Request headers that carry credentials and must not leave the process.
var scrubbedHeaders = []string{"Authorization", "Cookie", "Jwt-Token"}

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for _, name := range scrubbedHeaders {
		if _, ok := event.Request.Headers[name]; ok {
			event.Request.Headers[name] = redacted
		}
	}
	event.Request.Cookies = ""
	return event
}

// hubFor returns a per request hub so tags set while handling one request
// do not leak into another.
func hubFor(r *http.Request) *sentry.Hub {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.Scope().SetRequest(r)
	return hub
}

// CaptureError reports an unexpected failure tagged with the operation
// that produced it and the request id from the access log.
func CaptureError(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		if requestID := RequestID(ctx); requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		hub.CaptureException(err)
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
