package api

import (
	"net/http"
	"sync"

	"user-portal/internal/app"
	"user-portal/internal/httpresponse"
)

// buildRuntime runs once per warm instance. A failed build is remembered
// so every request to a broken instance fails fast with the same error.
var buildRuntime = sync.OnceValues(func() (*app.Runtime, error) {
	return app.Build(app.Options{
		RunMigrations: app.EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false),
	})
})

// Handler is the serverless entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	runtime, err := buildRuntime()
	if err != nil {
		httpresponse.Error(w, http.StatusInternalServerError, "application bootstrap failed")
		return
	}

	runtime.Handler.ServeHTTP(w, r)
}
