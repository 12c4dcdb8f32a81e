package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("JWT_SECRET", testSecret)
	for _, name := range []string{"JWT_EXPIRATION_MS", "LOGIN_MAX_ATTEMPTS", "LOGIN_ATTEMPT_WINDOW_MINUTES", "PUBLIC_ROUTES", "PORT"} {
		t.Setenv(name, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 432_000_000*time.Millisecond, cfg.JWTExpiration)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginAttemptWindow)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"/api/users/login", "/health", "/internal/maintenance/cleanup"}, cfg.PublicRoutes)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_EXPIRATION_MS", "60000")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("LOGIN_ATTEMPT_WINDOW_MINUTES", "invalid")
	t.Setenv("PUBLIC_ROUTES", " /health , ,/docs/** ")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.JWTExpiration)
	assert.Equal(t, 3, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginAttemptWindow)
	assert.Equal(t, []string{"/health", "/docs/**"}, cfg.PublicRoutes)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
}

func TestEnvBoolOrDefault(t *testing.T) {
	t.Setenv("FEATURE_FLAG", "yes")
	assert.True(t, EnvBoolOrDefault("FEATURE_FLAG", false))

	t.Setenv("FEATURE_FLAG", "off")
	assert.False(t, EnvBoolOrDefault("FEATURE_FLAG", true))

	t.Setenv("FEATURE_FLAG", "maybe")
	assert.True(t, EnvBoolOrDefault("FEATURE_FLAG", true))
}
