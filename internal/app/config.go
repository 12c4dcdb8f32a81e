package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultPublicRoutes = "/api/users/login,/health,/internal/maintenance/cleanup"

type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	Environment string
	SentryDSN   string

	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	JWTExpiration time.Duration

	LoginMaxAttempts     int
	LoginAttemptWindow   time.Duration
	AttemptSweepPeriod   time.Duration
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	PublicRoutes   []string
	TrustedProxies []string
	CronSecret     string

	AdminUsername string
	AdminPassword string
}

// LoadConfig reads the process environment. Only DATABASE_URL and
// JWT_SECRET are required; every other value falls back to its default.
func LoadConfig() (Config, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	return Config{
		DatabaseURL: databaseURL,
		RedisURL:    envOrDefault("REDIS_URL", ""),
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("APP_ENV", "development"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),

		JWTSecret:     jwtSecret,
		JWTIssuer:     envOrDefault("JWT_ISSUER", ""),
		JWTAudience:   envOrDefault("JWT_AUDIENCE", ""),
		JWTExpiration: envMillisOrDefault("JWT_EXPIRATION_MS", 432_000_000),

		LoginMaxAttempts:     envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginAttemptWindow:   envMinutesOrDefault("LOGIN_ATTEMPT_WINDOW_MINUTES", 15),
		AttemptSweepPeriod:   envSecondsOrDefault("LOGIN_ATTEMPT_SWEEP_SECONDS", 60),
		LoginRateLimitMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),

		PublicRoutes:   splitList(envOrDefault("PUBLIC_ROUTES", defaultPublicRoutes)),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		CronSecret:     os.Getenv("CRON_SECRET"),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMillisOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Millisecond
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
