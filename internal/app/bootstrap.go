package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"user-portal/internal/auth"
	"user-portal/internal/db"
	"user-portal/internal/httpresponse"
	"user-portal/internal/maintenance"
	"user-portal/internal/observability"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Config  Config
	Close   func() error
}

// Dependencies are the collaborators NewHandler wires into the request
// pipeline.
type Dependencies struct {
	Users    auth.UserStore
	Attempts auth.AttemptTracker
	// Sweeper is nil when attempts live in Redis and expire there.
	Sweeper maintenance.Sweeper
	Health  func(ctx context.Context) error
	Codec   *auth.TokenCodec
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Expiration: cfg.JWTExpiration,
	})
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	metrics, err := observability.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	ctx := context.Background()
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	users := auth.NewRepository(database)
	if err := bootstrapAdmin(ctx, users, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	closers := []func() error{
		func() error { stopSweeper(); return nil },
		func() error { observability.FlushSentry(); return nil },
		database.Close,
	}

	deps := Dependencies{
		Users:   users,
		Health:  users.Ping,
		Codec:   codec,
		Logger:  logger,
		Metrics: metrics,
	}

	if cfg.RedisURL != "" {
		redisOptions, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOptions)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = database.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, client.Close)
		deps.Attempts = auth.NewRedisAttempts(client, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)
	} else {
		cache := auth.NewAttemptCache(cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)
		cache.StartSweeper(sweepCtx, cfg.AttemptSweepPeriod, func(removed int) {
			metrics.RecordAttemptsSwept(sweepCtx, removed)
			logger.Info("login_attempts_swept", map[string]any{"deleted_login_attempts": removed})
		})
		deps.Attempts = cache
		deps.Sweeper = cache
	}

	handler, err := NewHandler(cfg, deps)
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, err
	}

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Close: func() error {
			var firstErr error
			for _, closeFn := range closers {
				if err := closeFn(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}, nil
}

// NewHandler assembles the request pipeline: panic recovery, the token
// gate, access logging, the deny-by-default guard and the routes.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, error) {
	guard, err := auth.NewGuard(cfg.PublicRoutes)
	if err != nil {
		return nil, fmt.Errorf("public routes: %w", err)
	}

	ipResolver, err := observability.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	authLogger := deps.Logger.With(map[string]any{"component": "auth"})
	service := auth.NewService(deps.Users, deps.Attempts, deps.Codec, authLogger, deps.Metrics)
	authHandler := auth.NewHandler(service)
	gate := auth.NewGate(deps.Codec, authLogger, deps.Metrics)
	cleanupHandler := maintenance.NewCleanupHandler(deps.Sweeper, deps.Logger.With(map[string]any{"component": "maintenance"}), deps.Metrics, cfg.CronSecret)
	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow, ipResolver.ClientIP)

	mux := http.NewServeMux()
	mux.Handle("POST /api/users/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/users/me", authHandler.Me)
	mux.Handle("POST /api/users/{username}/unlock", auth.RequireAuthority(auth.AuthorityUserUpdate, http.HandlerFunc(authHandler.Unlock)))
	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(deps.Health))

	logged := observability.RequestLoggingMiddleware(deps.Logger, principalFields, guard.Middleware(mux))
	return observability.RecoverMiddleware(deps.Logger, gate.Middleware(logged)), nil
}

func principalFields(r *http.Request) map[string]any {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return map[string]any{"username": principal.Username}
}

func bootstrapAdmin(ctx context.Context, users *auth.Repository, username, password string) error {
	if username == "" && password == "" {
		return nil
	}
	if username == "" || password == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}
	return users.UpsertAdmin(ctx, auth.NormalizeUsername(username), password)
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if ping != nil {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		httpresponse.JSON(w, status, body)
	}
}
