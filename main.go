package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/msomdec/agro-iam/internal/config"
	"github.com/msomdec/agro-iam/internal/geo"
	"github.com/msomdec/agro-iam/internal/handler"
	"github.com/msomdec/agro-iam/internal/repository/sqlite"
	"github.com/msomdec/agro-iam/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logOpts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	provider, err := geo.NewProvider(cfg.Geo, geo.NewHTTPClient(cfg.Geo.Timeout))
	if err != nil {
		slog.Error("failed to set up geolocation provider", "provider", cfg.Geo.Provider, "error", err)
		os.Exit(1)
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	resolver := geo.NewResolver(provider,
		geo.WithDefaultLocation(cfg.Geo.DefaultLocation),
		geo.WithTimeout(cfg.Geo.Timeout),
		geo.WithLogger(logger),
		geo.WithMetrics(geo.NewMetrics(prometheus.DefaultRegisterer)),
	)
	slog.Info("geolocation configured", "provider", provider.Name(), "timeout", cfg.Geo.Timeout)

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost, cfg.TokenTTL)
	userService := service.NewUserService(db.Users(), cfg.BcryptCost)

	router := handler.NewRouter(handler.Dependencies{
		Auth:           authService,
		Users:          userService,
		Locations:      resolver,
		Limiter:        limiter,
		Metrics:        promhttp.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
		TokenTTL:       cfg.TokenTTL,
		CookieSecure:   cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newLimiter returns a Redis-backed limiter when REDIS_URL is set and reachable,
// otherwise an in-memory token bucket.
func newLimiter(cfg *config.Config) (service.Limiter, func()) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = client.Ping(ctx).Err()
		if err == nil {
			slog.Info("rate limiting via redis", "limit", cfg.RateLimitBurst, "window", cfg.RateLimitWindow)
			return service.NewRedisLimiter(client, cfg.RateLimitBurst, cfg.RateLimitWindow), func() { client.Close() }
		}
		slog.Warn("redis unreachable, falling back to in-memory rate limiting", "error", err)
		client.Close()
	}

	tb := service.NewTokenBucket(cfg.RateLimitRate, float64(cfg.RateLimitBurst))
	return tb, tb.Stop
}
