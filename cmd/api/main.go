// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/entitlements/internal/admin"
	"github.com/carterperez-dev/entitlements/internal/admission"
	"github.com/carterperez-dev/entitlements/internal/auth"
	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/coupon"
	"github.com/carterperez-dev/entitlements/internal/health"
	"github.com/carterperez-dev/entitlements/internal/middleware"
	"github.com/carterperez-dev/entitlements/internal/notify"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/payment"
	"github.com/carterperez-dev/entitlements/internal/plan"
	"github.com/carterperez-dev/entitlements/internal/product"
	"github.com/carterperez-dev/entitlements/internal/quota"
	"github.com/carterperez-dev/entitlements/internal/sdk"
	"github.com/carterperez-dev/entitlements/internal/sdktoken"
	"github.com/carterperez-dev/entitlements/internal/server"
	"github.com/carterperez-dev/entitlements/internal/usage"
	"github.com/carterperez-dev/entitlements/internal/user"
)

const (
	drainDelay = 5 * time.Second
	sdkPrefix  = "/v1/sdk"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	go core.RefreshDNS(ctx)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	codec, err := sdktoken.NewCodec(cfg.SDKToken)
	if err != nil {
		return err
	}

	metrics := core.GetMetrics()

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, userSvc, auth.NewRedisBlacklist(redis.Client))
	authHandler := auth.NewHandler(authSvc)

	planSvc := plan.NewService(plan.NewRepository(db.DB))
	planHandler := plan.NewHandler(planSvc)

	couponSvc := coupon.NewService(coupon.NewRepository(db.DB), planSvc)
	couponHandler := coupon.NewHandler(couponSvc)

	productSvc := product.NewService(product.NewRepository(db.DB))
	productHandler := product.NewHandler(productSvc)

	usageSvc := usage.NewService(usage.NewRepository(db.DB), userSvc)
	usageHandler := usage.NewHandler(usageSvc)

	pkgRepo := packages.NewRepository(db.DB)
	pkgSvc := packages.NewService(
		pkgRepo,
		userSvc,
		planSvc,
		codec,
		packages.WithLogger(logger),
	)
	pkgHandler := packages.NewHandler(pkgSvc)

	paymentSvc := payment.NewService(
		payment.NewRepository(db.DB),
		planSvc,
		userSvc,
		pkgSvc,
		couponSvc,
		payment.NewPayPing(cfg.Payment, nil),
		cfg.Payment,
		logger,
	)
	paymentHandler := payment.NewHandler(paymentSvc, cfg.Payment.FrontendURL)

	notifySvc := notify.NewService(
		notify.NewRepository(db.DB),
		notify.NewSender(cfg.SMS, logger),
		logger,
	)
	notifyHandler := notify.NewHandler(notifySvc)

	ledger := quota.NewLedger(quota.NewRepository(db.DB), metrics, logger)

	gate := admission.NewGate(cfg.Admission, admission.Deps{
		Tokens:   codec,
		Accounts: userSvc,
		Packages: pkgRepo,
		Ledger:   ledger,
		Usage:    usageSvc,
		Metrics:  metrics,
		Logger:   logger,
	})
	sdkHandler := sdk.NewHandler(gate, productSvc, usageSvc)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db, Critical: true},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Packages:   pkgSvc,
	})

	ipLimiter := middleware.NewFixedWindowLimiter(redis.Client, middleware.RateLimitConfig{
		Name: "ip",
		Limit: middleware.NewLimit(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Requests,
			cfg.RateLimit.Window,
		),
		KeyFunc: middleware.KeyByIP,
		Metrics: metrics,
	})

	sdkLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name: "sdk",
		Limit: middleware.NewLimit(
			cfg.RateLimit.SDKRequests,
			cfg.RateLimit.SDKBurst,
			cfg.RateLimit.SDKWindow,
		),
		KeyFunc: middleware.KeyBySDKToken,
		Metrics: metrics,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(ipLimiter.Handler)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORSByPrefix(
		sdkPrefix,
		middleware.OpenCORS(cfg.CORS),
		middleware.CORS(cfg.CORS),
	))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(
			r,
			authenticator,
			adminOnly,
			usageHandler.RegisterAdminUserRoutes,
		)

		planHandler.RegisterRoutes(r)
		planHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		couponHandler.RegisterRoutes(r, authenticator)
		couponHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		productHandler.RegisterRoutes(r, authenticator)

		pkgHandler.RegisterRoutes(r, authenticator)
		pkgHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		paymentHandler.RegisterRoutes(r, authenticator)
		usageHandler.RegisterRoutes(r, authenticator)
		notifyHandler.RegisterRoutes(r, authenticator)

		sdkHandler.RegisterRoutes(r, sdkLimiter.Handler)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
