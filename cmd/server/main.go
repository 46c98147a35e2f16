package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/warranty-register/config"
	"github.com/ErlanBelekov/warranty-register/internal/auth"
	"github.com/ErlanBelekov/warranty-register/internal/email"
	"github.com/ErlanBelekov/warranty-register/internal/health"
	"github.com/ErlanBelekov/warranty-register/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/warranty-register/internal/log"
	"github.com/ErlanBelekov/warranty-register/internal/metrics"
	"github.com/ErlanBelekov/warranty-register/internal/session"
	httptransport "github.com/ErlanBelekov/warranty-register/internal/transport/http"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/handler"
	"github.com/ErlanBelekov/warranty-register/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	for _, name := range cfg.Placeholders() {
		logger.Warn("using insecure placeholder, override before deploying", "var", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: "postgres", Pinger: pool})

	userRepo := postgres.NewUserRepository(pool)
	warrantyRepo := postgres.NewWarrantyRepository(pool)

	// Credentials, tokens, sessions
	creds := auth.NewCredentials(cfg.APIKey, cfg.BcryptCost)
	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.Algorithm, cfg.AccessTokenTTL())
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("tokens: %v", err)
	}
	sessions := session.NewStore(cfg.SessionTTL, logger)
	go sessions.Run(ctx, cfg.SessionSweepInterval)

	resolver := auth.NewResolver(tokens, creds, userRepo, sessions, cfg.AccountLookupTimeout, logger)

	authUsecase := usecase.NewAuthUsecase(userRepo, creds, tokens, sessions, cfg.AccessTokenTTL(), logger)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	warrantyUsecase := usecase.NewWarrantyUsecase(warrantyRepo, userRepo, creds, sender, cfg.WarrantyDurationDays, logger)

	if created, err := authUsecase.EnsureDefaultAdmin(ctx, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		logger.Error("default admin", "error", err)
	} else if created {
		logger.Warn("default admin created, change its password", "email", cfg.DefaultAdminEmail)
	}

	router, err := httptransport.NewRouter(logger, resolver, httptransport.Handlers{
		Info:     handler.NewInfoHandler(version),
		Auth:     handler.NewAuthHandler(authUsecase, logger),
		Warranty: handler.NewWarrantyHandler(warrantyUsecase, logger),
		Web:      handler.NewWebHandler(authUsecase, warrantyUsecase, resolver, cfg.SessionTTL, cfg.Env != "local", logger),
	}, httptransport.Options{
		Origins: cfg.Origins(),
		HSTS:    cfg.Env == "production",
		Debug:   cfg.Debug,
	})
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("router: %v", err)
	}

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
