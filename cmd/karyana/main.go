package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karyana-pos/karyana-pos/internal/app"
	"github.com/karyana-pos/karyana-pos/internal/auth"
	"github.com/karyana-pos/karyana-pos/internal/catalog"
	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/platform/cache"
	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/sales"
	"github.com/karyana-pos/karyana-pos/internal/settings"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, ledgerService, auditLogger, metrics)
	salesHandler := sales.NewHandler(logger, salesService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, ledgerService, auditLogger, metrics)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService)

	if err := settingsService.InitializeDefaults(ctx, map[string]string{
		"shop_name": "Karyana Store",
		"currency":  "PKR",
	}); err != nil {
		logger.Warn("initialize default settings", slog.Any("error", err))
	}

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool, auditLogger)
	authService := auth.NewService(authRepo, tokenStore, auditLogger)
	authHandler := auth.NewHandler(logger, authService)

	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("seed admin account", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		CatalogHandler:  catalogHandler,
		LedgerHandler:   ledgerHandler,
		SalesHandler:    salesHandler,
		SettingsHandler: settingsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
