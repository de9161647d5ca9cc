package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/app"
	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/config"
	"github.com/shadowcc/keyshop/internal/keysource"
	"github.com/shadowcc/keyshop/internal/observability"
	transporthttp "github.com/shadowcc/keyshop/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	boot, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	config.LoadEnvFile(boot)

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		boot.Fatal("build logger", zap.Error(err))
	}
	_ = boot.Sync()
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	otlp := observability.OTLPConfig{Endpoint: cfg.OtelEndpoint, AuthHeader: cfg.OtelAuthHeader}
	tp, traceShutdown, err := observability.SetupTracing(startupCtx, otlp)
	if err != nil {
		logger.Fatal("setup tracing", zap.Error(err))
	}
	logShutdown, err := observability.SetupLogging(startupCtx, otlp)
	if err != nil {
		logger.Fatal("setup log export", zap.Error(err))
	}
	if otlp.Enabled() {
		logger = observability.WithOTelBridge(logger)
	}

	clk := clock.NewSystem()
	stores, err := openStores(startupCtx, cfg, clk, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}

	notifier, closeNotifier, err := newNotifier(cfg, tp, logger)
	if err != nil {
		logger.Fatal("create notifier", zap.String("notifier", cfg.Notifier), zap.Error(err))
	}

	source := keysource.NewFileSource(cfg.KeysFile)
	reconciler := app.NewInventoryReconciler(stores.keys, source, clk,
		app.WithResyncInterval(cfg.ResyncInterval),
		app.WithReconcilerLogger(logger.Named("reconciler")),
	)
	inventorySvc := app.NewInventoryService(stores.keys, reconciler, logger.Named("inventory"))
	orderSvc := app.NewOrderService(stores.orders, notifier, clk,
		app.WithConfirmURL(cfg.ConfirmURL()),
		app.WithOrderLogger(logger.Named("orders")),
	)

	if err := reconciler.EnsureSynced(startupCtx); err != nil {
		logger.Warn("initial inventory sync failed; retrying on first request", zap.Error(err))
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Inventory:      inventorySvc,
		Orders:         orderSvc,
		Refresher:      reconciler,
		Source:         source,
		Store:          stores.keys,
		Logger:         logger.Named("http"),
		CORSOrigins:    cfg.CORSOrigins,
		ConfirmPageURL: cfg.ConfirmPageURL,
		AdminToken:     cfg.AdminToken,
	})
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreBackend),
		zap.String("notifier", cfg.Notifier),
		zap.String("keys_file", cfg.KeysFile),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores.startBackground(stopCtx)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := closeNotifier(); err != nil {
		logger.Error("close notifier", zap.Error(err))
	}
	stores.close()
	if err := observability.ShutdownAll(shutdownCtx, traceShutdown, logShutdown); err != nil {
		logger.Error("telemetry shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
