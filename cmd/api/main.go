package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowcart/glowcart-backend/api/routes"
	"github.com/glowcart/glowcart-backend/internal/reservations"
	"github.com/glowcart/glowcart-backend/internal/stock"
	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/db"
	"github.com/glowcart/glowcart-backend/pkg/env"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/metrics"
	"github.com/glowcart/glowcart-backend/pkg/migrate"
	"github.com/glowcart/glowcart-backend/pkg/outbox"
	"github.com/glowcart/glowcart-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reservationMetrics := metrics.NewReservationMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	ledger, err := stock.NewLedger(logg)
	if err != nil {
		logg.Error(ctx, "failed to create stock ledger", err)
		os.Exit(1)
	}
	auditor, err := stock.NewAuditor(ledger, dbClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to create stock auditor", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	reservationRepo := reservations.NewRepository(dbClient.DB())

	reservationService, err := reservations.NewService(reservations.ServiceParams{
		DB:         dbClient,
		Repository: reservationRepo,
		Ledger:     ledger,
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    reservationMetrics,
		Config:     cfg.Reservation,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reservation service", err)
		os.Exit(1)
	}

	// The API keeps its own sweeper for the admin trigger; scheduled sweeps run in cron-worker.
	sweeper, err := reservations.NewSweeper(reservations.SweeperParams{
		DB:         dbClient,
		Repository: reservationRepo,
		Ledger:     ledger,
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    reservationMetrics,
		Config:     cfg.Reservation,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reservation sweeper", err)
		os.Exit(1)
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			httpMetrics,
			reservationService,
			reservationService,
			sweeper,
			auditor,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "api server shutdown failed", err)
	}
}
