package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mdm-platform/feedhub/internal/api"
	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/db"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
	"mdm-platform/feedhub/internal/routes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	if err := cfg.Validate(); err != nil {
		logging.Fatal("Invalid configuration", "error", err.Error())
	}

	logging.Info("feedhub starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to DB with GORM
	gdb, err := db.InitPostgresORM(ctx, cfg.Postgres.DSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		logging.Fatal("Failed to migrate schema", "error", err.Error())
	}

	metricsReg := metrics.NewMetricsRegistry()
	deps, err := api.InitDependencies(ctx, cfg, gdb, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}
	defer deps.Close()

	if cfg.Scheduler.Enabled {
		if err := deps.Scheduler.Load(ctx); err != nil {
			logging.Fatal("Failed to load schedules", "error", err.Error())
		}
		go deps.Scheduler.Start(ctx)
	} else {
		logging.Info("Scheduler disabled")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.RegisterRoutes(deps, cfg.RateLimit, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.HTTPAddr, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", "error", err.Error())
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err.Error())
	}
}
