package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicore/surgical-ops/internal/api/router"
	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/internal/board"
	"github.com/clinicore/surgical-ops/internal/cases"
	"github.com/clinicore/surgical-ops/internal/checklist"
	appconfig "github.com/clinicore/surgical-ops/internal/config"
	"github.com/clinicore/surgical-ops/internal/observability/metrics"
	"github.com/clinicore/surgical-ops/internal/theaterops"
	"github.com/clinicore/surgical-ops/internal/timeline"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

func main() {
	// Load .env in development; ignore when absent.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting surgical-ops API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The audit sink keeps its own database/sql handle; audit writes never
	// share a transaction with the clinical write they describe.
	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = auditDB.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	auditService := audit.NewService(auditDB)

	casesRepo := cases.NewRepository(pool)
	casesService := cases.NewService(casesRepo, logger.Named("cases"))

	checklistRepo := checklist.NewRepository(pool)
	checklistService := checklist.NewService(checklistRepo, casesService, auditService, engineMetrics, logger.Named("checklist"))

	timelineRepo := timeline.NewRepository(pool)
	timelineService := timeline.NewService(timelineRepo, casesService, auditService, engineMetrics, logger.Named("timeline"))

	theaterOpsService := theaterops.NewService(casesService, checklistService, auditService, engineMetrics, logger.Named("theaterops"))

	boardRepo := board.NewRepository(pool)
	boardBuilder := board.NewBuilder(boardRepo, engineMetrics, logger.Named("board"))

	routerCfg := &router.Config{
		Logger:             logger,
		TheaterOpsHandler:  theaterops.NewHandler(theaterOpsService, logger),
		ChecklistHandler:   checklist.NewHandler(checklistService, logger),
		TimelineHandler:    timeline.NewHandler(timelineService, logger),
		BoardHandler:       board.NewHandler(boardBuilder, logger),
		AuditHandler:       audit.NewHandler(auditService, logger),
		StaffJWTSecret:     cfg.StaffJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.ReadTimeout * 4,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
