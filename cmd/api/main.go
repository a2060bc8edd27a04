package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/ea-backend/config"
	httpapi "github.com/GoSim-25-26J-441/ea-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/ea-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/ea-backend/internal/api/http/routes"
	cronjob "github.com/GoSim-25-26J-441/ea-backend/internal/audit/cron"
	auditrepo "github.com/GoSim-25-26J-441/ea-backend/internal/audit/repository"
	auditservice "github.com/GoSim-25-26J-441/ea-backend/internal/audit/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/bootstrap"
	impactservice "github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	invrepo "github.com/GoSim-25-26J-441/ea-backend/internal/inventory/repository"
	invservice "github.com/GoSim-25-26J-441/ea-backend/internal/inventory/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/storage/postgres"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootstrap.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptionsFrom(&cfg.Database))
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	auditSvc := auditservice.NewAuditService(auditrepo.NewAuditRepository(sqlDB))
	revisions := invrepo.NewRevisionStore(rdb)
	inventory := invservice.NewInventoryService(
		invrepo.NewArtefactRepository(sqlDB),
		invrepo.NewRelationshipRepository(sqlDB),
		invrepo.NewImportRepository(sqlDB),
		revisions,
		auditSvc,
	)
	analyzer, err := impactservice.NewAnalyzer(inventory, cfg.Impact.CacheSize)
	if err != nil {
		return err
	}

	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	scheduler := cronjob.NewScheduler(auditSvc, cfg.Audit.PruneSchedule, retention)
	if err := scheduler.Start(); err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.RunSweeper(ctx, time.Minute)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: cfg.App.ServiceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimiter: limiter,
		DB:          pool,
		Redis:       httpapi.RedisPinger{Client: rdb},
		V1: routes.V1Deps{
			Auth:      cfg.Auth,
			Users:     users.NewRepo(pool),
			Inventory: inventory,
			Analyzer:  analyzer,
			Feed:      revisions,
			Audit:     auditSvc,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.App.Environment, "version", cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
