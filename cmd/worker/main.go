package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/adapter/notify"
	"github.com/srgjo27/scalable_parking/internal/adapter/queue"
	"github.com/srgjo27/scalable_parking/internal/adapter/report"
	"github.com/srgjo27/scalable_parking/internal/adapter/repository/postgres"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
	"github.com/srgjo27/scalable_parking/internal/platform/config"
	"github.com/srgjo27/scalable_parking/internal/platform/database"
	"github.com/srgjo27/scalable_parking/internal/platform/logger"
	"github.com/srgjo27/scalable_parking/internal/platform/telemetry"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint, cfg.TelemetryEnabled)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	db, err := database.NewPostgresDB(ctx, database.Config{DSN: cfg.DSN(), MaxOpenConns: cfg.DBMaxOpenConns}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	store := postgres.NewStore(db)
	clk := clock.System{}

	worker := queue.NewWorker(queue.WorkerConfig{
		Reports:       services.NewReportService(store, nil, clk, loc, log),
		Renderer:      report.NewRenderer(loc),
		Notifier:      notify.NewLogNotifier(log),
		Clock:         clk,
		ReminderAfter: cfg.ReminderAfter,
		Log:           log,
	})

	server := queue.NewServer(cfg.RedisAddr, cfg.WorkerConcurrency, worker, log)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Shutdown()

	scheduler := queue.NewScheduler(cfg.RedisAddr, loc, log)
	if err := scheduler.RegisterPeriodic(cfg.ReminderCron, cfg.MonthlyReportCron); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Shutdown()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("worker stopping")
	return nil
}
