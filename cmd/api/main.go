package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/adapter/cache"
	"github.com/srgjo27/scalable_parking/internal/adapter/handler"
	"github.com/srgjo27/scalable_parking/internal/adapter/queue"
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
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TelemetryEnabled)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	db, err := database.NewPostgresDB(ctx, database.Config{DSN: cfg.DSN(), MaxOpenConns: cfg.DBMaxOpenConns}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}
	log.Info("migrations applied")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	defer redisClient.Close()
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	queueClient := queue.NewClient(cfg.RedisAddr, log)
	defer queueClient.Close()

	inst, err := services.NewInstrumentation(otel.Meter(cfg.ServiceName), otel.Tracer(cfg.ServiceName))
	if err != nil {
		return err
	}

	store := postgres.NewStore(db)
	redisCache := cache.NewRedisCache(redisClient, "parking")
	clk := clock.System{}

	occupancy := services.NewOccupancyService(store, redisCache, clk, log, inst)
	lots := services.NewLotService(store, redisCache, clk, log, inst)
	analytics := services.NewAnalyticsService(store, redisCache, clk, loc, log)
	reports := services.NewReportService(store, queueClient, clk, loc, log)

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		JWTSecret:   cfg.JWTSecret,
		Parking:     handler.NewParkingHandler(occupancy, lots, analytics, log),
		Admin:       handler.NewAdminHandler(lots, analytics, reports, log),
		Log:         log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server exiting")
	return nil
}
