package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	DSN          string
	MaxOpenConns int
	MaxAttempts  uint
	RetryDelay   time.Duration
}

// NewPostgresDB opens the pool and waits until the server answers a ping.
func NewPostgresDB(ctx context.Context, cfg Config, log *zap.Logger) (*sql.DB, error) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}

	attempt := 0
	connect := func() (*sql.DB, error) {
		attempt++
		log.Info("connecting to database", zap.Int("attempt", attempt), zap.Uint("max_attempts", cfg.MaxAttempts))

		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}

		return db, nil
	}

	db, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.RetryDelay)),
		backoff.WithMaxTries(cfg.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn("database not ready yet", zap.Error(err), zap.Duration("retry_in", wait))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("database: connect after %d attempts: %w", attempt, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Info("database connected")
	return db, nil
}
