package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/adapter/handler"
	"github.com/srgjo27/scalable_parking/internal/adapter/repository/postgres"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
	"github.com/srgjo27/scalable_parking/internal/platform/config"
	"github.com/srgjo27/scalable_parking/internal/platform/database"
	"github.com/srgjo27/scalable_parking/internal/platform/logger"
)

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed development tokens")
	withLots := flag.Bool("lots", true, "create demo lots when none exist")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log, *tokenTTL, *withLots); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger, tokenTTL time.Duration, withLots bool) error {
	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, database.Config{DSN: cfg.DSN(), MaxOpenConns: 2}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	store := postgres.NewStore(db)
	clk := clock.System{}

	admin, err := ensureUser(ctx, store, "admin", cfg.AdminEmail, domain.RoleAdmin, clk.Now())
	if err != nil {
		return err
	}
	demo, err := ensureUser(ctx, store, "demo", "demo@parking.local", domain.RoleUser, clk.Now())
	if err != nil {
		return err
	}

	adminIdentity := domain.Identity{SubjectID: admin.ID, Role: admin.Role}

	if withLots {
		lots := services.NewLotService(store, nil, clk, log, nil)
		existing, err := lots.ListLots(ctx, adminIdentity, false)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, in := range demoLots() {
				lot, err := lots.CreateLot(ctx, adminIdentity, in)
				if err != nil {
					return err
				}
				log.Info("demo lot created", zap.String("name", lot.Name), zap.String("lot_id", lot.ID.String()))
			}
		}
	}

	for _, u := range []*domain.User{admin, demo} {
		token, err := handler.IssueToken(cfg.JWTSecret, domain.Identity{SubjectID: u.ID, Role: u.Role}, tokenTTL, clk.Now())
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s): %s\n", u.Email, u.Role, token)
	}

	return nil
}

func ensureUser(ctx context.Context, store ports.Store, username, email string, role domain.Role, now time.Time) (*domain.User, error) {
	user, err := store.Users().GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user = &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: now.UTC(),
	}
	if err := store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func demoLots() []domain.CreateLotInput {
	mall, beach := "123 Shopping Ave, Downtown", "45 Ocean Dr, Coastline"
	mallPin, beachPin := "10001", "20002"
	return []domain.CreateLotInput{
		{Name: "City Mall Plaza", Address: &mall, PinCode: &mallPin, PricePerHour: 5.0, NumberOfSpots: 5},
		{Name: "Sunset Beach", Address: &beach, PinCode: &beachPin, PricePerHour: 8.5, NumberOfSpots: 3},
	}
}
