package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/scalable_parking/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

var (
	start = time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)
	admin = domain.Identity{SubjectID: uuid.New(), Role: domain.RoleAdmin}
)

type fixture struct {
	store     *memory.Store
	clock     *clock.FakeClock
	occupancy *services.OccupancyService
	lots      *services.LotService
	analytics *services.AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), nil)
}

func newFixtureWithStore(t *testing.T, store *memory.Store, cache ports.Cache) *fixture {
	t.Helper()
	clk := clock.NewFakeClock(start)
	return &fixture{
		store:     store,
		clock:     clk,
		occupancy: services.NewOccupancyService(store, cache, clk, nil, nil),
		lots:      services.NewLotService(store, cache, clk, nil, nil),
		analytics: services.NewAnalyticsService(store, cache, clk, time.UTC, nil),
	}
}

func (f *fixture) user(t *testing.T) domain.Identity {
	t.Helper()
	id := uuid.New()
	u := &domain.User{
		ID:        id,
		Username:  "user-" + id.String()[:8],
		Email:     fmt.Sprintf("%s@example.com", id),
		Role:      domain.RoleUser,
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return domain.Identity{SubjectID: id, Role: domain.RoleUser}
}

func (f *fixture) lot(t *testing.T, spots int, price float64) *domain.Lot {
	t.Helper()
	lot, err := f.lots.CreateLot(context.Background(), admin, domain.CreateLotInput{
		Name:          "City Mall Plaza",
		PricePerHour:  price,
		NumberOfSpots: spots,
	})
	require.NoError(t, err)
	return lot
}

// assertConsistent checks the capacity and status invariants against the store.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	mismatches, err := f.store.Analytics().Mismatches(ctx)
	require.NoError(t, err)
	require.Empty(t, mismatches)

	lots, err := f.store.Lots().List(ctx)
	require.NoError(t, err)
	for _, lot := range lots {
		spots, err := f.store.Spots().ListByLot(ctx, lot.ID)
		require.NoError(t, err)
		occupied, available := 0, 0
		for _, s := range spots {
			switch s.Status {
			case domain.SpotOccupied:
				occupied++
			case domain.SpotAvailable:
				available++
			}
		}
		require.Equal(t, lot.NumberOfSpots, occupied+available)
	}
}
