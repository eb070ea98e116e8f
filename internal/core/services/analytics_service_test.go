package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/scalable_parking/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports/mocks"
	"github.com/srgjo27/scalable_parking/internal/core/services"
)

// park runs one full session that starts at from and lasts d.
func (f *fixture) park(t *testing.T, user domain.Identity, lot *domain.Lot, from time.Time, d time.Duration) {
	t.Helper()
	ctx := context.Background()
	f.clock.Set(from)
	_, err := f.occupancy.Allocate(ctx, user, services.AllocateRequest{LotID: lot.ID})
	require.NoError(t, err)
	f.clock.Advance(d)
	_, err = f.occupancy.Release(ctx, user, services.ReleaseRequest{})
	require.NoError(t, err)
}

func day(d, h int) time.Time {
	return time.Date(2025, 11, d, h, 0, 0, 0, time.UTC)
}

func TestRevenueByDay_ZeroFilledWindow(t *testing.T) {
	f := newFixture(t)
	lot := f.lot(t, 2, 10)
	user := f.user(t)

	f.park(t, user, lot, day(7, 9), time.Hour)
	f.park(t, user, lot, day(10, 9), 2*time.Hour)
	f.park(t, user, lot, day(14, 9), 30*time.Minute)

	revenue, err := f.analytics.RevenueByDay(context.Background())
	require.NoError(t, err)
	require.Len(t, revenue, 7)

	labels := make([]string, len(revenue))
	for i, r := range revenue {
		labels[i] = r.Label
	}
	assert.Equal(t, []string{"08-11", "09-11", "10-11", "11-11", "12-11", "13-11", "14-11"}, labels)
	assert.Equal(t, "2025-11-08", revenue[0].Date)
	assert.Equal(t, 0.0, revenue[0].Amount)
	assert.Equal(t, 20.0, revenue[2].Amount)
	assert.Equal(t, 10.0, revenue[6].Amount)
}

func TestRevenueByDay_UsesConfiguredTimezone(t *testing.T) {
	store := memory.New()
	f := newFixtureWithStore(t, store, nil)
	ist := time.FixedZone("IST", 5*3600+1800)
	f.analytics = services.NewAnalyticsService(store, nil, f.clock, ist, nil)
	lot := f.lot(t, 1, 10)
	user := f.user(t)

	// 20:00 UTC on the 13th is already the 14th in IST.
	f.park(t, user, lot, day(13, 19), time.Hour)

	revenue, err := f.analytics.RevenueByDay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "14-11", revenue[6].Label)
	assert.Equal(t, 10.0, revenue[6].Amount)
	assert.Equal(t, 0.0, revenue[5].Amount)
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, 3, 10)
	user := f.user(t)

	f.park(t, user, lot, day(7, 9), time.Hour)
	f.park(t, user, lot, day(14, 9), 90*time.Minute)
	_, err := f.occupancy.Allocate(ctx, f.user(t), services.AllocateRequest{LotID: lot.ID})
	require.NoError(t, err)

	dash, err := f.analytics.AdminDashboard(ctx, admin)
	require.NoError(t, err)

	assert.Equal(t, domain.Occupancy{Total: 3, Occupied: 1, Available: 2}, dash.Occupancy)
	require.Len(t, dash.Lots, 1)
	assert.Equal(t, lot.ID, dash.Lots[0].LotID)
	assert.Equal(t, 1, dash.Lots[0].Occupied)
	assert.Equal(t, 25.0, dash.TotalRevenue)
	assert.Len(t, dash.DailyRevenue, 7)
}

func TestAdminDashboard_Forbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.analytics.AdminDashboard(context.Background(), f.user(t))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAdminDashboard_CachedOnMiss(t *testing.T) {
	cache := mocks.NewCache(t)
	f := newFixtureWithStore(t, memory.New(), cache)

	cache.On("Get", mock.Anything, services.CacheKeyAdminStats, mock.Anything).Return(false, nil).Once()
	cache.On("Set", mock.Anything, services.CacheKeyAdminStats, mock.AnythingOfType("*domain.AdminDashboard"), services.AdminStatsTTL).Return(nil).Once()

	dash, err := f.analytics.AdminDashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Zero(t, dash.Occupancy.Total)
}

func TestUserDashboard_RecentOldestFirst(t *testing.T) {
	f := newFixture(t)
	lot := f.lot(t, 1, 10)
	user := f.user(t)
	other := f.user(t)

	for i := 1; i <= 6; i++ {
		f.park(t, user, lot, day(i, 9), time.Duration(i)*time.Hour)
	}
	f.park(t, other, lot, day(12, 9), time.Hour)

	dash, err := f.analytics.UserDashboard(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 6, dash.Stats.TotalParkings)
	assert.Equal(t, 210.0, dash.Stats.TotalSpent)
	require.Len(t, dash.Recent, 5)
	assert.Equal(t, "02 Nov", dash.Recent[0].Label)
	assert.Equal(t, 20.0, dash.Recent[0].Cost)
	assert.Equal(t, "06 Nov", dash.Recent[4].Label)
	assert.Equal(t, 60.0, dash.Recent[4].Cost)
}
