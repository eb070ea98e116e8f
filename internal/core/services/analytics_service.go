package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

const (
	revenueWindowDays = 7
	recentCostsLimit  = 5

	dayKeyLayout    = "2006-01-02"
	dayLabelLayout  = "02-01"
	costLabelLayout = "02 Jan"
)

// AnalyticsService computes read-only rollups. Calendar days are taken in loc.
type AnalyticsService struct {
	store ports.Store
	cache ports.Cache
	clock clock.Clock
	loc   *time.Location
	log   *zap.Logger
}

func NewAnalyticsService(store ports.Store, cache ports.Cache, clk clock.Clock, loc *time.Location, log *zap.Logger) *AnalyticsService {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalyticsService{
		store: store,
		cache: cache,
		clock: clk,
		loc:   loc,
		log:   log.Named("analytics"),
	}
}

// AdminDashboard is occupancy plus revenue, cached for AdminStatsTTL.
func (s *AnalyticsService) AdminDashboard(ctx context.Context, identity domain.Identity) (*domain.AdminDashboard, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return readThrough(ctx, s.cache, s.log, CacheKeyAdminStats, AdminStatsTTL, s.buildAdminDashboard)
}

func (s *AnalyticsService) buildAdminDashboard(ctx context.Context) (*domain.AdminDashboard, error) {
	analytics := s.store.Analytics()

	occupancy, err := analytics.Occupancy(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := analytics.OccupancyByLot(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := analytics.TotalRevenue(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.RevenueByDay(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.AdminDashboard{
		Occupancy:    occupancy,
		Lots:         lots,
		TotalRevenue: roundCents(revenue),
		DailyRevenue: daily,
		GeneratedAt:  s.clock.Now().UTC(),
	}, nil
}

// RevenueByDay buckets finished reservations by the day they ended over the
// trailing window ending today. Every day of the window is present.
func (s *AnalyticsService) RevenueByDay(ctx context.Context) ([]domain.DailyRevenue, error) {
	today := startOfDay(s.clock.Now().In(s.loc))
	first := today.AddDate(0, 0, -(revenueWindowDays - 1))

	completed, err := s.store.Analytics().CompletedSince(ctx, first.UTC())
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64, revenueWindowDays)
	for _, c := range completed {
		sums[c.LeftAt.In(s.loc).Format(dayKeyLayout)] += c.Cost
	}

	days := make([]domain.DailyRevenue, 0, revenueWindowDays)
	for i := 0; i < revenueWindowDays; i++ {
		day := first.AddDate(0, 0, i)
		key := day.Format(dayKeyLayout)
		days = append(days, domain.DailyRevenue{
			Date:   key,
			Label:  day.Format(dayLabelLayout),
			Amount: roundCents(sums[key]),
		})
	}
	return days, nil
}

// UserDashboard is the caller's lifetime totals and their last few costs,
// oldest first.
func (s *AnalyticsService) UserDashboard(ctx context.Context, identity domain.Identity) (*domain.UserDashboard, error) {
	analytics := s.store.Analytics()

	totals, err := analytics.UserTotals(ctx, identity.SubjectID)
	if err != nil {
		return nil, err
	}
	totals.TotalSpent = roundCents(totals.TotalSpent)

	recent, err := analytics.RecentCosts(ctx, identity.SubjectID, recentCostsLimit)
	if err != nil {
		return nil, err
	}

	points := make([]domain.CostPoint, len(recent))
	for i, c := range recent {
		points[len(recent)-1-i] = domain.CostPoint{
			Label: c.LeftAt.In(s.loc).Format(costLabelLayout),
			Cost:  c.Cost,
		}
	}

	return &domain.UserDashboard{Stats: totals, Recent: points}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
