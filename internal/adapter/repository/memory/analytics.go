package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type analyticsRepo struct{ v view }

func (r analyticsRepo) Occupancy(ctx context.Context) (domain.Occupancy, error) {
	var occ domain.Occupancy
	err := r.v.with(func(st *state) error {
		for _, spot := range st.spots {
			occ.Total++
			if spot.IsOccupied() {
				occ.Occupied++
			}
		}
		occ.Available = occ.Total - occ.Occupied
		return nil
	})
	return occ, err
}

func (r analyticsRepo) OccupancyByLot(ctx context.Context) ([]domain.LotOccupancy, error) {
	var out []domain.LotOccupancy
	err := r.v.with(func(st *state) error {
		for _, lot := range sortedLots(st) {
			row := domain.LotOccupancy{LotID: lot.ID, LotName: lot.Name}
			for _, spot := range lotSpots(st, lot.ID) {
				row.Total++
				if spot.IsOccupied() {
					row.Occupied++
				}
			}
			row.Available = row.Total - row.Occupied
			out = append(out, row)
		}
		return nil
	})
	return out, err
}

func (r analyticsRepo) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.Cost != nil {
				total += *res.Cost
			}
		}
		return nil
	})
	return total, err
}

func (r analyticsRepo) CompletedSince(ctx context.Context, since time.Time) ([]domain.CompletedCost, error) {
	var out []domain.CompletedCost
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.LeftAt == nil || res.Cost == nil || res.LeftAt.Before(since) {
				continue
			}
			out = append(out, domain.CompletedCost{LeftAt: *res.LeftAt, Cost: *res.Cost})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].LeftAt.Before(out[j].LeftAt) })
		return nil
	})
	return out, err
}

func (r analyticsRepo) UserTotals(ctx context.Context, userID uuid.UUID) (domain.UserTotals, error) {
	var totals domain.UserTotals
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID != userID {
				continue
			}
			totals.TotalParkings++
			if res.Cost != nil {
				totals.TotalSpent += *res.Cost
			}
		}
		return nil
	})
	return totals, err
}

func (r analyticsRepo) RecentCosts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.CompletedCost, error) {
	var out []domain.CompletedCost
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID != userID || res.LeftAt == nil || res.Cost == nil {
				continue
			}
			out = append(out, domain.CompletedCost{LeftAt: *res.LeftAt, Cost: *res.Cost})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].LeftAt.After(out[j].LeftAt) })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r analyticsRepo) MonthlyActivity(ctx context.Context, from, to time.Time) ([]domain.MonthlyActivity, error) {
	var out []domain.MonthlyActivity
	err := r.v.with(func(st *state) error {
		byUser := make(map[uuid.UUID]*domain.MonthlyActivity)
		for _, res := range st.reservations {
			if res.LeftAt == nil || res.LeftAt.Before(from) || !res.LeftAt.Before(to) {
				continue
			}
			row, ok := byUser[res.UserID]
			if !ok {
				user := st.users[res.UserID]
				row = &domain.MonthlyActivity{
					UserID:   user.ID,
					Username: user.Username,
					Email:    user.Email,
					Month:    from,
				}
				byUser[res.UserID] = row
			}
			row.Visits++
			if res.Cost != nil {
				row.TotalSpent += *res.Cost
			}
		}
		for _, row := range byUser {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
		return nil
	})
	return out, err
}

func (r analyticsRepo) Mismatches(ctx context.Context) ([]domain.Mismatch, error) {
	var out []domain.Mismatch
	err := r.v.with(func(st *state) error {
		for _, lot := range sortedLots(st) {
			spots := lotSpots(st, lot.ID)
			if len(spots) != lot.NumberOfSpots {
				out = append(out, domain.Mismatch{
					Kind:    domain.MismatchCapacity,
					LotID:   lot.ID,
					Details: fmt.Sprintf("declared %d spots, found %d", lot.NumberOfSpots, len(spots)),
				})
			}
			for _, spot := range spots {
				_, active := st.activeOnSpot(spot.ID)
				if active != spot.IsOccupied() {
					out = append(out, domain.Mismatch{
						Kind:    domain.MismatchStatus,
						LotID:   lot.ID,
						SpotID:  spot.ID,
						Details: fmt.Sprintf("spot %d status %s, active reservation %t", spot.Number, spot.Status, active),
					})
				}
			}
		}
		return nil
	})
	return out, err
}
