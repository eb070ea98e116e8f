package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type AnalyticsRepository struct {
	db querier
}

func (r *AnalyticsRepository) Occupancy(ctx context.Context) (domain.Occupancy, error) {
	var occ domain.Occupancy
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'O') FROM parking_spots`
	if err := r.db.QueryRowContext(ctx, query).Scan(&occ.Total, &occ.Occupied); err != nil {
		return domain.Occupancy{}, fmt.Errorf("AnalyticsRepository.Occupancy: %w", err)
	}
	occ.Available = occ.Total - occ.Occupied
	return occ, nil
}

func (r *AnalyticsRepository) OccupancyByLot(ctx context.Context) ([]domain.LotOccupancy, error) {
	query := `
	SELECT l.id, l.prime_location_name, COUNT(s.id), COUNT(s.id) FILTER (WHERE s.status = 'O')
	FROM parking_lots l
	LEFT JOIN parking_spots s ON s.lot_id = l.id
	GROUP BY l.id
	ORDER BY l.created_at, l.prime_location_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("AnalyticsRepository.OccupancyByLot: %w", err)
	}

	defer rows.Close()

	var out []domain.LotOccupancy
	for rows.Next() {
		var row domain.LotOccupancy
		if err := rows.Scan(&row.LotID, &row.LotName, &row.Total, &row.Occupied); err != nil {
			return nil, fmt.Errorf("AnalyticsRepository.OccupancyByLot: %w", err)
		}
		row.Available = row.Total - row.Occupied
		out = append(out, row)
	}

	return out, rows.Err()
}

func (r *AnalyticsRepository) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost), 0) FROM reservations`).Scan(&total); err != nil {
		return 0, fmt.Errorf("AnalyticsRepository.TotalRevenue: %w", err)
	}
	return total, nil
}

func (r *AnalyticsRepository) CompletedSince(ctx context.Context, since time.Time) ([]domain.CompletedCost, error) {
	query := `
	SELECT left_at, cost
	FROM reservations
	WHERE left_at IS NOT NULL AND cost IS NOT NULL AND left_at >= $1
	ORDER BY left_at
	`
	return r.costs(ctx, "AnalyticsRepository.CompletedSince", query, since)
}

func (r *AnalyticsRepository) UserTotals(ctx context.Context, userID uuid.UUID) (domain.UserTotals, error) {
	var totals domain.UserTotals
	query := `SELECT COALESCE(SUM(cost), 0), COUNT(*) FROM reservations WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&totals.TotalSpent, &totals.TotalParkings); err != nil {
		return domain.UserTotals{}, fmt.Errorf("AnalyticsRepository.UserTotals: %w", err)
	}
	return totals, nil
}

func (r *AnalyticsRepository) RecentCosts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.CompletedCost, error) {
	query := `
	SELECT left_at, cost
	FROM reservations
	WHERE user_id = $1 AND left_at IS NOT NULL AND cost IS NOT NULL
	ORDER BY left_at DESC
	LIMIT $2
	`
	return r.costs(ctx, "AnalyticsRepository.RecentCosts", query, userID, limit)
}

func (r *AnalyticsRepository) costs(ctx context.Context, op, query string, args ...any) ([]domain.CompletedCost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var out []domain.CompletedCost
	for rows.Next() {
		var c domain.CompletedCost
		if err := rows.Scan(&c.LeftAt, &c.Cost); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *AnalyticsRepository) MonthlyActivity(ctx context.Context, from, to time.Time) ([]domain.MonthlyActivity, error) {
	query := `
	SELECT u.id, u.username, u.email, COUNT(r.id), COALESCE(SUM(r.cost), 0)
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	WHERE r.left_at >= $1 AND r.left_at < $2
	GROUP BY u.id, u.username, u.email
	ORDER BY u.email
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("AnalyticsRepository.MonthlyActivity: %w", err)
	}

	defer rows.Close()

	var out []domain.MonthlyActivity
	for rows.Next() {
		row := domain.MonthlyActivity{Month: from}
		if err := rows.Scan(&row.UserID, &row.Username, &row.Email, &row.Visits, &row.TotalSpent); err != nil {
			return nil, fmt.Errorf("AnalyticsRepository.MonthlyActivity: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// Mismatches re-derives capacity and status from the spot and reservation
// tables.
func (r *AnalyticsRepository) Mismatches(ctx context.Context) ([]domain.Mismatch, error) {
	capacityQuery := `
	SELECT l.id, l.number_of_spots, COUNT(s.id)
	FROM parking_lots l
	LEFT JOIN parking_spots s ON s.lot_id = l.id
	GROUP BY l.id
	HAVING COUNT(s.id) <> l.number_of_spots
	ORDER BY l.id
	`

	rows, err := r.db.QueryContext(ctx, capacityQuery)
	if err != nil {
		return nil, fmt.Errorf("AnalyticsRepository.Mismatches: %w", err)
	}

	var out []domain.Mismatch
	for rows.Next() {
		var lotID uuid.UUID
		var declared, actual int
		if err := rows.Scan(&lotID, &declared, &actual); err != nil {
			rows.Close()
			return nil, fmt.Errorf("AnalyticsRepository.Mismatches: %w", err)
		}
		out = append(out, domain.Mismatch{
			Kind:    domain.MismatchCapacity,
			LotID:   lotID,
			Details: fmt.Sprintf("declared %d spots, found %d", declared, actual),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AnalyticsRepository.Mismatches: %w", err)
	}

	statusQuery := `
	SELECT s.lot_id, s.id, s.spot_number, s.status, r.id IS NOT NULL
	FROM parking_spots s
	LEFT JOIN reservations r ON r.spot_id = s.id AND r.left_at IS NULL
	WHERE (s.status = 'O') <> (r.id IS NOT NULL)
	ORDER BY s.lot_id, s.spot_number
	`

	rows, err = r.db.QueryContext(ctx, statusQuery)
	if err != nil {
		return nil, fmt.Errorf("AnalyticsRepository.Mismatches: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var m domain.Mismatch
		var number int
		var status string
		var active bool
		if err := rows.Scan(&m.LotID, &m.SpotID, &number, &status, &active); err != nil {
			return nil, fmt.Errorf("AnalyticsRepository.Mismatches: %w", err)
		}
		m.Kind = domain.MismatchStatus
		m.Details = fmt.Sprintf("spot %d status %s, active reservation %t", number, status, active)
		out = append(out, m)
	}

	return out, rows.Err()
}
