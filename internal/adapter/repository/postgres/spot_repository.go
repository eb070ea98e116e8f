package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type SpotRepository struct {
	db querier
}

const spotColumns = `id, lot_id, spot_number, status, vehicle_number, version, created_at`

func scanSpot(row rowScanner) (domain.Spot, error) {
	var spot domain.Spot
	var vehicle sql.NullString

	err := row.Scan(
		&spot.ID,
		&spot.LotID,
		&spot.Number,
		&spot.Status,
		&vehicle,
		&spot.Version,
		&spot.CreatedAt,
	)
	if err != nil {
		return domain.Spot{}, err
	}

	spot.VehicleNumber = nullString(vehicle)
	return spot, nil
}

func (r *SpotRepository) CreateBatch(ctx context.Context, spots []domain.Spot) error {
	if len(spots) == 0 {
		return nil
	}

	query := `
	INSERT INTO parking_spots (id, lot_id, spot_number, status, vehicle_number, version, created_at)
	VALUES ($1, $2, $3, $4, $5, 1, $6)
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("SpotRepository.CreateBatch: failed to prepare statement: %w", err)
	}

	defer stmt.Close()

	for _, spot := range spots {
		_, err := stmt.ExecContext(ctx, spot.ID, spot.LotID, spot.Number, spot.Status, spot.VehicleNumber, spot.CreatedAt)
		if err != nil {
			return fmt.Errorf("SpotRepository.CreateBatch: spot %d: %w", spot.Number, translate(err))
		}
	}

	return nil
}

func (r *SpotRepository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE lot_id = $1 ORDER BY spot_number`
	return r.list(ctx, "SpotRepository.ListByLot", query, lotID)
}

func (r *SpotRepository) CountByLot(ctx context.Context, lotID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1`, lotID).Scan(&n); err != nil {
		return 0, fmt.Errorf("SpotRepository.CountByLot: %w", err)
	}
	return n, nil
}

func (r *SpotRepository) FindFirstAvailable(ctx context.Context, lotID uuid.UUID) (*domain.Spot, error) {
	query := `
	SELECT ` + spotColumns + `
	FROM parking_spots
	WHERE lot_id = $1 AND status = 'A'
	ORDER BY spot_number
	LIMIT 1
	FOR UPDATE SKIP LOCKED
	`

	spot, err := scanSpot(r.db.QueryRowContext(ctx, query, lotID))
	if err != nil {
		return nil, fmt.Errorf("SpotRepository.FindFirstAvailable: %w", translate(err))
	}

	return &spot, nil
}

// MarkOccupied flips the spot only if nobody changed it since it was read.
func (r *SpotRepository) MarkOccupied(ctx context.Context, spotID uuid.UUID, currentVersion int, vehicleNumber *string) error {
	query := `
	UPDATE parking_spots
	SET status = 'O',
		vehicle_number = COALESCE($1, vehicle_number),
		version = version + 1
	WHERE id = $2 AND version = $3 AND status = 'A'
	`

	result, err := r.db.ExecContext(ctx, query, vehicleNumber, spotID, currentVersion)
	if err != nil {
		return fmt.Errorf("SpotRepository.MarkOccupied: %w", translate(err))
	}

	return expectAffected(result, "SpotRepository.MarkOccupied", domain.ErrSpotConflict)
}

func (r *SpotRepository) MarkAvailable(ctx context.Context, spotID uuid.UUID) error {
	query := `
	UPDATE parking_spots
	SET status = 'A',
		version = version + 1
	WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, spotID)
	if err != nil {
		return fmt.Errorf("SpotRepository.MarkAvailable: %w", translate(err))
	}

	return expectAffected(result, "SpotRepository.MarkAvailable", domain.ErrNotFound)
}

// ListNumberedAbove locks and returns the spots a shrink to number would
// remove, highest first.
func (r *SpotRepository) ListNumberedAbove(ctx context.Context, lotID uuid.UUID, number int) ([]domain.Spot, error) {
	query := `
	SELECT ` + spotColumns + `
	FROM parking_spots
	WHERE lot_id = $1 AND spot_number > $2
	ORDER BY spot_number DESC
	FOR UPDATE
	`
	return r.list(ctx, "SpotRepository.ListNumberedAbove", query, lotID, number)
}

func (r *SpotRepository) DeleteByIDs(ctx context.Context, spotIDs []uuid.UUID) error {
	if len(spotIDs) == 0 {
		return nil
	}

	ids := make([]string, len(spotIDs))
	for i, id := range spotIDs {
		ids[i] = id.String()
	}

	_, err := r.db.ExecContext(ctx, `DELETE FROM parking_spots WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("SpotRepository.DeleteByIDs: %w", translate(err))
	}

	return nil
}

func (r *SpotRepository) HasOccupied(ctx context.Context, lotID uuid.UUID) (bool, error) {
	var occupied bool
	query := `SELECT EXISTS (SELECT 1 FROM parking_spots WHERE lot_id = $1 AND status = 'O')`
	if err := r.db.QueryRowContext(ctx, query, lotID).Scan(&occupied); err != nil {
		return false, fmt.Errorf("SpotRepository.HasOccupied: %w", err)
	}
	return occupied, nil
}

func (r *SpotRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Spot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var spots []domain.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		spots = append(spots, spot)
	}

	return spots, rows.Err()
}
