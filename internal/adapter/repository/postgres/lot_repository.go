package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

type LotRepository struct {
	db querier
}

const lotColumns = `l.id, l.prime_location_name, l.address, l.pin_code, l.price_per_hour, l.number_of_spots, l.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner, extra ...any) (domain.Lot, error) {
	var lot domain.Lot
	var address, pinCode sql.NullString

	dest := append([]any{
		&lot.ID,
		&lot.Name,
		&address,
		&pinCode,
		&lot.PricePerHour,
		&lot.NumberOfSpots,
		&lot.CreatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return domain.Lot{}, err
	}

	lot.Address = nullString(address)
	lot.PinCode = nullString(pinCode)
	return lot, nil
}

func (r *LotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	query := `
	INSERT INTO parking_lots (id, prime_location_name, address, pin_code, price_per_hour, number_of_spots, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query, lot.ID, lot.Name, lot.Address, lot.PinCode, lot.PricePerHour, lot.NumberOfSpots, lot.CreatedAt)
	if err != nil {
		return fmt.Errorf("LotRepository.Create: %w", translate(err))
	}

	return nil
}

func (r *LotRepository) GetByID(ctx context.Context, lotID uuid.UUID, lock ports.LockMode) (*domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots l WHERE l.id = $1` + lockClause(lock, "")

	lot, err := scanLot(r.db.QueryRowContext(ctx, query, lotID))
	if err != nil {
		return nil, fmt.Errorf("LotRepository.GetByID: %w", translate(err))
	}

	return &lot, nil
}

func (r *LotRepository) List(ctx context.Context) ([]domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots l ORDER BY l.created_at, l.prime_location_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("LotRepository.List: %w", err)
	}

	defer rows.Close()

	var lots []domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("LotRepository.List: %w", err)
		}

		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

func (r *LotRepository) ListWithAvailability(ctx context.Context) ([]domain.LotWithAvailability, error) {
	query := `
	SELECT ` + lotColumns + `, COUNT(s.id) FILTER (WHERE s.status = 'A')
	FROM parking_lots l
	LEFT JOIN parking_spots s ON s.lot_id = l.id
	GROUP BY l.id
	ORDER BY l.created_at, l.prime_location_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("LotRepository.ListWithAvailability: %w", err)
	}

	defer rows.Close()

	var out []domain.LotWithAvailability
	for rows.Next() {
		var available int
		lot, err := scanLot(rows, &available)
		if err != nil {
			return nil, fmt.Errorf("LotRepository.ListWithAvailability: %w", err)
		}

		out = append(out, domain.LotWithAvailability{Lot: lot, AvailableSpots: available})
	}

	return out, rows.Err()
}

func (r *LotRepository) Update(ctx context.Context, lot *domain.Lot) error {
	query := `
	UPDATE parking_lots
	SET prime_location_name = $1,
		address = $2,
		pin_code = $3,
		price_per_hour = $4,
		number_of_spots = $5
	WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query, lot.Name, lot.Address, lot.PinCode, lot.PricePerHour, lot.NumberOfSpots, lot.ID)
	if err != nil {
		return fmt.Errorf("LotRepository.Update: %w", translate(err))
	}

	return expectAffected(result, "LotRepository.Update", domain.ErrNotFound)
}

func (r *LotRepository) Delete(ctx context.Context, lotID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, lotID)
	if err != nil {
		return fmt.Errorf("LotRepository.Delete: %w", translate(err))
	}

	return expectAffected(result, "LotRepository.Delete", domain.ErrNotFound)
}

func expectAffected(result sql.Result, op string, none error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, none)
	}

	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
