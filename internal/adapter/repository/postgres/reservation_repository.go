package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

type ReservationRepository struct {
	db querier
}

const reservationColumns = `r.id, r.spot_id, r.user_id, r.parked_at, r.left_at, r.cost, r.remarks, r.created_at`

func scanReservation(row rowScanner, extra ...any) (domain.Reservation, error) {
	var res domain.Reservation
	var leftAt sql.NullTime
	var cost sql.NullFloat64
	var remarks sql.NullString

	dest := append([]any{
		&res.ID,
		&res.SpotID,
		&res.UserID,
		&res.ParkedAt,
		&leftAt,
		&cost,
		&remarks,
		&res.CreatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return domain.Reservation{}, err
	}

	if leftAt.Valid {
		t := leftAt.Time
		res.LeftAt = &t
	}

	if cost.Valid {
		c := cost.Float64
		res.Cost = &c
	}

	res.Remarks = nullString(remarks)
	return res, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
	INSERT INTO reservations (id, spot_id, user_id, parked_at, left_at, cost, remarks, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query, res.ID, res.SpotID, res.UserID, res.ParkedAt, res.LeftAt, res.Cost, res.Remarks, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("ReservationRepository.Create: %w", translate(err))
	}

	return nil
}

func (r *ReservationRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, lock ports.LockMode) (*domain.ActiveReservation, error) {
	query := `
	SELECT ` + reservationColumns + `, l.id, l.prime_location_name, s.spot_number, l.price_per_hour
	FROM reservations r
	JOIN parking_spots s ON s.id = r.spot_id
	JOIN parking_lots l ON l.id = s.lot_id
	WHERE r.user_id = $1 AND r.left_at IS NULL` + lockClause(lock, "r")

	var active domain.ActiveReservation
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, userID),
		&active.LotID,
		&active.LotName,
		&active.SpotNumber,
		&active.PricePerHour,
	)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindActiveByUser: %w", translate(err))
	}

	active.Reservation = res
	return &active, nil
}

// Finalize closes an open reservation. Remarks are kept when nil.
func (r *ReservationRepository) Finalize(ctx context.Context, reservationID uuid.UUID, leftAt time.Time, cost float64, remarks *string) error {
	query := `
	UPDATE reservations
	SET left_at = $1,
		cost = $2,
		remarks = COALESCE($3, remarks)
	WHERE id = $4 AND left_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, leftAt, cost, remarks, reservationID)
	if err != nil {
		return fmt.Errorf("ReservationRepository.Finalize: %w", translate(err))
	}

	return expectAffected(result, "ReservationRepository.Finalize", domain.ErrNotFound)
}

const recordQuery = `
	SELECT ` + reservationColumns + `, l.prime_location_name, s.spot_number, u.email
	FROM reservations r
	JOIN parking_spots s ON s.id = r.spot_id
	JOIN parking_lots l ON l.id = s.lot_id
	JOIN users u ON u.id = r.user_id
	`

func (r *ReservationRepository) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReservationRecord, error) {
	query := recordQuery + `WHERE r.user_id = $1 AND r.left_at IS NOT NULL ORDER BY r.parked_at DESC`
	return r.records(ctx, "ReservationRepository.ListCompletedByUser", query, userID)
}

func (r *ReservationRepository) ListRecent(ctx context.Context, limit int) ([]domain.ReservationRecord, error) {
	query := recordQuery + `ORDER BY r.parked_at DESC LIMIT $1`
	return r.records(ctx, "ReservationRepository.ListRecent", query, limit)
}

func (r *ReservationRepository) records(ctx context.Context, op, query string, args ...any) ([]domain.ReservationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var out []domain.ReservationRecord
	for rows.Next() {
		var rec domain.ReservationRecord
		res, err := scanReservation(rows, &rec.LotName, &rec.SpotNumber, &rec.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rec.Reservation = res
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Each streams the whole table without buffering it.
func (r *ReservationRepository) Each(ctx context.Context, fn func(domain.Reservation) error) error {
	query := `SELECT ` + reservationColumns + ` FROM reservations r ORDER BY r.parked_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("ReservationRepository.Each: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return fmt.Errorf("ReservationRepository.Each: %w", err)
		}

		if err := fn(res); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (r *ReservationRepository) ListActiveParkedBefore(ctx context.Context, before time.Time) ([]domain.Reminder, error) {
	query := `
	SELECT u.id, u.username, u.email, l.prime_location_name, s.spot_number, r.parked_at
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN parking_spots s ON s.id = r.spot_id
	JOIN parking_lots l ON l.id = s.lot_id
	WHERE r.left_at IS NULL AND r.parked_at < $1
	ORDER BY r.parked_at
	`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.ListActiveParkedBefore: %w", err)
	}

	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		var rem domain.Reminder
		if err := rows.Scan(&rem.UserID, &rem.Username, &rem.Email, &rem.LotName, &rem.SpotNumber, &rem.ParkedAt); err != nil {
			return nil, fmt.Errorf("ReservationRepository.ListActiveParkedBefore: %w", err)
		}

		out = append(out, rem)
	}

	return out, rows.Err()
}
