package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

type UserRepository struct {
	db querier
}

const userColumns = `id, username, email, role, created_at`

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (id, username, email, role, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("UserRepository.Create: %w", translate(err))
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID, lock ports.LockMode) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1` + lockClause(lock, "")
	return r.get(ctx, "UserRepository.GetByID", query, userID)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.get(ctx, "UserRepository.GetByEmail", query, email)
}

func (r *UserRepository) get(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	return &user, nil
}

func (r *UserRepository) ListOverview(ctx context.Context) ([]domain.UserOverview, error) {
	query := `
	SELECT u.id, u.username, u.email, u.role, u.created_at,
		r.id, r.spot_id, r.parked_at, r.remarks, r.created_at
	FROM users u
	LEFT JOIN reservations r ON r.user_id = u.id AND r.left_at IS NULL
	ORDER BY u.created_at, u.email
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.ListOverview: %w", err)
	}

	defer rows.Close()

	var out []domain.UserOverview
	for rows.Next() {
		var o domain.UserOverview
		var resID, spotID uuid.NullUUID
		var parkedAt, createdAt sql.NullTime
		var remarks sql.NullString

		if err := rows.Scan(
			&o.ID,
			&o.Username,
			&o.Email,
			&o.Role,
			&o.CreatedAt,
			&resID,
			&spotID,
			&parkedAt,
			&remarks,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("UserRepository.ListOverview: %w", err)
		}

		if resID.Valid {
			o.CurrentReservation = &domain.Reservation{
				ID:        resID.UUID,
				SpotID:    spotID.UUID,
				UserID:    o.ID,
				ParkedAt:  parkedAt.Time,
				Remarks:   nullString(remarks),
				CreatedAt: createdAt.Time,
			}
		}

		out = append(out, o)
	}

	return out, rows.Err()
}
