package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// translate maps driver errors onto domain sentinels. Unknown errors pass
// through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case "uq_reservations_active_user":
			return domain.ErrAlreadyActive
		case "uq_reservations_active_spot":
			return domain.ErrSpotConflict
		}
	case pqForeignKeyViolation:
		return domain.ErrNotFound
	case pqCheckViolation:
		if pqErr.Constraint == "chk_reservation_interval" {
			return domain.ErrInvalidInterval
		}
	}
	return err
}
