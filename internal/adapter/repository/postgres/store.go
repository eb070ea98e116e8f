package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Lots() ports.LotRepository {
	return &LotRepository{db: s.db}
}

func (s *Store) Spots() ports.SpotRepository {
	return &SpotRepository{db: s.db}
}

func (s *Store) Reservations() ports.ReservationRepository {
	return &ReservationRepository{db: s.db}
}

func (s *Store) Users() ports.UserRepository {
	return &UserRepository{db: s.db}
}

func (s *Store) Analytics() ports.AnalyticsRepository {
	return &AnalyticsRepository{db: s.db}
}

type txRepositories struct {
	tx *sql.Tx
}

func (t txRepositories) Lots() ports.LotRepository {
	return &LotRepository{db: t.tx}
}

func (t txRepositories) Spots() ports.SpotRepository {
	return &SpotRepository{db: t.tx}
}

func (t txRepositories) Reservations() ports.ReservationRepository {
	return &ReservationRepository{db: t.tx}
}

func (t txRepositories) Users() ports.UserRepository {
	return &UserRepository{db: t.tx}
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken by the
// repositories provide the serialization the occupancy engine needs.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	if err := fn(ctx, txRepositories{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translate(err))
	}

	return nil
}

func lockClause(mode ports.LockMode, of string) string {
	suffix := ""
	if of != "" {
		suffix = " OF " + of
	}
	switch mode {
	case ports.LockShare:
		return " FOR SHARE" + suffix
	case ports.LockUpdate:
		return " FOR UPDATE" + suffix
	default:
		return ""
	}
}
