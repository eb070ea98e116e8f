package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

// LockMode selects the row lock taken by a read inside a transaction.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

type LotRepository interface {
	Create(ctx context.Context, lot *domain.Lot) error
	GetByID(ctx context.Context, lotID uuid.UUID, lock LockMode) (*domain.Lot, error)
	List(ctx context.Context) ([]domain.Lot, error)
	ListWithAvailability(ctx context.Context) ([]domain.LotWithAvailability, error)
	Update(ctx context.Context, lot *domain.Lot) error
	Delete(ctx context.Context, lotID uuid.UUID) error
}

type SpotRepository interface {
	CreateBatch(ctx context.Context, spots []domain.Spot) error
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.Spot, error)
	CountByLot(ctx context.Context, lotID uuid.UUID) (int, error)
	// FindFirstAvailable locks and returns the lowest-numbered available spot,
	// skipping rows other transactions hold. ErrNotFound when none is free.
	FindFirstAvailable(ctx context.Context, lotID uuid.UUID) (*domain.Spot, error)
	MarkOccupied(ctx context.Context, spotID uuid.UUID, currentVersion int, vehicleNumber *string) error
	MarkAvailable(ctx context.Context, spotID uuid.UUID) error
	ListNumberedAbove(ctx context.Context, lotID uuid.UUID, number int) ([]domain.Spot, error)
	DeleteByIDs(ctx context.Context, spotIDs []uuid.UUID) error
	HasOccupied(ctx context.Context, lotID uuid.UUID) (bool, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	// FindActiveByUser returns the user's open reservation joined with its
	// spot and lot. ErrNotFound when the user is not parked.
	FindActiveByUser(ctx context.Context, userID uuid.UUID, lock LockMode) (*domain.ActiveReservation, error)
	Finalize(ctx context.Context, reservationID uuid.UUID, leftAt time.Time, cost float64, remarks *string) error
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReservationRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ReservationRecord, error)
	// Each streams every reservation, newest first.
	Each(ctx context.Context, fn func(domain.Reservation) error) error
	ListActiveParkedBefore(ctx context.Context, before time.Time) ([]domain.Reminder, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID uuid.UUID, lock LockMode) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListOverview(ctx context.Context) ([]domain.UserOverview, error)
}

type AnalyticsRepository interface {
	Occupancy(ctx context.Context) (domain.Occupancy, error)
	OccupancyByLot(ctx context.Context) ([]domain.LotOccupancy, error)
	TotalRevenue(ctx context.Context) (float64, error)
	CompletedSince(ctx context.Context, since time.Time) ([]domain.CompletedCost, error)
	UserTotals(ctx context.Context, userID uuid.UUID) (domain.UserTotals, error)
	RecentCosts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.CompletedCost, error)
	MonthlyActivity(ctx context.Context, from, to time.Time) ([]domain.MonthlyActivity, error)
	Mismatches(ctx context.Context) ([]domain.Mismatch, error)
}

// Tx is the set of repositories bound to one unit of work.
type Tx interface {
	Lots() LotRepository
	Spots() SpotRepository
	Reservations() ReservationRepository
	Users() UserRepository
}

// Store is the durable inventory. Repositories returned directly from the
// store run outside any transaction; WithinTx commits fn's writes together
// or not at all.
type Store interface {
	Tx
	Analytics() AnalyticsRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
