package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

const defaultAllocateAttempts = 3

type AllocateRequest struct {
	LotID         uuid.UUID
	VehicleNumber *string
}

type ReleaseRequest struct {
	Remarks *string
}

// OccupancyService moves spots between Available and Occupied. Every mutation
// is a single store transaction; nothing here relies on in-process locks.
type OccupancyService struct {
	store    ports.Store
	cache    ports.Cache
	clock    clock.Clock
	log      *zap.Logger
	inst     *Instrumentation
	attempts uint
}

func NewOccupancyService(store ports.Store, cache ports.Cache, clk clock.Clock, log *zap.Logger, inst *Instrumentation) *OccupancyService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OccupancyService{
		store:    store,
		cache:    cache,
		clock:    clk,
		log:      log.Named("occupancy"),
		inst:     inst,
		attempts: defaultAllocateAttempts,
	}
}

// Allocate parks the user in the lowest-numbered free spot of the lot.
func (s *OccupancyService) Allocate(ctx context.Context, identity domain.Identity, req AllocateRequest) (*domain.ActiveReservation, error) {
	ctx, span := s.inst.start(ctx, "occupancy.allocate",
		attribute.String("user.id", identity.SubjectID.String()),
		attribute.String("lot.id", req.LotID.String()),
	)
	started := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 50 * time.Millisecond

	active, err := backoff.Retry(ctx, func() (*domain.ActiveReservation, error) {
		active, err := s.tryAllocate(ctx, identity.SubjectID, req)
		if err == nil {
			return active, nil
		}
		if errors.Is(err, domain.ErrSpotConflict) {
			s.log.Debug("spot taken concurrently, retrying",
				zap.String("lot_id", req.LotID.String()),
				zap.String("user_id", identity.SubjectID.String()),
			)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.attempts),
	)
	if errors.Is(err, domain.ErrSpotConflict) {
		err = domain.ErrNoCapacity
	}

	s.inst.finish(ctx, span, "park", started, err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("spot.number", active.SpotNumber))
	s.inst.occupancy(ctx, 1)
	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots)

	s.log.Info("spot allocated",
		zap.String("reservation_id", active.Reservation.ID.String()),
		zap.String("lot_id", active.LotID.String()),
		zap.Int("spot_number", active.SpotNumber),
		zap.String("user_id", identity.SubjectID.String()),
	)

	return active, nil
}

func (s *OccupancyService) tryAllocate(ctx context.Context, userID uuid.UUID, req AllocateRequest) (*domain.ActiveReservation, error) {
	var active *domain.ActiveReservation

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		// Locking the user row serializes parallel parks by the same user.
		if _, err := tx.Users().GetByID(ctx, userID, ports.LockUpdate); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}

		_, err := tx.Reservations().FindActiveByUser(ctx, userID, ports.LockNone)
		switch {
		case err == nil:
			return domain.ErrAlreadyActive
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		lot, err := tx.Lots().GetByID(ctx, req.LotID, ports.LockShare)
		if err != nil {
			return fmt.Errorf("lot %s: %w", req.LotID, err)
		}

		spot, err := tx.Spots().FindFirstAvailable(ctx, lot.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoCapacity
		}
		if err != nil {
			return err
		}

		if err := tx.Spots().MarkOccupied(ctx, spot.ID, spot.Version, req.VehicleNumber); err != nil {
			return err
		}

		now := s.now()
		reservation := domain.Reservation{
			ID:        uuid.New(),
			SpotID:    spot.ID,
			UserID:    userID,
			ParkedAt:  now,
			CreatedAt: now,
		}
		if err := tx.Reservations().Create(ctx, &reservation); err != nil {
			return err
		}

		active = &domain.ActiveReservation{
			Reservation:  reservation,
			LotID:        lot.ID,
			LotName:      lot.Name,
			SpotNumber:   spot.Number,
			PricePerHour: lot.PricePerHour,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return active, nil
}

// Release closes the user's active reservation and bills it.
func (s *OccupancyService) Release(ctx context.Context, identity domain.Identity, req ReleaseRequest) (*domain.ReleaseResult, error) {
	ctx, span := s.inst.start(ctx, "occupancy.release",
		attribute.String("user.id", identity.SubjectID.String()),
	)
	started := time.Now()

	var result *domain.ReleaseResult

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		active, err := tx.Reservations().FindActiveByUser(ctx, identity.SubjectID, ports.LockUpdate)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoActiveReservation
		}
		if err != nil {
			return err
		}

		leftAt := s.now()
		charge, err := ComputeCost(active.Reservation.ParkedAt, leftAt, active.PricePerHour)
		if err != nil {
			return err
		}

		if err := tx.Reservations().Finalize(ctx, active.Reservation.ID, leftAt, charge.Cost, req.Remarks); err != nil {
			return err
		}
		if err := tx.Spots().MarkAvailable(ctx, active.Reservation.SpotID); err != nil {
			return err
		}

		reservation := active.Reservation
		reservation.LeftAt = &leftAt
		reservation.Cost = &charge.Cost
		if req.Remarks != nil {
			reservation.Remarks = req.Remarks
		}

		result = &domain.ReleaseResult{
			Reservation:   reservation,
			BillableHours: charge.BillableHours,
		}
		return nil
	})

	s.inst.finish(ctx, span, "release", started, err)
	if err != nil {
		return nil, err
	}

	s.inst.occupancy(ctx, -1)
	s.inst.billed(ctx, *result.Reservation.Cost)
	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots)

	s.log.Info("spot released",
		zap.String("reservation_id", result.Reservation.ID.String()),
		zap.String("user_id", identity.SubjectID.String()),
		zap.Float64("billable_hours", result.BillableHours),
		zap.Float64("cost", *result.Reservation.Cost),
	)

	return result, nil
}

// CurrentStatus returns the user's active reservation, or nil when not parked.
func (s *OccupancyService) CurrentStatus(ctx context.Context, identity domain.Identity) (*domain.ActiveReservation, error) {
	active, err := s.store.Reservations().FindActiveByUser(ctx, identity.SubjectID, ports.LockNone)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return active, nil
}

// History lists the user's finished reservations, newest first.
func (s *OccupancyService) History(ctx context.Context, identity domain.Identity) ([]domain.ReservationRecord, error) {
	return s.store.Reservations().ListCompletedByUser(ctx, identity.SubjectID)
}

// now is truncated to the store's timestamp precision so a stored interval
// re-bills to the same amount.
func (s *OccupancyService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
