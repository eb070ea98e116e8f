package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

const recentReservationsLimit = 500

type LotService struct {
	store ports.Store
	cache ports.Cache
	clock clock.Clock
	log   *zap.Logger
	inst  *Instrumentation
}

func NewLotService(store ports.Store, cache ports.Cache, clk clock.Clock, log *zap.Logger, inst *Instrumentation) *LotService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LotService{
		store: store,
		cache: cache,
		clock: clk,
		log:   log.Named("lots"),
		inst:  inst,
	}
}

// CreateLot stores the lot together with spots 1..NumberOfSpots.
func (s *LotService) CreateLot(ctx context.Context, identity domain.Identity, in domain.CreateLotInput) (*domain.Lot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	lot := &domain.Lot{
		ID:            uuid.New(),
		Name:          in.Name,
		Address:       in.Address,
		PinCode:       in.PinCode,
		PricePerHour:  in.PricePerHour,
		NumberOfSpots: in.NumberOfSpots,
		CreatedAt:     now,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Lots().Create(ctx, lot); err != nil {
			return err
		}
		lot.Spots = domain.NewSpots(lot.ID, 1, lot.NumberOfSpots, now)
		return tx.Spots().CreateBatch(ctx, lot.Spots)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots, CacheKeyAdminStats)
	s.log.Info("lot created",
		zap.String("lot_id", lot.ID.String()),
		zap.String("name", lot.Name),
		zap.Int("spots", lot.NumberOfSpots),
	)

	return lot, nil
}

func (s *LotService) GetLot(ctx context.Context, identity domain.Identity, lotID uuid.UUID, includeSpots bool) (*domain.Lot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.BrowseLot(ctx, lotID, includeSpots)
}

func (s *LotService) ListLots(ctx context.Context, identity domain.Identity, includeSpots bool) ([]domain.Lot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.BrowseLots(ctx, includeSpots)
}

// BrowseLot is the unauthenticated lot detail.
func (s *LotService) BrowseLot(ctx context.Context, lotID uuid.UUID, includeSpots bool) (*domain.Lot, error) {
	lot, err := s.store.Lots().GetByID(ctx, lotID, ports.LockNone)
	if err != nil {
		return nil, err
	}
	if includeSpots {
		if lot.Spots, err = s.store.Spots().ListByLot(ctx, lot.ID); err != nil {
			return nil, err
		}
	}
	return lot, nil
}

// BrowseLots lists every lot without requiring an identity.
func (s *LotService) BrowseLots(ctx context.Context, includeSpots bool) ([]domain.Lot, error) {
	lots, err := s.store.Lots().List(ctx)
	if err != nil {
		return nil, err
	}
	if includeSpots {
		for i := range lots {
			if lots[i].Spots, err = s.store.Spots().ListByLot(ctx, lots[i].ID); err != nil {
				return nil, err
			}
		}
	}
	return lots, nil
}

// ListAvailableLots is the user-facing listing with free spot counts.
func (s *LotService) ListAvailableLots(ctx context.Context) ([]domain.LotWithAvailability, error) {
	return readThrough(ctx, s.cache, s.log, CacheKeyAvailableLots, AvailableLotsTTL, s.store.Lots().ListWithAvailability)
}

func (s *LotService) ListSpots(ctx context.Context, identity domain.Identity, lotID uuid.UUID) ([]domain.Spot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if _, err := s.store.Lots().GetByID(ctx, lotID, ports.LockNone); err != nil {
		return nil, err
	}
	return s.store.Spots().ListByLot(ctx, lotID)
}

// UpdateLot applies a partial update. A changed NumberOfSpots is resized in
// the same transaction as the other fields.
func (s *LotService) UpdateLot(ctx context.Context, identity domain.Identity, lotID uuid.UUID, in domain.UpdateLotInput) (*domain.Lot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Lot

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		lot, err := tx.Lots().GetByID(ctx, lotID, ports.LockUpdate)
		if err != nil {
			return err
		}

		if in.Name != nil {
			lot.Name = *in.Name
		}
		if in.Address != nil {
			lot.Address = in.Address
		}
		if in.PinCode != nil {
			lot.PinCode = in.PinCode
		}
		if in.PricePerHour != nil {
			lot.PricePerHour = *in.PricePerHour
		}
		if in.NumberOfSpots != nil {
			if err := s.resize(ctx, tx, lot, *in.NumberOfSpots); err != nil {
				return err
			}
		}

		if err := tx.Lots().Update(ctx, lot); err != nil {
			return err
		}
		updated = lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots, CacheKeyAdminStats)
	return updated, nil
}

// Resize grows or shrinks the lot to newTotal spots. Shrinking removes the
// highest-numbered spots and fails without changes if any of them is occupied.
func (s *LotService) Resize(ctx context.Context, identity domain.Identity, lotID uuid.UUID, newTotal int) (*domain.Lot, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if newTotal < 1 {
		return nil, domain.NewValidationError("number_of_spots", "must be >= 1")
	}

	ctx, span := s.inst.start(ctx, "lots.resize",
		attribute.String("lot.id", lotID.String()),
		attribute.Int("lot.new_total", newTotal),
	)
	started := time.Now()

	var resized *domain.Lot

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		lot, err := tx.Lots().GetByID(ctx, lotID, ports.LockUpdate)
		if err != nil {
			return err
		}
		if err := s.resize(ctx, tx, lot, newTotal); err != nil {
			return err
		}
		if err := tx.Lots().Update(ctx, lot); err != nil {
			return err
		}
		resized = lot
		return nil
	})

	s.inst.finish(ctx, span, "resize", started, err)
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots, CacheKeyAdminStats)
	return resized, nil
}

// resize must run with the lot row locked for update.
func (s *LotService) resize(ctx context.Context, tx ports.Tx, lot *domain.Lot, newTotal int) error {
	if newTotal < 1 {
		return domain.NewValidationError("number_of_spots", "must be >= 1")
	}

	current, err := tx.Spots().CountByLot(ctx, lot.ID)
	if err != nil {
		return err
	}

	switch {
	case newTotal > current:
		spots := domain.NewSpots(lot.ID, current+1, newTotal, s.clock.Now().UTC())
		if err := tx.Spots().CreateBatch(ctx, spots); err != nil {
			return err
		}
	case newTotal < current:
		doomed, err := tx.Spots().ListNumberedAbove(ctx, lot.ID, newTotal)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(doomed))
		for _, spot := range doomed {
			if spot.IsOccupied() {
				return fmt.Errorf("spot %d: %w", spot.Number, domain.ErrCapacityConflict)
			}
			ids = append(ids, spot.ID)
		}
		if err := tx.Spots().DeleteByIDs(ctx, ids); err != nil {
			return err
		}
	}

	if current != newTotal {
		s.log.Info("lot resized",
			zap.String("lot_id", lot.ID.String()),
			zap.Int("from", current),
			zap.Int("to", newTotal),
		)
	}
	lot.NumberOfSpots = newTotal
	return nil
}

// DeleteLot removes the lot with its spots and their history. Refused while
// any spot is occupied.
func (s *LotService) DeleteLot(ctx context.Context, identity domain.Identity, lotID uuid.UUID) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Lots().GetByID(ctx, lotID, ports.LockUpdate); err != nil {
			return err
		}
		occupied, err := tx.Spots().HasOccupied(ctx, lotID)
		if err != nil {
			return err
		}
		if occupied {
			return domain.ErrCapacityConflict
		}
		return tx.Lots().Delete(ctx, lotID)
	})
	if err != nil {
		return err
	}

	invalidate(ctx, s.cache, s.log, CacheKeyAvailableLots, CacheKeyAdminStats)
	s.log.Info("lot deleted", zap.String("lot_id", lotID.String()))
	return nil
}

func (s *LotService) ListUsers(ctx context.Context, identity domain.Identity) ([]domain.UserOverview, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.store.Users().ListOverview(ctx)
}

func (s *LotService) ListReservations(ctx context.Context, identity domain.Identity) ([]domain.ReservationRecord, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.store.Reservations().ListRecent(ctx, recentReservationsLimit)
}

// CheckConsistency re-derives spot status and lot capacity from the
// reservation and spot tables and reports every disagreement.
func (s *LotService) CheckConsistency(ctx context.Context, identity domain.Identity) ([]domain.Mismatch, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	mismatches, err := s.store.Analytics().Mismatches(ctx)
	if err != nil {
		return nil, err
	}
	if len(mismatches) > 0 {
		s.log.Warn("occupancy mismatches found", zap.Int("count", len(mismatches)))
	}
	return mismatches, nil
}
