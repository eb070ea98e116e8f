package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

type lotRepo struct{ v view }

func (r lotRepo) Create(ctx context.Context, lot *domain.Lot) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.lots[lot.ID]; ok {
			return fmt.Errorf("lot %s already exists", lot.ID)
		}
		stored := *lot
		stored.Spots = nil
		st.lots[lot.ID] = stored
		return nil
	})
}

func (r lotRepo) GetByID(ctx context.Context, lotID uuid.UUID, _ ports.LockMode) (*domain.Lot, error) {
	var lot domain.Lot
	err := r.v.with(func(st *state) error {
		found, ok := st.lots[lotID]
		if !ok {
			return domain.ErrNotFound
		}
		lot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r lotRepo) List(ctx context.Context) ([]domain.Lot, error) {
	var lots []domain.Lot
	err := r.v.with(func(st *state) error {
		lots = sortedLots(st)
		return nil
	})
	return lots, err
}

func (r lotRepo) ListWithAvailability(ctx context.Context) ([]domain.LotWithAvailability, error) {
	var out []domain.LotWithAvailability
	err := r.v.with(func(st *state) error {
		for _, lot := range sortedLots(st) {
			available := 0
			for _, spot := range st.spots {
				if spot.LotID == lot.ID && spot.IsAvailable() {
					available++
				}
			}
			out = append(out, domain.LotWithAvailability{Lot: lot, AvailableSpots: available})
		}
		return nil
	})
	return out, err
}

func (r lotRepo) Update(ctx context.Context, lot *domain.Lot) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.lots[lot.ID]; !ok {
			return domain.ErrNotFound
		}
		stored := *lot
		stored.Spots = nil
		st.lots[lot.ID] = stored
		return nil
	})
}

func (r lotRepo) Delete(ctx context.Context, lotID uuid.UUID) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.lots[lotID]; !ok {
			return domain.ErrNotFound
		}
		for id, spot := range st.spots {
			if spot.LotID == lotID {
				st.deleteSpot(id)
			}
		}
		delete(st.lots, lotID)
		return nil
	})
}

func sortedLots(st *state) []domain.Lot {
	lots := make([]domain.Lot, 0, len(st.lots))
	for _, lot := range st.lots {
		lots = append(lots, lot)
	}
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].Name < lots[j].Name
	})
	return lots
}

type spotRepo struct{ v view }

func (r spotRepo) CreateBatch(ctx context.Context, spots []domain.Spot) error {
	return r.v.with(func(st *state) error {
		for _, spot := range spots {
			if _, ok := st.lots[spot.LotID]; !ok {
				return domain.ErrNotFound
			}
			for _, existing := range st.spots {
				if existing.LotID == spot.LotID && existing.Number == spot.Number {
					return fmt.Errorf("spot number %d already exists in lot %s", spot.Number, spot.LotID)
				}
			}
			st.spots[spot.ID] = spot
		}
		return nil
	})
}

func (r spotRepo) ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.Spot, error) {
	var spots []domain.Spot
	err := r.v.with(func(st *state) error {
		spots = lotSpots(st, lotID)
		return nil
	})
	return spots, err
}

func (r spotRepo) CountByLot(ctx context.Context, lotID uuid.UUID) (int, error) {
	var n int
	err := r.v.with(func(st *state) error {
		n = len(lotSpots(st, lotID))
		return nil
	})
	return n, err
}

func (r spotRepo) FindFirstAvailable(ctx context.Context, lotID uuid.UUID) (*domain.Spot, error) {
	var found *domain.Spot
	err := r.v.with(func(st *state) error {
		for _, spot := range lotSpots(st, lotID) {
			if spot.IsAvailable() {
				spot := spot
				found = &spot
				return nil
			}
		}
		return domain.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r spotRepo) MarkOccupied(ctx context.Context, spotID uuid.UUID, currentVersion int, vehicleNumber *string) error {
	return r.v.with(func(st *state) error {
		spot, ok := st.spots[spotID]
		if !ok || spot.Version != currentVersion || !spot.IsAvailable() {
			return domain.ErrSpotConflict
		}
		spot.Status = domain.SpotOccupied
		if vehicleNumber != nil {
			spot.VehicleNumber = copyString(vehicleNumber)
		}
		spot.Version++
		st.spots[spotID] = spot
		return nil
	})
}

func (r spotRepo) MarkAvailable(ctx context.Context, spotID uuid.UUID) error {
	return r.v.with(func(st *state) error {
		spot, ok := st.spots[spotID]
		if !ok {
			return domain.ErrNotFound
		}
		spot.Status = domain.SpotAvailable
		spot.Version++
		st.spots[spotID] = spot
		return nil
	})
}

func (r spotRepo) ListNumberedAbove(ctx context.Context, lotID uuid.UUID, number int) ([]domain.Spot, error) {
	var out []domain.Spot
	err := r.v.with(func(st *state) error {
		spots := lotSpots(st, lotID)
		for i := len(spots) - 1; i >= 0; i-- {
			if spots[i].Number > number {
				out = append(out, spots[i])
			}
		}
		return nil
	})
	return out, err
}

func (r spotRepo) DeleteByIDs(ctx context.Context, spotIDs []uuid.UUID) error {
	return r.v.with(func(st *state) error {
		for _, id := range spotIDs {
			st.deleteSpot(id)
		}
		return nil
	})
}

func (r spotRepo) HasOccupied(ctx context.Context, lotID uuid.UUID) (bool, error) {
	var occupied bool
	err := r.v.with(func(st *state) error {
		for _, spot := range st.spots {
			if spot.LotID == lotID && spot.IsOccupied() {
				occupied = true
				break
			}
		}
		return nil
	})
	return occupied, err
}

func lotSpots(st *state, lotID uuid.UUID) []domain.Spot {
	var spots []domain.Spot
	for _, spot := range st.spots {
		if spot.LotID == lotID {
			spots = append(spots, spot)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].Number < spots[j].Number })
	return spots
}

type reservationRepo struct{ v view }

func (r reservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.spots[res.SpotID]; !ok {
			return domain.ErrNotFound
		}
		if _, ok := st.users[res.UserID]; !ok {
			return domain.ErrNotFound
		}
		if res.IsActive() {
			if _, ok := st.activeForUser(res.UserID); ok {
				return domain.ErrAlreadyActive
			}
			if _, ok := st.activeOnSpot(res.SpotID); ok {
				return domain.ErrSpotConflict
			}
		}
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r reservationRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID, _ ports.LockMode) (*domain.ActiveReservation, error) {
	var active domain.ActiveReservation
	err := r.v.with(func(st *state) error {
		res, ok := st.activeForUser(userID)
		if !ok {
			return domain.ErrNotFound
		}
		spot := st.spots[res.SpotID]
		lot := st.lots[spot.LotID]
		active = domain.ActiveReservation{
			Reservation:  res,
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
	return &active, nil
}

func (r reservationRepo) Finalize(ctx context.Context, reservationID uuid.UUID, leftAt time.Time, cost float64, remarks *string) error {
	return r.v.with(func(st *state) error {
		res, ok := st.reservations[reservationID]
		if !ok || !res.IsActive() {
			return domain.ErrNotFound
		}
		if leftAt.Before(res.ParkedAt) {
			return domain.ErrInvalidInterval
		}
		res.LeftAt = &leftAt
		res.Cost = &cost
		if remarks != nil {
			res.Remarks = copyString(remarks)
		}
		st.reservations[reservationID] = res
		return nil
	})
}

func (r reservationRepo) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReservationRecord, error) {
	var out []domain.ReservationRecord
	err := r.v.with(func(st *state) error {
		for _, rec := range records(st) {
			if rec.UserID == userID && !rec.IsActive() {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

func (r reservationRepo) ListRecent(ctx context.Context, limit int) ([]domain.ReservationRecord, error) {
	var out []domain.ReservationRecord
	err := r.v.with(func(st *state) error {
		out = records(st)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r reservationRepo) Each(ctx context.Context, fn func(domain.Reservation) error) error {
	var all []domain.ReservationRecord
	if err := r.v.with(func(st *state) error {
		all = records(st)
		return nil
	}); err != nil {
		return err
	}
	for _, rec := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec.Reservation); err != nil {
			return err
		}
	}
	return nil
}

func (r reservationRepo) ListActiveParkedBefore(ctx context.Context, before time.Time) ([]domain.Reminder, error) {
	var out []domain.Reminder
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if !res.IsActive() || !res.ParkedAt.Before(before) {
				continue
			}
			user := st.users[res.UserID]
			spot := st.spots[res.SpotID]
			out = append(out, domain.Reminder{
				UserID:     user.ID,
				Username:   user.Username,
				Email:      user.Email,
				LotName:    st.lots[spot.LotID].Name,
				SpotNumber: spot.Number,
				ParkedAt:   res.ParkedAt,
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ParkedAt.Before(out[j].ParkedAt) })
		return nil
	})
	return out, err
}

// records joins every reservation with its lot and user, newest first.
func records(st *state) []domain.ReservationRecord {
	out := make([]domain.ReservationRecord, 0, len(st.reservations))
	for _, res := range st.reservations {
		spot := st.spots[res.SpotID]
		out = append(out, domain.ReservationRecord{
			Reservation: res,
			LotName:     st.lots[spot.LotID].Name,
			SpotNumber:  spot.Number,
			UserEmail:   st.users[res.UserID].Email,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ParkedAt.Equal(out[j].ParkedAt) {
			return out[i].ParkedAt.After(out[j].ParkedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type userRepo struct{ v view }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.v.with(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return fmt.Errorf("email %s already registered", user.Email)
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, userID uuid.UUID, _ ports.LockMode) (*domain.User, error) {
	var user domain.User
	err := r.v.with(func(st *state) error {
		found, ok := st.users[userID]
		if !ok {
			return domain.ErrNotFound
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.v.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				user = u
				return nil
			}
		}
		return domain.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r userRepo) ListOverview(ctx context.Context) ([]domain.UserOverview, error) {
	var out []domain.UserOverview
	err := r.v.with(func(st *state) error {
		for _, u := range st.users {
			overview := domain.UserOverview{User: u}
			if res, ok := st.activeForUser(u.ID); ok {
				res := res
				overview.CurrentReservation = &res
			}
			out = append(out, overview)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].Email < out[j].Email
		})
		return nil
	})
	return out, err
}
