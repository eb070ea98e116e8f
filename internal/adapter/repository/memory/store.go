// Package memory is an in-process ports.Store. Transactions are fully
// serialized and applied copy-on-write, so it enforces the same uniqueness
// and cascade rules as the Postgres schema without a database.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

type state struct {
	users        map[uuid.UUID]domain.User
	lots         map[uuid.UUID]domain.Lot
	spots        map[uuid.UUID]domain.Spot
	reservations map[uuid.UUID]domain.Reservation
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]domain.User),
		lots:         make(map[uuid.UUID]domain.Lot),
		spots:        make(map[uuid.UUID]domain.Spot),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:        make(map[uuid.UUID]domain.User, len(s.users)),
		lots:         make(map[uuid.UUID]domain.Lot, len(s.lots)),
		spots:        make(map[uuid.UUID]domain.Spot, len(s.spots)),
		reservations: make(map[uuid.UUID]domain.Reservation, len(s.reservations)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.spots {
		c.spots[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// view binds the repositories either to the live state (taking the store
// lock per call) or to a transaction's private copy.
type view struct {
	store *Store
	tx    *state
}

func (v view) with(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (s *Store) root() view { return view{store: s} }

func (s *Store) Lots() ports.LotRepository {
	return lotRepo{s.root()}
}

func (s *Store) Spots() ports.SpotRepository {
	return spotRepo{s.root()}
}

func (s *Store) Reservations() ports.ReservationRepository {
	return reservationRepo{s.root()}
}

func (s *Store) Users() ports.UserRepository {
	return userRepo{s.root()}
}

func (s *Store) Analytics() ports.AnalyticsRepository {
	return analyticsRepo{s.root()}
}

type txView struct{ v view }

func (t txView) Lots() ports.LotRepository {
	return lotRepo{t.v}
}

func (t txView) Spots() ports.SpotRepository {
	return spotRepo{t.v}
}

func (t txView) Reservations() ports.ReservationRepository {
	return reservationRepo{t.v}
}

func (t txView) Users() ports.UserRepository {
	return userRepo{t.v}
}

// WithinTx runs fn against a private copy of the state and publishes it only
// if fn succeeds. Transactions never overlap.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, txView{view{store: s, tx: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// activeOnSpot mirrors uq_reservations_active_spot.
func (s *state) activeOnSpot(spotID uuid.UUID) (domain.Reservation, bool) {
	for _, r := range s.reservations {
		if r.SpotID == spotID && r.IsActive() {
			return r, true
		}
	}
	return domain.Reservation{}, false
}

// activeForUser mirrors uq_reservations_active_user.
func (s *state) activeForUser(userID uuid.UUID) (domain.Reservation, bool) {
	for _, r := range s.reservations {
		if r.UserID == userID && r.IsActive() {
			return r, true
		}
	}
	return domain.Reservation{}, false
}

func (s *state) deleteSpot(spotID uuid.UUID) {
	for id, r := range s.reservations {
		if r.SpotID == spotID {
			delete(s.reservations, id)
		}
	}
	delete(s.spots, spotID)
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
