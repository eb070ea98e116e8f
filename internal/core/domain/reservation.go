package domain

import (
	"time"

	"github.com/google/uuid"
)

type Reservation struct {
	ID        uuid.UUID
	SpotID    uuid.UUID
	UserID    uuid.UUID
	ParkedAt  time.Time
	LeftAt    *time.Time
	Cost      *float64
	Remarks   *string
	CreatedAt time.Time
}

func (r Reservation) IsActive() bool {
	return r.LeftAt == nil
}

// DurationSeconds is nil while the reservation is active.
func (r Reservation) DurationSeconds() *float64 {
	if r.LeftAt == nil {
		return nil
	}
	d := r.LeftAt.Sub(r.ParkedAt).Seconds()
	return &d
}

// ActiveReservation is a reservation joined with its spot and lot for display.
type ActiveReservation struct {
	Reservation  Reservation
	LotID        uuid.UUID
	LotName      string
	SpotNumber   int
	PricePerHour float64
}

// ReservationRecord is a history/listing row.
type ReservationRecord struct {
	Reservation
	LotName    string
	SpotNumber int
	UserEmail  string
}

// ReleaseResult is what Release hands back to the caller.
type ReleaseResult struct {
	Reservation   Reservation
	BillableHours float64
}

// Reminder is the data a reminder message is built from.
type Reminder struct {
	UserID     uuid.UUID
	Username   string
	Email      string
	LotName    string
	SpotNumber int
	ParkedAt   time.Time
}
