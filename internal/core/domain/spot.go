package domain

import (
	"time"

	"github.com/google/uuid"
)

type SpotStatus string

const (
	SpotAvailable SpotStatus = "A"
	SpotOccupied  SpotStatus = "O"
)

type Spot struct {
	ID            uuid.UUID
	LotID         uuid.UUID
	Number        int
	Status        SpotStatus
	VehicleNumber *string
	Version       int
	CreatedAt     time.Time
}

func (s *Spot) IsAvailable() bool {
	return s.Status == SpotAvailable
}

func (s *Spot) IsOccupied() bool {
	return s.Status == SpotOccupied
}

// NewSpots builds spots numbered from..to (inclusive) for a lot.
func NewSpots(lotID uuid.UUID, from, to int, now time.Time) []Spot {
	if to < from {
		return nil
	}
	spots := make([]Spot, 0, to-from+1)
	for n := from; n <= to; n++ {
		spots = append(spots, Spot{
			ID:        uuid.New(),
			LotID:     lotID,
			Number:    n,
			Status:    SpotAvailable,
			CreatedAt: now,
		})
	}
	return spots
}
