package domain

import (
	"time"

	"github.com/google/uuid"
)

type Lot struct {
	ID            uuid.UUID
	Name          string
	Address       *string
	PinCode       *string
	PricePerHour  float64
	NumberOfSpots int
	CreatedAt     time.Time
	Spots         []Spot
}

// LotWithAvailability is the user-facing listing row.
type LotWithAvailability struct {
	Lot
	AvailableSpots int
}

type CreateLotInput struct {
	Name          string
	Address       *string
	PinCode       *string
	PricePerHour  float64
	NumberOfSpots int
}

// UpdateLotInput is a partial update; nil fields are left untouched.
type UpdateLotInput struct {
	Name          *string
	Address       *string
	PinCode       *string
	PricePerHour  *float64
	NumberOfSpots *int
}

func (in CreateLotInput) Validate() error {
	if in.Name == "" {
		return NewValidationError("prime_location_name", "is required")
	}
	if in.NumberOfSpots < 1 {
		return NewValidationError("number_of_spots", "must be >= 1")
	}
	if in.PricePerHour < 0 {
		return NewValidationError("price_per_hour", "must be >= 0")
	}
	return nil
}

func (in UpdateLotInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return NewValidationError("prime_location_name", "must not be empty")
	}
	if in.NumberOfSpots != nil && *in.NumberOfSpots < 1 {
		return NewValidationError("number_of_spots", "must be >= 1")
	}
	if in.PricePerHour != nil && *in.PricePerHour < 0 {
		return NewValidationError("price_per_hour", "must be >= 0")
	}
	return nil
}
