package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type CreateLotRequest struct {
	PrimeLocationName string  `json:"prime_location_name"`
	Address           *string `json:"address"`
	PinCode           *string `json:"pin_code"`
	PricePerHour      float64 `json:"price_per_hour"`
	NumberOfSpots     int     `json:"number_of_spots"`
}

type UpdateLotRequest struct {
	PrimeLocationName *string  `json:"prime_location_name"`
	Address           *string  `json:"address"`
	PinCode           *string  `json:"pin_code"`
	PricePerHour      *float64 `json:"price_per_hour"`
	NumberOfSpots     *int     `json:"number_of_spots"`
}

type ParkRequest struct {
	LotID         string  `json:"lot_id"`
	VehicleNumber *string `json:"vehicle_number"`
}

type ReleaseRequest struct {
	Remarks *string `json:"remarks"`
}

type SpotResponse struct {
	ID            uuid.UUID         `json:"id"`
	LotID         uuid.UUID         `json:"lot_id"`
	SpotNumber    int               `json:"spot_number"`
	Status        domain.SpotStatus `json:"status"`
	VehicleNumber *string           `json:"vehicle_number,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type LotResponse struct {
	ID                uuid.UUID      `json:"id"`
	PrimeLocationName string         `json:"prime_location_name"`
	Address           *string        `json:"address,omitempty"`
	PinCode           *string        `json:"pin_code,omitempty"`
	PricePerHour      float64        `json:"price_per_hour"`
	NumberOfSpots     int            `json:"number_of_spots"`
	AvailableSpots    *int           `json:"available_spots,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	Spots             []SpotResponse `json:"spots,omitempty"`
}

type ReservationResponse struct {
	ID              uuid.UUID  `json:"id"`
	SpotID          uuid.UUID  `json:"spot_id"`
	UserID          uuid.UUID  `json:"user_id"`
	ParkedAt        time.Time  `json:"parked_at"`
	LeftAt          *time.Time `json:"left_at"`
	Cost            *float64   `json:"cost"`
	Remarks         *string    `json:"remarks,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ActiveReservationResponse struct {
	ReservationResponse
	LotID        uuid.UUID `json:"lot_id"`
	LotName      string    `json:"lot_name"`
	SpotNumber   int       `json:"spot_number"`
	PricePerHour float64   `json:"price_per_hour"`
}

type StatusResponse struct {
	HasActive   bool                       `json:"has_active"`
	Reservation *ActiveReservationResponse `json:"reservation,omitempty"`
}

type ReleaseResponse struct {
	ReservationResponse
	BillableHours float64 `json:"billable_hours"`
}

type ReservationRecordResponse struct {
	ReservationResponse
	LotName    string `json:"lot_name"`
	SpotNumber int    `json:"spot_number"`
	UserEmail  string `json:"user_email,omitempty"`
}

type UserResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Username           string               `json:"username"`
	Email              string               `json:"email"`
	Role               domain.Role          `json:"role"`
	CreatedAt          time.Time            `json:"created_at"`
	CurrentReservation *ReservationResponse `json:"current_reservation"`
}

type ExportResponse struct {
	TaskID string `json:"task_id"`
}

func toSpotResponse(s domain.Spot) SpotResponse {
	return SpotResponse{
		ID:            s.ID,
		LotID:         s.LotID,
		SpotNumber:    s.Number,
		Status:        s.Status,
		VehicleNumber: s.VehicleNumber,
		CreatedAt:     s.CreatedAt,
	}
}

func toSpotResponses(spots []domain.Spot) []SpotResponse {
	out := make([]SpotResponse, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpotResponse(s))
	}
	return out
}

func toLotResponse(l domain.Lot) LotResponse {
	resp := LotResponse{
		ID:                l.ID,
		PrimeLocationName: l.Name,
		Address:           l.Address,
		PinCode:           l.PinCode,
		PricePerHour:      l.PricePerHour,
		NumberOfSpots:     l.NumberOfSpots,
		CreatedAt:         l.CreatedAt,
	}
	if l.Spots != nil {
		resp.Spots = toSpotResponses(l.Spots)
	}
	return resp
}

func toLotResponses(lots []domain.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResponse(l))
	}
	return out
}

func toAvailableLotResponses(lots []domain.LotWithAvailability) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		resp := toLotResponse(l.Lot)
		available := l.AvailableSpots
		resp.AvailableSpots = &available
		out = append(out, resp)
	}
	return out
}

func toReservationResponse(r domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		SpotID:          r.SpotID,
		UserID:          r.UserID,
		ParkedAt:        r.ParkedAt,
		LeftAt:          r.LeftAt,
		Cost:            r.Cost,
		Remarks:         r.Remarks,
		DurationSeconds: r.DurationSeconds(),
		CreatedAt:       r.CreatedAt,
	}
}

func toActiveResponse(a *domain.ActiveReservation) *ActiveReservationResponse {
	return &ActiveReservationResponse{
		ReservationResponse: toReservationResponse(a.Reservation),
		LotID:               a.LotID,
		LotName:             a.LotName,
		SpotNumber:          a.SpotNumber,
		PricePerHour:        a.PricePerHour,
	}
}

func toRecordResponses(records []domain.ReservationRecord, withEmail bool) []ReservationRecordResponse {
	out := make([]ReservationRecordResponse, 0, len(records))
	for _, rec := range records {
		row := ReservationRecordResponse{
			ReservationResponse: toReservationResponse(rec.Reservation),
			LotName:             rec.LotName,
			SpotNumber:          rec.SpotNumber,
		}
		if withEmail {
			row.UserEmail = rec.UserEmail
		}
		out = append(out, row)
	}
	return out
}

func toUserResponses(users []domain.UserOverview) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		row := UserResponse{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		}
		if u.CurrentReservation != nil {
			res := toReservationResponse(*u.CurrentReservation)
			row.CurrentReservation = &res
		}
		out = append(out, row)
	}
	return out
}
