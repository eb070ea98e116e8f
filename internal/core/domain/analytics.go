package domain

import (
	"time"

	"github.com/google/uuid"
)

type Occupancy struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

type LotOccupancy struct {
	LotID   uuid.UUID `json:"lot_id"`
	LotName string    `json:"lot_name"`
	Occupancy
}

type DailyRevenue struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type AdminDashboard struct {
	Occupancy    Occupancy      `json:"occupancy"`
	Lots         []LotOccupancy `json:"lots"`
	TotalRevenue float64        `json:"total_revenue"`
	DailyRevenue []DailyRevenue `json:"daily_revenue"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

type CostPoint struct {
	Label string  `json:"label"`
	Cost  float64 `json:"cost"`
}

type UserTotals struct {
	TotalSpent    float64 `json:"total_spent"`
	TotalParkings int     `json:"total_parkings"`
}

type UserDashboard struct {
	Stats  UserTotals  `json:"stats"`
	Recent []CostPoint `json:"recent"`
}

// CompletedCost is a finished reservation reduced to what revenue rollups need.
type CompletedCost struct {
	LeftAt time.Time
	Cost   float64
}

// MonthlyActivity is one user's usage over a calendar month.
type MonthlyActivity struct {
	UserID     uuid.UUID
	Username   string
	Email      string
	Month      time.Time
	Visits     int
	TotalSpent float64
}

// Mismatch reports a broken occupancy invariant found by the consistency check.
type Mismatch struct {
	Kind    string    `json:"kind"`
	LotID   uuid.UUID `json:"lot_id"`
	SpotID  uuid.UUID `json:"spot_id,omitempty"`
	Details string    `json:"details"`
}

const (
	MismatchStatus   = "status"
	MismatchCapacity = "capacity"
)
