package services

import (
	"math"
	"strconv"
	"time"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

const minimumBillableHours = 1.0

type Charge struct {
	BillableHours float64
	Cost          float64
}

// ComputeCost bills the interval at pricePerHour. The duration is rounded to
// two decimals before it is multiplied and the product is rounded again;
// historical amounts depend on that order.
func ComputeCost(start, end time.Time, pricePerHour float64) (Charge, error) {
	if end.Before(start) {
		return Charge{}, domain.ErrInvalidInterval
	}
	if pricePerHour < 0 || math.IsNaN(pricePerHour) || math.IsInf(pricePerHour, 0) {
		return Charge{}, domain.NewValidationError("price_per_hour", "must be a non-negative number")
	}

	durationHours := end.Sub(start).Seconds() / 3600
	billable := math.Max(minimumBillableHours, roundCents(durationHours))

	return Charge{
		BillableHours: billable,
		Cost:          roundCents(billable * pricePerHour),
	}, nil
}

// roundCents rounds the exact binary value to two decimals, half to even.
func roundCents(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return r
}
