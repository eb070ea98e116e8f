package services_test

import (
	"testing"
	"time"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCost(t *testing.T) {
	start := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		rate     float64
		hours    float64
		cost     float64
	}{
		{name: "half hour bills the minimum", duration: 30 * time.Minute, rate: 10, hours: 1, cost: 10},
		{name: "ninety minutes", duration: 90 * time.Minute, rate: 10, hours: 1.5, cost: 15},
		{name: "zero duration", duration: 0, rate: 10, hours: 1, cost: 10},
		{name: "sixty one minutes", duration: 61 * time.Minute, rate: 10, hours: 1.02, cost: 10.2},
		{name: "duration rounded before multiplying", duration: 100 * time.Minute, rate: 3.33, hours: 1.67, cost: 5.56},
		{name: "exact tie rounds to even", duration: 67*time.Minute + 30*time.Second, rate: 10, hours: 1.12, cost: 11.2},
		{name: "free lot", duration: 3 * time.Hour, rate: 0, hours: 3, cost: 0},
		{name: "long stay", duration: 2*time.Hour + 30*time.Minute + 18*time.Second, rate: 7.5, hours: 2.5, cost: 18.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge, err := services.ComputeCost(start, start.Add(tt.duration), tt.rate)
			require.NoError(t, err)
			assert.Equal(t, tt.hours, charge.BillableHours)
			assert.Equal(t, tt.cost, charge.Cost)
		})
	}
}

func TestComputeCost_InvalidInterval(t *testing.T) {
	start := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)

	_, err := services.ComputeCost(start, start.Add(-time.Second), 10)

	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestComputeCost_NegativeRate(t *testing.T) {
	start := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)

	_, err := services.ComputeCost(start, start.Add(time.Hour), -1)

	assert.ErrorIs(t, err, domain.ErrValidation)
}
