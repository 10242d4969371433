package trading

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

func sampleAt(value float64, hour, minute int) models.VWAPSample {
	return models.VWAPSample{
		Value: value,
		At:    time.Date(2025, 7, 7, hour, minute, 0, 0, utils.IndiaLocation),
	}
}

func TestSlopeSteepMovePasses(t *testing.T) {
	calc := NewSlopeCalculator(0.002, 45.0)

	// 100 -> 100.5 over one hour: scale 0.2 per hour, ratio 2.5.
	result := calc.Compute(sampleAt(100, 10, 15), sampleAt(100.5, 11, 15))

	assert.True(t, result.Valid)
	assert.True(t, result.Pass)
	assert.Equal(t, models.SlopeUpward, result.Direction)
	assert.InDelta(t, 68.2, result.Angle, 0.1)
}

func TestSlopeShallowMoveFails(t *testing.T) {
	calc := NewSlopeCalculator(0.002, 45.0)

	// 100 -> 100.05 over one hour: ratio 0.25, well under threshold.
	result := calc.Compute(sampleAt(100, 10, 15), sampleAt(100.05, 11, 15))

	assert.True(t, result.Valid)
	assert.False(t, result.Pass)
	assert.Equal(t, models.SlopeUpward, result.Direction)
	assert.InDelta(t, 14.0, result.Angle, 0.1)
}

func TestSlopeDownwardMoveCanPass(t *testing.T) {
	calc := NewSlopeCalculator(0.002, 45.0)

	result := calc.Compute(sampleAt(100.5, 10, 15), sampleAt(100, 11, 15))

	assert.True(t, result.Pass)
	assert.Equal(t, models.SlopeDownward, result.Direction)
}

func TestSlopeInvalidInputsFailClosed(t *testing.T) {
	calc := NewSlopeCalculator(0.002, 45.0)

	cases := []struct {
		name   string
		v1, v2 models.VWAPSample
	}{
		{"zero first value", sampleAt(0, 10, 15), sampleAt(100, 11, 15)},
		{"negative second value", sampleAt(100, 10, 15), sampleAt(-5, 11, 15)},
		{"equal timestamps", sampleAt(100, 10, 15), sampleAt(101, 10, 15)},
		{"reversed timestamps", sampleAt(100, 11, 15), sampleAt(101, 10, 15)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := calc.Compute(tc.v1, tc.v2)
			assert.False(t, result.Valid)
			assert.False(t, result.Pass)
			assert.Equal(t, 0.0, result.Angle)
		})
	}
}

// For any valid pair of samples the computed angle stays in [0, 90) and the
// pass decision is exactly "angle >= threshold".
func TestSlopeAngleBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	calc := NewSlopeCalculator(0.002, 45.0)

	properties.Property("angle bounded and pass consistent", prop.ForAll(
		func(v1, v2 float64, minutes int) bool {
			t1 := time.Date(2025, 7, 7, 9, 15, 0, 0, utils.IndiaLocation)
			t2 := t1.Add(time.Duration(minutes) * time.Minute)

			result := calc.Compute(
				models.VWAPSample{Value: v1, At: t1},
				models.VWAPSample{Value: v2, At: t2},
			)
			if !result.Valid {
				return true
			}
			if result.Angle < 0 || result.Angle >= 90 {
				return false
			}
			return result.Pass == (result.Angle >= calc.ThresholdDegrees)
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0.01, 100000),
		gen.IntRange(1, 375),
	))

	properties.Property("computation is deterministic", prop.ForAll(
		func(v1, v2 float64) bool {
			t1 := time.Date(2025, 7, 7, 10, 15, 0, 0, utils.IndiaLocation)
			t2 := time.Date(2025, 7, 7, 11, 15, 0, 0, utils.IndiaLocation)
			a := calc.Compute(models.VWAPSample{Value: v1, At: t1}, models.VWAPSample{Value: v2, At: t2})
			b := calc.Compute(models.VWAPSample{Value: v1, At: t1}, models.VWAPSample{Value: v2, At: t2})
			return a == b
		},
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
	))

	properties.Property("never valid on non-positive values", prop.ForAll(
		func(v float64) bool {
			t1 := time.Date(2025, 7, 7, 10, 15, 0, 0, utils.IndiaLocation)
			t2 := time.Date(2025, 7, 7, 11, 15, 0, 0, utils.IndiaLocation)
			result := calc.Compute(
				models.VWAPSample{Value: -math.Abs(v), At: t1},
				models.VWAPSample{Value: 100, At: t2},
			)
			return !result.Valid && !result.Pass
		},
		gen.Float64Range(0, 1000),
	))

	properties.TestingRun(t)
}
