// Package trading implements the signal-to-option decision engine: alert
// normalization, contract resolution, entry gating, the cycle scheduler,
// and the trade exit state machine.
package trading

import (
	"math"

	"signal-trader/internal/models"
)

// SlopeResult is the outcome of a VWAP slope computation.
type SlopeResult struct {
	Angle     float64 // degrees
	Direction models.SlopeDirection
	Pass      bool
	Valid     bool
}

// SlopeCalculator computes the directional inclination between two VWAP
// samples on a price-normalized time axis.
type SlopeCalculator struct {
	ScalePerHour     float64 // fraction of the base value per hour, e.g. 0.002
	ThresholdDegrees float64 // gate passes at or above this angle
}

// NewSlopeCalculator creates a slope calculator with the given thresholds.
func NewSlopeCalculator(scalePerHour, thresholdDegrees float64) SlopeCalculator {
	return SlopeCalculator{ScalePerHour: scalePerHour, ThresholdDegrees: thresholdDegrees}
}

// Compute evaluates the slope between two samples. Invalid inputs (either
// value non-positive, or the first sample not strictly earlier) fail
// closed: the result is not valid and the gate does not pass.
func (c SlopeCalculator) Compute(v1, v2 models.VWAPSample) SlopeResult {
	if v1.Value <= 0 || v2.Value <= 0 || !v1.At.Before(v2.At) {
		return SlopeResult{Direction: models.SlopeFlat}
	}

	hours := v2.At.Sub(v1.At).Hours()
	scale := v1.Value * c.ScalePerHour
	normalized := hours * scale
	if normalized <= 0 {
		return SlopeResult{Direction: models.SlopeFlat}
	}

	delta := v2.Value - v1.Value
	ratio := math.Abs(delta) / normalized
	angle := math.Atan(ratio) * 180 / math.Pi

	direction := models.SlopeFlat
	if delta > 0 {
		direction = models.SlopeUpward
	} else if delta < 0 {
		direction = models.SlopeDownward
	}

	// The gate is direction-agnostic: a steep move either way passes.
	return SlopeResult{
		Angle:     angle,
		Direction: direction,
		Pass:      angle >= c.ThresholdDegrees,
		Valid:     true,
	}
}
