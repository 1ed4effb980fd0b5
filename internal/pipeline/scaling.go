package pipeline

import (
	"math"

	"LinkSight/internal/domain/models"
)

// degenerateRefEps bounds references considered unusable as a ratio divisor.
const degenerateRefEps = 1e-12

// windowReference computes the per-request reference statistic for the
// ordered window values (most recent first).
func windowReference(window []float64, mode string) float64 {
	switch mode {
	case models.ScaleModeWindowMean:
		var sum float64
		for _, v := range window {
			sum += v
		}
		return sum / float64(len(window))
	case models.ScaleModeWindowAnchor:
		return window[0]
	default: // none
		return 1
	}
}

// safeReference substitutes the documented fallback for degenerate
// references: a ratio against a (near-)zero reference becomes a ratio
// against 1, so an all-zero window passes through unchanged instead of
// dividing by zero. Offset scaling has no degenerate case.
func safeReference(ref float64, op string) float64 {
	if op == models.ScaleOpRatio && math.Abs(ref) < degenerateRefEps {
		return 1
	}
	return ref
}

// scaleValue maps a raw window value into model space.
func scaleValue(v, ref float64, op string) float64 {
	if op == models.ScaleOpOffset {
		return v - ref
	}
	return v / ref
}

// unscaleValue is the exact inverse of scaleValue for the same ref and op.
func unscaleValue(v, ref float64, op string) float64 {
	if op == models.ScaleOpOffset {
		return v + ref
	}
	return v * ref
}

// scaleNoise squashes a raw dB reading into [0,1] on its magnitude, clamped,
// using the fixed training-time bounds.
func scaleNoise(db float64, ns models.NoiseScaling) float64 {
	v := (math.Abs(db) - ns.MinAbsDB) / (ns.MaxAbsDB - ns.MinAbsDB)
	return math.Min(math.Max(v, 0), 1)
}
