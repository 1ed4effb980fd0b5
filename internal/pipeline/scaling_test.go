package pipeline

import (
	"math"
	"testing"

	"LinkSight/internal/domain/models"
)

func TestWindowReferenceMean(t *testing.T) {
	ref := windowReference([]float64{10, 20, 30}, models.ScaleModeWindowMean)
	if ref != 20 {
		t.Fatalf("expected 20, got %v", ref)
	}
}

func TestWindowReferenceAnchor(t *testing.T) {
	ref := windowReference([]float64{10, 20, 30}, models.ScaleModeWindowAnchor)
	if ref != 10 {
		t.Fatalf("expected 10, got %v", ref)
	}
}

func TestSafeReferenceDegenerate(t *testing.T) {
	if got := safeReference(0, models.ScaleOpRatio); got != 1 {
		t.Fatalf("expected fallback 1, got %v", got)
	}
	if got := safeReference(1e-13, models.ScaleOpRatio); got != 1 {
		t.Fatalf("expected fallback 1 for near-zero, got %v", got)
	}
	if got := safeReference(0, models.ScaleOpOffset); got != 0 {
		t.Fatalf("offset has no degenerate case, got %v", got)
	}
	if got := safeReference(20, models.ScaleOpRatio); got != 20 {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestScaleUnscaleRoundTrip(t *testing.T) {
	for _, op := range []string{models.ScaleOpRatio, models.ScaleOpOffset} {
		for _, v := range []float64{-3.5, 0, 0.001, 42, 1e6} {
			ref := safeReference(17.3, op)
			got := unscaleValue(scaleValue(v, ref, op), ref, op)
			if math.Abs(got-v) > 1e-9*math.Max(1, math.Abs(v)) {
				t.Fatalf("op %s: round trip of %v gave %v", op, v, got)
			}
		}
	}
}

func TestScaleNoise(t *testing.T) {
	ns := models.NoiseScaling{MinAbsDB: 50, MaxAbsDB: 150}
	if got := scaleNoise(-100, ns); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := scaleNoise(-30, ns); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := scaleNoise(-200, ns); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
	// Magnitude is what matters, not sign.
	if got := scaleNoise(100, ns); got != 0.5 {
		t.Fatalf("expected 0.5 for positive input, got %v", got)
	}
}
