package pipeline

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"LinkSight/internal/domain/models"
)

type stubArtifact struct {
	out  float64
	err  error
	seen []float64
}

func (s *stubArtifact) Family() string   { return "Stub" }
func (s *stubArtifact) NumFeatures() int { return len(s.seen) }

func (s *stubArtifact) Predict(x []float64) (float64, error) {
	s.seen = append([]float64(nil), x...)
	return s.out, s.err
}

func testEntry(t *testing.T, doc string, art *stubArtifact) *models.ModelEntry {
	t.Helper()
	meta, err := models.ParseMetadata([]byte(doc))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	return &models.ModelEntry{Tag: "test_model", Meta: meta, Artifact: art}
}

const meanRatioDoc = `{
	"model": "Stub",
	"feature_names": ["DL_hist_0", "DL_hist_1", "DL_hist_2", "noise_rsrp"],
	"window_size": 3
}`

func TestPredictWindowMeanRatio(t *testing.T) {
	art := &stubArtifact{out: 1.1}
	entry := testEntry(t, meanRatioDoc, art)
	p := New(nil)

	out, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  10.0,
		"DL_hist_1":  20.0,
		"DL_hist_2":  30.0,
		"noise_rsrp": -100.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reference != 20 {
		t.Fatalf("expected reference 20, got %v", out.Reference)
	}
	want := []float64{0.5, 1.0, 1.5, 0.5}
	for i, v := range want {
		if math.Abs(art.seen[i]-v) > 1e-12 {
			t.Fatalf("vector[%d]: expected %v, got %v", i, v, art.seen[i])
		}
	}
	if math.Abs(out.Result.Prediction-22.0) > 1e-9 {
		t.Fatalf("expected 22.0, got %v", out.Result.Prediction)
	}
	if out.ScaledOutput != 1.1 {
		t.Fatalf("expected scaled output 1.1, got %v", out.ScaledOutput)
	}
	if out.Result.ModelTag != "test_model" {
		t.Fatalf("unexpected tag %q", out.Result.ModelTag)
	}
}

func TestPredictValidationAggregates(t *testing.T) {
	entry := testEntry(t, meanRatioDoc, &stubArtifact{})
	p := New(nil)

	_, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  10.0,
		"DL_hist_2":  30.0,
		"noise_rsrp": "loud",
		"extra":      "ignored",
	})
	var verr *models.FeatureValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected FeatureValidationError, got %v", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "DL_hist_1" {
		t.Fatalf("unexpected missing %v", verr.Missing)
	}
	if len(verr.Invalid) != 1 || verr.Invalid[0] != "noise_rsrp" {
		t.Fatalf("unexpected invalid %v", verr.Invalid)
	}
}

func TestPredictDegenerateWindow(t *testing.T) {
	art := &stubArtifact{out: 0.7}
	entry := testEntry(t, meanRatioDoc, art)
	p := New(nil)

	out, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  0.0,
		"DL_hist_1":  0.0,
		"DL_hist_2":  0.0,
		"noise_rsrp": -100.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// All-zero window: ratio against the fallback reference of 1, so window
	// values pass through unchanged and the output is unscaled against 1.
	if out.Reference != 1 {
		t.Fatalf("expected fallback reference 1, got %v", out.Reference)
	}
	for i := 0; i < 3; i++ {
		if art.seen[i] != 0 {
			t.Fatalf("expected zero window to pass through, got %v", art.seen[:3])
		}
	}
	if out.Result.Prediction != 0.7 {
		t.Fatalf("expected 0.7, got %v", out.Result.Prediction)
	}
}

func TestPredictAnchorOffset(t *testing.T) {
	doc := `{
		"model": "Stub",
		"feature_names": ["DL_hist_0", "DL_hist_1"],
		"window_size": 2,
		"scaling": {
			"window_scale_mode": "window_anchor",
			"window_scale_op": "offset",
			"noise_scaling": {"min_abs_db": 50, "max_abs_db": 150}
		}
	}`
	art := &stubArtifact{out: 2.5}
	entry := testEntry(t, doc, art)
	p := New(nil)

	out, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0": 10.0,
		"DL_hist_1": 14.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reference != 10 {
		t.Fatalf("expected anchor reference 10, got %v", out.Reference)
	}
	if art.seen[0] != 0 || art.seen[1] != 4 {
		t.Fatalf("unexpected offsets %v", art.seen)
	}
	if out.Result.Prediction != 12.5 {
		t.Fatalf("expected 12.5, got %v", out.Result.Prediction)
	}
}

func TestPredictNoneModeSkipsUnscale(t *testing.T) {
	doc := `{
		"model": "Stub",
		"feature_names": ["DL_hist_0"],
		"window_size": 1,
		"window_scale_mode": "none"
	}`
	art := &stubArtifact{out: 55.5}
	entry := testEntry(t, doc, art)
	p := New(nil)

	out, err := p.Predict(entry, map[string]interface{}{"DL_hist_0": 10.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.seen[0] != 10 {
		t.Fatalf("expected raw value, got %v", art.seen[0])
	}
	if out.Result.Prediction != 55.5 {
		t.Fatalf("expected raw model output, got %v", out.Result.Prediction)
	}
}

func TestPredictIntegerAndNumberValues(t *testing.T) {
	art := &stubArtifact{out: 1.0}
	entry := testEntry(t, meanRatioDoc, art)
	p := New(nil)

	_, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  10,
		"DL_hist_1":  int64(20),
		"DL_hist_2":  float32(30),
		"noise_rsrp": -100.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPredictArtifactError(t *testing.T) {
	art := &stubArtifact{err: fmt.Errorf("boom")}
	entry := testEntry(t, meanRatioDoc, art)
	p := New(nil)

	_, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  10.0,
		"DL_hist_1":  20.0,
		"DL_hist_2":  30.0,
		"noise_rsrp": -100.0,
	})
	var infErr *models.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if infErr.Tag != "test_model" {
		t.Fatalf("unexpected tag %q", infErr.Tag)
	}
}

func TestPredictNonFiniteOutput(t *testing.T) {
	art := &stubArtifact{out: math.NaN()}
	entry := testEntry(t, meanRatioDoc, art)
	p := New(nil)

	_, err := p.Predict(entry, map[string]interface{}{
		"DL_hist_0":  10.0,
		"DL_hist_1":  20.0,
		"DL_hist_2":  30.0,
		"noise_rsrp": -100.0,
	})
	var infErr *models.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError for NaN output, got %v", err)
	}
}
