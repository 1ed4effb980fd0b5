package usecase

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"LinkSight/internal/artifact"
	"LinkSight/internal/domain/models"
	"LinkSight/internal/pipeline"
	"LinkSight/internal/registry"
	"LinkSight/pkg/cache"
	applogger "LinkSight/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordPrediction(string, string) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordModelsLoaded(int)          {}
func (nopMetrics) RecordReload(string)             {}
func (nopMetrics) RecordCache(bool)                {}
func (nopMetrics) RecordError(string)              {}

type countingArtifact struct {
	calls int
	out   float64
}

func (a *countingArtifact) Family() string   { return "Stub" }
func (a *countingArtifact) NumFeatures() int { return 1 }

func (a *countingArtifact) Predict([]float64) (float64, error) {
	a.calls++
	return a.out, nil
}

type stubRegistry struct {
	entries    map[string]*models.ModelEntry
	defaultTag string
	reloads    int
	reloadErr  error
}

func (r *stubRegistry) Get(tag string) (*models.ModelEntry, error) {
	if tag == "" {
		tag = r.defaultTag
	}
	e, ok := r.entries[tag]
	if !ok {
		return nil, &models.UnknownModelError{Tag: tag}
	}
	return e, nil
}

func (r *stubRegistry) List() []models.ModelSummary {
	out := make([]models.ModelSummary, 0, len(r.entries))
	for tag, e := range r.entries {
		out = append(out, models.ModelSummary{Tag: tag, Family: e.Artifact.Family(), WindowSize: e.Meta.WindowSize})
	}
	return out
}

func (r *stubRegistry) Reload(context.Context) error {
	r.reloads++
	return r.reloadErr
}

func newTestEntry(t *testing.T, tag string, art *countingArtifact) *models.ModelEntry {
	t.Helper()
	meta, err := models.ParseMetadata([]byte(
		`{"model": "Stub", "feature_names": ["DL_hist_0"], "window_size": 1, "window_scale_mode": "none"}`,
	))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	return &models.ModelEntry{Tag: tag, Meta: meta, Artifact: art}
}

func newTestService(reg *stubRegistry, c cache.Service) *PredictionService {
	return NewPredictionService(reg, pipeline.New(nil), c, time.Minute, nil, nopMetrics{}, nil)
}

func TestPredictResolvesDefault(t *testing.T) {
	art := &countingArtifact{out: 42}
	reg := &stubRegistry{
		entries:    map[string]*models.ModelEntry{"m1": newTestEntry(t, "m1", art)},
		defaultTag: "m1",
	}
	svc := newTestService(reg, nil)

	res, err := svc.Predict(context.Background(), "", map[string]interface{}{"DL_hist_0": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ModelTag != "m1" || res.Prediction != 42 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPredictUnknownModel(t *testing.T) {
	reg := &stubRegistry{entries: map[string]*models.ModelEntry{}, defaultTag: "m1"}
	svc := newTestService(reg, nil)

	_, err := svc.Predict(context.Background(), "ghost", map[string]interface{}{"DL_hist_0": 1.0})
	var unknown *models.UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownModelError, got %v", err)
	}
}

func TestPredictCacheHitSkipsPipeline(t *testing.T) {
	art := &countingArtifact{out: 7}
	reg := &stubRegistry{
		entries:    map[string]*models.ModelEntry{"m1": newTestEntry(t, "m1", art)},
		defaultTag: "m1",
	}
	svc := newTestService(reg, cache.NewMemoryCache(16, time.Minute))

	features := map[string]interface{}{"DL_hist_0": 3.0}
	for i := 0; i < 3; i++ {
		res, err := svc.Predict(context.Background(), "m1", features)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if res.Prediction != 7 {
			t.Fatalf("call %d: unexpected prediction %v", i, res.Prediction)
		}
	}
	if art.calls != 1 {
		t.Fatalf("expected 1 pipeline run, got %d", art.calls)
	}
}

func TestPredictCacheKeyDependsOnFeatures(t *testing.T) {
	art := &countingArtifact{out: 7}
	reg := &stubRegistry{
		entries:    map[string]*models.ModelEntry{"m1": newTestEntry(t, "m1", art)},
		defaultTag: "m1",
	}
	svc := newTestService(reg, cache.NewMemoryCache(16, time.Minute))

	if _, err := svc.Predict(context.Background(), "m1", map[string]interface{}{"DL_hist_0": 3.0}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.Predict(context.Background(), "m1", map[string]interface{}{"DL_hist_0": 4.0}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if art.calls != 2 {
		t.Fatalf("expected 2 pipeline runs for distinct features, got %d", art.calls)
	}
}

func TestReloadPurgesCache(t *testing.T) {
	art := &countingArtifact{out: 7}
	reg := &stubRegistry{
		entries:    map[string]*models.ModelEntry{"m1": newTestEntry(t, "m1", art)},
		defaultTag: "m1",
	}
	svc := newTestService(reg, cache.NewMemoryCache(16, time.Minute))

	features := map[string]interface{}{"DL_hist_0": 3.0}
	if _, err := svc.Predict(context.Background(), "m1", features); err != nil {
		t.Fatalf("predict: %v", err)
	}

	n, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n != 1 || reg.reloads != 1 {
		t.Fatalf("unexpected reload result n=%d reloads=%d", n, reg.reloads)
	}

	if _, err := svc.Predict(context.Background(), "m1", features); err != nil {
		t.Fatalf("predict after reload: %v", err)
	}
	if art.calls != 2 {
		t.Fatalf("expected cache purge to force a second pipeline run, got %d calls", art.calls)
	}
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func writeLinearPair(t *testing.T, dir, tag string, coef float64) {
	t.Helper()
	meta := `{"model": "LinearRegression", "feature_names": ["DL_hist_0"], "window_size": 1, "window_scale_mode": "none"}`
	if err := os.WriteFile(filepath.Join(dir, tag+".json"), []byte(meta), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&artifact.LinearModel{Coefficients: []float64{coef}}); err != nil {
		t.Fatalf("encode weights: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tag+".bin"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
}

func TestWatcherReloadPurgesCache(t *testing.T) {
	dir := t.TempDir()
	writeLinearPair(t, dir, "m1", 1)

	l := testLogger(t)
	reg := registry.New(dir, "m1", l, nopMetrics{})
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	svc := NewPredictionService(reg, pipeline.New(nil), cache.NewMemoryCache(16, time.Minute), time.Minute, nil, nopMetrics{}, nil)

	w, err := registry.NewWatcher(dir, func(ctx context.Context) error {
		_, rerr := svc.Reload(ctx)
		return rerr
	}, l, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	features := map[string]interface{}{"DL_hist_0": 10.0}
	res, err := svc.Predict(context.Background(), "m1", features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Prediction != 10 {
		t.Fatalf("unexpected prediction %v", res.Prediction)
	}

	// Replace the artifact on disk. The watcher must not only swap the
	// snapshot but also purge the cached response for the old one.
	writeLinearPair(t, dir, "m1", 5)

	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := svc.Predict(context.Background(), "m1", features)
		if err == nil && res.Prediction == 50 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("still serving pre-reload response: res=%+v err=%v", res, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestCacheKeyOrderIndependent(t *testing.T) {
	a := cacheKey("m1", map[string]interface{}{"a": 1.0, "b": 2.0})
	b := cacheKey("m1", map[string]interface{}{"b": 2.0, "a": 1.0})
	if a != b {
		t.Fatalf("key should not depend on map order")
	}
	if a == cacheKey("m2", map[string]interface{}{"a": 1.0, "b": 2.0}) {
		t.Fatalf("key should depend on tag")
	}
}
