package registry

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"LinkSight/internal/artifact"
	"LinkSight/internal/domain/models"
	applogger "LinkSight/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordPrediction(string, string) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordModelsLoaded(int)          {}
func (nopMetrics) RecordReload(string)             {}
func (nopMetrics) RecordCache(bool)                {}
func (nopMetrics) RecordError(string)              {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func writePair(t *testing.T, dir, tag, meta string, weights interface{}) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tag+".json"), []byte(meta), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(weights); err != nil {
		t.Fatalf("encode weights: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tag+".bin"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
}

func linearMeta() string {
	return `{"model": "LinearRegression", "feature_names": ["DL_hist_0", "DL_hist_1"], "window_size": 2}`
}

func linearWeights(c0, c1 float64) *artifact.LinearModel {
	return &artifact.LinearModel{Coefficients: []float64{c0, c1}}
}

func TestLoadSkipsBadPairs(t *testing.T) {
	dir := t.TempDir()
	writePair(t, dir, "lin_a", linearMeta(), linearWeights(1, 0))
	writePair(t, dir, "lin_b", linearMeta(), linearWeights(0, 1))

	// Corrupt metadata beside a valid weights file.
	writePair(t, dir, "bad", `{not json`, linearWeights(1, 1))
	// Metadata without a weights file.
	if err := os.WriteFile(filepath.Join(dir, "orphan.json"), []byte(linearMeta()), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	// Artifact width disagreeing with the declared features.
	writePair(t, dir, "narrow", linearMeta(), &artifact.LinearModel{Coefficients: []float64{1}})

	r := New(dir, "lin_a", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 models, got %d", r.Len())
	}

	list := r.List()
	if len(list) != 2 || list[0].Tag != "lin_a" || list[1].Tag != "lin_b" {
		t.Fatalf("unexpected listing %v", list)
	}
	if list[0].Family != artifact.FamilyLinear || list[0].WindowSize != 2 {
		t.Fatalf("unexpected summary %+v", list[0])
	}
}

func TestGetDefaultAndUnknown(t *testing.T) {
	dir := t.TempDir()
	writePair(t, dir, "lin_a", linearMeta(), linearWeights(1, 0))

	r := New(dir, "lin_a", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	e, err := r.Get("")
	if err != nil {
		t.Fatalf("default lookup: %v", err)
	}
	if e.Tag != "lin_a" {
		t.Fatalf("expected default lin_a, got %q", e.Tag)
	}

	var unknown *models.UnknownModelError
	if _, err := r.Get("ghost"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownModelError, got %v", err)
	}
}

func TestGetDefaultMisconfigured(t *testing.T) {
	dir := t.TempDir()
	writePair(t, dir, "lin_a", linearMeta(), linearWeights(1, 0))

	r := New(dir, "ghost", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var misc *models.DefaultModelMisconfiguredError
	if _, err := r.Get(""); !errors.As(err, &misc) {
		t.Fatalf("expected DefaultModelMisconfiguredError, got %v", err)
	}
	if misc.Tag != "ghost" {
		t.Fatalf("unexpected tag %q", misc.Tag)
	}
}

func TestDuplicateTagFirstWins(t *testing.T) {
	dir := t.TempDir()
	// Lexical walk order visits a/ before b/.
	writePair(t, filepath.Join(dir, "a"), "dup", linearMeta(), linearWeights(1, 1))
	writePair(t, filepath.Join(dir, "b"), "dup", linearMeta(), linearWeights(5, 5))

	r := New(dir, "dup", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 model, got %d", r.Len())
	}

	e, err := r.Get("dup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	y, err := e.Artifact.Predict([]float64{1, 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if y != 2 {
		t.Fatalf("expected first pair's artifact (sum 2), got %v", y)
	}
}

func TestMissingDirYieldsEmpty(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "absent"), "x", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestReloadPicksUpNewPairs(t *testing.T) {
	dir := t.TempDir()
	writePair(t, dir, "lin_a", linearMeta(), linearWeights(1, 0))

	r := New(dir, "lin_a", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 model, got %d", r.Len())
	}

	writePair(t, dir, "lin_b", linearMeta(), linearWeights(0, 1))
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 models after reload, got %d", r.Len())
	}
}

func TestReloadDropsRemovedPairs(t *testing.T) {
	dir := t.TempDir()
	writePair(t, dir, "lin_a", linearMeta(), linearWeights(1, 0))
	writePair(t, dir, "lin_b", linearMeta(), linearWeights(0, 1))

	r := New(dir, "lin_a", testLogger(t), nopMetrics{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, f := range []string{"lin_b.json", "lin_b.bin"} {
		if err := os.Remove(filepath.Join(dir, f)); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 model after removal, got %d", r.Len())
	}
	var unknown *models.UnknownModelError
	if _, err := r.Get("lin_b"); !errors.As(err, &unknown) {
		t.Fatalf("expected removed tag to be unknown, got %v", err)
	}
}
