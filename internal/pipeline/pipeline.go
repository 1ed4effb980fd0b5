// Package pipeline turns a raw feature map plus a registry entry into a
// prediction, enforcing the metadata contract exactly. Every call is
// Validate -> Normalize -> Infer -> Unscale with no state kept between calls.
package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"LinkSight/internal/domain/models"
	applogger "LinkSight/pkg/logger"
)

// Pipeline executes predictions. Stateless; safe for concurrent use.
// Metric recording happens in the calling service, which sees cache hits
// and registry failures as well.
type Pipeline struct {
	l *applogger.Logger
}

func New(l *applogger.Logger) *Pipeline {
	return &Pipeline{l: l}
}

// Outcome carries the prediction plus the intermediates the audit trail and
// tests care about.
type Outcome struct {
	Result       models.PredictionResult
	ScaledOutput float64
	Reference    float64
	Vector       []float64
	Duration     time.Duration
}

// Predict runs the four pipeline steps against one immutable entry. Failures
// short-circuit at the step they occur and come back as the typed errors in
// domain/models.
func (p *Pipeline) Predict(entry *models.ModelEntry, features map[string]interface{}) (*Outcome, error) {
	start := time.Now()
	meta := entry.Meta

	vals, err := validateFeatures(meta, features)
	if err != nil {
		return nil, err
	}

	// Normalize: window features against the per-request reference, noise
	// features through the fixed |dB| mapping, everything else raw.
	window := make([]float64, len(meta.WindowNames))
	for i, n := range meta.WindowNames {
		window[i] = vals[n]
	}
	ref := safeReference(windowReference(window, meta.Scaling.WindowScaleMode), meta.Scaling.WindowScaleOp)

	scaled := make(map[string]float64, len(vals))
	for n, v := range vals {
		scaled[n] = v
	}
	if meta.Scaling.WindowScaleMode != models.ScaleModeNone {
		for _, n := range meta.WindowNames {
			scaled[n] = scaleValue(vals[n], ref, meta.Scaling.WindowScaleOp)
		}
	}
	for _, n := range meta.NoiseNames {
		scaled[n] = scaleNoise(vals[n], meta.Scaling.NoiseScaling)
	}

	x := make([]float64, len(meta.FeatureNames))
	for i, n := range meta.FeatureNames {
		x[i] = scaled[n]
	}

	yScaled, err := entry.Artifact.Predict(x)
	if err != nil {
		return nil, &models.InferenceError{Tag: entry.Tag, Err: err}
	}
	if math.IsNaN(yScaled) || math.IsInf(yScaled, 0) {
		return nil, &models.InferenceError{Tag: entry.Tag, Err: fmt.Errorf("non-finite model output %v", yScaled)}
	}

	y := yScaled
	if meta.Scaling.WindowScaleMode != models.ScaleModeNone {
		y = unscaleValue(yScaled, ref, meta.Scaling.WindowScaleOp)
	}

	out := &Outcome{
		Result:       models.PredictionResult{Prediction: y, ModelTag: entry.Tag},
		ScaledOutput: yScaled,
		Reference:    ref,
		Vector:       x,
		Duration:     time.Since(start),
	}
	if p.l != nil {
		p.l.Debug("pipeline predict",
			applogger.String("model", entry.Tag),
			applogger.Float64("prediction", y),
			applogger.Float64("reference", ref),
			applogger.Duration("duration_ms", out.Duration),
		)
	}
	return out, nil
}

// validateFeatures checks every declared name against the request and
// reports the complete set of offenders in one error. Extra keys in the
// request are ignored.
func validateFeatures(meta *models.ModelMetadata, features map[string]interface{}) (map[string]float64, error) {
	vals := make(map[string]float64, len(meta.FeatureNames))
	var missing, invalid []string
	for _, n := range meta.FeatureNames {
		raw, ok := features[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			invalid = append(invalid, n)
			continue
		}
		vals[n] = v
	}
	if len(missing) > 0 || len(invalid) > 0 {
		sort.Strings(missing)
		sort.Strings(invalid)
		return nil, &models.FeatureValidationError{Missing: missing, Invalid: invalid}
	}
	return vals, nil
}

// toFloat accepts the numeric shapes a decoded JSON body can carry.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
