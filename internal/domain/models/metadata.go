package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Feature naming conventions shared between training and serving. Window
// features carry a trailing "distance from now" index, 0 = most recent.
const (
	WindowFeaturePrefix = "DL_hist_"
	NoiseFeaturePrefix  = "noise_"
)

// Window scaling modes.
const (
	ScaleModeWindowMean   = "window_mean"
	ScaleModeWindowAnchor = "window_anchor"
	ScaleModeNone         = "none"
)

// Window scaling arithmetic.
const (
	ScaleOpRatio  = "ratio"
	ScaleOpOffset = "offset"
)

// NoiseScaling holds the fixed min-max rule used to squash |dB| noise
// readings into [0,1] at training time.
type NoiseScaling struct {
	MinAbsDB float64 `json:"min_abs_db"`
	MaxAbsDB float64 `json:"max_abs_db"`
}

// ScalingConfig reproduces the training-time scaling of one model.
type ScalingConfig struct {
	WindowScaleMode string       `json:"window_scale_mode"`
	WindowScaleOp   string       `json:"window_scale_op"`
	NoiseScaling    NoiseScaling `json:"noise_scaling"`
}

// ModelMetadata is the declarative contract for one artifact. Construct it
// through ParseMetadata only; the zero value is not valid.
type ModelMetadata struct {
	Family       string        `json:"model"`
	FeatureNames []string      `json:"feature_names"`
	WindowSize   int           `json:"window_size"`
	Scaling      ScalingConfig `json:"scaling"`

	// Derived at parse time, in feature-group order.
	WindowNames []string `json:"-"` // trailing index ascending, most recent first
	NoiseNames  []string `json:"-"`
	OtherNames  []string `json:"-"`
}

// rawMetadata tolerates the two historical spellings of the feature list and
// scaling placed either nested or at the top level.
type rawMetadata struct {
	Family         string         `json:"model"`
	FeatureNames   []string       `json:"feature_names"`
	FeatureNamesIn []string       `json:"feature_names_in"`
	WindowSize     int            `json:"window_size"`
	Scaling        *ScalingConfig `json:"scaling"`

	WindowScaleMode string        `json:"window_scale_mode"`
	WindowScaleOp   string        `json:"window_scale_op"`
	NoiseScaling    *NoiseScaling `json:"noise_scaling"`
}

// ParseMetadata decodes and validates a metadata document. A malformed
// document fails here, at load time, never at prediction time.
func ParseMetadata(data []byte) (*ModelMetadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	names := raw.FeatureNames
	if len(names) == 0 {
		names = raw.FeatureNamesIn
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("metadata: feature_names is required")
	}
	if raw.WindowSize < 1 {
		return nil, fmt.Errorf("metadata: window_size must be >= 1, got %d", raw.WindowSize)
	}

	scaling := ScalingConfig{
		WindowScaleMode: raw.WindowScaleMode,
		WindowScaleOp:   raw.WindowScaleOp,
	}
	if raw.NoiseScaling != nil {
		scaling.NoiseScaling = *raw.NoiseScaling
	}
	if raw.Scaling != nil {
		scaling = *raw.Scaling
	}
	if scaling.WindowScaleMode == "" {
		scaling.WindowScaleMode = ScaleModeWindowMean
	}
	if scaling.WindowScaleOp == "" {
		scaling.WindowScaleOp = ScaleOpRatio
	}
	if scaling.NoiseScaling.MinAbsDB == 0 && scaling.NoiseScaling.MaxAbsDB == 0 {
		scaling.NoiseScaling = NoiseScaling{MinAbsDB: 50, MaxAbsDB: 150}
	}

	switch scaling.WindowScaleMode {
	case ScaleModeWindowMean, ScaleModeWindowAnchor, ScaleModeNone:
	default:
		return nil, fmt.Errorf("metadata: unknown window_scale_mode %q", scaling.WindowScaleMode)
	}
	switch scaling.WindowScaleOp {
	case ScaleOpRatio, ScaleOpOffset:
	default:
		return nil, fmt.Errorf("metadata: unknown window_scale_op %q", scaling.WindowScaleOp)
	}
	if scaling.NoiseScaling.MaxAbsDB <= scaling.NoiseScaling.MinAbsDB {
		return nil, fmt.Errorf("metadata: noise_scaling max_abs_db (%v) must exceed min_abs_db (%v)",
			scaling.NoiseScaling.MaxAbsDB, scaling.NoiseScaling.MinAbsDB)
	}

	m := &ModelMetadata{
		Family:       raw.Family,
		FeatureNames: names,
		WindowSize:   raw.WindowSize,
		Scaling:      scaling,
	}
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, WindowFeaturePrefix):
			m.WindowNames = append(m.WindowNames, n)
		case strings.HasPrefix(n, NoiseFeaturePrefix):
			m.NoiseNames = append(m.NoiseNames, n)
		default:
			m.OtherNames = append(m.OtherNames, n)
		}
	}
	if len(m.WindowNames) < m.WindowSize {
		return nil, fmt.Errorf("metadata: %d window features declared, window_size is %d",
			len(m.WindowNames), m.WindowSize)
	}
	sortByTrailingIndex(m.WindowNames)
	// Trust window_size when the metadata over-declares history columns.
	m.WindowNames = m.WindowNames[:m.WindowSize]

	return m, nil
}

// sortByTrailingIndex orders names by their trailing integer suffix. Names
// without a parsable suffix keep their declared order, after the indexed ones.
func sortByTrailingIndex(names []string) {
	idx := func(s string) (int, bool) {
		parts := strings.Split(s, "_")
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	sort.SliceStable(names, func(a, b int) bool {
		ia, oka := idx(names[a])
		ib, okb := idx(names[b])
		if oka && okb {
			return ia < ib
		}
		return oka && !okb
	})
}
