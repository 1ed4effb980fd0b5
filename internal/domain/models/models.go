package models

import (
	"time"

	"LinkSight/internal/domain/service"
)

// ModelEntry is the unit the registry manages: one tag bound to one loaded
// artifact and its metadata contract. Immutable after construction.
type ModelEntry struct {
	Tag      string
	Meta     *ModelMetadata
	Artifact service.Artifact
}

// ModelSummary is the listing row for one loaded entry.
type ModelSummary struct {
	Tag        string `json:"model_tag"`
	Family     string `json:"model"`
	WindowSize int    `json:"window_size"`
}

// PredictionResult is what callers receive: the unscaled prediction in
// physical units plus the tag that produced it.
type PredictionResult struct {
	Prediction float64 `json:"prediction"`
	ModelTag   string  `json:"model_tag"`
}

// PredictionEvent is the audit record emitted for every served prediction.
type PredictionEvent struct {
	ModelTag         string             `json:"model_tag"`
	Prediction       float64            `json:"prediction"`
	ScaledPrediction float64            `json:"scaled_prediction"`
	Reference        float64            `json:"reference"`
	Features         map[string]float64 `json:"features"`
	DurationMs       float64            `json:"duration_ms"`
	At               time.Time          `json:"at"`
}
