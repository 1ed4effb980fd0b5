package repository

import (
	"context"

	"LinkSight/internal/domain/models"
)

// ModelRegistry is the lookup surface the prediction flow depends on.
// Implementations must expose immutable snapshots: concurrent readers see
// either the pre-reload or the post-reload state, never a mix.
type ModelRegistry interface {
	// Get resolves a tag to its entry. An empty tag resolves to the
	// configured default.
	Get(tag string) (*models.ModelEntry, error)

	// List returns one summary per loaded entry, stable within a snapshot.
	List() []models.ModelSummary

	// Reload re-scans the source and atomically replaces the snapshot.
	Reload(ctx context.Context) error
}

// AuditSink receives served-prediction events.
type AuditSink interface {
	Write(ctx context.Context, e *models.PredictionEvent) error
	WriteBatch(ctx context.Context, events []*models.PredictionEvent) error
	Close() error
}

// Metrics records operational counters for the prediction flow.
type Metrics interface {
	RecordPrediction(model, result string)
	RecordLatency(op string, seconds float64)
	RecordModelsLoaded(n int)
	RecordReload(result string)
	RecordCache(hit bool)
	RecordError(kind string)
}
