package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"LinkSight/internal/domain/models"
	drepo "LinkSight/internal/domain/repository"
)

// ClickHouseAuditSink persists prediction events to a ClickHouse table.
type ClickHouseAuditSink struct {
	db    *sql.DB
	table string
}

// NewClickHouseAuditSink creates a ClickHouse audit sink.
func NewClickHouseAuditSink(db *sql.DB, table string) drepo.AuditSink {
	return &ClickHouseAuditSink{db: db, table: table}
}

func (s *ClickHouseAuditSink) Write(ctx context.Context, e *models.PredictionEvent) error {
	return s.WriteBatch(ctx, []*models.PredictionEvent{e})
}

func (s *ClickHouseAuditSink) WriteBatch(ctx context.Context, events []*models.PredictionEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Multi-row VALUES insert to keep round-trips down. 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, e := range events[start:end] {
			if e == nil || e.ModelTag == "" {
				continue
			}
			feats, err := json.Marshal(e.Features)
			if err != nil {
				return fmt.Errorf("marshal features: %w", err)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				e.At,
				e.ModelTag,
				e.Prediction,
				e.ScaledPrediction,
				e.Reference,
				string(feats),
				e.DurationMs,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (at, model_tag, prediction, scaled_prediction, reference, features, duration_ms) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseAuditSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAuditSink) Close() error {
	return nil // pool is managed by pkg/clickhouse
}
