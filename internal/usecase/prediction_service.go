package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"LinkSight/internal/domain/models"
	drepo "LinkSight/internal/domain/repository"
	"LinkSight/internal/pipeline"
	"LinkSight/pkg/cache"
	applogger "LinkSight/pkg/logger"
)

// PredictionService is the application-level prediction flow: resolve the
// model, consult the response cache, run the pipeline, emit the audit event.
type PredictionService struct {
	reg      drepo.ModelRegistry
	pipe     *pipeline.Pipeline
	cache    cache.Service
	cacheTTL time.Duration
	audit    *AuditProcessor
	metrics  drepo.Metrics
	l        *applogger.Logger
}

// NewPredictionService creates a new PredictionService instance. cache and
// audit may be nil when those features are disabled.
func NewPredictionService(
	reg drepo.ModelRegistry,
	pipe *pipeline.Pipeline,
	c cache.Service,
	cacheTTL time.Duration,
	audit *AuditProcessor,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *PredictionService {
	return &PredictionService{
		reg:      reg,
		pipe:     pipe,
		cache:    c,
		cacheTTL: cacheTTL,
		audit:    audit,
		metrics:  metrics,
		l:        l,
	}
}

// Predict serves one prediction. Predictions are pure functions of
// (tag, features), so cached responses are always valid until a reload
// purges them.
func (s *PredictionService) Predict(ctx context.Context, tag string, features map[string]interface{}) (*models.PredictionResult, error) {
	start := time.Now()

	entry, err := s.reg.Get(tag)
	if err != nil {
		s.metrics.RecordPrediction(tag, "error")
		return nil, err
	}

	key := cacheKey(entry.Tag, features)
	if s.cache != nil {
		if b, ok, cerr := s.cache.Get(ctx, key); cerr == nil && ok {
			var res models.PredictionResult
			if jerr := json.Unmarshal(b, &res); jerr == nil {
				s.metrics.RecordCache(true)
				s.metrics.RecordPrediction(entry.Tag, "ok")
				s.metrics.RecordLatency("predict", time.Since(start).Seconds())
				return &res, nil
			}
		}
		s.metrics.RecordCache(false)
	}

	out, err := s.pipe.Predict(entry, features)
	if err != nil {
		s.metrics.RecordPrediction(entry.Tag, "error")
		return nil, err
	}

	if s.cache != nil {
		if b, jerr := json.Marshal(out.Result); jerr == nil {
			if cerr := s.cache.Set(ctx, key, b, s.cacheTTL); cerr != nil && s.l != nil {
				s.l.Warn("prediction cache set failed", applogger.Error(cerr))
			}
		}
	}

	if s.audit != nil {
		s.audit.Submit(&models.PredictionEvent{
			ModelTag:         entry.Tag,
			Prediction:       out.Result.Prediction,
			ScaledPrediction: out.ScaledOutput,
			Reference:        out.Reference,
			Features:         vectorByName(entry.Meta.FeatureNames, out.Vector),
			DurationMs:       float64(out.Duration.Microseconds()) / 1000.0,
			At:               time.Now().UTC(),
		})
	}

	s.metrics.RecordPrediction(entry.Tag, "ok")
	s.metrics.RecordLatency("predict", time.Since(start).Seconds())
	return &out.Result, nil
}

// Models lists the current snapshot.
func (s *PredictionService) Models() []models.ModelSummary {
	return s.reg.List()
}

// ModelInfo resolves one tag to its entry.
func (s *PredictionService) ModelInfo(tag string) (*models.ModelEntry, error) {
	return s.reg.Get(tag)
}

// Reload rebuilds the registry snapshot and purges the response cache, since
// a tag may now resolve to a different artifact.
func (s *PredictionService) Reload(ctx context.Context) (int, error) {
	if err := s.reg.Reload(ctx); err != nil {
		return 0, err
	}
	n := len(s.reg.List())
	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil && s.l != nil {
			s.l.Warn("cache purge failed after reload", applogger.Error(err))
		}
	}
	if s.l != nil {
		s.l.Info("registry reloaded", applogger.Int("models", n))
	}
	return n, nil
}

// cacheKey derives a stable key from the tag and the canonicalized feature
// map. Key order in the request must not matter.
func cacheKey(tag string, features map[string]interface{}) string {
	names := make([]string, 0, len(features))
	for n := range features {
		names = append(names, n)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(tag))
	for _, n := range names {
		fmt.Fprintf(h, "|%s=%v", n, features[n])
	}
	return "pred:" + hex.EncodeToString(h.Sum(nil))
}

func vectorByName(names []string, vec []float64) map[string]float64 {
	m := make(map[string]float64, len(names))
	for i, n := range names {
		if i < len(vec) {
			m[n] = vec[i]
		}
	}
	return m
}
