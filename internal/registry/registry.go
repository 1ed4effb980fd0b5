// Package registry discovers model artifacts on disk and serves them as
// immutable snapshots. A scan walks the models directory for <tag>.json
// metadata files and binds each to the <tag>.bin weights file beside it; a
// bad pair is skipped and logged, never fatal to the rest of the scan.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"LinkSight/internal/artifact"
	"LinkSight/internal/domain/models"
	domrepo "LinkSight/internal/domain/repository"
	applogger "LinkSight/pkg/logger"
)

const (
	metadataExt = ".json"
	weightsExt  = ".bin"
)

// Registry maps tags to loaded model entries. Lookups read an atomic
// snapshot pointer; Load builds a complete new snapshot before swapping it
// in, so concurrent predictions never observe a half-built mapping.
type Registry struct {
	dir        string
	defaultTag string
	l          *applogger.Logger
	metrics    domrepo.Metrics

	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	entries   map[string]*models.ModelEntry
	summaries []models.ModelSummary
}

func New(dir, defaultTag string, l *applogger.Logger, metrics domrepo.Metrics) *Registry {
	r := &Registry{dir: dir, defaultTag: defaultTag, l: l, metrics: metrics}
	r.snap.Store(&snapshot{entries: map[string]*models.ModelEntry{}})
	return r
}

// Load scans the models directory and atomically replaces the snapshot.
// A missing directory yields an empty registry; a walk failure keeps the
// previous snapshot and reports the error.
func (r *Registry) Load(ctx context.Context) error {
	next := &snapshot{entries: make(map[string]*models.ModelEntry)}

	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		r.l.Warn("registry: models directory does not exist", applogger.String("dir", r.dir))
		r.install(next)
		return nil
	}

	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), metadataExt) {
			return nil
		}

		tag := strings.TrimSuffix(d.Name(), metadataExt)
		// Walk order is lexical, so on a duplicate tag the first pair wins
		// deterministically; the later one is skipped and logged.
		if _, dup := next.entries[tag]; dup {
			r.l.Warn("registry: duplicate tag, keeping first occurrence",
				applogger.String("tag", tag),
				applogger.String("path", path),
			)
			return nil
		}

		entry, err := r.loadEntry(tag, path)
		if err != nil {
			r.l.Warn("registry: skipping model",
				applogger.String("tag", tag),
				applogger.String("path", path),
				applogger.Error(err),
			)
			if r.metrics != nil {
				r.metrics.RecordError("model_load")
			}
			return nil
		}
		next.entries[tag] = entry
		return nil
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordReload("error")
		}
		return fmt.Errorf("scan models dir: %w", err)
	}

	r.install(next)
	return nil
}

// Reload implements repository.ModelRegistry with a full re-scan.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

func (r *Registry) install(next *snapshot) {
	tags := make([]string, 0, len(next.entries))
	for t := range next.entries {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	next.summaries = make([]models.ModelSummary, 0, len(tags))
	for _, t := range tags {
		e := next.entries[t]
		next.summaries = append(next.summaries, models.ModelSummary{
			Tag:        t,
			Family:     e.Artifact.Family(),
			WindowSize: e.Meta.WindowSize,
		})
	}

	r.snap.Store(next)
	if r.metrics != nil {
		r.metrics.RecordModelsLoaded(len(next.entries))
		r.metrics.RecordReload("ok")
	}
	r.l.Info("registry loaded",
		applogger.Int("models", len(next.entries)),
		applogger.String("dir", r.dir),
	)
}

func (r *Registry) loadEntry(tag, metaPath string) (*models.ModelEntry, error) {
	weightsPath := strings.TrimSuffix(metaPath, metadataExt) + weightsExt
	if _, err := os.Stat(weightsPath); err != nil {
		return nil, fmt.Errorf("no weights file %s: %w", filepath.Base(weightsPath), err)
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	meta, err := models.ParseMetadata(raw)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	defer f.Close()

	art, err := artifact.Decode(meta.Family, f)
	if err != nil {
		return nil, err
	}
	if n := art.NumFeatures(); n > 0 && n != len(meta.FeatureNames) {
		return nil, fmt.Errorf("artifact expects %d features, metadata declares %d", n, len(meta.FeatureNames))
	}

	return &models.ModelEntry{Tag: tag, Meta: meta, Artifact: art}, nil
}

// Get resolves a tag; an empty tag resolves to the configured default.
func (r *Registry) Get(tag string) (*models.ModelEntry, error) {
	snap := r.snap.Load()
	if tag == "" {
		e, ok := snap.entries[r.defaultTag]
		if !ok {
			return nil, &models.DefaultModelMisconfiguredError{Tag: r.defaultTag}
		}
		return e, nil
	}
	e, ok := snap.entries[tag]
	if !ok {
		return nil, &models.UnknownModelError{Tag: tag}
	}
	return e, nil
}

// List returns summaries sorted by tag, stable within a snapshot.
func (r *Registry) List() []models.ModelSummary {
	return r.snap.Load().summaries
}

// Len returns the number of loaded entries.
func (r *Registry) Len() int {
	return len(r.snap.Load().entries)
}

var _ domrepo.ModelRegistry = (*Registry)(nil)
