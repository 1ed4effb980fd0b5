package di

import (
	"context"
	"fmt"
	"time"

	drepo "LinkSight/internal/domain/repository"
	"LinkSight/internal/handler/api"
	"LinkSight/internal/handler/ws"
	"LinkSight/internal/pipeline"
	"LinkSight/internal/registry"
	internalrepo "LinkSight/internal/repository"
	"LinkSight/internal/usecase"
	"LinkSight/pkg/cache"
	pkgch "LinkSight/pkg/clickhouse"
	"LinkSight/pkg/config"
	xhttp "LinkSight/pkg/http"
	pkgkafka "LinkSight/pkg/kafka"
	applogger "LinkSight/pkg/logger"
	"LinkSight/pkg/metrics"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideRegistry creates the model registry. The initial scan happens in
// App.Run, not here, so DI stays side-effect free on the filesystem.
func ProvideRegistry(cfg *config.Config, l *applogger.Logger, m drepo.Metrics) *registry.Registry {
	return registry.New(cfg.Models.Dir, cfg.Models.DefaultTag, l, m)
}

// ProvideModelRegistry exposes the registry behind its domain interface.
func ProvideModelRegistry(r *registry.Registry) drepo.ModelRegistry {
	return r
}

// ProvidePipeline creates the prediction pipeline.
func ProvidePipeline(l *applogger.Logger) *pipeline.Pipeline {
	return pipeline.New(l)
}

// ProvideCache builds the prediction response cache. Returns nil when
// caching is disabled; memory-only by default, layered over Redis when a
// Redis address is configured.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	mem := cache.NewMemoryCache(cfg.Cache.MaxEntries, ttl)

	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}

	rc, err := cache.NewRedisCache(
		cfg.Cache.Redis.Addr,
		cfg.Cache.Redis.Password,
		cfg.Cache.Redis.DB,
		"linksight",
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(mem, rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client when the audit backend
// is clickhouse, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Audit.Backend != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (at DateTime64(3), model_tag String, prediction Float64, scaled_prediction Float64, reference Float64, features String, duration_ms Float64) ENGINE=MergeTree ORDER BY (model_tag, at)",
			auditTable(cfg),
		),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the audit backend is
// kafka, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Audit.Backend != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideHub creates the WebSocket prediction feed hub.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideAuditProcessor assembles the audit sinks for the configured backend
// and wraps them in the batching processor. The hub is always a sink so live
// subscribers see every served prediction.
func ProvideAuditProcessor(
	cfg *config.Config,
	l *applogger.Logger,
	m drepo.Metrics,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	hub *ws.Hub,
) *usecase.AuditProcessor {
	var sinks []drepo.AuditSink
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaAuditSink(producer))
	}
	if chClient != nil {
		sinks = append(sinks, internalrepo.NewClickHouseAuditSink(chClient.DB(), auditTable(cfg)))
	}
	sinks = append(sinks, hub)

	return usecase.NewAuditProcessor(
		l, m,
		cfg.Audit.BufferSize,
		cfg.Audit.BatchSize,
		cfg.Audit.BatchTimeout,
		sinks...,
	)
}

// ProvidePredictionService creates the prediction use case.
func ProvidePredictionService(
	reg drepo.ModelRegistry,
	pipe *pipeline.Pipeline,
	c cache.Service,
	audit *usecase.AuditProcessor,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.PredictionService {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return usecase.NewPredictionService(reg, pipe, c, ttl, audit, m, l)
}

// ProvideHandler creates the Echo route handler.
func ProvideHandler(cfg *config.Config, l *applogger.Logger, svc *usecase.PredictionService, hub *ws.Hub) xhttp.Handler {
	h := api.NewPredictHandler(l, svc, hub)
	if cfg.RateLimit.Enabled {
		h.WithRateLimit(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	}
	return h
}

func auditTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "prediction_events"
	}
	return cfg.ClickHouse.Database + "." + table
}
