//go:build wireinject
// +build wireinject

package di

import (
	"LinkSight/pkg/config"
	"LinkSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Registry and pipeline
		ProvideRegistry,
		ProvideModelRegistry,
		ProvidePipeline,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Audit trail
		ProvideHub,
		ProvideAuditProcessor,

		// Use cases and HTTP surface
		ProvidePredictionService,
		ProvideHandler,

		// Application server
		server.New,
	)
	return &server.App{}, nil
}
