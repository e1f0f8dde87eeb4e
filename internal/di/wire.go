//go:build wireinject
// +build wireinject

package di

import (
	"opinionpointer/pkg/config"
	"opinionpointer/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgres,
		ProvideClickHouse,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,
		ProvideQueue,

		// Repositories
		ProvideStore,
		ProvideSnapshotStore,
		ProvideEventPublisher,

		// Domain services
		ProvideSentimentProvider,
		ProvideSentimentStream,
		ProvideChannelFetcher,

		// Use cases
		ProvideSentimentService,
		ProvideCollector,
		ProvideRegistry,
		ProvideHealthAggregator,

		// HTTP surface
		ProvideSessionAuth,
		ProvideHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
