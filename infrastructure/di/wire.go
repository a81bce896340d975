//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"recipegraph/application/ports"
	"recipegraph/application/services"
	"recipegraph/infrastructure/config"
	"recipegraph/infrastructure/persistence/sqlite"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideStore,
	wire.Bind(new(ports.TransactionManager), new(*sqlite.Store)),
	ProvideEventPublisher,
	ProvideCollector,
	ProvideCloudWatchReporter,
	ProvideMetrics,
	ProvideTracer,
	services.NewNodeService,
	services.NewEdgeService,
	services.NewSearchService,
	services.NewTraversalService,
	ProvideHealthService,
	ProvidePipeline,
	ProvideErrorHandler,
	ProvideAuthenticator,
	ProvideRateLimiter,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
