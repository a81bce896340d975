package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"recipegraph/application/ingestion"
	"recipegraph/application/ports"
	"recipegraph/application/services"
	domainconfig "recipegraph/domain/config"
	"recipegraph/infrastructure/config"
	"recipegraph/infrastructure/messaging/eventbridge"
	"recipegraph/infrastructure/persistence/sqlite"
	"recipegraph/interfaces/http/rest"
	"recipegraph/interfaces/http/rest/handlers"
	"recipegraph/interfaces/http/rest/middleware"
	"recipegraph/pkg/auth"
	pkgerrors "recipegraph/pkg/errors"
	"recipegraph/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideDomainConfig selects the graph limits for the environment
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	return dc, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideStore opens the SQLite graph store
func ProvideStore(cfg *config.Config, logger *zap.Logger) (*sqlite.Store, func(), error) {
	store, err := sqlite.Open(cfg.DatabasePath, cfg.BusyTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
func ProvideEventPublisher(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		logger.Info("Event publishing disabled; no event bus configured")
		return eventbridge.NewNoopPublisher(logger)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, cfg.EventSource, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("recipegraph")
}

// ProvideCloudWatchReporter returns nil when no namespace is configured
func ProvideCloudWatchReporter(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) *observability.CloudWatchReporter {
	if cfg.CloudWatchNamespace == "" {
		return nil
	}
	return observability.NewCloudWatchReporter(awscloudwatch.NewFromConfig(awsCfg), cfg.CloudWatchNamespace, logger)
}

// ProvideMetrics fans measurements out to every enabled backend
func ProvideMetrics(collector *observability.Collector, cw *observability.CloudWatchReporter) ports.Metrics {
	if cw == nil {
		return collector
	}
	return observability.Multi{collector, cw}
}

// ProvideTracer returns nil unless tracing is enabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("recipegraph")
}

// ProvideHealthService creates the store probe
func ProvideHealthService(tx ports.TransactionManager, logger *zap.Logger) *services.HealthService {
	return services.NewHealthService(tx, 0, logger)
}

// ProvidePipeline creates the ingestion pipeline over the graph services
func ProvidePipeline(
	nodes *services.NodeService,
	edges *services.EdgeService,
	metrics ports.Metrics,
	dc *domainconfig.DomainConfig,
	logger *zap.Logger,
) *ingestion.Pipeline {
	return ingestion.NewPipeline(nodes, edges, metrics, dc, logger)
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideAuthenticator enables JWT checks when a secret is configured
func ProvideAuthenticator(cfg *config.Config, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) (*middleware.Authenticator, error) {
	if !cfg.AuthEnabled() {
		logger.Warn("JWT authentication disabled; mutating routes are open")
		return middleware.NewAuthenticator(nil, errorHandler, logger), nil
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		return nil, err
	}
	return middleware.NewAuthenticator(validator, errorHandler, logger), nil
}

// ProvideRateLimiter creates the per-IP limiter for mutating routes
func ProvideRateLimiter(cfg *config.Config) *auth.KeyedLimiter {
	return auth.NewKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// ProvideRouter assembles the HTTP handlers
func ProvideRouter(
	cfg *config.Config,
	nodes *services.NodeService,
	edges *services.EdgeService,
	search *services.SearchService,
	traversal *services.TraversalService,
	health *services.HealthService,
	authn *middleware.Authenticator,
	limiter *auth.KeyedLimiter,
	errorHandler *pkgerrors.ErrorHandler,
	collector *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *rest.Router {
	opts := rest.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		EnableCORS:     cfg.EnableCORS,
		Tracer:         tracer,
	}
	if cfg.EnableMetrics {
		opts.Collector = collector
	}

	return rest.NewRouter(
		handlers.NewNodeHandler(nodes, traversal, errorHandler, cfg.MaxBodyBytes, logger),
		handlers.NewEdgeHandler(edges, errorHandler, cfg.MaxBodyBytes, logger),
		handlers.NewSearchHandler(search, errorHandler, logger),
		handlers.NewHealthHandler(health),
		authn,
		limiter,
		errorHandler,
		opts,
		logger,
	)
}
