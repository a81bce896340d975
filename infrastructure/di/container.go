package di

import (
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"recipegraph/application/ingestion"
	"recipegraph/application/ports"
	"recipegraph/application/services"
	domainconfig "recipegraph/domain/config"
	"recipegraph/infrastructure/config"
	"recipegraph/infrastructure/persistence/sqlite"
	"recipegraph/interfaces/http/rest"
	"recipegraph/pkg/auth"
	"recipegraph/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Store        *sqlite.Store
	DynamoDB     *awsdynamodb.Client
	Publisher    ports.EventPublisher
	Collector    *observability.Collector
	CloudWatch   *observability.CloudWatchReporter // nil when disabled
	Metrics      ports.Metrics
	Tracer       *observability.Tracer // nil when disabled
	Nodes        *services.NodeService
	Edges        *services.EdgeService
	Search       *services.SearchService
	Traversal    *services.TraversalService
	Health       *services.HealthService
	Pipeline     *ingestion.Pipeline
	RateLimiter  *auth.KeyedLimiter
	Router       *rest.Router
}
