package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/ports"
	"recipegraph/application/queries"
	"recipegraph/domain/config"
	domainservices "recipegraph/domain/services"
)

// SearchService runs ranked full-text queries over ACTIVE nodes.
type SearchService struct {
	tx      ports.TransactionManager
	metrics ports.Metrics
	config  *config.DomainConfig
	logger  *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(tx ports.TransactionManager, metrics ports.Metrics, cfg *config.DomainConfig, logger *zap.Logger) *SearchService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SearchService{
		tx:      tx,
		metrics: metricsOrNoop(metrics),
		config:  cfg,
		logger:  logger,
	}
}

// Search matches any query token against indexed property text. A query
// with no usable tokens returns an empty result rather than an error.
func (s *SearchService) Search(ctx context.Context, q queries.SearchQuery) (hits []queries.SearchHit, err error) {
	defer observe(s.metrics, "search", time.Now(), &err)

	nodeType, err := parseOptionalNodeType(q.Type)
	if err != nil {
		return nil, err
	}

	var tokens []string
	if q.Category != "" {
		tokens = domainservices.CategoryTokens(q.Category)
	} else {
		tokens = domainservices.Tokenize(q.Query)
	}
	if len(tokens) == 0 {
		return []queries.SearchHit{}, nil
	}

	criteria := ports.SearchCriteria{
		Match: domainservices.MatchExpression(tokens),
		Type:  nodeType,
		Limit: s.config.ClampSearchLimit(q.Limit),
	}

	var matches []ports.SearchMatch
	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		matches, err = uow.SearchIndex().Search(ctx, criteria)
		return err
	})
	if err != nil {
		return nil, err
	}

	hits = make([]queries.SearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, queries.SearchHit{Node: m.Node, Score: m.Score})
	}
	s.logger.Debug("Search completed",
		zap.Int("tokens", len(tokens)),
		zap.String("category", q.Category),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// SearchCategory finds recipes tagged by one of the well-known categories.
func (s *SearchService) SearchCategory(ctx context.Context, category string, limit int) ([]queries.SearchHit, error) {
	return s.Search(ctx, queries.SearchQuery{Category: category, Type: "RECIPE", Limit: limit})
}
