package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/ports"
	"recipegraph/application/queries"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	"recipegraph/domain/events"
	pkgerrors "recipegraph/pkg/errors"
)

// EdgeService connects existing nodes. Endpoint checks and the insert run
// in the same transaction, so an edge never points at a missing or deleted
// node at commit time.
type EdgeService struct {
	tx        ports.TransactionManager
	publisher ports.EventPublisher
	metrics   ports.Metrics
	config    *config.DomainConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewEdgeService creates a new edge service
func NewEdgeService(
	tx ports.TransactionManager,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *EdgeService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &EdgeService{
		tx:        tx,
		publisher: publisher,
		metrics:   metricsOrNoop(metrics),
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create inserts a new edge. Parallel edges of the same type are allowed.
func (s *EdgeService) Create(ctx context.Context, cmd commands.CreateEdgeCommand) (edge *entities.Edge, err error) {
	defer observe(s.metrics, "edge.create", time.Now(), &err)

	edge, err = s.build(cmd)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		return s.insert(ctx, uow, edge)
	})
	if err != nil {
		return nil, err
	}

	s.published(ctx, edge)
	return edge, nil
}

// EnsureEdge returns the first edge of the same type between the same
// endpoints, creating one when none exists.
func (s *EdgeService) EnsureEdge(ctx context.Context, cmd commands.CreateEdgeCommand) (edge *entities.Edge, created bool, err error) {
	defer observe(s.metrics, "edge.ensure", time.Now(), &err)

	candidate, err := s.build(cmd)
	if err != nil {
		return nil, false, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		existing, err := uow.EdgeRepository().Find(ctx, ports.EdgeFilter{
			FromID: candidate.FromID,
			ToID:   candidate.ToID,
			Type:   candidate.Type,
			Limit:  1,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			edge, created = existing[0], false
			return nil
		}
		if err := s.insert(ctx, uow, candidate); err != nil {
			return err
		}
		edge, created = candidate, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.published(ctx, edge)
	}
	return edge, created, nil
}

// Get returns a single edge by id.
func (s *EdgeService) Get(ctx context.Context, id int64) (edge *entities.Edge, err error) {
	defer observe(s.metrics, "edge.get", time.Now(), &err)

	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		edge, err = uow.EdgeRepository().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// List returns edges matching the filters in insertion order. Every filter
// is optional. At most MaxEdgeListSize edges are returned; Truncated
// reports that more matched.
func (s *EdgeService) List(ctx context.Context, q queries.ListEdgesQuery) (list *queries.EdgeList, err error) {
	defer observe(s.metrics, "edge.list", time.Now(), &err)

	limit := s.config.MaxEdgeListSize
	list = &queries.EdgeList{Items: []*entities.Edge{}}
	filter := ports.EdgeFilter{Limit: limit + 1}
	if q.Type != "" {
		t, err := valueobjects.ParseEdgeType(q.Type)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
		filter.Type = t
	}
	if q.FromID != "" {
		if filter.FromID, err = valueobjects.NewNodeIDFromString(q.FromID); err != nil {
			return list, nil
		}
	}
	if q.ToID != "" {
		if filter.ToID, err = valueobjects.NewNodeIDFromString(q.ToID); err != nil {
			return list, nil
		}
	}

	var edges []*entities.Edge
	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		edges, err = uow.EdgeRepository().Find(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(edges) > limit {
		edges = edges[:limit]
		list.Truncated = true
	}
	list.Items = append(list.Items, edges...)
	return list, nil
}

// Delete removes an edge. Edges are not versioned.
func (s *EdgeService) Delete(ctx context.Context, id int64) (err error) {
	defer observe(s.metrics, "edge.delete", time.Now(), &err)

	var edge *entities.Edge
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		edge, err = uow.EdgeRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}
		return uow.EdgeRepository().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	publishEvents(ctx, s.publisher, s.logger, []events.DomainEvent{
		events.NewEdgeDeleted(edge.ID, edge.FromID, edge.ToID, s.now().UTC()),
	})
	return nil
}

func (s *EdgeService) build(cmd commands.CreateEdgeCommand) (*entities.Edge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	from, err := endpointID(cmd.FromID)
	if err != nil {
		return nil, err
	}
	to, err := endpointID(cmd.ToID)
	if err != nil {
		return nil, err
	}
	return entities.NewEdge(from, to, cmd.Type, cmd.Properties, s.config, s.now())
}

func endpointID(raw string) (valueobjects.NodeID, error) {
	id, err := valueobjects.NewNodeIDFromString(raw)
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.NewReferentialError("edge endpoint does not exist or is deleted").
			WithDetail("node_id", raw)
	}
	return id, nil
}

func (s *EdgeService) insert(ctx context.Context, uow ports.UnitOfWork, edge *entities.Edge) error {
	active, err := uow.NodeRepository().ActiveSeqs(ctx, []valueobjects.NodeID{edge.FromID, edge.ToID})
	if err != nil {
		return err
	}
	for _, endpoint := range []valueobjects.NodeID{edge.FromID, edge.ToID} {
		if _, ok := active[endpoint]; !ok {
			return pkgerrors.NewReferentialError("edge endpoint does not exist or is deleted").
				WithDetail("node_id", endpoint.String())
		}
	}
	return uow.EdgeRepository().Insert(ctx, edge)
}

func (s *EdgeService) published(ctx context.Context, edge *entities.Edge) {
	s.logger.Debug("Edge created",
		zap.Int64("edge_id", edge.ID),
		zap.String("from", edge.FromID.String()),
		zap.String("to", edge.ToID.String()),
		zap.String("type", edge.Type.String()),
	)
	publishEvents(ctx, s.publisher, s.logger, []events.DomainEvent{
		events.NewEdgeCreated(edge.ID, edge.FromID, edge.ToID, edge.Type, s.now().UTC()),
	})
}
