package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/ports"
	"recipegraph/application/queries"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	"recipegraph/domain/events"
	domainservices "recipegraph/domain/services"
	"recipegraph/pkg/common"
	pkgerrors "recipegraph/pkg/errors"
)

// NodeService owns every node mutation. Each call writes the node row, its
// version record and its search entry in one transaction.
type NodeService struct {
	tx        ports.TransactionManager
	publisher ports.EventPublisher
	metrics   ports.Metrics
	config    *config.DomainConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewNodeService creates a new node service
func NewNodeService(
	tx ports.TransactionManager,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *NodeService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeService{
		tx:        tx,
		publisher: publisher,
		metrics:   metricsOrNoop(metrics),
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new ACTIVE node at version 1.
func (s *NodeService) Create(ctx context.Context, cmd commands.CreateNodeCommand) (node *entities.Node, err error) {
	defer observe(s.metrics, "node.create", time.Now(), &err)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	node, err = entities.NewNode(cmd.Type, cmd.Key, cmd.Properties, s.config, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		return s.insert(ctx, uow, node)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Node created",
		zap.String("node_id", node.ID().String()),
		zap.String("type", node.Type().String()),
	)
	s.commit(ctx, node)
	return node, nil
}

// Get returns an ACTIVE node.
func (s *NodeService) Get(ctx context.Context, rawID string) (node *entities.Node, err error) {
	defer observe(s.metrics, "node.get", time.Now(), &err)

	id, err := lookupNodeID(rawID)
	if err != nil {
		return nil, err
	}

	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		node, err = s.loadActive(ctx, uow, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Update applies a merge patch (or full replacement) to an ACTIVE node,
// enforcing ExpectedVersion when one is supplied.
func (s *NodeService) Update(ctx context.Context, cmd commands.UpdateNodeCommand) (node *entities.Node, err error) {
	defer observe(s.metrics, "node.update", time.Now(), &err)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	id, err := lookupNodeID(cmd.NodeID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		node, err = s.loadActive(ctx, uow, id)
		if err != nil {
			return err
		}
		if err := node.CheckVersion(cmd.ExpectedVersion); err != nil {
			return err
		}
		if err := node.ApplyUpdate(cmd.Properties, cmd.Replace, s.config, s.now()); err != nil {
			return err
		}
		if err := uow.NodeRepository().Update(ctx, node); err != nil {
			return err
		}
		if err := uow.VersionLedger().Append(ctx, entities.NewVersionRecord(node)); err != nil {
			return err
		}
		return s.index(ctx, uow, node)
	})
	if err != nil {
		return nil, err
	}

	s.commit(ctx, node)
	return node, nil
}

// Delete soft-deletes a node: a DELETED version is appended and the node
// leaves the search index, but its row and history remain.
func (s *NodeService) Delete(ctx context.Context, rawID string) (err error) {
	defer observe(s.metrics, "node.delete", time.Now(), &err)

	id, err := lookupNodeID(rawID)
	if err != nil {
		return err
	}

	var node *entities.Node
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		node, err = s.loadActive(ctx, uow, id)
		if err != nil {
			return err
		}
		if err := node.MarkDeleted(s.now()); err != nil {
			return err
		}
		if err := uow.NodeRepository().Update(ctx, node); err != nil {
			return err
		}
		if err := uow.VersionLedger().Append(ctx, entities.NewVersionRecord(node)); err != nil {
			return err
		}
		return uow.SearchIndex().Remove(ctx, id)
	})
	if err != nil {
		return err
	}

	s.commit(ctx, node)
	return nil
}

// Purge physically removes a node, deleted or not, together with its
// edges, history and search entry.
func (s *NodeService) Purge(ctx context.Context, rawID string) (err error) {
	defer observe(s.metrics, "node.purge", time.Now(), &err)

	id, err := lookupNodeID(rawID)
	if err != nil {
		return err
	}

	var removed int
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		removed, err = uow.NodeRepository().Purge(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Node purged",
		zap.String("node_id", id.String()),
		zap.Int("edges_removed", removed),
	)
	publishEvents(ctx, s.publisher, s.logger, []events.DomainEvent{events.NewNodePurged(id, removed, s.now().UTC())})
	return nil
}

// List returns one page of ACTIVE nodes, newest first.
func (s *NodeService) List(ctx context.Context, q queries.ListNodesQuery) (page *queries.NodePage, err error) {
	defer observe(s.metrics, "node.list", time.Now(), &err)

	nodeType, err := parseOptionalNodeType(q.Type)
	if err != nil {
		return nil, err
	}
	afterSeq, err := common.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	limit := s.config.ClampPageSize(q.Limit)

	var nodes []*entities.Node
	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		nodes, err = uow.NodeRepository().List(ctx, ports.NodeFilter{
			Type:     nodeType,
			AfterSeq: afterSeq,
			Limit:    limit + 1,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	page = &queries.NodePage{Items: nodes}
	if len(nodes) > limit {
		page.Items = nodes[:limit]
		page.NextCursor = common.EncodeCursor(page.Items[limit-1].Seq())
	}
	return page, nil
}

// All lazily walks every ACTIVE node of the given type (all types when
// empty), fetching one page per step.
func (s *NodeService) All(ctx context.Context, nodeType string) iter.Seq2[*entities.Node, error] {
	return func(yield func(*entities.Node, error) bool) {
		cursor := ""
		for {
			page, err := s.List(ctx, queries.ListNodesQuery{Type: nodeType, Cursor: cursor, Limit: s.config.MaxPageSize})
			if err != nil {
				yield(nil, err)
				return
			}
			for _, n := range page.Items {
				if !yield(n, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}

// History returns every version of a node, oldest first. Deleted nodes
// keep their history; purged nodes do not.
func (s *NodeService) History(ctx context.Context, rawID string) (records []entities.VersionRecord, err error) {
	defer observe(s.metrics, "node.history", time.Now(), &err)

	id, err := lookupNodeID(rawID)
	if err != nil {
		return nil, err
	}

	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		records, err = uow.VersionLedger().History(ctx, id)
		return err
	})
	return records, err
}

// FindByKey returns the ACTIVE node registered under an external key.
func (s *NodeService) FindByKey(ctx context.Context, nodeType, key string) (node *entities.Node, err error) {
	t, err := valueobjects.ParseNodeType(nodeType)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		node, err = uow.NodeRepository().GetByKey(ctx, t, key)
		if err != nil {
			return err
		}
		if !node.IsActive() {
			return pkgerrors.NewNotFoundError(t.String(), key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// EnsureNode returns the node registered under (type, key), creating it
// when absent. The lookup and insert share a transaction and the key is
// unique per type, so concurrent callers converge on one node. A key that
// belongs to a deleted node is a conflict.
func (s *NodeService) EnsureNode(ctx context.Context, cmd commands.CreateNodeCommand) (node *entities.Node, created bool, err error) {
	defer observe(s.metrics, "node.ensure", time.Now(), &err)

	if err := cmd.Validate(); err != nil {
		return nil, false, err
	}
	candidate, err := entities.NewNode(cmd.Type, cmd.Key, cmd.Properties, s.config, s.now())
	if err != nil {
		return nil, false, err
	}
	if candidate.Key() == "" {
		return nil, false, pkgerrors.NewValidationError("key is required")
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		existing, err := uow.NodeRepository().GetByKey(ctx, candidate.Type(), candidate.Key())
		switch {
		case err == nil:
			if !existing.IsActive() {
				return pkgerrors.NewConflictError(
					fmt.Sprintf("%s %q belongs to a deleted node", candidate.Type(), candidate.Key())).
					WithCode("KEY_DELETED")
			}
			node, created = existing, false
			return nil
		case pkgerrors.IsNotFound(err):
			if err := s.insert(ctx, uow, candidate); err != nil {
				return err
			}
			node, created = candidate, true
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.commit(ctx, node)
	}
	return node, created, nil
}

func (s *NodeService) insert(ctx context.Context, uow ports.UnitOfWork, node *entities.Node) error {
	if err := uow.NodeRepository().Insert(ctx, node); err != nil {
		return err
	}
	if err := uow.VersionLedger().Append(ctx, entities.NewVersionRecord(node)); err != nil {
		return err
	}
	return s.index(ctx, uow, node)
}

func (s *NodeService) index(ctx context.Context, uow ports.UnitOfWork, node *entities.Node) error {
	text := domainservices.ExtractSearchText(node.Properties(), s.config.MaxIndexDepth)
	return uow.SearchIndex().Index(ctx, node.ID(), node.Type(), text)
}

func (s *NodeService) loadActive(ctx context.Context, uow ports.UnitOfWork, id valueobjects.NodeID) (*entities.Node, error) {
	node, err := uow.NodeRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !node.IsActive() {
		return nil, notFoundNode(id)
	}
	return node, nil
}

func (s *NodeService) commit(ctx context.Context, node *entities.Node) {
	publishEvents(ctx, s.publisher, s.logger, node.GetUncommittedEvents())
	node.MarkEventsAsCommitted()
}
