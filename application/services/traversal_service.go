package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/ports"
	"recipegraph/application/queries"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
)

// TraversalService walks the graph breadth-first from a start node,
// following edges in both directions.
type TraversalService struct {
	tx      ports.TransactionManager
	metrics ports.Metrics
	config  *config.DomainConfig
	logger  *zap.Logger
}

// NewTraversalService creates a new traversal service
func NewTraversalService(tx ports.TransactionManager, metrics ports.Metrics, cfg *config.DomainConfig, logger *zap.Logger) *TraversalService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &TraversalService{
		tx:      tx,
		metrics: metricsOrNoop(metrics),
		config:  cfg,
		logger:  logger,
	}
}

type visit struct {
	level int
	seq   int64
}

// Traverse returns every ACTIVE node within Depth hops of the start node
// and the edges between them. Deleted nodes are neither returned nor
// walked through. The whole walk reads one snapshot.
func (s *TraversalService) Traverse(ctx context.Context, q queries.TraverseQuery) (result *queries.TraversalResult, err error) {
	defer observe(s.metrics, "traverse", time.Now(), &err)

	startID, err := lookupNodeID(q.StartID)
	if err != nil {
		return nil, err
	}

	depth := max(q.Depth, 0)
	result = &queries.TraversalResult{
		StartID:        startID.String(),
		RequestedDepth: q.Depth,
	}
	if depth > s.config.MaxTraversalDepth {
		depth = s.config.MaxTraversalDepth
		result.DepthClamped = true
	}
	result.Depth = depth

	err = s.tx.ReadOnly(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		start, err := uow.NodeRepository().GetByID(ctx, startID)
		if err != nil {
			return err
		}
		if !start.IsActive() {
			return notFoundNode(startID)
		}

		visited := map[valueobjects.NodeID]visit{startID: {level: 0, seq: start.Seq()}}
		edgeSeen := make(map[int64]struct{})
		var edgeIDs []int64
		frontier := []valueobjects.NodeID{startID}

		for level := 1; level <= depth && len(frontier) > 0 && !result.Truncated; level++ {
			refs, err := uow.EdgeRepository().Incident(ctx, frontier, s.config.MaxFanOutPerLevel+1)
			if err != nil {
				return err
			}
			if len(refs) > s.config.MaxFanOutPerLevel {
				refs = refs[:s.config.MaxFanOutPerLevel]
				s.truncate(result, queries.TruncatedFanOut)
			}

			var candidates []valueobjects.NodeID
			pending := make(map[valueobjects.NodeID]struct{})
			for _, ref := range refs {
				for _, id := range []valueobjects.NodeID{ref.FromID, ref.ToID} {
					if _, ok := visited[id]; ok {
						continue
					}
					if _, ok := pending[id]; ok {
						continue
					}
					pending[id] = struct{}{}
					candidates = append(candidates, id)
				}
			}

			active, err := uow.NodeRepository().ActiveSeqs(ctx, candidates)
			if err != nil {
				return err
			}

			// Admit new nodes in creation order so the node cap keeps the
			// oldest neighbours deterministically.
			admitted := make([]valueobjects.NodeID, 0, len(active))
			for id := range active {
				admitted = append(admitted, id)
			}
			sort.Slice(admitted, func(i, j int) bool { return active[admitted[i]] < active[admitted[j]] })

			next := make([]valueobjects.NodeID, 0, len(admitted))
			for _, id := range admitted {
				if len(visited) >= s.config.MaxTraversalNodes {
					s.truncate(result, queries.TruncatedNodeLimit)
					break
				}
				visited[id] = visit{level: level, seq: active[id]}
				next = append(next, id)
			}

			for _, ref := range refs {
				if _, ok := edgeSeen[ref.ID]; ok {
					continue
				}
				_, fromOK := visited[ref.FromID]
				_, toOK := visited[ref.ToID]
				if fromOK && toOK {
					edgeSeen[ref.ID] = struct{}{}
					edgeIDs = append(edgeIDs, ref.ID)
				}
			}
			frontier = next
		}

		return s.hydrate(ctx, uow, result, visited, edgeIDs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Traversal completed",
		zap.String("start_id", result.StartID),
		zap.Int("depth", result.Depth),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("edges", len(result.Edges)),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

func (s *TraversalService) truncate(result *queries.TraversalResult, reason string) {
	if result.Truncated {
		return
	}
	result.Truncated = true
	result.TruncatedReason = reason
	s.metrics.TraversalTruncated(reason)
}

func (s *TraversalService) hydrate(
	ctx context.Context,
	uow ports.UnitOfWork,
	result *queries.TraversalResult,
	visited map[valueobjects.NodeID]visit,
	edgeIDs []int64,
) error {
	ids := make([]valueobjects.NodeID, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	nodes, err := uow.NodeRepository().GetMany(ctx, ids)
	if err != nil {
		return err
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := visited[nodes[i].ID()], visited[nodes[j].ID()]
		if a.level != b.level {
			return a.level < b.level
		}
		return a.seq < b.seq
	})

	edges, err := uow.EdgeRepository().GetMany(ctx, edgeIDs)
	if err != nil {
		return err
	}

	result.Nodes = nodes
	result.Edges = edges
	if result.Edges == nil {
		result.Edges = []*entities.Edge{}
	}
	return nil
}
