package entities

import (
	"time"

	"recipegraph/domain/config"
	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

// Edge is a directed, typed relationship between two nodes. IDs are
// assigned by storage in insertion order.
type Edge struct {
	ID         int64                 `json:"id"`
	FromID     valueobjects.NodeID   `json:"fromId"`
	ToID       valueobjects.NodeID   `json:"toId"`
	Type       valueobjects.EdgeType `json:"type"`
	Properties map[string]any        `json:"properties,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// NewEdge validates the edge type and properties. Endpoint existence is
// checked by the store in the same transaction as the insert.
func NewEdge(from, to valueobjects.NodeID, edgeType string, properties map[string]any, cfg *config.DomainConfig, now time.Time) (*Edge, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints are required")
	}
	t, err := valueobjects.ParseEdgeType(edgeType)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	var props map[string]any
	if len(properties) > 0 {
		props, err = NormalizeProperties(properties, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Edge{
		FromID:     from,
		ToID:       to,
		Type:       t,
		Properties: props,
		CreatedAt:  now.UTC(),
	}, nil
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id valueobjects.NodeID) valueobjects.NodeID {
	if e.FromID.Equals(id) {
		return e.ToID
	}
	return e.FromID
}

// VersionRecord is one immutable entry of a node's version history.
type VersionRecord struct {
	NodeID     valueobjects.NodeID `json:"nodeId"`
	Version    int                 `json:"version"`
	Status     NodeStatus          `json:"status"`
	Properties map[string]any      `json:"properties"`
	RecordedAt time.Time           `json:"recordedAt"`
}

// NewVersionRecord snapshots the node's current state.
func NewVersionRecord(n *Node) VersionRecord {
	return VersionRecord{
		NodeID:     n.id,
		Version:    n.version,
		Status:     n.status,
		Properties: cloneMap(n.properties),
		RecordedAt: n.updatedAt,
	}
}
