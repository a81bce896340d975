package events

import (
	"time"

	"recipegraph/domain/core/valueobjects"
)

// Event type names published to the event bus.
const (
	TypeNodeCreated = "node.created"
	TypeNodeUpdated = "node.updated"
	TypeNodeDeleted = "node.deleted"
	TypeNodePurged  = "node.purged"
	TypeEdgeCreated = "edge.created"
	TypeEdgeDeleted = "edge.deleted"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Node Events

// NodeCreated is raised when a new node is created
type NodeCreated struct {
	BaseEvent
	NodeID   valueobjects.NodeID   `json:"node_id"`
	NodeType valueobjects.NodeType `json:"node_type"`
	Key      string                `json:"key,omitempty"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID valueobjects.NodeID, nodeType valueobjects.NodeType, key string, timestamp time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   TypeNodeCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		NodeType: nodeType,
		Key:      key,
	}
}

// NodeUpdated is raised when node properties change
type NodeUpdated struct {
	BaseEvent
	NodeID      valueobjects.NodeID `json:"node_id"`
	ChangedKeys []string            `json:"changed_keys"`
	Replaced    bool                `json:"replaced"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(nodeID valueobjects.NodeID, version int, changedKeys []string, replaced bool, timestamp time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   TypeNodeUpdated,
			Timestamp:   timestamp,
			Version:     version,
		},
		NodeID:      nodeID,
		ChangedKeys: changedKeys,
		Replaced:    replaced,
	}
}

// NodeDeleted is raised when a node is soft-deleted
type NodeDeleted struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(nodeID valueobjects.NodeID, version int, timestamp time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   TypeNodeDeleted,
			Timestamp:   timestamp,
			Version:     version,
		},
		NodeID: nodeID,
	}
}

// NodePurged is raised when a node and everything attached to it is physically removed
type NodePurged struct {
	BaseEvent
	NodeID       valueobjects.NodeID `json:"node_id"`
	EdgesRemoved int                 `json:"edges_removed"`
}

// NewNodePurged creates a NodePurged event
func NewNodePurged(nodeID valueobjects.NodeID, edgesRemoved int, timestamp time.Time) NodePurged {
	return NodePurged{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   TypeNodePurged,
			Timestamp:   timestamp,
		},
		NodeID:       nodeID,
		EdgesRemoved: edgesRemoved,
	}
}

// Edge Events

// EdgeCreated is raised when two nodes are connected
type EdgeCreated struct {
	BaseEvent
	EdgeID   int64                 `json:"edge_id"`
	FromID   valueobjects.NodeID   `json:"from_id"`
	ToID     valueobjects.NodeID   `json:"to_id"`
	EdgeType valueobjects.EdgeType `json:"edge_type"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(edgeID int64, from, to valueobjects.NodeID, edgeType valueobjects.EdgeType, timestamp time.Time) EdgeCreated {
	return EdgeCreated{
		BaseEvent: BaseEvent{
			AggregateID: from.String(),
			EventType:   TypeEdgeCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		EdgeID:   edgeID,
		FromID:   from,
		ToID:     to,
		EdgeType: edgeType,
	}
}

// EdgeDeleted is raised when an edge is removed
type EdgeDeleted struct {
	BaseEvent
	EdgeID int64               `json:"edge_id"`
	FromID valueobjects.NodeID `json:"from_id"`
	ToID   valueobjects.NodeID `json:"to_id"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(edgeID int64, from, to valueobjects.NodeID, timestamp time.Time) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: from.String(),
			EventType:   TypeEdgeDeleted,
			Timestamp:   timestamp,
		},
		EdgeID: edgeID,
		FromID: from,
		ToID:   to,
	}
}
