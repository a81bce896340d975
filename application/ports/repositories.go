package ports

import (
	"context"
	"time"

	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	"recipegraph/domain/events"
)

// NodeRepository defines the interface for node persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type NodeRepository interface {
	// Insert persists a new node and assigns its creation sequence.
	// A duplicate (type, key) pair fails with a conflict.
	Insert(ctx context.Context, node *entities.Node) error

	// Update rewrites the node's properties and timestamps.
	Update(ctx context.Context, node *entities.Node) error

	// GetByID returns the node with its current status, deleted or not.
	GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// GetByKey looks a node up by its external key.
	GetByKey(ctx context.Context, nodeType valueobjects.NodeType, key string) (*entities.Node, error)

	// GetMany hydrates the given ids. Missing ids are skipped; order is unspecified.
	GetMany(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error)

	// List returns ACTIVE nodes in descending creation order.
	List(ctx context.Context, filter NodeFilter) ([]*entities.Node, error)

	// ActiveSeqs returns the creation sequence of every ACTIVE node among ids.
	ActiveSeqs(ctx context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]int64, error)

	// Purge physically removes the node; edges, versions and the search
	// entry go with it. Returns the number of edges removed.
	Purge(ctx context.Context, id valueobjects.NodeID) (int, error)
}

// NodeFilter narrows List. AfterSeq is an exclusive upper bound on the
// creation sequence; zero means start from the newest node.
type NodeFilter struct {
	Type     valueobjects.NodeType
	AfterSeq int64
	Limit    int
}

// EdgeRepository defines the interface for edge persistence
type EdgeRepository interface {
	// Insert persists an edge and assigns its id.
	Insert(ctx context.Context, edge *entities.Edge) error

	// GetByID retrieves an edge by id
	GetByID(ctx context.Context, id int64) (*entities.Edge, error)

	// GetMany hydrates edges by id in ascending id order.
	GetMany(ctx context.Context, ids []int64) ([]*entities.Edge, error)

	// Find returns edges matching the filter in insertion order.
	Find(ctx context.Context, filter EdgeFilter) ([]*entities.Edge, error)

	// Incident returns references to edges touching any of the given
	// nodes in either direction, ordered by id, at most limit rows.
	Incident(ctx context.Context, nodeIDs []valueobjects.NodeID, limit int) ([]EdgeRef, error)

	// Delete removes an edge
	Delete(ctx context.Context, id int64) error
}

// EdgeFilter narrows Find. Zero fields match anything.
type EdgeFilter struct {
	FromID valueobjects.NodeID
	ToID   valueobjects.NodeID
	Type   valueobjects.EdgeType
	Limit  int
}

// EdgeRef is the id-only view of an edge used while walking the graph.
type EdgeRef struct {
	ID     int64
	FromID valueobjects.NodeID
	ToID   valueobjects.NodeID
}

// VersionLedger is the append-only version history of nodes
type VersionLedger interface {
	// Append records a new version. Appending an existing (node, version)
	// pair fails with a conflict.
	Append(ctx context.Context, record entities.VersionRecord) error

	// History returns every version of the node, oldest first.
	History(ctx context.Context, id valueobjects.NodeID) ([]entities.VersionRecord, error)
}

// SearchIndex maintains the full-text entries for nodes
type SearchIndex interface {
	// Index replaces the entry for the node.
	Index(ctx context.Context, id valueobjects.NodeID, nodeType valueobjects.NodeType, content string) error

	// Remove drops the entry for the node, if any.
	Remove(ctx context.Context, id valueobjects.NodeID) error

	// Search runs an FTS match expression and returns ranked ACTIVE nodes.
	Search(ctx context.Context, criteria SearchCriteria) ([]SearchMatch, error)
}

// SearchCriteria defines search parameters
type SearchCriteria struct {
	Match string
	Type  valueobjects.NodeType
	Limit int
}

// SearchMatch is a ranked search result; higher scores rank first.
type SearchMatch struct {
	Node  *entities.Node
	Score float64
}

// UnitOfWork exposes the repositories bound to a single transaction
type UnitOfWork interface {
	NodeRepository() NodeRepository
	EdgeRepository() EdgeRepository
	VersionLedger() VersionLedger
	SearchIndex() SearchIndex
}

// TransactionManager runs work inside storage transactions. A returned
// error rolls back everything the function wrote.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	Ping(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Metrics receives operation measurements from the application layer
type Metrics interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	TraversalTruncated(reason string)
	IngestedRecord(outcome string)
}
