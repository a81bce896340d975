// Package queries defines the read-side inputs and result shapes of the
// graph services.
package queries

import (
	"recipegraph/domain/core/entities"
)

// ListNodesQuery pages through ACTIVE nodes, newest first
type ListNodesQuery struct {
	Type   string `json:"type,omitempty"`
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// NodePage is one page of a node listing. NextCursor is empty on the last page.
type NodePage struct {
	Items      []*entities.Node `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ListEdgesQuery filters edges by endpoint and type
type ListEdgesQuery struct {
	FromID string `json:"fromId,omitempty"`
	ToID   string `json:"toId,omitempty"`
	Type   string `json:"type,omitempty"`
}

// EdgeList is a bounded edge listing. Truncated is set when more edges
// matched than were returned.
type EdgeList struct {
	Items     []*entities.Edge `json:"items"`
	Truncated bool             `json:"truncated"`
}

// SearchQuery is a free-text search. Category, when set, replaces Query
// with the category's keyword list.
type SearchQuery struct {
	Query    string `json:"q"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// SearchHit is a ranked search result
type SearchHit struct {
	Node  *entities.Node `json:"node"`
	Score float64        `json:"score"`
}

// TraverseQuery asks for the neighbourhood of a node up to Depth hops
type TraverseQuery struct {
	StartID string `json:"startId"`
	Depth   int    `json:"depth"`
}

// Truncation reasons reported on a bounded traversal.
const (
	TruncatedFanOut    = "fan_out_limit"
	TruncatedNodeLimit = "node_limit"
)

// TraversalResult holds the visited subgraph. Nodes are ordered by BFS
// level then creation order; edges by insertion order.
type TraversalResult struct {
	StartID         string           `json:"startId"`
	Depth           int              `json:"depth"`
	RequestedDepth  int              `json:"requestedDepth"`
	DepthClamped    bool             `json:"depthClamped,omitempty"`
	Truncated       bool             `json:"truncated,omitempty"`
	TruncatedReason string           `json:"truncatedReason,omitempty"`
	Nodes           []*entities.Node `json:"nodes"`
	Edges           []*entities.Edge `json:"edges"`
}
