package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"recipegraph/domain/config"
	"recipegraph/domain/core/valueobjects"
	"recipegraph/domain/events"
	pkgerrors "recipegraph/pkg/errors"
)

// NodeStatus represents the lifecycle state of a node
type NodeStatus string

const (
	StatusActive  NodeStatus = "ACTIVE"
	StatusDeleted NodeStatus = "DELETED"
)

// Node is a typed vertex in the recipe graph. Properties are a schema-less
// JSON object; the type tag is fixed at creation.
type Node struct {
	seq        int64
	id         valueobjects.NodeID
	nodeType   valueobjects.NodeType
	key        string
	properties map[string]any
	status     NodeStatus
	version    int
	createdAt  time.Time
	updatedAt  time.Time

	events []events.DomainEvent
}

// NewNode creates a version 1 ACTIVE node after validating its type tag,
// optional external key and properties.
func NewNode(nodeType string, key string, properties map[string]any, cfg *config.DomainConfig, now time.Time) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	t, err := valueobjects.ParseNodeType(nodeType)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	key, err = normalizeKey(key, cfg)
	if err != nil {
		return nil, err
	}

	props, err := NormalizeProperties(properties, cfg)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	node := &Node{
		id:         valueobjects.NewNodeID(),
		nodeType:   t,
		key:        key,
		properties: props,
		status:     StatusActive,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
	node.addEvent(events.NewNodeCreated(node.id, t, key, now))

	return node, nil
}

// ReconstructNode rebuilds a node from persisted state
func ReconstructNode(
	seq int64,
	id valueobjects.NodeID,
	nodeType valueobjects.NodeType,
	key string,
	properties map[string]any,
	status NodeStatus,
	version int,
	createdAt, updatedAt time.Time,
) *Node {
	if properties == nil {
		properties = map[string]any{}
	}
	return &Node{
		seq:        seq,
		id:         id,
		nodeType:   nodeType,
		key:        key,
		properties: properties,
		status:     status,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (n *Node) ID() valueobjects.NodeID       { return n.id }
func (n *Node) Type() valueobjects.NodeType   { return n.nodeType }
func (n *Node) Key() string                   { return n.key }
func (n *Node) Status() NodeStatus            { return n.status }
func (n *Node) Version() int                  { return n.version }
func (n *Node) CreatedAt() time.Time          { return n.createdAt }
func (n *Node) UpdatedAt() time.Time          { return n.updatedAt }
func (n *Node) IsActive() bool                { return n.status == StatusActive }

// Seq is the storage-assigned creation sequence. Zero until persisted.
func (n *Node) Seq() int64 { return n.seq }

// SetSeq records the creation sequence assigned by the repository.
func (n *Node) SetSeq(seq int64) { n.seq = seq }

// Properties returns a deep copy of the node's properties
func (n *Node) Properties() map[string]any {
	return cloneMap(n.properties)
}

// Property returns a single top-level property value.
func (n *Node) Property(name string) (any, bool) {
	v, ok := n.properties[name]
	return cloneValue(v), ok
}

// PropertiesJSON encodes the properties for storage.
func (n *Node) PropertiesJSON() ([]byte, error) {
	return json.Marshal(n.properties)
}

// CheckVersion fails with a conflict when expected is set and differs from
// the node's current version.
func (n *Node) CheckVersion(expected *int) error {
	if expected != nil && *expected != n.version {
		return pkgerrors.NewVersionConflictError(n.id.String(), *expected, n.version)
	}
	return nil
}

// ApplyUpdate merges patch into the properties (JSON merge patch: null
// removes a key, nested objects merge) or replaces them wholesale, then
// bumps the version.
func (n *Node) ApplyUpdate(patch map[string]any, replace bool, cfg *config.DomainConfig, now time.Time) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if !n.IsActive() {
		return pkgerrors.NewNotFoundError("node", n.id.String())
	}

	normalizedPatch, err := NormalizeProperties(patch, cfg)
	if err != nil {
		return err
	}

	var next map[string]any
	if replace {
		next = stripNulls(normalizedPatch)
	} else {
		next = mergePatch(cloneMap(n.properties), normalizedPatch)
	}

	if _, err := NormalizeProperties(next, cfg); err != nil {
		return err
	}

	changed := make([]string, 0, len(normalizedPatch))
	for k := range normalizedPatch {
		changed = append(changed, k)
	}
	sort.Strings(changed)

	n.properties = next
	n.version++
	n.updatedAt = now.UTC()
	n.addEvent(events.NewNodeUpdated(n.id, n.version, changed, replace, n.updatedAt))

	return nil
}

// MarkDeleted soft-deletes the node. Deleting twice reports not found.
func (n *Node) MarkDeleted(now time.Time) error {
	if !n.IsActive() {
		return pkgerrors.NewNotFoundError("node", n.id.String())
	}
	n.status = StatusDeleted
	n.version++
	n.updatedAt = now.UTC()
	n.addEvent(events.NewNodeDeleted(n.id, n.version, n.updatedAt))
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Node) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Node) MarkEventsAsCommitted() {
	n.events = nil
}

func (n *Node) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}

type nodeJSON struct {
	ID         valueobjects.NodeID   `json:"id"`
	Type       valueobjects.NodeType `json:"type"`
	Key        string                `json:"key,omitempty"`
	Properties map[string]any        `json:"properties"`
	Status     NodeStatus            `json:"status"`
	Version    int                   `json:"version"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// MarshalJSON implements json.Marshaler
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:         n.id,
		Type:       n.nodeType,
		Key:        n.key,
		Properties: n.properties,
		Status:     n.status,
		Version:    n.version,
		CreatedAt:  n.createdAt,
		UpdatedAt:  n.updatedAt,
	})
}

// NormalizeProperties checks that properties serialize to a JSON object
// within the size limit and returns the decoded canonical form. Numbers are
// kept as json.Number so integers survive the round trip.
func NormalizeProperties(properties map[string]any, cfg *config.DomainConfig) (map[string]any, error) {
	if properties == nil {
		return map[string]any{}, nil
	}
	if hasNonFinite(properties) {
		return nil, pkgerrors.NewValidationError("properties contain a non-finite number")
	}

	raw, err := json.Marshal(properties)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("properties are not serializable: %v", err))
	}
	if cfg != nil && len(raw) > cfg.MaxPropertiesBytes {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("properties exceed maximum size of %d bytes", cfg.MaxPropertiesBytes))
	}

	return DecodeProperties(raw)
}

// DecodeProperties parses stored JSON properties.
func DecodeProperties(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("properties must be a JSON object: %v", err))
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func normalizeKey(key string, cfg *config.DomainConfig) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) > cfg.MaxKeyLength {
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("key exceeds maximum length of %d characters", cfg.MaxKeyLength))
	}
	return key, nil
}

func mergePatch(target, patch map[string]any) map[string]any {
	for k, v := range patch {
		if v == nil {
			delete(target, k)
			continue
		}
		if pm, ok := v.(map[string]any); ok {
			tm, _ := target[k].(map[string]any)
			if tm == nil {
				tm = map[string]any{}
			}
			target[k] = mergePatch(tm, pm)
			continue
		}
		target[k] = v
	}
	return target
}

func stripNulls(m map[string]any) map[string]any {
	return mergePatch(map[string]any{}, m)
}

func hasNonFinite(v any) bool {
	switch x := v.(type) {
	case float64:
		return math.IsNaN(x) || math.IsInf(x, 0)
	case float32:
		return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0)
	case map[string]any:
		for _, e := range x {
			if hasNonFinite(e) {
				return true
			}
		}
	case []any:
		for _, e := range x {
			if hasNonFinite(e) {
				return true
			}
		}
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
