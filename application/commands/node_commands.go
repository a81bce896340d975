// Package commands defines the write-side inputs of the graph services.
package commands

import "recipegraph/pkg/utils"

// CreateNodeCommand represents the command to create a new node
type CreateNodeCommand struct {
	Type       string         `json:"type" validate:"required,max=64"`
	Key        string         `json:"key,omitempty" validate:"max=256"`
	Properties map[string]any `json:"properties"`
}

// Validate checks the command's tagged constraints
func (c CreateNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateNodeCommand changes a node's properties. Without ExpectedVersion
// the update is last-write-wins.
type UpdateNodeCommand struct {
	NodeID          string         `json:"-" validate:"required"`
	Properties      map[string]any `json:"properties"`
	ExpectedVersion *int           `json:"expectedVersion,omitempty" validate:"omitempty,min=1"`
	Replace         bool           `json:"replace,omitempty"`
}

// Validate checks the command's tagged constraints
func (c UpdateNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CreateEdgeCommand connects two existing nodes
type CreateEdgeCommand struct {
	FromID     string         `json:"fromId" validate:"required"`
	ToID       string         `json:"toId" validate:"required"`
	Type       string         `json:"type" validate:"required,max=64"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Validate checks the command's tagged constraints
func (c CreateEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}
