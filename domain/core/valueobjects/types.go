package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
)

// NodeType tags a node with its domain kind. The set is open; the
// constants below are the kinds the recipe ingestion produces.
type NodeType string

const (
	NodeTypeRecipe        NodeType = "RECIPE"
	NodeTypeIngredient    NodeType = "INGREDIENT"
	NodeTypeTag           NodeType = "TAG"
	NodeTypeCookingMethod NodeType = "COOKING_METHOD"
)

// EdgeType names a directed relationship between two nodes.
type EdgeType string

const (
	EdgeTypeHasIngredient EdgeType = "HAS_INGREDIENT"
	EdgeTypeHasTag        EdgeType = "HAS_TAG"
	EdgeTypeUsesMethod    EdgeType = "USES_METHOD"
)

// MaxTypeLength bounds both node and edge type tags.
const MaxTypeLength = 64

var typePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ParseNodeType normalizes a type tag to upper case and validates it.
func ParseNodeType(s string) (NodeType, error) {
	t, err := parseTypeTag("node type", s)
	return NodeType(t), err
}

// ParseEdgeType normalizes an edge type tag to upper case and validates it.
func ParseEdgeType(s string) (EdgeType, error) {
	t, err := parseTypeTag("edge type", s)
	return EdgeType(t), err
}

func parseTypeTag(what, s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%s cannot be empty", what)
	}
	if len(s) > MaxTypeLength {
		return "", fmt.Errorf("%s exceeds maximum length of %d characters", what, MaxTypeLength)
	}
	if !typePattern.MatchString(s) {
		return "", fmt.Errorf("%s %q must contain only letters, digits and underscores", what, s)
	}
	return s, nil
}

func (t NodeType) String() string { return string(t) }
func (t EdgeType) String() string { return string(t) }
