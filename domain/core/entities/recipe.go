package entities

import (
	"encoding/json"
	"fmt"

	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

// RecipeProperties is the decoded view of a RECIPE node.
type RecipeProperties struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	URL           string   `json:"url,omitempty"`
	Source        string   `json:"source,omitempty"`
	CookingMethod string   `json:"cookingMethod,omitempty"`
	Ingredients   []string `json:"ingredients,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// IngredientProperties is the decoded view of an INGREDIENT node.
type IngredientProperties struct {
	Name string `json:"name"`
}

// TagProperties is the decoded view of a TAG node.
type TagProperties struct {
	Name string `json:"name"`
}

// CookingMethodProperties is the decoded view of a COOKING_METHOD node.
type CookingMethodProperties struct {
	Name string `json:"name"`
}

func (n *Node) AsRecipe() (*RecipeProperties, error) {
	return decodeAs[RecipeProperties](n, valueobjects.NodeTypeRecipe)
}

func (n *Node) AsIngredient() (*IngredientProperties, error) {
	return decodeAs[IngredientProperties](n, valueobjects.NodeTypeIngredient)
}

func (n *Node) AsTag() (*TagProperties, error) {
	return decodeAs[TagProperties](n, valueobjects.NodeTypeTag)
}

func (n *Node) AsCookingMethod() (*CookingMethodProperties, error) {
	return decodeAs[CookingMethodProperties](n, valueobjects.NodeTypeCookingMethod)
}

func decodeAs[T any](n *Node, want valueobjects.NodeType) (*T, error) {
	if n.nodeType != want {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("node %s is %s, not %s", n.id, n.nodeType, want))
	}
	raw, err := json.Marshal(n.properties)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("node %s properties do not match %s: %v", n.id, want, err))
	}
	return &out, nil
}
