package entities

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipegraph/domain/config"
	"recipegraph/domain/events"
	pkgerrors "recipegraph/pkg/errors"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewNode(t *testing.T) {
	tests := []struct {
		name      string
		nodeType  string
		props     map[string]any
		wantType  string
		wantError bool
	}{
		{name: "recipe", nodeType: "RECIPE", props: map[string]any{"name": "Tomato Soup"}, wantType: "RECIPE"},
		{name: "lowercase type is normalized", nodeType: " ingredient ", wantType: "INGREDIENT"},
		{name: "empty type", nodeType: "", wantError: true},
		{name: "bad characters", nodeType: "RE-CIPE", wantError: true},
		{name: "nan property", nodeType: "RECIPE", props: map[string]any{"x": math.NaN()}, wantError: true},
		{name: "unserializable property", nodeType: "RECIPE", props: map[string]any{"f": func() {}}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNode(tt.nodeType, "", tt.props, nil, testNow)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, n.Type().String())
			assert.Equal(t, 1, n.Version())
			assert.Equal(t, StatusActive, n.Status())
			assert.Equal(t, testNow, n.CreatedAt())
			assert.False(t, n.ID().IsZero())
			require.Len(t, n.GetUncommittedEvents(), 1)
			assert.Equal(t, events.TypeNodeCreated, n.GetUncommittedEvents()[0].GetEventType())
		})
	}
}

func TestNewNodeRejectsOversizedProperties(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxPropertiesBytes = 16

	_, err := NewNode("RECIPE", "", map[string]any{"name": "a very long recipe name"}, cfg, testNow)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestApplyUpdateMergePatch(t *testing.T) {
	n, err := NewNode("RECIPE", "", map[string]any{
		"name":  "Tomato Soup",
		"notes": "old",
		"meta":  map[string]any{"servings": 2, "time": "30m"},
	}, nil, testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Minute)
	err = n.ApplyUpdate(map[string]any{
		"notes": nil,
		"meta":  map[string]any{"servings": 4},
		"tags":  []any{"soup"},
	}, false, nil, later)
	require.NoError(t, err)

	props := n.Properties()
	assert.Equal(t, "Tomato Soup", props["name"])
	assert.NotContains(t, props, "notes")
	meta := props["meta"].(map[string]any)
	assert.Equal(t, json.Number("4"), meta["servings"])
	assert.Equal(t, "30m", meta["time"])
	assert.Equal(t, 2, n.Version())
	assert.Equal(t, later, n.UpdatedAt())
	assert.Equal(t, testNow, n.CreatedAt())
}

func TestApplyUpdateReplace(t *testing.T) {
	n, err := NewNode("RECIPE", "", map[string]any{"name": "Tomato Soup", "notes": "x"}, nil, testNow)
	require.NoError(t, err)

	require.NoError(t, n.ApplyUpdate(map[string]any{"name": "Bisque"}, true, nil, testNow))
	assert.Equal(t, map[string]any{"name": "Bisque"}, n.Properties())
}

func TestCheckVersion(t *testing.T) {
	n, err := NewNode("RECIPE", "", nil, nil, testNow)
	require.NoError(t, err)

	one, two := 1, 2
	assert.NoError(t, n.CheckVersion(nil))
	assert.NoError(t, n.CheckVersion(&one))
	assert.True(t, pkgerrors.IsConflict(n.CheckVersion(&two)))
}

func TestMarkDeleted(t *testing.T) {
	n, err := NewNode("TAG", "soup", map[string]any{"name": "soup"}, nil, testNow)
	require.NoError(t, err)

	require.NoError(t, n.MarkDeleted(testNow))
	assert.Equal(t, StatusDeleted, n.Status())
	assert.Equal(t, 2, n.Version())

	assert.True(t, pkgerrors.IsNotFound(n.MarkDeleted(testNow)))
	assert.True(t, pkgerrors.IsNotFound(n.ApplyUpdate(map[string]any{"a": "b"}, false, nil, testNow)))
}

func TestPropertiesAreCopied(t *testing.T) {
	n, err := NewNode("RECIPE", "", map[string]any{"meta": map[string]any{"a": "b"}}, nil, testNow)
	require.NoError(t, err)

	props := n.Properties()
	props["meta"].(map[string]any)["a"] = "changed"

	v, _ := n.Property("meta")
	assert.Equal(t, "b", v.(map[string]any)["a"])
}

func TestTypedAccessors(t *testing.T) {
	n, err := NewNode("RECIPE", "r1", map[string]any{
		"name":          "Tomato Soup",
		"cookingMethod": "simmer",
		"ingredients":   []any{"2 tomatoes"},
	}, nil, testNow)
	require.NoError(t, err)

	recipe, err := n.AsRecipe()
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", recipe.Name)
	assert.Equal(t, "simmer", recipe.CookingMethod)
	assert.Equal(t, []string{"2 tomatoes"}, recipe.Ingredients)

	_, err = n.AsIngredient()
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestMarshalJSON(t *testing.T) {
	n, err := NewNode("INGREDIENT", "tomato", map[string]any{"name": "tomato"}, nil, testNow)
	require.NoError(t, err)

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, n.ID().String(), out["id"])
	assert.Equal(t, "INGREDIENT", out["type"])
	assert.Equal(t, "tomato", out["key"])
	assert.Equal(t, "ACTIVE", out["status"])
	assert.Equal(t, float64(1), out["version"])
	assert.Equal(t, "2024-03-01T12:00:00Z", out["createdAt"])
}
