package ingestion

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestParseIngredientGolden(t *testing.T) {
	lines := []string{
		"2 ½ cups Crème Fraîche (cold), divided",
		"1 large egg",
		"3 cloves garlic, minced",
		"1/2 teaspoon sea salt",
		"2-3 Tbsp. olive oil",
		"Salt and pepper to taste",
		"1 (14 ounce) can diced tomatoes",
		"1½ cups of Jalapeño-lime salsa",
		"200 g dark chocolate (70%)",
	}

	var buf bytes.Buffer
	for _, line := range lines {
		ing := ParseIngredient(line)
		fmt.Fprintf(&buf, "%s\n  key: %q\n  quantity: %q\n  unit: %q\n  notes: %q\n",
			ing.Original, ing.Key, ing.Quantity, ing.Unit, ing.Notes)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "ingredients", buf.Bytes())
}

func TestParseIngredientKeepsOriginal(t *testing.T) {
	ing := ParseIngredient("  2 cups flour  ")
	assert.Equal(t, "2 cups flour", ing.Original)
	assert.Equal(t, "flour", ing.Name)
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jalapeño", "jalapeno"},
		{"  Extra-Large   EGGS ", "eggs"},
		{"Crème brûlée!", "creme brulee"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalKey(tt.in))
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "tomato-soup", Slug("Tomato Soup"))
	assert.Equal(t, "pho-bo", Slug("Phở Bò"))
}
