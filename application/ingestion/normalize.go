// Package ingestion turns flat recipe records into graph writes through the
// node and edge services.
package ingestion

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ingredient is one parsed ingredient line.
type Ingredient struct {
	Original string `json:"original"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

var vulgarFractions = map[rune]string{
	'¼': "1/4", '½': "1/2", '¾': "3/4",
	'⅐': "1/7", '⅑': "1/9", '⅒': "1/10",
	'⅓': "1/3", '⅔': "2/3",
	'⅕': "1/5", '⅖': "2/5", '⅗': "3/5", '⅘': "4/5",
	'⅙': "1/6", '⅚': "5/6",
	'⅛': "1/8", '⅜': "3/8", '⅝': "5/8", '⅞': "7/8",
}

// units maps every accepted spelling to its canonical abbreviation.
var units = map[string]string{
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp", "tsps": "tsp", "t": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbsps": "tbsp", "tbs": "tbsp", "tb": "tbsp",
	"cup": "cup", "cups": "cup", "c": "cup",
	"pint": "pt", "pints": "pt", "pt": "pt",
	"quart": "qt", "quarts": "qt", "qt": "qt",
	"gallon": "gal", "gallons": "gal", "gal": "gal",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"fluid ounce": "fl oz", "fluid ounces": "fl oz", "fl oz": "fl oz",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"gram": "g", "grams": "g", "g": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "ml": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "l": "l",
	"pinch": "pinch", "pinches": "pinch",
	"dash": "dash", "dashes": "dash",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"slice": "slice", "slices": "slice",
	"bunch": "bunch", "bunches": "bunch",
	"sprig": "sprig", "sprigs": "sprig",
	"stick": "stick", "sticks": "stick",
	"handful": "handful", "handfuls": "handful",
	"package": "package", "packages": "package", "pkg": "package",
}

// sizeWords are descriptors dropped from the canonical key.
var sizeWords = map[string]bool{
	"small": true, "medium": true, "large": true, "extra-large": true,
}

var (
	quantityPattern = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)(?:\s*(?:-|to)\s*(\d+/\d+|\d+(?:\.\d+)?))?`)
	parenPattern    = regexp.MustCompile(`\(([^)]*)\)`)
	spacePattern    = regexp.MustCompile(`\s+`)
	keyJunk         = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)
)

var lower = cases.Lower(language.Und)

// ParseIngredient splits an ingredient line into quantity, unit, name and
// notes, and derives the canonical key used to dedup ingredient nodes.
// "2 ½ cups Crème Fraîche (cold), divided" has quantity "2 1/2", unit
// "cup", key "creme fraiche" and notes "cold; divided".
func ParseIngredient(line string) Ingredient {
	ing := Ingredient{Original: strings.TrimSpace(line)}
	rest := expandFractions(ing.Original)

	var notes []string
	rest = parenPattern.ReplaceAllStringFunc(rest, func(m string) string {
		if inner := strings.TrimSpace(m[1 : len(m)-1]); inner != "" {
			notes = append(notes, inner)
		}
		return " "
	})
	if i := strings.Index(rest, ","); i >= 0 {
		if tail := strings.TrimSpace(rest[i+1:]); tail != "" {
			notes = append(notes, tail)
		}
		rest = rest[:i]
	}
	rest = collapse(rest)

	if m := quantityPattern.FindStringSubmatch(rest); m != nil {
		ing.Quantity = collapse(m[1])
		if m[2] != "" {
			ing.Quantity += "-" + m[2]
		}
		rest = strings.TrimSpace(rest[len(m[0]):])
	}

	rest, ing.Unit = stripUnit(rest)
	rest = strings.TrimPrefix(rest, "of ")

	ing.Name = collapse(rest)
	ing.Key = CanonicalKey(ing.Name)
	ing.Notes = strings.Join(notes, "; ")
	return ing
}

// CanonicalKey lowercases, folds diacritics, drops punctuation and size
// descriptors, and collapses whitespace.
func CanonicalKey(s string) string {
	folded := lower.String(FoldDiacritics(s))
	folded = keyJunk.ReplaceAllString(folded, " ")

	words := strings.Fields(folded)
	kept := words[:0]
	for _, w := range words {
		if !sizeWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// FoldDiacritics removes combining marks: "Jalapeño" becomes "Jalapeno".
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug builds a stable recipe key from a title.
func Slug(title string) string {
	return strings.ReplaceAll(CanonicalKey(title), " ", "-")
}

func expandFractions(s string) string {
	var b strings.Builder
	for i, r := range s {
		frac, ok := vulgarFractions[r]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if i > 0 && unicode.IsDigit(rune(s[i-1])) {
			b.WriteByte(' ')
		}
		b.WriteString(frac)
	}
	return b.String()
}

func stripUnit(s string) (rest, unit string) {
	lowered := lower.String(s)
	for _, n := range []int{2, 1} {
		fields := strings.Fields(lowered)
		if len(fields) < n {
			continue
		}
		candidate := strings.TrimSuffix(strings.Join(fields[:n], " "), ".")
		canon, ok := units[candidate]
		if !ok {
			continue
		}
		// A lone single-letter unit needs something after it to be a unit.
		if len(candidate) == 1 && len(fields) == n {
			continue
		}
		original := strings.Fields(s)
		return strings.Join(original[n:], " "), canon
	}
	return s, ""
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
