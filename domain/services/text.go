// Package services holds pure domain logic shared by the store and the
// search layer: flattening node properties into indexable text and turning
// free-form queries into tokens.
package services

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ExtractSearchText collects every string leaf of properties, walking
// nested objects and arrays up to maxDepth levels. Object keys are visited
// in sorted order so the output is stable for identical input.
func ExtractSearchText(properties map[string]any, maxDepth int) string {
	var parts []string
	collectStrings(properties, 0, maxDepth, &parts)
	return strings.Join(parts, "\n")
}

func collectStrings(v any, depth, maxDepth int, out *[]string) {
	if depth > maxDepth {
		return
	}
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			*out = append(*out, s)
		}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(x[k], depth+1, maxDepth, out)
		}
	case []any:
		for _, e := range x {
			collectStrings(e, depth+1, maxDepth, out)
		}
	case []string:
		for _, e := range x {
			collectStrings(e, depth+1, maxDepth, out)
		}
	}
}

// Tokenize splits a query into lowercase word tokens, dropping duplicates
// while keeping first-seen order.
func Tokenize(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// MatchExpression renders tokens as an FTS5 expression of quoted terms
// joined with OR. Returns "" when there is nothing to match.
func MatchExpression(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// categoryKeywords maps a browse category to the words that identify it.
var categoryKeywords = map[string][]string{
	"vegetarian": {"vegetarian", "vegan", "veggie", "tofu", "tempeh", "lentil", "chickpea", "bean"},
	"seafood":    {"fish", "salmon", "tuna", "shrimp", "prawn", "crab", "lobster", "mussel", "clam", "seafood"},
	"dessert":    {"dessert", "cake", "cookie", "pie", "tart", "pudding", "chocolate", "ice", "cream", "sweet"},
	"sauce":      {"sauce", "dressing", "gravy", "salsa", "pesto", "aioli", "vinaigrette"},
	"soup":       {"soup", "stew", "broth", "chowder", "bisque", "gazpacho"},
	"appetizer":  {"appetizer", "starter", "dip", "bruschetta", "canape", "tapas"},
}

// CategoryTokens expands a category name into its keyword tokens. Unknown
// categories fall back to tokenizing the name itself.
func CategoryTokens(category string) []string {
	name := strings.ToLower(strings.TrimSpace(category))
	if kw, ok := categoryKeywords[name]; ok {
		out := make([]string, len(kw))
		copy(out, kw)
		return out
	}
	return Tokenize(name)
}

// Categories lists the known category names in sorted order.
func Categories() []string {
	names := make([]string, 0, len(categoryKeywords))
	for k := range categoryKeywords {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
