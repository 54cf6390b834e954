// Package chat implements the conversational expense-capture flow: a
// pattern-matching fast path for free-text input and a guided state machine
// for everything the patterns cannot handle.
package chat

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

// categoryWords is the fixed vocabulary the fast-path parser recognizes,
// matched case-insensitively.
var categoryWords = []string{
	"food", "groceries", "transport", "transportation", "travel",
	"bills", "entertainment", "health", "shopping", "others",
}

// synonyms folds near-duplicate keywords onto canonical category names.
var synonyms = map[string]string{
	"groceries":      "Food",
	"grocery":        "Food",
	"transportation": "Transport",
	"travel":         "Transport",
}

const amountPattern = `₹?\s*(\d+(?:\.\d+)?)`

var (
	categoryAlt = strings.Join(categoryWords, "|")

	// Verb-led: "I spent ₹500 on food", "paid 120 for transport".
	spentRe = regexp.MustCompile(
		`(?i)\b(?:spent|paid|bought|cost|costs|purchased)\b.*?` + amountPattern +
			`.*?(?:\b(?:on|for)\b\s*)?\b(` + categoryAlt + `)\b`)

	// Category-led: "transport cost 120", "food was 80".
	categoryFirstRe = regexp.MustCompile(
		`(?i)\b(` + categoryAlt + `)\b.*?(?:\b(?:cost|costs|came to|for|is|was)\b\s*)?` + amountPattern)

	amountOnlyRe = regexp.MustCompile(`^\s*` + amountPattern + `\s*$`)
)

// Match is a successfully parsed (amount, category) pair.
type Match struct {
	Amount   decimal.Decimal
	Category string
}

// Parse extracts an expense statement from free-form text. The verb-led form
// is tried first, then the category-led form. The amount is the first numeric
// group; the category keyword is normalized through the synonym table.
func Parse(text string) (Match, bool) {
	if m := spentRe.FindStringSubmatch(text); m != nil {
		return buildMatch(m[1], m[2])
	}
	if m := categoryFirstRe.FindStringSubmatch(text); m != nil {
		return buildMatch(m[2], m[1])
	}
	return Match{}, false
}

// ParseAmountOnly reports whether the entire trimmed input is a single bare
// number, optionally prefixed with a currency symbol.
func ParseAmountOnly(text string) (decimal.Decimal, bool) {
	m := amountOnlyRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func buildMatch(amountStr, keyword string) (Match, bool) {
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return Match{}, false
	}
	return Match{Amount: amount, Category: NormalizeCategory(keyword)}, true
}

// NormalizeCategory maps a matched keyword to its canonical category name:
// synonym table first, otherwise the capitalized keyword.
func NormalizeCategory(word string) string {
	lower := strings.ToLower(strings.TrimSpace(word))
	if canonical, ok := synonyms[lower]; ok {
		return canonical
	}
	return Capitalize(lower)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
