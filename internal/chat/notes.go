package chat

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// noteTemplates maps category names to ordered note templates. {weekday} and
// {month} are replaced with names derived from the expense date. Categories
// without an entry fall back to the Others list.
var noteTemplates = map[string][]string{
	"Food": {
		"{weekday} meal expense",
		"Food purchase on {weekday}",
		"Groceries/meal for {month}",
		"Daily food expense",
	},
	"Transport": {
		"Transportation on {weekday}",
		"Travel expense",
		"Commute expense for {month}",
		"Fuel/transportation cost",
	},
	"Entertainment": {
		"Entertainment expense on {weekday}",
		"Leisure activity",
		"Entertainment cost for {month}",
		"Recreation expense",
	},
	"Bills": {
		"Bill payment for {month}",
		"Utility expense",
		"Monthly bill payment",
		"Recurring expense",
	},
	"Others": {
		"Miscellaneous expense on {weekday}",
		"General expense for {month}",
		"Unspecified purchase",
		"Additional expense",
	},
}

// Note derives a human-readable note for an expense. Selection is
// deterministic: index = floor(amount/100) mod len(templates), so identical
// inputs always produce identical notes.
func Note(category string, amount decimal.Decimal, date time.Time) string {
	templates, ok := noteTemplates[category]
	if !ok {
		templates = noteTemplates["Others"]
	}

	index := int(amount.Div(decimal.NewFromInt(100)).IntPart()) % len(templates)
	if index > len(templates)-1 {
		index = len(templates) - 1
	}

	replacer := strings.NewReplacer(
		"{weekday}", date.Weekday().String(),
		"{month}", date.Month().String(),
	)
	return replacer.Replace(templates[index])
}
