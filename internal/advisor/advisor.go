package advisor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
)

// TextGenerator produces free-form text from a prompt. The Gemini
// client implements it; tests inject a canned one.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source provides the spending history the advisor summarizes into
// prompts.
type Source interface {
	ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error)
}

// Advisor serves budget tips, either from the static tables or by
// asking a text generator for advice personalized to the user's
// spending.
type Advisor struct {
	source    Source
	generator TextGenerator
	logger    *log.Logger
}

func New(source Source, generator TextGenerator, logger *log.Logger) *Advisor {
	return &Advisor{
		source:    source,
		generator: generator,
		logger:    logger.WithComponent(log.ComponentAdvisor),
	}
}

// AIAvailable reports whether a text generator is configured.
func (a *Advisor) AIAvailable() bool {
	return a.generator != nil
}

// TipsFor returns the static tip list for a category, or false when
// the category has no dedicated list.
func (a *Advisor) TipsFor(category string) ([]string, bool) {
	tips, ok := staticTips[strings.ToLower(category)]
	return tips, ok
}

// GeneralTips returns the fallback tip list.
func (a *Advisor) GeneralTips() []string {
	return staticTips["general"]
}

// TipCategories lists the categories with a static tip list, sorted.
func (a *Advisor) TipCategories() []string {
	names := make([]string, 0, len(staticTips))
	for name := range staticTips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PersonalizedAdvice summarizes the user's spending and asks the text
// generator for tailored tips. category narrows the summary when
// non-empty.
func (a *Advisor) PersonalizedAdvice(ctx context.Context, userID int64, category string) (string, error) {
	if a.generator == nil {
		return "", fmt.Errorf("no text generator configured")
	}

	records, err := a.source.ExpenseRecords(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return "", fmt.Errorf("load spending history: %w", err)
	}

	if len(records) == 0 {
		if category != "" {
			return fmt.Sprintf("You don't have any expenses in the %s category yet. Once you add some, I can provide personalized advice.", category), nil
		}
		return "You don't have any expenses yet. Once you add some, I can provide personalized advice.", nil
	}

	prompt := buildPrompt(records, category)
	advice, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}

	a.logger.InfoContext(ctx, "generated personalized advice",
		log.FieldUserID, userID,
		log.FieldCategory, category)
	return strings.TrimSpace(advice), nil
}

func buildPrompt(records []core.ExpenseRecord, category string) string {
	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	minDate, maxDate := records[0].Date, records[0].Date
	for _, r := range records {
		total = total.Add(r.Amount)
		byCategory[r.Category] = byCategory[r.Category].Add(r.Amount)
		if r.Date.Before(minDate) {
			minDate = r.Date
		}
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	avg := total.Div(decimal.NewFromInt(int64(len(records)))).Round(2)

	type catTotal struct {
		name   string
		amount decimal.Decimal
	}
	totals := make([]catTotal, 0, len(byCategory))
	for name, amount := range byCategory {
		totals = append(totals, catTotal{name, amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].amount.Equal(totals[j].amount) {
			return totals[i].amount.GreaterThan(totals[j].amount)
		}
		return totals[i].name < totals[j].name
	})
	if len(totals) > 3 {
		totals = totals[:3]
	}

	var sb strings.Builder
	sb.WriteString("Based on the following spending data for a user, provide personalized budget advice")
	if category != "" {
		fmt.Fprintf(&sb, " specifically for their %s expenses", category)
	}
	sb.WriteString(":\n\n")
	fmt.Fprintf(&sb, "Total spent: %s\n", total.Round(2))
	fmt.Fprintf(&sb, "Average per expense: %s\n", avg)
	fmt.Fprintf(&sb, "Number of expenses: %d\n", len(records))
	fmt.Fprintf(&sb, "Time period: %s to %s\n", minDate.Format(core.ISODateFormat), maxDate.Format(core.ISODateFormat))
	sb.WriteString("Top categories:\n")
	for _, t := range totals {
		fmt.Fprintf(&sb, "- %s: %s\n", t.name, t.amount.Round(2))
	}
	sb.WriteString("\nProvide 3-5 specific, actionable tips to help the user manage their expenses better.")
	return sb.String()
}

var staticTips = map[string][]string{
	"food": {
		"Plan your meals for the week and make a grocery list",
		"Cook in bulk and freeze leftovers",
		"Use cashback apps for grocery shopping",
		"Limit eating out to once a week",
		"Bring lunch to work instead of buying",
	},
	"transport": {
		"Use public transportation when possible",
		"Consider carpooling with colleagues",
		"Maintain your vehicle regularly to prevent costly repairs",
		"Compare gas prices using apps",
		"Consider biking or walking for short distances",
	},
	"entertainment": {
		"Look for free events in your community",
		"Use streaming services instead of cable",
		"Take advantage of library resources",
		"Look for happy hour deals and restaurant specials",
		"Use discount apps for movie tickets and events",
	},
	"bills": {
		"Review subscriptions and cancel unused ones",
		"Negotiate with service providers for better rates",
		"Consider bundling services for discounts",
		"Switch to energy-efficient appliances",
		"Use programmable thermostats to reduce energy costs",
	},
	"general": {
		"Follow the 50/30/20 rule: 50% needs, 30% wants, 20% savings",
		"Create and stick to a monthly budget",
		"Set up automatic transfers to savings accounts",
		"Use cash envelopes for discretionary spending",
		"Review your budget regularly and adjust as needed",
	},
}
