package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

const (
	// MinExpensesForPrediction is the minimum history size before the
	// forecast is attempted.
	MinExpensesForPrediction = 5

	// recentMonthsWindow caps how many trailing months feed the forecast.
	recentMonthsWindow = 3

	// MaxPredictionMonths bounds how far ahead a forecast may reach.
	MaxPredictionMonths = 12

	// twoMonthInflation is the fixed markup applied when only two months
	// of history exist for a category.
	twoMonthInflation = 1.05
)

// predictionWeights favor more recent months, oldest to newest.
var predictionWeights = []decimal.Decimal{
	decimal.NewFromFloat(0.2),
	decimal.NewFromFloat(0.3),
	decimal.NewFromFloat(0.5),
}

type (
	// Prediction is the forecast for the requested future months.
	Prediction struct {
		Months         []MonthPrediction `json:"by_month"`
		TotalPredicted decimal.Decimal   `json:"total_predicted"`
	}

	// MonthPrediction is one forecast month with its category breakdown.
	MonthPrediction struct {
		Month      string                     `json:"month"`
		Total      decimal.Decimal            `json:"total"`
		Categories map[string]decimal.Decimal `json:"categories"`
	}

	// InsufficientData reports that the user's history is too short to
	// forecast. It is a defined outcome, not an error.
	InsufficientData struct {
		Count   int `json:"count"`
		Minimum int `json:"minimum"`
	}
)

// ClampMonths bounds a requested horizon to [1, MaxPredictionMonths].
func ClampMonths(months int) int {
	if months < 1 {
		return 1
	}
	if months > MaxPredictionMonths {
		return MaxPredictionMonths
	}
	return months
}

// Predict forecasts per-category and total spending for the requested number
// of future months using a recency-weighted average of the last three months
// of history, with multiplicative jitter in [0.9, 1.1] from the injected
// random source. Fewer than MinExpensesForPrediction historical expenses
// yields an InsufficientData result instead of a forecast.
func (e *Engine) Predict(ctx context.Context, userID int64, months int, reference time.Time) (*Prediction, *InsufficientData, error) {
	months = ClampMonths(months)

	records, err := e.source.ExpenseRecords(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("query expenses for prediction: %w", err)
	}
	if len(records) < MinExpensesForPrediction {
		return nil, &InsufficientData{Count: len(records), Minimum: MinExpensesForPrediction}, nil
	}

	// Sum history by (month, category) and keep only the most recent months.
	byMonth := make(map[string]map[string]decimal.Decimal)
	categorySet := make(map[string]struct{})
	for _, r := range records {
		key := core.MonthKey(r.Date)
		if byMonth[key] == nil {
			byMonth[key] = make(map[string]decimal.Decimal)
		}
		byMonth[key][r.Category] = byMonth[key][r.Category].Add(r.Amount)
		categorySet[r.Category] = struct{}{}
	}

	monthKeys := make([]string, 0, len(byMonth))
	for key := range byMonth {
		monthKeys = append(monthKeys, key)
	}
	sort.Strings(monthKeys)
	if len(monthKeys) > recentMonthsWindow {
		monthKeys = monthKeys[len(monthKeys)-recentMonthsWindow:]
	}

	// Per-category totals across the recent window, oldest to newest.
	recent := make(map[string][]decimal.Decimal)
	for _, key := range monthKeys {
		for category, sum := range byMonth[key] {
			recent[category] = append(recent[category], sum)
		}
	}

	categories := sortedNames(categorySet)
	previous := make(map[string]decimal.Decimal)
	prediction := &Prediction{}

	for i := 1; i <= months; i++ {
		// 30-day steps approximate calendar months; matches the report's
		// month-granularity labels closely enough for a heuristic forecast.
		future := reference.AddDate(0, 0, 30*i)
		month := MonthPrediction{
			Month:      core.MonthKey(future),
			Categories: make(map[string]decimal.Decimal, len(categories)),
		}

		for _, category := range categories {
			predicted := e.predictCategory(recent[category], previous[category])
			month.Categories[category] = predicted
			month.Total = month.Total.Add(predicted)
			previous[category] = predicted
		}

		month.Total = month.Total.Round(2)
		prediction.Months = append(prediction.Months, month)
		prediction.TotalPredicted = prediction.TotalPredicted.Add(month.Total)
	}
	prediction.TotalPredicted = prediction.TotalPredicted.Round(2)

	slog.DebugContext(ctx, "Prediction computed",
		"user_id", userID,
		"months", months,
		"categories", len(categories),
		"total_predicted", prediction.TotalPredicted.String())

	return prediction, nil, nil
}

// predictCategory forecasts one category from its recent monthly totals:
// a single month carries over as-is, two months average with a fixed 5%
// inflation, three or more take the recency-weighted sum. Categories with no
// recent data reuse the prior predicted value (zero if none).
func (e *Engine) predictCategory(history []decimal.Decimal, prior decimal.Decimal) decimal.Decimal {
	var base decimal.Decimal
	switch {
	case len(history) == 0:
		return prior
	case len(history) == 1:
		base = history[0]
	case len(history) == 2:
		base = history[0].Add(history[1]).
			Div(decimal.NewFromInt(2)).
			Mul(decimal.NewFromFloat(twoMonthInflation))
	default:
		last := history[len(history)-len(predictionWeights):]
		for i, amount := range last {
			base = base.Add(amount.Mul(predictionWeights[i]))
		}
	}

	jitter := decimal.NewFromFloat(0.9 + 0.2*e.jitter.Float64())
	return base.Mul(jitter).Round(2)
}
