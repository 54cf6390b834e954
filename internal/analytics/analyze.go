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

// trendMonths is the length of the trailing monthly trend, current month
// included.
const trendMonths = 6

type (
	// Report is the month-over-month analytics summary for one user.
	Report struct {
		CurrentMonthTotal decimal.Decimal            `json:"current_month_total"`
		LastMonthTotal    decimal.Decimal            `json:"last_month_total"`
		PercentChange     decimal.Decimal            `json:"percent_change"`
		HighestCategory   HighestCategory            `json:"highest_category"`
		MostFrequent      MostFrequent               `json:"most_frequent"`
		Categories        map[string]decimal.Decimal `json:"categories"`
		MonthlyTrend      []MonthTotal               `json:"monthly_trend"`
		Period            ReportPeriod               `json:"period"`
	}

	// HighestCategory is the current month's biggest category by spend.
	HighestCategory struct {
		Name       string          `json:"name"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	// MostFrequent is the current month's most used category by entry count.
	MostFrequent struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	// MonthTotal is one point of the monthly trend.
	MonthTotal struct {
		Month string          `json:"month"`
		Total decimal.Decimal `json:"total"`
	}

	// MonthWindow describes one month's reporting window.
	MonthWindow struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Name  string `json:"name"`
	}

	// ReportPeriod carries the windows the report was computed over.
	ReportPeriod struct {
		CurrentMonth MonthWindow `json:"current_month"`
		LastMonth    MonthWindow `json:"last_month"`
	}
)

// Analyze builds the analytics report for the user relative to reference:
// current and prior month totals, percent change, category breakdown for the
// current month and a six-month trailing trend (oldest first).
func (e *Engine) Analyze(ctx context.Context, userID int64, reference time.Time) (*Report, error) {
	curStart, curEnd := core.MonthWindow(reference)
	prevStart, prevEnd := core.PrevMonthWindow(reference)

	// One query covers the whole trailing window; months are bucketed below.
	trendStart := time.Date(curStart.Year(), curStart.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(trendMonths - 1), 0)
	records, err := e.source.ExpenseRecords(ctx, userID, trendStart, curEnd)
	if err != nil {
		return nil, fmt.Errorf("query expenses for analysis: %w", err)
	}

	monthTotals := make(map[string]decimal.Decimal)
	categorySums := make(map[string]decimal.Decimal)
	categoryCounts := make(map[string]int)
	currentKey := core.MonthKey(curStart)

	for _, r := range records {
		key := core.MonthKey(r.Date)
		monthTotals[key] = monthTotals[key].Add(r.Amount)
		if key == currentKey {
			categorySums[r.Category] = categorySums[r.Category].Add(r.Amount)
			categoryCounts[r.Category]++
		}
	}

	report := &Report{
		CurrentMonthTotal: monthTotals[currentKey],
		LastMonthTotal:    monthTotals[core.MonthKey(prevStart)],
		Categories:        categorySums,
		Period: ReportPeriod{
			CurrentMonth: MonthWindow{
				Start: curStart.Format(core.DateFormat),
				End:   curEnd.Format(core.DateFormat),
				Name:  curStart.Format("January 2006"),
			},
			LastMonth: MonthWindow{
				Start: prevStart.Format(core.DateFormat),
				End:   prevEnd.Format(core.DateFormat),
				Name:  prevStart.Format("January 2006"),
			},
		},
	}
	report.PercentChange = percentChange(report.CurrentMonthTotal, report.LastMonthTotal)
	report.HighestCategory = highestCategory(categorySums, report.CurrentMonthTotal)
	report.MostFrequent = mostFrequent(categoryCounts)

	for i := trendMonths - 1; i >= 0; i-- {
		monthStart := curStart.AddDate(0, -i, 0)
		report.MonthlyTrend = append(report.MonthlyTrend, MonthTotal{
			Month: monthStart.Format("Jan"),
			Total: monthTotals[core.MonthKey(monthStart)],
		})
	}

	slog.DebugContext(ctx, "Analytics report computed",
		"user_id", userID,
		"current_total", report.CurrentMonthTotal.String(),
		"records", len(records))

	return report, nil
}

// percentChange implements the sentinel rules: +100 when only the current
// month has spending, -100 when only the prior month does, 0 when neither.
func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	switch {
	case previous.IsPositive() && current.IsPositive():
		return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
	case previous.IsZero() && current.IsPositive():
		return decimal.NewFromInt(100)
	case previous.IsPositive() && current.IsZero():
		return decimal.NewFromInt(-100)
	default:
		return decimal.Zero
	}
}

// sortedNames returns map keys in alphabetical order, the deterministic
// tie-break for category selection.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func highestCategory(sums map[string]decimal.Decimal, total decimal.Decimal) HighestCategory {
	if len(sums) == 0 {
		return HighestCategory{Name: "None", Amount: decimal.Zero, Percentage: decimal.Zero}
	}
	best := HighestCategory{Amount: decimal.NewFromInt(-1)}
	for _, name := range sortedNames(sums) {
		if sums[name].GreaterThan(best.Amount) {
			best = HighestCategory{Name: name, Amount: sums[name]}
		}
	}
	if total.IsPositive() {
		best.Percentage = best.Amount.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
	} else {
		best.Percentage = decimal.Zero
	}
	return best
}

func mostFrequent(counts map[string]int) MostFrequent {
	if len(counts) == 0 {
		return MostFrequent{Name: "None"}
	}
	best := MostFrequent{Count: -1}
	for _, name := range sortedNames(counts) {
		if counts[name] > best.Count {
			best = MostFrequent{Name: name, Count: counts[name]}
		}
	}
	return best
}
