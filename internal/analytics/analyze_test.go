package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

type fakeSource struct {
	records []core.ExpenseRecord
	err     error
}

func (f *fakeSource) ExpenseRecords(_ context.Context, _ int64, from, to time.Time) ([]core.ExpenseRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.ExpenseRecord
	for _, r := range f.records {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type halfJitter struct{}

func (halfJitter) Float64() float64 { return 0.5 }

func record(amount, category, date string) core.ExpenseRecord {
	d, err := time.Parse(core.ISODateFormat, date)
	if err != nil {
		panic(err)
	}
	return core.ExpenseRecord{
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     d,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var june15 = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestAnalyzeMonthOverMonth(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("40", "Food", "2025-06-02"),
		record("60", "Food", "2025-06-10"),
		record("200", "Transport", "2025-06-12"),
		record("200", "Food", "2025-05-20"),
	}}
	engine := NewEngine(src, halfJitter{})

	report, err := engine.Analyze(context.Background(), 1, june15)
	require.NoError(t, err)

	assert.True(t, report.CurrentMonthTotal.Equal(dec("300")), "current = %s", report.CurrentMonthTotal)
	assert.True(t, report.LastMonthTotal.Equal(dec("200")), "last = %s", report.LastMonthTotal)
	assert.True(t, report.PercentChange.Equal(dec("50")), "change = %s", report.PercentChange)

	assert.Equal(t, "Transport", report.HighestCategory.Name)
	assert.True(t, report.HighestCategory.Amount.Equal(dec("200")))
	assert.True(t, report.HighestCategory.Percentage.Equal(dec("66.7")),
		"percentage = %s", report.HighestCategory.Percentage)

	assert.Equal(t, "Food", report.MostFrequent.Name)
	assert.Equal(t, 2, report.MostFrequent.Count)

	assert.Equal(t, "01-06-2025", report.Period.CurrentMonth.Start)
	assert.Equal(t, "30-06-2025", report.Period.CurrentMonth.End)
	assert.Equal(t, "May 2025", report.Period.LastMonth.Name)
}

func TestAnalyzePercentChangeSentinels(t *testing.T) {
	tests := []struct {
		name    string
		records []core.ExpenseRecord
		want    string
	}{
		{"only current month", []core.ExpenseRecord{record("50", "Food", "2025-06-01")}, "100"},
		{"only last month", []core.ExpenseRecord{record("50", "Food", "2025-05-01")}, "-100"},
		{"no spending at all", nil, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(&fakeSource{records: tt.records}, halfJitter{})
			report, err := engine.Analyze(context.Background(), 1, june15)
			require.NoError(t, err)
			assert.True(t, report.PercentChange.Equal(dec(tt.want)),
				"change = %s, want %s", report.PercentChange, tt.want)
		})
	}
}

func TestAnalyzeEmptyMonthPlaceholders(t *testing.T) {
	engine := NewEngine(&fakeSource{}, halfJitter{})
	report, err := engine.Analyze(context.Background(), 1, june15)
	require.NoError(t, err)

	assert.Equal(t, "None", report.HighestCategory.Name)
	assert.True(t, report.HighestCategory.Amount.IsZero())
	assert.Equal(t, "None", report.MostFrequent.Name)
	assert.Equal(t, 0, report.MostFrequent.Count)
}

func TestAnalyzeTieBreaksAlphabetically(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-06-01"),
		record("100", "Bills", "2025-06-02"),
	}}
	engine := NewEngine(src, halfJitter{})

	report, err := engine.Analyze(context.Background(), 1, june15)
	require.NoError(t, err)
	assert.Equal(t, "Bills", report.HighestCategory.Name)
	assert.Equal(t, "Bills", report.MostFrequent.Name)
}

func TestAnalyzeMonthlyTrend(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("10", "Food", "2025-01-05"),
		record("20", "Food", "2025-03-05"),
		record("30", "Food", "2025-06-05"),
		record("99", "Food", "2024-12-05"), // outside the six-month window
	}}
	engine := NewEngine(src, halfJitter{})

	report, err := engine.Analyze(context.Background(), 1, june15)
	require.NoError(t, err)

	require.Len(t, report.MonthlyTrend, 6)
	labels := make([]string, 0, 6)
	for _, m := range report.MonthlyTrend {
		labels = append(labels, m.Month)
	}
	assert.Equal(t, []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}, labels)

	assert.True(t, report.MonthlyTrend[0].Total.Equal(dec("10")))
	assert.True(t, report.MonthlyTrend[1].Total.IsZero())
	assert.True(t, report.MonthlyTrend[2].Total.Equal(dec("20")))
	assert.True(t, report.MonthlyTrend[5].Total.Equal(dec("30")))
}

func TestAnalyzeJanuaryRollover(t *testing.T) {
	jan15 := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-01-10"),
		record("50", "Food", "2024-12-20"),
	}}
	engine := NewEngine(src, halfJitter{})

	report, err := engine.Analyze(context.Background(), 1, jan15)
	require.NoError(t, err)

	assert.True(t, report.LastMonthTotal.Equal(dec("50")), "last = %s", report.LastMonthTotal)
	assert.Equal(t, "December 2024", report.Period.LastMonth.Name)
	assert.Equal(t, "01-12-2024", report.Period.LastMonth.Start)
	assert.Equal(t, "31-12-2024", report.Period.LastMonth.End)
	assert.True(t, report.PercentChange.Equal(dec("100")))
}

func TestAnalyzeSourceError(t *testing.T) {
	engine := NewEngine(&fakeSource{err: errors.New("db down")}, halfJitter{})
	_, err := engine.Analyze(context.Background(), 1, june15)
	assert.Error(t, err)
}
