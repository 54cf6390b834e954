package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

func TestClampMonths(t *testing.T) {
	tests := []struct{ in, want int }{
		{-3, 1}, {0, 1}, {1, 1}, {3, 3}, {12, 12}, {13, 12}, {50, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampMonths(tt.in), "ClampMonths(%d)", tt.in)
	}
}

func TestPredictInsufficientData(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("10", "Food", "2025-06-01"),
		record("10", "Food", "2025-06-02"),
		record("10", "Food", "2025-06-03"),
		record("10", "Food", "2025-06-04"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, insufficient, err := engine.Predict(context.Background(), 1, 3, june15)
	require.NoError(t, err)
	assert.Nil(t, prediction)
	require.NotNil(t, insufficient)
	assert.Equal(t, 4, insufficient.Count)
	assert.Equal(t, MinExpensesForPrediction, insufficient.Minimum)
}

// With the jitter source fixed at 0.5 the multiplicative factor is exactly
// 1.0, so the weighted arithmetic is directly observable.
func TestPredictWeightedAverage(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-03-10"),
		record("100", "Food", "2025-03-20"),
		record("300", "Food", "2025-04-10"),
		record("400", "Food", "2025-05-10"),
		record("500", "Food", "2025-06-10"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, insufficient, err := engine.Predict(context.Background(), 1, 1, june15)
	require.NoError(t, err)
	require.Nil(t, insufficient)
	require.Len(t, prediction.Months, 1)

	// Recent window keeps April, May, June: 300*0.2 + 400*0.3 + 500*0.5 = 430.
	month := prediction.Months[0]
	assert.True(t, month.Categories["Food"].Equal(dec("430")),
		"predicted = %s", month.Categories["Food"])
	assert.True(t, month.Total.Equal(dec("430")))
	assert.True(t, prediction.TotalPredicted.Equal(dec("430")))
}

func TestPredictTwoMonthHistory(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-05-01"),
		record("100", "Food", "2025-05-15"),
		record("100", "Food", "2025-05-20"),
		record("200", "Food", "2025-06-01"),
		record("100", "Food", "2025-06-10"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, insufficient, err := engine.Predict(context.Background(), 1, 1, june15)
	require.NoError(t, err)
	require.Nil(t, insufficient)

	// Two monthly sums of 300 each: mean 300 with the fixed 5% markup.
	assert.True(t, prediction.Months[0].Categories["Food"].Equal(dec("315")),
		"predicted = %s", prediction.Months[0].Categories["Food"])
}

func TestPredictSingleMonthCarriesOver(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("50", "Food", "2025-06-01"),
		record("50", "Food", "2025-06-02"),
		record("50", "Food", "2025-06-03"),
		record("50", "Food", "2025-06-04"),
		record("50", "Food", "2025-06-05"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, _, err := engine.Predict(context.Background(), 1, 2, june15)
	require.NoError(t, err)
	require.Len(t, prediction.Months, 2)

	assert.True(t, prediction.Months[0].Categories["Food"].Equal(dec("250")))
	assert.True(t, prediction.Months[1].Categories["Food"].Equal(dec("250")))
	assert.True(t, prediction.TotalPredicted.Equal(dec("500")))
}

func TestPredictMonthLabelsAdvance(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("10", "Food", "2025-06-01"),
		record("10", "Food", "2025-06-02"),
		record("10", "Food", "2025-06-03"),
		record("10", "Food", "2025-06-04"),
		record("10", "Food", "2025-06-05"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, _, err := engine.Predict(context.Background(), 1, 3, june15)
	require.NoError(t, err)
	require.Len(t, prediction.Months, 3)

	assert.Equal(t, "2025-07", prediction.Months[0].Month)
	assert.Equal(t, "2025-08", prediction.Months[1].Month)
	assert.Equal(t, "2025-09", prediction.Months[2].Month)
}

func TestPredictMultipleCategories(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-06-01"),
		record("200", "Transport", "2025-06-02"),
		record("100", "Food", "2025-06-03"),
		record("50", "Bills", "2025-06-04"),
		record("100", "Food", "2025-06-05"),
	}}
	engine := NewEngine(src, halfJitter{})

	prediction, _, err := engine.Predict(context.Background(), 1, 1, june15)
	require.NoError(t, err)

	month := prediction.Months[0]
	require.Len(t, month.Categories, 3)
	assert.True(t, month.Categories["Food"].Equal(dec("300")))
	assert.True(t, month.Categories["Transport"].Equal(dec("200")))
	assert.True(t, month.Categories["Bills"].Equal(dec("50")))
	assert.True(t, month.Total.Equal(dec("550")))
}

func TestPredictJitterBounds(t *testing.T) {
	src := &fakeSource{records: []core.ExpenseRecord{
		record("100", "Food", "2025-06-01"),
		record("100", "Food", "2025-06-02"),
		record("100", "Food", "2025-06-03"),
		record("100", "Food", "2025-06-04"),
		record("100", "Food", "2025-06-05"),
	}}

	for name, j := range map[string]Jitter{
		"low":  fixedFloat(0),
		"high": fixedFloat(1),
	} {
		engine := NewEngine(src, j)
		prediction, _, err := engine.Predict(context.Background(), 1, 1, june15)
		require.NoError(t, err, name)

		got := prediction.Months[0].Categories["Food"]
		assert.True(t, got.GreaterThanOrEqual(dec("450")) && got.LessThanOrEqual(dec("550")),
			"%s jitter: predicted = %s, want within [450, 550]", name, got)
	}
}

type fixedFloat float64

func (f fixedFloat) Float64() float64 { return float64(f) }

func TestPredictSourceError(t *testing.T) {
	engine := NewEngine(&fakeSource{err: errors.New("db down")}, halfJitter{})
	_, _, err := engine.Predict(context.Background(), 1, 3, june15)
	assert.Error(t, err)
}

func TestPredictUsesFullHistoryForMinimum(t *testing.T) {
	// Old expenses still count toward the minimum even though only the
	// recent window feeds the forecast.
	records := []core.ExpenseRecord{
		record("10", "Food", "2023-01-01"),
		record("10", "Food", "2023-02-01"),
		record("10", "Food", "2023-03-01"),
		record("10", "Food", "2023-04-01"),
		record("20", "Food", "2025-06-01"),
	}
	engine := NewEngine(&fakeSource{records: records}, halfJitter{})

	prediction, insufficient, err := engine.Predict(context.Background(), 1, 1, june15)
	require.NoError(t, err)
	assert.Nil(t, insufficient)
	require.NotNil(t, prediction)
}
