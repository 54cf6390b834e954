package advisor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
)

type stubSource struct {
	records []core.ExpenseRecord
}

func (s *stubSource) ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error) {
	return s.records, nil
}

type stubGenerator struct {
	prompt string
	reply  string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, nil
}

func testLogger() *log.Logger {
	return log.New("test", log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func record(amount, category string, date time.Time) core.ExpenseRecord {
	return core.ExpenseRecord{
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     date,
	}
}

func TestTipsFor(t *testing.T) {
	a := New(&stubSource{}, nil, testLogger())

	tips, ok := a.TipsFor("Food")
	require.True(t, ok)
	assert.Len(t, tips, 5)

	_, ok = a.TipsFor("housing")
	assert.False(t, ok, "categories without a dedicated list fall back to general tips")

	assert.Len(t, a.GeneralTips(), 5)
	assert.Contains(t, a.TipCategories(), "transport")
}

func TestPersonalizedAdviceNoGenerator(t *testing.T) {
	a := New(&stubSource{}, nil, testLogger())
	assert.False(t, a.AIAvailable())

	_, err := a.PersonalizedAdvice(context.Background(), 1, "")
	assert.Error(t, err)
}

func TestPersonalizedAdviceNoExpenses(t *testing.T) {
	a := New(&stubSource{}, &stubGenerator{}, testLogger())

	advice, err := a.PersonalizedAdvice(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "You don't have any expenses yet. Once you add some, I can provide personalized advice.", advice)

	advice, err = a.PersonalizedAdvice(context.Background(), 1, "food")
	require.NoError(t, err)
	assert.Contains(t, advice, "in the food category")
}

func TestPersonalizedAdvicePrompt(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	src := &stubSource{records: []core.ExpenseRecord{
		record("100", "Food", jan),
		record("300", "Transport", feb),
	}}
	gen := &stubGenerator{reply: "  Spend less on taxis.  "}
	a := New(src, gen, testLogger())

	advice, err := a.PersonalizedAdvice(context.Background(), 1, "transport")
	require.NoError(t, err)
	assert.Equal(t, "Spend less on taxis.", advice)

	assert.Contains(t, gen.prompt, "specifically for their transport expenses")
	assert.Contains(t, gen.prompt, "Total spent: 400")
	assert.Contains(t, gen.prompt, "Average per expense: 200")
	assert.Contains(t, gen.prompt, "Number of expenses: 2")
	assert.Contains(t, gen.prompt, "2024-01-10 to 2024-02-10")
	assert.Contains(t, gen.prompt, "- Transport: 300")
}

func TestGeminiPromptEmbedsPersona(t *testing.T) {
	got := geminiPrompt("Spending summary: food heavy month.")

	assert.True(t, strings.HasPrefix(got, geminiPersona))
	assert.Contains(t, got, "Spending summary: food heavy month.")
}
