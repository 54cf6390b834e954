// Package analytics derives monthly spending reports and heuristic forecasts
// from a user's expense history.
package analytics

import (
	"context"
	"time"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

// Source is the storage surface the engines read from. Zero from/to values
// mean an unbounded range.
type Source interface {
	ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error)
}

// Jitter supplies the random factor applied to predictions. *rand.Rand
// satisfies it; tests inject a fixed source.
type Jitter interface {
	Float64() float64
}

// Engine computes analytics and predictions for one storage source.
type Engine struct {
	source Source
	jitter Jitter
}

// NewEngine creates an analytics engine. The jitter source must not be nil;
// callers needing reproducible predictions pass a seeded rand.Rand.
func NewEngine(source Source, jitter Jitter) *Engine {
	return &Engine{source: source, jitter: jitter}
}
