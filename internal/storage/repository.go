package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

// ExpenseQuery filters QueryExpenses. Zero values mean "no filter":
// a zero From/To leaves that side of the date range open, a nil
// CategoryID matches every category, an empty Keyword skips the
// notes search.
type ExpenseQuery struct {
	UserID     int64
	From       time.Time
	To         time.Time
	CategoryID *int64
	Keyword    string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Limit      int
}

// Repository is the persistence surface the rest of the application
// works against. Both the SQLite and in-memory backends implement it.
type Repository interface {
	// Categories
	FindCategory(ctx context.Context, name string, userID int64) (core.Category, error)
	CreateCategory(ctx context.Context, name string, userID *int64) (core.Category, error)
	ResolveOrCreateCategory(ctx context.Context, name string, userID int64) (core.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)

	// Expenses
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id, userID int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, userID int64) error
	QueryExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error)
	SetReceiptPath(ctx context.Context, id, userID int64, path string) error

	// Reporting
	ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error)

	// Archive queue bookkeeping
	MarkArchived(ctx context.Context, id int64) error
	MarkArchiveError(ctx context.Context, id int64) error

	Close() error
}
