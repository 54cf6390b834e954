package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateFormat is the user-facing date layout (DD-MM-YYYY).
	DateFormat = "02-01-2006"
	// ISODateFormat is the storage date layout.
	ISODateFormat = "2006-01-02"
	// TimeFormat is the wall-clock layout recorded alongside each expense.
	TimeFormat = "15:04:05"
	// MonthKeyFormat identifies a calendar month (YYYY-MM).
	MonthKeyFormat = "2006-01"

	// MaxNotesLen caps the auto-generated or user-supplied notes text.
	MaxNotesLen = 200
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrEmptyCategory  = errors.New("empty category name")
	ErrNotesTooLong   = errors.New("notes too long")
	ErrNotFound       = errors.New("not found")
	ErrNotOwned       = errors.New("resource not owned by user")
)

type (
	// Category groups expenses. A nil UserID marks a global category shared by
	// all users; otherwise the category is private to that user.
	Category struct {
		ID     int64
		Name   string
		UserID *int64
	}

	// ExpenseRecord is an expense row joined with its category name, the
	// shape reporting works over.
	ExpenseRecord struct {
		Amount   decimal.Decimal
		Category string
		Date     time.Time
	}

	// Expense is a single logged expense owned by exactly one user.
	Expense struct {
		ID          int64
		Amount      decimal.Decimal
		Date        time.Time // date component only, midnight UTC
		Time        string    // HH:MM:SS entry time
		Notes       string
		CategoryID  int64
		UserID      int64
		ReceiptPath string
	}
)

// Global reports whether the category is shared by all users.
func (c Category) Global() bool {
	return c.UserID == nil
}

// Owner returns the owning user id, or 0 for a global category.
func (c Category) Owner() int64 {
	if c.UserID == nil {
		return 0
	}
	return *c.UserID
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(e.Notes) > MaxNotesLen {
		return ErrNotesTooLong
	}
	if e.CategoryID <= 0 {
		return ErrEmptyCategory
	}
	return nil
}

// ParseAmount parses a positive decimal amount, tolerating surrounding
// whitespace and an optional leading ₹ symbol.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "₹"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseDate parses a DD-MM-YYYY date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DateOnly truncates t to its date component (midnight UTC).
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the YYYY-MM key identifying t's calendar month.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyFormat)
}

// MonthWindow returns the first and last day of t's calendar month.
func MonthWindow(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// PrevMonthWindow returns the first and last day of the month before t's,
// rolling the year over at January.
func PrevMonthWindow(t time.Time) (start, end time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = first.AddDate(0, 0, -1)
	start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, end
}
