package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

// MemoryRepository keeps everything in process memory. It backs the
// "memory" data backend and most of the test suite. New repositories
// start with the same global categories the SQLite seed migration
// creates.
type MemoryRepository struct {
	mu         sync.RWMutex
	categories map[int64]core.Category
	expenses   map[int64]core.Expense
	archive    map[int64]string
	nextCatID  int64
	nextExpID  int64
	failErr    error
}

var defaultGlobalCategories = []string{
	"Food", "Transport", "Entertainment", "Bills", "Shopping",
	"Health", "Education", "Travel", "Housing", "Others",
}

func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{
		categories: make(map[int64]core.Category),
		expenses:   make(map[int64]core.Expense),
		archive:    make(map[int64]string),
		nextCatID:  1,
		nextExpID:  1,
	}
	for _, name := range defaultGlobalCategories {
		r.categories[r.nextCatID] = core.Category{ID: r.nextCatID, Name: name}
		r.nextCatID++
	}
	return r
}

// FailWith makes every subsequent call return err. Passing nil clears
// the failure. Test hook only.
func (r *MemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) FindCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return core.Category{}, r.failErr
	}
	return r.findCategoryLocked(name, userID)
}

func (r *MemoryRepository) findCategoryLocked(name string, userID int64) (core.Category, error) {
	var global *core.Category
	for _, c := range r.categories {
		if c.Name != name {
			continue
		}
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
		if c.UserID == nil {
			g := c
			global = &g
		}
	}
	if global != nil {
		return *global, nil
	}
	return core.Category{}, core.ErrNotFound
}

func (r *MemoryRepository) CreateCategory(ctx context.Context, name string, userID *int64) (core.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return core.Category{}, r.failErr
	}

	c := core.Category{ID: r.nextCatID, Name: name, UserID: userID}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	r.categories[c.ID] = c
	r.nextCatID++
	return c, nil
}

func (r *MemoryRepository) ResolveOrCreateCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return core.Category{}, r.failErr
	}

	if c, err := r.findCategoryLocked(name, userID); err == nil {
		return c, nil
	}

	c := core.Category{ID: r.nextCatID, Name: name, UserID: &userID}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	r.categories[c.ID] = c
	r.nextCatID++
	return c, nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	var categories []core.Category
	for _, c := range r.categories {
		if c.UserID == nil || *c.UserID == userID {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (r *MemoryRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return core.Category{}, r.failErr
	}

	c, ok := r.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return core.Expense{}, r.failErr
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = r.nextExpID
	r.nextExpID++
	r.expenses[e.ID] = e
	r.archive[e.ID] = "pending"
	return e, nil
}

func (r *MemoryRepository) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return core.Expense{}, r.failErr
	}

	e, ok := r.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return core.Expense{}, r.failErr
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	stored, ok := r.expenses[e.ID]
	if !ok || stored.UserID != e.UserID {
		return core.Expense{}, core.ErrNotFound
	}
	e.ReceiptPath = stored.ReceiptPath
	r.expenses[e.ID] = e
	return e, nil
}

func (r *MemoryRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}

	e, ok := r.expenses[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(r.expenses, id)
	delete(r.archive, id)
	return nil
}

func (r *MemoryRepository) QueryExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	var expenses []core.Expense
	for _, e := range r.expenses {
		if e.UserID != q.UserID {
			continue
		}
		if !q.From.IsZero() && e.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.Date.After(q.To) {
			continue
		}
		if q.CategoryID != nil && e.CategoryID != *q.CategoryID {
			continue
		}
		if q.Keyword != "" && !strings.Contains(strings.ToLower(e.Notes), strings.ToLower(q.Keyword)) {
			continue
		}
		if q.MinAmount != nil && e.Amount.LessThan(*q.MinAmount) {
			continue
		}
		if q.MaxAmount != nil && e.Amount.GreaterThan(*q.MaxAmount) {
			continue
		}
		expenses = append(expenses, e)
	}
	sort.Slice(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].ID > expenses[j].ID
	})
	if q.Limit > 0 && len(expenses) > q.Limit {
		expenses = expenses[:q.Limit]
	}
	return expenses, nil
}

func (r *MemoryRepository) SetReceiptPath(ctx context.Context, id, userID int64, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}

	e, ok := r.expenses[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	e.ReceiptPath = path
	r.expenses[id] = e
	return nil
}

func (r *MemoryRepository) ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	var records []core.ExpenseRecord
	for _, e := range r.expenses {
		if e.UserID != userID {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		c, ok := r.categories[e.CategoryID]
		if !ok {
			continue
		}
		records = append(records, core.ExpenseRecord{
			Amount:   e.Amount,
			Category: c.Name,
			Date:     e.Date,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

func (r *MemoryRepository) MarkArchived(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.archive[id] = "archived"
	return nil
}

func (r *MemoryRepository) MarkArchiveError(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.archive[id] = "error"
	return nil
}

// ArchiveStatus reports an expense's archive state. Test hook only.
func (r *MemoryRepository) ArchiveStatus(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archive[id]
}
