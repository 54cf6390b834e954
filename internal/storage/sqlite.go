package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) FindCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	// A private category shadows a global one of the same name.
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, user_id FROM categories
		WHERE name = ? AND (user_id = ? OR user_id IS NULL)
		ORDER BY user_id IS NULL
		LIMIT 1`, name, userID)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string, userID *int64) (core.Category, error) {
	c := core.Category{Name: name, UserID: userID}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, user_id) VALUES (?, ?)`,
		name, nullID(userID))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}

	r.logger.InfoContext(ctx, "category created",
		log.FieldCategoryID, c.ID,
		log.FieldCategory, c.Name)
	return c, nil
}

func (r *SQLiteRepository) ResolveOrCreateCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	c, err := r.FindCategory(ctx, name, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, err
	}
	return r.CreateCategory(ctx, name, &userID)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, user_id FROM categories
		WHERE user_id = ? OR user_id IS NULL
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_id FROM categories WHERE id = ?`, id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (amount, date, time, notes, category_id, user_id, receipt_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Amount.String(),
		e.Date.Format(core.ISODateFormat),
		e.Time,
		e.Notes,
		e.CategoryID,
		e.UserID,
		nullString(e.ReceiptPath))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	r.logger.InfoContext(ctx, "expense created",
		log.FieldExpenseID, e.ID,
		log.FieldUserID, e.UserID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategoryID, e.CategoryID)
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount, date, time, notes, category_id, user_id, receipt_path
		FROM expenses WHERE id = ? AND user_id = ?`, id, userID)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount = ?, date = ?, time = ?, notes = ?, category_id = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount.String(),
		e.Date.Format(core.ISODateFormat),
		e.Time,
		e.Notes,
		e.CategoryID,
		e.ID,
		e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense rows: %w", err)
	}
	if n == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	r.logger.InfoContext(ctx, "expense deleted",
		log.FieldExpenseID, id,
		log.FieldUserID, userID)
	return nil
}

func (r *SQLiteRepository) QueryExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, amount, date, time, notes, category_id, user_id, receipt_path
		FROM expenses WHERE user_id = ?`)
	args := []any{q.UserID}

	if !q.From.IsZero() {
		sb.WriteString(" AND date >= ?")
		args = append(args, q.From.Format(core.ISODateFormat))
	}
	if !q.To.IsZero() {
		sb.WriteString(" AND date <= ?")
		args = append(args, q.To.Format(core.ISODateFormat))
	}
	if q.CategoryID != nil {
		sb.WriteString(" AND category_id = ?")
		args = append(args, *q.CategoryID)
	}
	if q.Keyword != "" {
		sb.WriteString(" AND notes LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(q.Keyword)+"%")
	}
	if q.MinAmount != nil {
		sb.WriteString(" AND CAST(amount AS REAL) >= ?")
		args = append(args, q.MinAmount.InexactFloat64())
	}
	if q.MaxAmount != nil {
		sb.WriteString(" AND CAST(amount AS REAL) <= ?")
		args = append(args, q.MaxAmount.InexactFloat64())
	}
	sb.WriteString(" ORDER BY date DESC, id DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) SetReceiptPath(ctx context.Context, id, userID int64, path string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET receipt_path = ? WHERE id = ? AND user_id = ?`,
		path, id, userID)
	if err != nil {
		return fmt.Errorf("set receipt path: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set receipt path rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ExpenseRecords(ctx context.Context, userID int64, from, to time.Time) ([]core.ExpenseRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT e.amount, c.name, e.date
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ?`)
	args := []any{userID}

	if !from.IsZero() {
		sb.WriteString(" AND e.date >= ?")
		args = append(args, from.Format(core.ISODateFormat))
	}
	if !to.IsZero() {
		sb.WriteString(" AND e.date <= ?")
		args = append(args, to.Format(core.ISODateFormat))
	}
	sb.WriteString(" ORDER BY e.date")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query expense records: %w", err)
	}
	defer rows.Close()

	var records []core.ExpenseRecord
	for rows.Next() {
		var amount, date string
		var rec core.ExpenseRecord
		if err := rows.Scan(&amount, &rec.Category, &date); err != nil {
			return nil, fmt.Errorf("scan expense record: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		rec.Date, err = time.Parse(core.ISODateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) MarkArchived(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET archive_status = 'archived' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense archived: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkArchiveError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET archive_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense archive error: %w", err)
	}
	r.logger.WarnContext(ctx, "expense marked with archive error", log.FieldExpenseID, id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var c core.Category
	var userID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &userID); err != nil {
		return core.Category{}, err
	}
	if userID.Valid {
		c.UserID = &userID.Int64
	}
	return c, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var amount, date string
	var receipt sql.NullString
	if err := row.Scan(&e.ID, &amount, &date, &e.Time, &e.Notes, &e.CategoryID, &e.UserID, &receipt); err != nil {
		return core.Expense{}, err
	}

	var err error
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Date, err = time.Parse(core.ISODateFormat, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.ReceiptPath = receipt.String
	return e, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
