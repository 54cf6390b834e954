package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/HelloBroCode/web-tracker1/internal/amqp"
	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

// ArchiveRow is one line of the yearly CSV archive.
type ArchiveRow struct {
	ID       int64  `csv:"id"`
	UserID   int64  `csv:"user_id"`
	Date     string `csv:"date"`
	Time     string `csv:"time"`
	Amount   string `csv:"amount"`
	Category string `csv:"category"`
	Notes    string `csv:"notes"`
}

// ArchiveWorker appends expenses to per-year CSV files as archive
// messages arrive. The archive is an audit trail, so rows are only
// ever appended; an updated expense shows up as a second row.
type ArchiveWorker struct {
	repo   storage.Repository
	dir    string
	logger *log.Logger
}

func NewArchiveWorker(repo storage.Repository, dir string, logger *log.Logger) (*ArchiveWorker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &ArchiveWorker{
		repo:   repo,
		dir:    dir,
		logger: logger.WithComponent(log.ComponentWorker),
	}, nil
}

// HandleArchiveMessage processes a single archive message. A missing
// expense is dropped: it was deleted between publish and consume.
func (w *ArchiveWorker) HandleArchiveMessage(ctx context.Context, msg *amqp.ExpenseArchiveMessage) error {
	expense, err := w.repo.GetExpense(ctx, msg.ID, msg.UserID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "expense gone before archiving, dropping message",
			log.FieldExpenseID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	category, err := w.repo.GetCategory(ctx, expense.CategoryID)
	if err != nil {
		return fmt.Errorf("get category for expense: %w", err)
	}

	if err := w.appendRow(expense, category.Name); err != nil {
		if markErr := w.repo.MarkArchiveError(ctx, msg.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark archive error",
				log.FieldExpenseID, msg.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to archive: %w", err)
	}

	if err := w.repo.MarkArchived(ctx, msg.ID); err != nil {
		// The row is in the archive, do not requeue
		w.logger.ErrorContext(ctx, "failed to mark expense archived",
			log.FieldExpenseID, msg.ID,
			log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "expense archived",
		log.FieldExpenseID, msg.ID,
		log.FieldArchiveFile, w.fileFor(expense.Date.Year()))
	return nil
}

func (w *ArchiveWorker) fileFor(year int) string {
	return filepath.Join(w.dir, fmt.Sprintf("expenses-%d.csv", year))
}

func (w *ArchiveWorker) appendRow(e core.Expense, categoryName string) error {
	path := w.fileFor(e.Date.Year())

	info, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer f.Close()

	rows := []ArchiveRow{{
		ID:       e.ID,
		UserID:   e.UserID,
		Date:     e.Date.Format(core.ISODateFormat),
		Time:     e.Time,
		Amount:   e.Amount.String(),
		Category: categoryName,
		Notes:    e.Notes,
	}}

	if newFile {
		return gocsv.Marshal(rows, f)
	}
	return gocsv.MarshalWithoutHeaders(rows, f)
}
