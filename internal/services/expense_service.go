package services

import (
	"context"
	"fmt"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

// ArchivePublisher enqueues expenses for the CSV archive worker.
type ArchivePublisher interface {
	PublishExpenseArchive(ctx context.Context, id, userID int64) error
}

// ExpenseService orchestrates expense writes across storage and the
// archive queue. Publishing is best effort: a queue failure never
// fails the write, the row just stays in pending archive state.
type ExpenseService struct {
	repo      storage.Repository
	publisher ArchivePublisher
	logger    *log.Logger
}

func NewExpenseService(repo storage.Repository, publisher ArchivePublisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent("expense-service"),
	}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishArchiveMessage(ctx, created.ID, created.UserID)
	return created, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	// Re-archive so the yearly CSV picks up the new values
	s.publishArchiveMessage(ctx, updated.ID, updated.UserID)
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id, userID int64) error {
	return s.repo.DeleteExpense(ctx, id, userID)
}

// ResolveOrCreateCategory lets the chat engine commit through the
// service so conversational expenses are archived too.
func (s *ExpenseService) ResolveOrCreateCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	return s.repo.ResolveOrCreateCategory(ctx, name, userID)
}

func (s *ExpenseService) publishArchiveMessage(ctx context.Context, id, userID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseArchive(ctx, id, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish archive message",
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
}
