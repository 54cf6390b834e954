package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

type recordingPublisher struct {
	published []int64
	err       error
}

func (p *recordingPublisher) PublishExpenseArchive(ctx context.Context, id, userID int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func testLogger() *log.Logger {
	return log.New("test", log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func testExpense() core.Expense {
	return core.Expense{
		Amount:     decimal.RequireFromString("300"),
		Date:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Time:       "09:30:00",
		Notes:      "weekly shop",
		CategoryID: 1,
		UserID:     1,
	}
}

func TestCreateExpensePublishesArchiveMessage(t *testing.T) {
	repo := storage.NewMemoryRepository()
	pub := &recordingPublisher{}
	svc := NewExpenseService(repo, pub, testLogger())

	created, err := svc.CreateExpense(context.Background(), testExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != created.ID {
		t.Errorf("expected archive message for expense %d, got %v", created.ID, pub.published)
	}
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	repo := storage.NewMemoryRepository()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(repo, pub, testLogger())

	created, err := svc.CreateExpense(context.Background(), testExpense())
	if err != nil {
		t.Fatalf("CreateExpense should succeed despite publish failure: %v", err)
	}
	if _, err := repo.GetExpense(context.Background(), created.ID, 1); err != nil {
		t.Errorf("expense should be persisted: %v", err)
	}
}

func TestCreateExpenseWithoutPublisher(t *testing.T) {
	repo := storage.NewMemoryRepository()
	svc := NewExpenseService(repo, nil, testLogger())

	if _, err := svc.CreateExpense(context.Background(), testExpense()); err != nil {
		t.Fatalf("CreateExpense without publisher: %v", err)
	}
}

func TestCreateExpenseStorageError(t *testing.T) {
	repo := storage.NewMemoryRepository()
	repo.FailWith(errors.New("disk full"))
	pub := &recordingPublisher{}
	svc := NewExpenseService(repo, pub, testLogger())

	if _, err := svc.CreateExpense(context.Background(), testExpense()); err == nil {
		t.Fatal("expected storage error")
	}
	if len(pub.published) != 0 {
		t.Error("no archive message should be published on storage failure")
	}
}
