package worker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/amqp"
	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

func testWorker(t *testing.T) (*ArchiveWorker, *storage.MemoryRepository, string) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	dir := t.TempDir()
	logger := log.New("test", log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	w, err := NewArchiveWorker(repo, dir, logger)
	if err != nil {
		t.Fatalf("NewArchiveWorker: %v", err)
	}
	return w, repo, dir
}

func addExpense(t *testing.T, repo *storage.MemoryRepository, date time.Time) core.Expense {
	t.Helper()
	e, err := repo.CreateExpense(context.Background(), core.Expense{
		Amount:     decimal.RequireFromString("250.50"),
		Date:       date,
		Time:       "10:00:00",
		Notes:      "team lunch",
		CategoryID: 1,
		UserID:     1,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return e
}

func TestHandleArchiveMessage(t *testing.T) {
	w, repo, dir := testWorker(t)
	e := addExpense(t, repo, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	msg := amqp.NewExpenseArchiveMessage(e.ID, e.UserID)
	if err := w.HandleArchiveMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleArchiveMessage: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "expenses-2024.csv"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "id,user_id,date,time,amount,category,notes") {
		t.Errorf("archive should have a header, got %q", content)
	}
	if !strings.Contains(content, "250.5") || !strings.Contains(content, "Food") {
		t.Errorf("archive should contain the expense row, got %q", content)
	}
	if repo.ArchiveStatus(e.ID) != "archived" {
		t.Errorf("expense should be marked archived, got %q", repo.ArchiveStatus(e.ID))
	}
}

func TestHandleArchiveMessageAppendsWithoutDuplicateHeader(t *testing.T) {
	w, repo, dir := testWorker(t)
	first := addExpense(t, repo, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	second := addExpense(t, repo, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))

	for _, e := range []core.Expense{first, second} {
		if err := w.HandleArchiveMessage(context.Background(), amqp.NewExpenseArchiveMessage(e.ID, e.UserID)); err != nil {
			t.Fatalf("HandleArchiveMessage: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "expenses-2024.csv"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if got := strings.Count(string(data), "id,user_id"); got != 1 {
		t.Errorf("expected a single header, found %d", got)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header plus 2 rows, got %d lines", len(lines))
	}
}

func TestHandleArchiveMessageSplitsByYear(t *testing.T) {
	w, repo, dir := testWorker(t)
	e24 := addExpense(t, repo, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	e25 := addExpense(t, repo, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, e := range []core.Expense{e24, e25} {
		if err := w.HandleArchiveMessage(context.Background(), amqp.NewExpenseArchiveMessage(e.ID, e.UserID)); err != nil {
			t.Fatalf("HandleArchiveMessage: %v", err)
		}
	}

	for _, name := range []string{"expenses-2024.csv", "expenses-2025.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected archive file %s: %v", name, err)
		}
	}
}

func TestHandleArchiveMessageServesAsConsumerHandler(t *testing.T) {
	w, repo, dir := testWorker(t)
	e := addExpense(t, repo, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	var handle amqp.ArchiveHandler = w.HandleArchiveMessage
	if err := handle(context.Background(), amqp.NewExpenseArchiveMessage(e.ID, e.UserID)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "expenses-2024.csv")); err != nil {
		t.Errorf("expected archive file: %v", err)
	}
}

func TestHandleArchiveMessageDropsMissingExpense(t *testing.T) {
	w, _, _ := testWorker(t)

	msg := amqp.NewExpenseArchiveMessage(9999, 1)
	if err := w.HandleArchiveMessage(context.Background(), msg); err != nil {
		t.Fatalf("missing expense should be dropped without error, got %v", err)
	}
}
