package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

type fakeStore struct {
	categories map[string]core.Category
	created    []core.Expense
	nextID     int64
	failErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{categories: make(map[string]core.Category)}
}

func (f *fakeStore) ResolveOrCreateCategory(_ context.Context, name string, userID int64) (core.Category, error) {
	if f.failErr != nil {
		return core.Category{}, f.failErr
	}
	if c, ok := f.categories[name]; ok {
		return c, nil
	}
	f.nextID++
	c := core.Category{ID: f.nextID, Name: name, UserID: &userID}
	f.categories[name] = c
	return c, nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if f.failErr != nil {
		return core.Expense{}, f.failErr
	}
	f.nextID++
	e.ID = f.nextID
	f.created = append(f.created, e)
	return e, nil
}

func testClock() time.Time {
	return time.Date(2025, time.March, 17, 14, 30, 0, 0, time.UTC)
}

func TestHandleDirectStatement(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, testClock)
	conv := NewConversation()

	reply := engine.Handle(context.Background(), 1, conv, "I spent ₹500 on food")
	require.True(t, reply.Committed)
	assert.Contains(t, reply.Message, "Expense added successfully!")
	assert.Contains(t, reply.Message, "Amount: ₹500")
	assert.Contains(t, reply.Message, "Category: Food")
	assert.Contains(t, reply.Message, "Date: 17-03-2025")

	require.Len(t, store.created, 1)
	e := store.created[0]
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1), e.UserID)
	assert.Equal(t, "14:30:00", e.Time)
	assert.Equal(t, StateInitial, conv.State)
}

func TestHandleGuidedFlow(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, testClock)
	conv := NewConversation()
	ctx := context.Background()

	reply := engine.Handle(ctx, 1, conv, "add an expense")
	assert.Contains(t, reply.Message, "Please enter the amount")
	assert.Equal(t, StateAwaitAmount, conv.State)

	reply = engine.Handle(ctx, 1, conv, "250.50")
	assert.Contains(t, reply.Message, "what's the category")
	assert.Equal(t, StateAwaitCategory, conv.State)

	reply = engine.Handle(ctx, 1, conv, "transport")
	assert.Contains(t, reply.Message, "Category: Transport")
	assert.Contains(t, reply.Message, "provide the date")
	assert.Equal(t, StateAwaitDate, conv.State)

	reply = engine.Handle(ctx, 1, conv, "15-03-2025")
	require.True(t, reply.Committed)
	assert.Contains(t, reply.Message, "Expense added successfully!")

	require.Len(t, store.created, 1)
	assert.Equal(t, "2025-03-15", store.created[0].Date.Format(core.ISODateFormat))
	assert.Equal(t, StateInitial, conv.State)
}

func TestHandleAmountOnlySkipsPrompt(t *testing.T) {
	engine := NewEngine(newFakeStore(), testClock)
	conv := NewConversation()

	reply := engine.Handle(context.Background(), 1, conv, "₹300")
	assert.Contains(t, reply.Message, "Amount ₹300 recorded")
	assert.Equal(t, StateAwaitCategory, conv.State)
}

func TestHandleInvalidAmountReprompts(t *testing.T) {
	engine := NewEngine(newFakeStore(), testClock)
	conv := NewConversation()
	ctx := context.Background()

	engine.Handle(ctx, 1, conv, "add an expense")
	reply := engine.Handle(ctx, 1, conv, "a bunch")
	assert.Equal(t, "Please enter a valid amount.", reply.Message)
	assert.Equal(t, StateAwaitAmount, conv.State)
}

func TestHandleInvalidDateReprompts(t *testing.T) {
	engine := NewEngine(newFakeStore(), testClock)
	conv := NewConversation()
	ctx := context.Background()

	engine.Handle(ctx, 1, conv, "add an expense")
	engine.Handle(ctx, 1, conv, "100")
	engine.Handle(ctx, 1, conv, "bills")
	reply := engine.Handle(ctx, 1, conv, "2025-03-15")
	assert.Equal(t, "Please enter the date in DD-MM-YYYY format.", reply.Message)
	assert.Equal(t, StateAwaitDate, conv.State)
}

func TestHandleEmptyCategoryDefaultsToOthers(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, testClock)
	conv := NewConversation()
	ctx := context.Background()

	engine.Handle(ctx, 1, conv, "add an expense")
	engine.Handle(ctx, 1, conv, "100")
	reply := engine.Handle(ctx, 1, conv, "   ")
	assert.Contains(t, reply.Message, "Category: Others")
}

func TestHandleUnrecognizedInputRestarts(t *testing.T) {
	engine := NewEngine(newFakeStore(), testClock)
	conv := NewConversation()

	reply := engine.Handle(context.Background(), 1, conv, "what is the weather")
	assert.Contains(t, reply.Message, "Please enter the amount")
	assert.Equal(t, StateAwaitAmount, conv.State)
}

func TestHandleStorageFailureResets(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("db down")
	engine := NewEngine(store, testClock)
	conv := NewConversation()
	ctx := context.Background()

	reply := engine.Handle(ctx, 1, conv, "I spent 500 on food")
	assert.False(t, reply.Committed)
	assert.Contains(t, reply.Message, "An error occurred")
	assert.Contains(t, reply.Message, "Let's start over")
	assert.Equal(t, StateInitial, conv.State)

	// Recovered storage accepts the next attempt.
	store.failErr = nil
	reply = engine.Handle(ctx, 1, conv, "I spent 500 on food")
	assert.True(t, reply.Committed)
}

func TestSessions(t *testing.T) {
	sessions := NewSessions()
	a := sessions.Get("a")
	assert.Same(t, a, sessions.Get("a"))
	assert.NotSame(t, a, sessions.Get("b"))
	assert.Equal(t, 2, sessions.Len())

	sessions.Reset("a")
	assert.Equal(t, 1, sessions.Len())
	assert.NotSame(t, a, sessions.Get("a"))
}
