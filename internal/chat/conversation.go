package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/core"
)

// State identifies where a conversation is in the guided entry flow.
type State string

const (
	StateInitial       State = "initial"
	StateAwaitAmount   State = "waiting_for_amount"
	StateAwaitCategory State = "waiting_for_category"
	StateAwaitDate     State = "waiting_for_date"
)

// Conversation is the in-progress guided entry data for one chat session.
// It is mutable shared state scoped to a single web session; the surrounding
// session layer must serialize concurrent messages for the same session.
type Conversation struct {
	State    State
	Amount   decimal.Decimal
	Category string
	Date     time.Time
}

// NewConversation returns a conversation in the initial state.
func NewConversation() *Conversation {
	return &Conversation{State: StateInitial}
}

// Reset discards in-progress fields and returns to the initial state.
func (c *Conversation) Reset() {
	*c = Conversation{State: StateInitial}
}

// Store is the storage surface the conversation engine commits through.
type Store interface {
	ResolveOrCreateCategory(ctx context.Context, name string, userID int64) (core.Category, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
}

// Reply is the engine's answer to one chat message.
type Reply struct {
	Message   string
	Committed bool
}

// Engine drives the expense-capture conversation. One Handle call corresponds
// to one user message; the engine never blocks between messages.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates a conversation engine. A nil clock defaults to time.Now.
func NewEngine(store Store, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{store: store, now: clock}
}

// Handle advances the conversation with one message and returns the reply.
// The fast path (pattern-matched expense statements) is tried before the
// state machine; a matched statement commits immediately with today's date.
func (e *Engine) Handle(ctx context.Context, userID int64, conv *Conversation, input string) Reply {
	slog.DebugContext(ctx, "Chat message received",
		"user_id", userID, "chat_state", string(conv.State))

	if m, ok := Parse(input); ok {
		return e.commit(ctx, userID, conv, m.Amount, m.Category, core.DateOnly(e.now()))
	}

	if amount, ok := ParseAmountOnly(input); ok && conv.State == StateInitial {
		conv.Amount = amount
		conv.State = StateAwaitCategory
		return Reply{Message: fmt.Sprintf("Amount ₹%s recorded. Now, what's the category of this expense?", amount)}
	}

	lower := strings.ToLower(strings.TrimSpace(input))
	if conv.State == StateInitial &&
		(strings.HasPrefix(lower, "add an expense") || strings.HasPrefix(lower, "add expense")) {
		conv.State = StateAwaitAmount
		return Reply{Message: "Let's add an expense. Please enter the amount."}
	}

	switch conv.State {
	case StateAwaitAmount:
		amount, err := core.ParseAmount(input)
		if err != nil {
			return Reply{Message: "Please enter a valid amount."}
		}
		conv.Amount = amount
		conv.State = StateAwaitCategory
		return Reply{Message: fmt.Sprintf("Amount ₹%s recorded. Now, what's the category of this expense?", amount)}

	case StateAwaitCategory:
		name := Capitalize(input)
		if name == "" {
			name = "Others"
		}
		conv.Category = name
		conv.State = StateAwaitDate
		return Reply{Message: fmt.Sprintf("Category: %s. Now, please provide the date (DD-MM-YYYY).", name)}

	case StateAwaitDate:
		date, err := core.ParseDate(input)
		if err != nil {
			return Reply{Message: "Please enter the date in DD-MM-YYYY format."}
		}
		conv.Date = date
		return e.commit(ctx, userID, conv, conv.Amount, conv.Category, date)

	default:
		// Unrecognized free text at initial: clear stale fields and start over.
		conv.Reset()
		conv.State = StateAwaitAmount
		return Reply{Message: "Let's start by adding an expense. Please enter the amount."}
	}
}

// commit resolves the category, generates the note, persists the expense and
// resets the conversation. Storage failures also reset the conversation so
// the next message starts a fresh entry.
func (e *Engine) commit(ctx context.Context, userID int64, conv *Conversation, amount decimal.Decimal, categoryName string, date time.Time) Reply {
	category, err := e.store.ResolveOrCreateCategory(ctx, categoryName, userID)
	if err != nil {
		return e.fail(ctx, conv, err)
	}

	notes := Note(categoryName, amount, date)
	expense := core.Expense{
		Amount:     amount,
		Date:       date,
		Time:       e.now().Format(core.TimeFormat),
		Notes:      notes,
		CategoryID: category.ID,
		UserID:     userID,
	}
	created, err := e.store.CreateExpense(ctx, expense)
	if err != nil {
		return e.fail(ctx, conv, err)
	}

	slog.InfoContext(ctx, "Expense committed from chat",
		"user_id", userID,
		"expense_id", created.ID,
		"amount", amount.String(),
		"category", categoryName)

	conv.Reset()
	return Reply{
		Message: fmt.Sprintf("Expense added successfully! Amount: ₹%s, Category: %s, Date: %s, Notes: %s",
			amount, categoryName, date.Format(core.DateFormat), notes),
		Committed: true,
	}
}

func (e *Engine) fail(ctx context.Context, conv *Conversation, err error) Reply {
	slog.ErrorContext(ctx, "Chat expense commit failed", "error", err)
	conv.Reset()
	return Reply{Message: fmt.Sprintf("An error occurred: %v. Let's start over. Please enter the amount.", err)}
}
