package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HelloBroCode/web-tracker1/internal/chat"
	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

// expenseView is the wire shape of one expense row.
type expenseView struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes"`
	Time        string          `json:"time,omitempty"`
	ReceiptPath string          `json:"receipt_path,omitempty"`
}

func (s *Server) expenseViews(r *http.Request, userID int64, expenses []core.Expense) ([]expenseView, error) {
	names := make(map[int64]string)
	categories, err := s.repo.ListCategories(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		name, ok := names[e.CategoryID]
		if !ok {
			name = "Uncategorized"
		}
		views = append(views, expenseView{
			ID:          e.ID,
			Amount:      e.Amount,
			Category:    name,
			Date:        e.Date.Format(core.DateFormat),
			Notes:       e.Notes,
			Time:        e.Time,
			ReceiptPath: e.ReceiptPath,
		})
	}
	return views, nil
}

// handleListExpenses returns the user's most recent expenses, newest first.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	limit := queryInt(r, "limit", 5)
	if limit < 1 {
		limit = 5
	}

	expenses, err := s.repo.QueryExpenses(r.Context(), storage.ExpenseQuery{UserID: userID, Limit: limit})
	if err != nil {
		s.serverError(w, r, "list expenses", err)
		return
	}
	views, err := s.expenseViews(r, userID, expenses)
	if err != nil {
		s.serverError(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleSearchExpenses filters the user's expenses by keyword, category,
// date range and amount range.
func (s *Server) handleSearchExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	from, err := queryDate(r, "start_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryDate(r, "end_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 {
		limit = 50
	}

	q := storage.ExpenseQuery{
		UserID:     userID,
		From:       from,
		To:         to,
		CategoryID: queryInt64Ptr(r, "category_id"),
		Keyword:    r.URL.Query().Get("keyword"),
		MinAmount:  queryDecimal(r, "min_amount"),
		MaxAmount:  queryDecimal(r, "max_amount"),
		Limit:      limit,
	}

	expenses, err := s.repo.QueryExpenses(r.Context(), q)
	if err != nil {
		s.serverError(w, r, "search expenses", err)
		return
	}
	views, err := s.expenseViews(r, userID, expenses)
	if err != nil {
		s.serverError(w, r, "search expenses", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

type createExpenseRequest struct {
	Amount     json.Number `json:"amount"`
	CategoryID int64       `json:"category_id"`
	Category   string      `json:"category"`
	Date       string      `json:"date"`
	Notes      string      `json:"notes"`
}

// handleCreateExpense logs a new expense directly, bypassing the
// conversational flow. The category may be given by id or by name; names are
// resolved against the user's categories and created on miss.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	date := core.DateOnly(time.Now())
	if req.Date != "" {
		date, err = time.Parse(core.DateFormat, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, errBadDate.Error())
			return
		}
	}

	var category core.Category
	switch {
	case req.CategoryID > 0:
		category, err = s.repo.GetCategory(r.Context(), req.CategoryID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
	case req.Category != "":
		category, err = s.expenses.ResolveOrCreateCategory(r.Context(), req.Category, userID)
		if err != nil {
			s.serverError(w, r, "resolve category", err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "category or category_id is required")
		return
	}

	notes := req.Notes
	if notes == "" {
		notes = chat.Note(category.Name, amount, date)
	}

	expense := core.Expense{
		Amount:     amount,
		Date:       date,
		Time:       time.Now().Format(core.TimeFormat),
		Notes:      notes,
		CategoryID: category.ID,
		UserID:     userID,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		s.serverError(w, r, "create expense", err)
		return
	}
	s.invalidateReports(userID)

	_ = NewResponse().Status(http.StatusCreated).Success(expenseView{
		ID:       created.ID,
		Amount:   created.Amount,
		Category: category.Name,
		Date:     created.Date.Format(core.DateFormat),
		Notes:    created.Notes,
		Time:     created.Time,
	}).Write(w)
}

type updateExpenseRequest struct {
	Amount   *json.Number `json:"amount"`
	Category *string      `json:"category"`
	Date     *string      `json:"date"`
	Notes    *string      `json:"notes"`
}

// handleUpdateExpense applies a partial update to one of the user's
// expenses. Only the fields present in the body change.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req updateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := s.repo.GetExpense(r.Context(), id, userID)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.serverError(w, r, "load expense", err)
		return
	}

	if req.Amount != nil {
		amount, err := core.ParseAmount(req.Amount.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		expense.Amount = amount
	}
	if req.Date != nil {
		date, err := time.Parse(core.DateFormat, *req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, errBadDate.Error())
			return
		}
		expense.Date = date
	}
	categoryName := ""
	if req.Category != nil && *req.Category != "" {
		category, err := s.expenses.ResolveOrCreateCategory(r.Context(), *req.Category, userID)
		if err != nil {
			s.serverError(w, r, "resolve category", err)
			return
		}
		expense.CategoryID = category.ID
		categoryName = category.Name
	}
	if req.Notes != nil {
		expense.Notes = *req.Notes
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.expenses.UpdateExpense(r.Context(), expense)
	if err != nil {
		s.serverError(w, r, "update expense", err)
		return
	}
	s.invalidateReports(userID)

	if categoryName == "" {
		if c, err := s.repo.GetCategory(r.Context(), updated.CategoryID); err == nil {
			categoryName = c.Name
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Expense updated successfully",
		"data": expenseView{
			ID:          updated.ID,
			Amount:      updated.Amount,
			Category:    categoryName,
			Date:        updated.Date.Format(core.DateFormat),
			Notes:       updated.Notes,
			Time:        updated.Time,
			ReceiptPath: updated.ReceiptPath,
		},
	})
}

// handleDeleteExpense removes one of the user's expenses.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	err = s.expenses.DeleteExpense(r.Context(), id, userID)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.serverError(w, r, "delete expense", err)
		return
	}
	s.invalidateReports(userID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Expense deleted successfully",
	})
}

type categoryView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Global bool   `json:"global"`
}

// handleListCategories returns the categories visible to the user,
// sorted by name.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID int64) {
	categories, err := s.repo.ListCategories(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, "list categories", err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{ID: c.ID, Name: c.Name, Global: c.Global()})
	}
	_ = NewResponse().Success(views).Write(w)
}

// serverError logs the failure with its request id and hides the detail from
// the client.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), "request failed",
		log.FieldOperation, op,
		log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
