package http

import (
	"net/http"

	"github.com/gocarina/gocsv"

	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

type exportRow struct {
	Amount   string `csv:"Amount"`
	Date     string `csv:"Date"`
	Category string `csv:"Category"`
	Notes    string `csv:"Notes"`
	Time     string `csv:"Time"`
}

// handleExportCSV downloads the user's expenses as a CSV attachment,
// optionally restricted to a date range.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, userID int64) {
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

	expenses, err := s.repo.QueryExpenses(r.Context(), storage.ExpenseQuery{
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		s.serverError(w, r, "export expenses", err)
		return
	}
	views, err := s.expenseViews(r, userID, expenses)
	if err != nil {
		s.serverError(w, r, "export expenses", err)
		return
	}

	rows := make([]exportRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, exportRow{
			Amount:   v.Amount.String(),
			Date:     v.Date,
			Category: v.Category,
			Notes:    v.Notes,
			Time:     v.Time,
		})
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=expenses.csv`)
	if err := gocsv.Marshal(&rows, w); err != nil {
		s.logger.ErrorContext(r.Context(), "csv export write failed",
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}
