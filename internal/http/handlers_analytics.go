package http

import (
	"fmt"
	"net/http"

	"github.com/HelloBroCode/web-tracker1/internal/analytics"
	"github.com/HelloBroCode/web-tracker1/internal/log"
)

// handleAnalyze returns the month-over-month spending report. Reports are
// cached per user until the next expense write or TTL expiry.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, userID int64) {
	key := fmt.Sprintf("user:%d:analyze", userID)
	if cached, ok := s.reportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.analytics.Analyze(r.Context(), userID, s.now())
	if err != nil {
		s.serverError(w, r, "analyze expenses", err)
		return
	}

	payload := map[string]any{"success": true, "data": report}
	s.reportCache.Set(key, payload)
	writeJSON(w, http.StatusOK, payload)
}

// handlePredict forecasts spending for the coming months. The months
// parameter defaults to 3 and is clamped to the supported horizon. Too little
// history is a well-formed negative response, not an error.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request, userID int64) {
	months := analytics.ClampMonths(queryInt(r, "months", 3))

	key := fmt.Sprintf("user:%d:predict:%d", userID, months)
	if cached, ok := s.reportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	prediction, insufficient, err := s.analytics.Predict(r.Context(), userID, months, s.now())
	if err != nil {
		s.serverError(w, r, "predict expenses", err)
		return
	}
	if insufficient != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": fmt.Sprintf(
				"Not enough expense data to make accurate predictions. You currently have %d expenses, but at least %d are needed.",
				insufficient.Count, insufficient.Minimum),
		})
		return
	}

	byMonth := make(map[string]any, len(prediction.Months))
	for _, m := range prediction.Months {
		byMonth[m.Month] = map[string]any{
			"total":      m.Total,
			"categories": m.Categories,
		}
	}

	payload := map[string]any{
		"success": true,
		"message": fmt.Sprintf("Expense predictions for the next %d months", months),
		"predictions": map[string]any{
			"by_month":        byMonth,
			"total_predicted": prediction.TotalPredicted,
		},
	}
	s.reportCache.Set(key, payload)

	s.logger.InfoContext(r.Context(), "prediction served",
		log.FieldUserID, userID,
		log.FieldMonths, months)
	writeJSON(w, http.StatusOK, payload)
}
