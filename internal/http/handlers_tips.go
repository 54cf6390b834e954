package http

import (
	"net/http"
	"strings"

	"github.com/HelloBroCode/web-tracker1/internal/log"
)

// handleBudgetTips serves budget advice. Without parameters it returns the
// general tip list and the known categories; with category= it returns that
// category's static tips; with use_ai=true it asks the advisor for
// personalized advice based on the user's recent spending.
func (s *Server) handleBudgetTips(w http.ResponseWriter, r *http.Request, userID int64) {
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	useAI := strings.EqualFold(r.URL.Query().Get("use_ai"), "true")

	if useAI {
		if !s.advisor.AIAvailable() {
			writeError(w, http.StatusServiceUnavailable, "AI advice is not configured")
			return
		}
		advice, err := s.advisor.PersonalizedAdvice(r.Context(), userID, category)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "personalized advice failed",
				log.FieldUserID, userID,
				log.FieldCategory, category,
				log.FieldError, err)
			writeError(w, http.StatusBadGateway, "advice generation failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"category":        category,
			"ai_tip":          advice,
			"is_ai_generated": true,
		})
		return
	}

	if category != "" {
		tips, ok := s.advisor.TipsFor(category)
		if !ok {
			writeError(w, http.StatusNotFound, "no tips for that category")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"category":        category,
			"tips":            tips,
			"is_ai_generated": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories":      s.advisor.TipCategories(),
		"general_tips":    s.advisor.GeneralTips(),
		"is_ai_generated": false,
	})
}
