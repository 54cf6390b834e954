package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/HelloBroCode/web-tracker1/internal/log"
)

type chatRequest struct {
	Input string `json:"input"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat advances the user's expense-capture conversation by one message.
// The conversation is keyed by the X-Session-ID header when present so a user
// can run parallel sessions from different clients.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID int64) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = fmt.Sprintf("user:%d", userID)
	}

	conv := s.sessions.Get(sessionID)
	reply := s.chat.Handle(r.Context(), userID, conv, req.Input)
	if reply.Committed {
		s.invalidateReports(userID)
		s.logger.InfoContext(r.Context(), "expense committed via chat",
			log.FieldUserID, userID,
			log.FieldSessionID, sessionID)
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply.Message})
}
