package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/HelloBroCode/web-tracker1/internal/core"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/receipts"
)

const maxReceiptBytes = 10 << 20

// handleUploadReceipt attaches a receipt file to one of the user's expenses.
// Re-uploading replaces the previous file.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
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

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	if !receipts.Allowed(header.Filename) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported file type, allowed: %s", receipts.AllowedTypes()))
		return
	}

	relPath, err := s.receipts.Save(userID, header.Filename, file, expense.ReceiptPath)
	if err != nil {
		s.serverError(w, r, "save receipt", err)
		return
	}

	if err := s.repo.SetReceiptPath(r.Context(), id, userID, relPath); err != nil {
		s.serverError(w, r, "record receipt path", err)
		return
	}

	s.logger.InfoContext(r.Context(), "receipt uploaded",
		log.FieldUserID, userID,
		log.FieldExpenseID, id)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Receipt uploaded successfully",
		"receipt_path": relPath,
	})
}

var receiptContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

// handleViewReceipt streams the stored receipt back to its owner.
func (s *Server) handleViewReceipt(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
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
	if expense.ReceiptPath == "" {
		writeError(w, http.StatusNotFound, "no receipt for this expense")
		return
	}

	f, err := s.receipts.Open(expense.ReceiptPath)
	if err != nil {
		s.serverError(w, r, "open receipt", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.serverError(w, r, "stat receipt", err)
		return
	}
	if ct, ok := receiptContentTypes[filepath.Ext(expense.ReceiptPath)]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, filepath.Base(expense.ReceiptPath), info.ModTime(), f)
}
