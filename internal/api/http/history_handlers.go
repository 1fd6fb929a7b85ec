package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/store"
)

// GET /api/history
func HistoryHandler(history store.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		records, err := history.ListByUser(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// GET /api/history/export
//
// Streams the caller's full test history as an .xlsx workbook.
func ExportHistoryHandler(history store.HistoryStore) http.HandlerFunc {
	const sheet = "History"
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		records, err := history.ListByUser(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		idx, err := f.NewSheet(sheet)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		f.SetActiveSheet(idx)
		_ = f.DeleteSheet("Sheet1")

		header := []interface{}{"Test", "Section", "Type", "Score (%)", "Correct", "Total", "Submitted At"}
		_ = f.SetSheetRow(sheet, "A1", &header)
		for i, rec := range records {
			row := []interface{}{
				rec.TestName,
				rec.SectionTitle,
				rec.TestType,
				rec.Score,
				rec.CorrectCount,
				rec.TotalQuestions,
				rec.SubmittedAt.Format(time.RFC3339),
			}
			cell := fmt.Sprintf("A%d", i+2)
			_ = f.SetSheetRow(sheet, cell, &row)
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="test-history.xlsx"`)
		if err := f.Write(w); err != nil {
			// Headers are already gone; nothing sensible left to send.
			return
		}
	}
}
