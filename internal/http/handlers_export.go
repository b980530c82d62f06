package http

import (
	"bytes"
	"fmt"
	"net/http"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/export"
	applog "gastos/internal/log"
	"gastos/internal/report"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	month, expenses, err := s.monthExpenses(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(expenses) == 0 {
		writeError(w, http.StatusNotFound, "no expenses for month")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", exportDisposition(month, "csv"))
	if _, err := fmt.Fprint(w, export.CSV(expenses, sess.UserID)); err != nil {
		s.lg.Error("Failed to stream CSV export", applog.FieldError, err)
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	month, expenses, err := s.monthExpenses(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(expenses) == 0 {
		writeError(w, http.StatusNotFound, "no expenses for month")
		return
	}

	records, err := s.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	budgets, err := s.loadBudgets()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rep := report.Build(records, month, sess.UserID, budgets)

	// Render fully before touching the response so a generation failure
	// can still produce a clean error status.
	var buf bytes.Buffer
	if err := export.PDF(&buf, rep, sess.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", exportDisposition(month, "pdf"))
	if _, err := buf.WriteTo(w); err != nil {
		s.lg.Error("Failed to stream PDF export", applog.FieldError, err)
	}
}

// monthExpenses resolves the month parameter and filters the snapshot down
// to that month's expense movements.
func (s *Server) monthExpenses(r *http.Request) (core.Month, []core.Record, error) {
	month, err := monthFromQuery(r)
	if err != nil {
		return "", nil, err
	}
	records, err := s.service.List(r.Context())
	if err != nil {
		return "", nil, err
	}
	return month, report.MonthExpenses(records, month), nil
}

func exportDisposition(month core.Month, ext string) string {
	return fmt.Sprintf(`attachment; filename="Reporte_Gastos_%s.%s"`, month, ext)
}
