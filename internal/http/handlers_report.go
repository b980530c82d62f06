package http

import (
	"fmt"
	"net/http"

	"gastos/internal/auth"
	"gastos/internal/report"
)

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	month, err := monthFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cacheKey := fmt.Sprintf("%s:%s", sess.UserID, month)
	if rep, ok := s.reportCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, rep)
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
	s.reportCache.Set(cacheKey, rep)
	writeJSON(w, http.StatusOK, rep)
}
