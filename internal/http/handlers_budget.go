package http

import (
	"encoding/json"
	"net/http"

	"gastos/internal/core"
)

// loadBudgets reads the budget list from the preferences store.
func (s *Server) loadBudgets() ([]core.Budget, error) {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	p, err := s.prefs.Load()
	if err != nil {
		return nil, err
	}
	return p.Budgets, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.loadBudgets()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

// budgetRequest sets one category limit as a decimal string.
type budgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseCents(req.Limit)
	if err != nil {
		writeDomainError(w, core.ErrInvalidLimit)
		return
	}
	b := core.Budget{Category: req.Category, Limit: core.Money{Cents: cents}}
	if err := b.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	p, err := s.prefs.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	replaced := false
	for i := range p.Budgets {
		if p.Budgets[i].Category == b.Category {
			p.Budgets[i] = b
			replaced = true
			break
		}
	}
	if !replaced {
		p.Budgets = append(p.Budgets, b)
	}
	if err := s.prefs.Save(p); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")

	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	p, err := s.prefs.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	kept := p.Budgets[:0]
	found := false
	for _, b := range p.Budgets {
		if b.Category == category {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		writeError(w, http.StatusNotFound, "no budget for category")
		return
	}
	p.Budgets = kept
	if err := s.prefs.Save(p); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

type themePayload struct {
	DarkMode bool `json:"dark_mode"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	p, err := s.prefs.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themePayload{DarkMode: p.DarkMode})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	if err := s.prefs.SetDarkMode(req.DarkMode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
