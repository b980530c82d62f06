package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/report"
)

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.AllStats(records))
}

func (s *Server) handleInstallmentStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid concept id")
		return
	}
	records, err := s.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stats, ok := report.Stats(records, id)
	if !ok {
		writeDomainError(w, report.ErrConceptNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// conceptRequest creates an installment concept: a named goal with a target
// total, paid off over time by contributions.
type conceptRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Target   string `json:"target"`
}

func (s *Server) handleCreateConcept(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	var req conceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := sanitizeInput(req.Name)
	rec := core.Record{
		Name:        name,
		Category:    req.Category,
		Date:        core.Date(req.Date),
		IsConcept:   true,
		ConceptName: name,
	}
	if rec.Date == "" {
		rec.Date = core.Today()
	}
	if req.Target != "" {
		cents, err := core.ParseCents(req.Target)
		if err != nil {
			writeDomainError(w, core.ErrInvalidTarget)
			return
		}
		rec.ConceptTotal = core.Money{Cents: cents}
	}

	res, err := s.service.Create(r.Context(), sess.UserID, rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusCreated, writeResponse{ID: res.ID})
}

// validateRequest is a dry-run contribution check against a concept's
// remaining amount. Nothing is written.
type validateRequest struct {
	Amount string `json:"amount"`
}

type validateResponse struct {
	Valid     bool        `json:"valid"`
	Completes bool        `json:"completes"`
	Remaining *core.Money `json:"remaining,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func (s *Server) handleValidateContribution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid concept id")
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	amount := core.Money{Cents: cents}

	records, err := s.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	stats, ok := report.Stats(records, id)
	if !ok {
		writeDomainError(w, report.ErrConceptNotFound)
		return
	}

	resp := validateResponse{Remaining: &stats.Remaining}
	if vErr := report.ValidateContribution(records, id, amount); vErr != nil {
		var exceeds *report.ExceedsRemainingError
		if !errors.As(vErr, &exceeds) && !errors.Is(vErr, report.ErrBadContribution) {
			writeDomainError(w, vErr)
			return
		}
		resp.Error = vErr.Error()
	} else {
		resp.Valid = true
		resp.Completes = stats.Completes(amount)
	}
	writeJSON(w, http.StatusOK, resp)
}
