package http

import (
	"encoding/json"
	"net/http"

	"gastos/internal/auth"
	"gastos/internal/core"
)

// recordRequest is the write payload for expense rows. Amounts arrive as
// decimal strings ("12.50") and are stored as integer cents.
type recordRequest struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	Date         string `json:"date"`
	IsConcept    bool   `json:"is_concept"`
	ConceptID    *int64 `json:"concept_id"`
	ConceptTotal string `json:"concept_total"`
	ConceptName  string `json:"concept_name"`
}

func (req recordRequest) toRecord() (core.Record, error) {
	rec := core.Record{
		Name:        sanitizeInput(req.Name),
		Category:    req.Category,
		Date:        core.Date(req.Date),
		IsConcept:   req.IsConcept,
		ConceptID:   req.ConceptID,
		ConceptName: sanitizeInput(req.ConceptName),
	}
	if rec.Date == "" {
		rec.Date = core.Today()
	}
	if req.Amount != "" {
		cents, err := core.ParseCents(req.Amount)
		if err != nil {
			return core.Record{}, core.ErrInvalidAmount
		}
		rec.Amount = core.Money{Cents: cents}
	}
	if req.ConceptTotal != "" {
		cents, err := core.ParseCents(req.ConceptTotal)
		if err != nil {
			return core.Record{}, core.ErrInvalidTarget
		}
		rec.ConceptTotal = core.Money{Cents: cents}
	}
	return rec, nil
}

// writeResponse acknowledges a successful write. Completes flags the
// contribution that paid off its installment concept.
type writeResponse struct {
	ID        int64 `json:"id"`
	Completes bool  `json:"completes"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := s.service.Create(r.Context(), sess.UserID, rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusCreated, writeResponse{ID: res.ID, Completes: res.Completes})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := s.service.Update(r.Context(), id, sess.UserID, rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusOK, writeResponse{ID: res.ID, Completes: res.Completes})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := s.service.Delete(r.Context(), id, sess.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
