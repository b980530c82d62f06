package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gastos/internal/core"
	"gastos/internal/report"
	"gastos/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors to HTTP statuses. Validation failures are
// the client's problem, missing rows are 404, anything else is on us.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, report.ErrConceptNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrAmountTooLarge),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrConceptAmount),
		errors.Is(err, core.ErrInvalidTarget),
		errors.Is(err, core.ErrConceptHasParent),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, report.ErrBadContribution):
		return http.StatusUnprocessableEntity
	default:
		var exceeds *report.ExceedsRemainingError
		if errors.As(err, &exceeds) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

// pathID extracts the numeric {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// monthFromQuery reads the month query parameter, defaulting to the current
// calendar month when absent.
func monthFromQuery(r *http.Request) (core.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return core.CurrentMonth(), nil
	}
	m := core.Month(raw)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// sanitizeInput strips control characters from user-supplied text before it
// reaches the store.
func sanitizeInput(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
