package report

import (
	"errors"
	"fmt"

	"gastos/internal/core"
)

var (
	ErrConceptNotFound = errors.New("installment concept not found")
	ErrBadContribution = errors.New("contribution amount must be greater than zero")
)

// ExceedsRemainingError rejects a contribution larger than what is left on
// the concept. The remaining amount is carried so callers can prompt the
// user with a corrected figure.
type ExceedsRemainingError struct {
	Remaining core.Money
}

func (e *ExceedsRemainingError) Error() string {
	return fmt.Sprintf("amount exceeds the remaining $%s", e.Remaining)
}

// InstallmentStats is the payoff state of one installment concept.
// Contributions accumulate across all time, never filtered by month.
type InstallmentStats struct {
	ConceptID   int64         `json:"concept_id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Target      core.Money    `json:"target"`
	Contributed core.Money    `json:"contributed"`
	Remaining   core.Money    `json:"remaining"`
	// Percentage is contributed/target×100 on the raw sums. Remaining
	// clamps at zero but the percentage does not, so an over-contributed
	// concept reads above 100.
	Percentage    float64       `json:"percentage"`
	Contributions []core.Record `json:"contributions"`
}

// Completes reports whether a contribution of the given amount would zero
// out the remaining balance exactly. Callers use it as the completion
// signal for the concept.
func (s InstallmentStats) Completes(amount core.Money) bool {
	return s.Remaining.Cents > 0 && amount.Cents == s.Remaining.Cents
}

// Concepts returns every record carrying the concept marker.
func Concepts(records []core.Record) []core.Record {
	var out []core.Record
	for _, r := range records {
		if r.IsConcept {
			out = append(out, r)
		}
	}
	return out
}

// Contributions returns all records referencing the concept, in snapshot
// order.
func Contributions(records []core.Record, conceptID int64) []core.Record {
	var out []core.Record
	for _, r := range records {
		if r.ConceptID != nil && *r.ConceptID == conceptID {
			out = append(out, r)
		}
	}
	return out
}

// Stats computes the payoff state for one concept. The second return is
// false when the id does not resolve to a record with the concept marker.
func Stats(records []core.Record, conceptID int64) (InstallmentStats, bool) {
	var concept *core.Record
	for i := range records {
		if records[i].ID == conceptID && records[i].IsConcept {
			concept = &records[i]
			break
		}
	}
	if concept == nil {
		return InstallmentStats{}, false
	}

	contribs := Contributions(records, conceptID)
	var contributed int64
	for _, c := range contribs {
		contributed += c.Amount.Cents
	}

	name := concept.ConceptName
	if name == "" {
		name = concept.Name
	}

	stats := InstallmentStats{
		ConceptID:     conceptID,
		Name:          name,
		Category:      concept.Category,
		Target:        concept.ConceptTotal,
		Contributed:   core.Money{Cents: contributed},
		Contributions: contribs,
	}
	if remaining := concept.ConceptTotal.Cents - contributed; remaining > 0 {
		stats.Remaining = core.Money{Cents: remaining}
	}
	if concept.ConceptTotal.Cents > 0 {
		stats.Percentage = float64(contributed) / float64(concept.ConceptTotal.Cents) * 100
	}
	return stats, true
}

// AllStats computes the payoff state of every concept in the snapshot.
func AllStats(records []core.Record) []InstallmentStats {
	concepts := Concepts(records)
	out := make([]InstallmentStats, 0, len(concepts))
	for _, c := range concepts {
		if s, ok := Stats(records, c.ID); ok {
			out = append(out, s)
		}
	}
	return out
}

// ValidateContribution gatekeeps a proposed contribution before the write
// reaches the store: the store itself knows nothing about the
// concept/contribution relationship, so the cap must be enforced here.
func ValidateContribution(records []core.Record, conceptID int64, amount core.Money) error {
	stats, ok := Stats(records, conceptID)
	if !ok {
		return ErrConceptNotFound
	}
	if amount.Cents <= 0 {
		return ErrBadContribution
	}
	if amount.Cents > stats.Remaining.Cents {
		return &ExceedsRemainingError{Remaining: stats.Remaining}
	}
	return nil
}
