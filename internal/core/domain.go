package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Categories is the closed set of spending categories. Every record and
// budget entry must use one of these.
var Categories = []string{
	"Comida",
	"Transporte",
	"Casa",
	"Ocio",
	"Salud",
	"Mascotas",
	"Otros",
}

// Kind tells which of the three record shapes a row is.
type Kind string

const (
	KindExpense      Kind = "expense"
	KindConcept      Kind = "concept"
	KindContribution Kind = "contribution"
)

const (
	// MaxNameLen bounds record and concept names.
	MaxNameLen = 100

	// MaxAmountCents is the per-write ceiling for expenses and contributions.
	MaxAmountCents int64 = 1_000_000 * 100

	// MaxConceptTotalCents is the ceiling for an installment concept's target.
	MaxConceptTotalCents int64 = 10_000_000 * 100

	// MaxBudgetLimitCents is the ceiling for a category budget limit.
	MaxBudgetLimitCents int64 = 10_000_000 * 100
)

var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrNameTooLong      = fmt.Errorf("name too long (max %d characters)", MaxNameLen)
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountTooLarge   = errors.New("amount too large")
	ErrInvalidCategory  = errors.New("unknown category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrConceptAmount    = errors.New("concept amount must be zero")
	ErrInvalidTarget    = errors.New("invalid concept target amount")
	ErrConceptHasParent = errors.New("a concept cannot reference another concept")
	ErrInvalidLimit     = errors.New("invalid budget limit")
)

type (
	// Date is an ISO calendar day (YYYY-MM-DD). The string form is the
	// canonical representation: month filtering is a prefix match on it.
	Date string

	// Month is an ISO year-month (YYYY-MM).
	Month string

	// Record is a single row in the shared expense table. Exactly one of the
	// three shapes applies: a plain expense, an installment concept (a goal
	// with a target total and zero amount), or a contribution referencing a
	// concept by id.
	Record struct {
		ID       int64  `json:"id"`
		OwnerID  string `json:"owner_id"`
		Name     string `json:"name"`
		Amount   Money  `json:"amount"`
		Category string `json:"category"`
		Date     Date   `json:"date"`

		IsConcept    bool   `json:"is_concept"`
		ConceptID    *int64 `json:"concept_id,omitempty"` // set on contributions only
		ConceptTotal Money  `json:"concept_total"`        // target, concepts only
		ConceptName  string `json:"concept_name,omitempty"` // display name, concepts only
	}

	// Budget is a per-category spending limit. One entry per category,
	// persisted in the local preferences store.
	Budget struct {
		Category string `json:"category"`
		Limit    Money  `json:"limit"`
	}
)

// NewDate builds a Date from a point in time, using the wall-clock day.
func NewDate(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

// Today returns the current calendar day.
func Today() Date {
	return NewDate(time.Now())
}

func (d Date) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// In reports whether the date falls inside the given month. Both values are
// ISO strings, so membership is a prefix match.
func (d Date) In(m Month) bool {
	return strings.HasPrefix(string(d), string(m)+"-")
}

// Month returns the YYYY-MM prefix of the date.
func (d Date) Month() Month {
	if len(d) < 7 {
		return ""
	}
	return Month(d[:7])
}

// CurrentMonth returns the current year-month.
func CurrentMonth() Month {
	return Month(time.Now().Format("2006-01"))
}

func (m Month) Validate() error {
	if _, err := time.Parse("2006-01", string(m)); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// ValidCategory reports whether c belongs to the fixed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Kind derives the record shape from its markers.
func (r Record) Kind() Kind {
	switch {
	case r.IsConcept:
		return KindConcept
	case r.ConceptID != nil:
		return KindContribution
	default:
		return KindExpense
	}
}

// Validate checks the record against the per-kind write rules. It covers
// everything that can be decided from the record alone; the contribution
// cap against its concept's remaining amount needs the full record set and
// lives in the report package.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > MaxNameLen {
		return ErrNameTooLong
	}
	if !ValidCategory(r.Category) {
		return ErrInvalidCategory
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}

	switch r.Kind() {
	case KindConcept:
		if r.Amount.Cents != 0 {
			return ErrConceptAmount
		}
		if r.ConceptID != nil {
			return ErrConceptHasParent
		}
		if r.ConceptTotal.Cents <= 0 || r.ConceptTotal.Cents > MaxConceptTotalCents {
			return ErrInvalidTarget
		}
		if strings.TrimSpace(r.ConceptName) == "" {
			return ErrEmptyName
		}
		if len(r.ConceptName) > MaxNameLen {
			return ErrNameTooLong
		}
	default:
		if r.Amount.Cents <= 0 {
			return ErrInvalidAmount
		}
		if r.Amount.Cents > MaxAmountCents {
			return ErrAmountTooLarge
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if !ValidCategory(b.Category) {
		return ErrInvalidCategory
	}
	if b.Limit.Cents <= 0 || b.Limit.Cents > MaxBudgetLimitCents {
		return ErrInvalidLimit
	}
	return nil
}
