// Package report derives every view the application shows from the full
// record set: monthly filters, per-user totals, category breakdowns, budget
// consumption, alerts and installment progress. Nothing here is persisted;
// each function is a pure projection recomputed from the latest snapshot.
package report

import (
	"sort"

	"gastos/internal/core"
)

// BudgetStatus classifies how much of a budget has been consumed.
type BudgetStatus string

const (
	StatusOK      BudgetStatus = "ok"
	StatusWarning BudgetStatus = "warning"
	StatusDanger  BudgetStatus = "danger"
)

// StatusFor maps a consumption percentage onto a status band: below 70 is
// ok, 70 up to (but excluding) 90 is warning, 90 and above is danger.
func StatusFor(percent float64) BudgetStatus {
	switch {
	case percent >= 90:
		return StatusDanger
	case percent >= 70:
		return StatusWarning
	default:
		return StatusOK
	}
}

type (
	// CategoryShare is one row of the monthly category breakdown.
	CategoryShare struct {
		Category string     `json:"category"`
		Total    core.Money `json:"total"`
		Percent  float64    `json:"percent"` // share of the joint total
	}

	// BudgetProgress is the consumption of one configured budget for the
	// selected month. Categories without a budget entry produce no row.
	BudgetProgress struct {
		Category string       `json:"category"`
		Spent    core.Money   `json:"spent"`
		Limit    core.Money   `json:"limit"`
		Percent  float64      `json:"percent"`
		Status   BudgetStatus `json:"status"`
	}

	// MonthReport is the complete derived view for one month.
	MonthReport struct {
		Month        core.Month       `json:"month"`
		Expenses     []core.Record    `json:"expenses"`
		MyTotal      core.Money       `json:"my_total"`
		PartnerTotal core.Money       `json:"partner_total"`
		JointTotal   core.Money       `json:"joint_total"`
		// Balance is half the difference between the two totals, in
		// currency units. Positive means the requesting user spent more.
		Balance    float64          `json:"balance"`
		ByCategory []CategoryShare  `json:"by_category"`
		Budgets    []BudgetProgress `json:"budgets"`
		Alerts     []Alert          `json:"alerts"`
	}
)

// MonthExpenses returns the plain-expense subset of records whose date falls
// in the month. Concept rows are excluded (their amount is zero and they are
// goals, not movements); contributions count as real spending.
func MonthExpenses(records []core.Record, month core.Month) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if r.IsConcept || !r.Date.In(month) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Build computes the full month report for the user identified by selfID.
// Everything is derived from the record snapshot; callers re-invoke it after
// every mutation instead of patching previous results.
func Build(records []core.Record, month core.Month, selfID string, budgets []core.Budget) MonthReport {
	expenses := MonthExpenses(records, month)

	rep := MonthReport{
		Month:    month,
		Expenses: expenses,
	}

	byCategory := make(map[string]int64)
	for _, e := range expenses {
		if e.OwnerID == selfID {
			rep.MyTotal.Cents += e.Amount.Cents
		} else {
			rep.PartnerTotal.Cents += e.Amount.Cents
		}
		byCategory[e.Category] += e.Amount.Cents
	}
	rep.JointTotal.Cents = rep.MyTotal.Cents + rep.PartnerTotal.Cents
	rep.Balance = float64(rep.MyTotal.Cents-rep.PartnerTotal.Cents) / 2 / 100

	rep.ByCategory = make([]CategoryShare, 0, len(byCategory))
	for cat, cents := range byCategory {
		share := CategoryShare{Category: cat, Total: core.Money{Cents: cents}}
		if rep.JointTotal.Cents > 0 {
			share.Percent = float64(cents) / float64(rep.JointTotal.Cents) * 100
		}
		rep.ByCategory = append(rep.ByCategory, share)
	}
	sort.SliceStable(rep.ByCategory, func(i, j int) bool {
		return rep.ByCategory[i].Total.Cents > rep.ByCategory[j].Total.Cents
	})

	rep.Budgets = budgetProgress(expenses, budgets)
	rep.Alerts = Alerts(rep.Budgets)
	return rep
}

// budgetProgress computes consumption for each configured budget, sorted
// descending by percent. A zero limit yields percent 0 and status ok.
func budgetProgress(expenses []core.Record, budgets []core.Budget) []BudgetProgress {
	rows := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		var spent int64
		for _, e := range expenses {
			if e.Category == b.Category {
				spent += e.Amount.Cents
			}
		}
		row := BudgetProgress{
			Category: b.Category,
			Spent:    core.Money{Cents: spent},
			Limit:    b.Limit,
		}
		if b.Limit.Cents > 0 {
			row.Percent = float64(spent) / float64(b.Limit.Cents) * 100
		}
		row.Status = StatusFor(row.Percent)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Percent > rows[j].Percent
	})
	return rows
}
