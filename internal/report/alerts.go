package report

import "fmt"

// AlertLevel mirrors the two budget alert severities.
type AlertLevel string

const (
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// Alert is a derived budget notification. The category is the stable
// identity: consumers deduplicate on it, and an alert simply disappears from
// the derived list once the consumption leaves the alert range. Dismissal
// state belongs to the consumer, not here.
type Alert struct {
	Category string     `json:"category"`
	Message  string     `json:"message"`
	Level    AlertLevel `json:"level"`
}

// Alerts derives one alert per over/near-budget category: danger at 100% or
// more, warning from 90% up to (but excluding) 100%.
func Alerts(progress []BudgetProgress) []Alert {
	var out []Alert
	for _, p := range progress {
		switch {
		case p.Percent >= 100:
			out = append(out, Alert{
				Category: p.Category,
				Level:    AlertDanger,
				Message: fmt.Sprintf("Presupuesto de %s excedido ($%s/$%s)",
					p.Category, p.Spent, p.Limit),
			})
		case p.Percent >= 90:
			out = append(out, Alert{
				Category: p.Category,
				Level:    AlertWarning,
				Message: fmt.Sprintf("Cerca del límite en %s (%.0f%%)",
					p.Category, p.Percent),
			})
		}
	}
	return out
}
