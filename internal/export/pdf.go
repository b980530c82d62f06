package export

import (
	"fmt"
	"io"

	"gastos/internal/report"

	"github.com/go-pdf/fpdf"
)

// PDF renders the month report as a tabular statement with header, summary,
// category breakdown and movement sections, and writes it to w.
func PDF(w io.Writer, rep report.MonthReport, selfID string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Reporte de gastos %s", rep.Month), true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Reporte de gastos %s", rep.Month)))
	pdf.Ln(14)

	// Summary
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Resumen")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	summary := [][2]string{
		{"Mis gastos", "$" + rep.MyTotal.String()},
		{"Gastos pareja", "$" + rep.PartnerTotal.String()},
		{"Total conjunto", "$" + rep.JointTotal.String()},
		{"Balance", fmt.Sprintf("$%.2f", rep.Balance)},
	}
	for _, row := range summary {
		pdf.CellFormat(60, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Category breakdown
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("Por categoría"))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(60, 7, tr("Categoría"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "%", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, c := range rep.ByCategory {
		pdf.CellFormat(60, 6, c.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, "$"+c.Total.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", c.Percent), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Movements
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Movimientos")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(25, 7, "Fecha", "1", 0, "L", true, 0, "")
	pdf.CellFormat(75, 7, "Concepto", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, tr("Categoría"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Monto", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, tr("Quién"), "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, e := range rep.Expenses {
		who := "Pareja"
		if e.OwnerID == selfID {
			who = "Yo"
		}
		pdf.CellFormat(25, 6, string(e.Date), "1", 0, "L", false, 0, "")
		pdf.CellFormat(75, 6, tr(truncate(e.Name, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, e.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, "$"+e.Amount.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, who, "1", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
