package export

import (
	"strings"
	"testing"

	"gastos/internal/core"
)

func TestEscapeCSV(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Supermercado", "Supermercado"},
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+54 11", "'+54 11"},
		{"-cmd", "'-cmd"},
		{"@import", "'@import"},
		{"pan, leche", `"pan, leche"`},
		{`dijo "hola"`, `"dijo ""hola"""`},
		{"linea\nnueva", "\"linea\nnueva\""},
		{"=1,2", `"'=1,2"`}, // neutralize first, then quote
	}
	for _, tc := range cases {
		if got := EscapeCSV(tc.in); got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestCSV(t *testing.T) {
	records := []core.Record{
		{
			ID: 1, OwnerID: "user-1", Name: "Supermercado",
			Amount: core.Money{Cents: 4550}, Category: "Comida", Date: "2026-08-05",
		},
		{
			ID: 2, OwnerID: "user-2", Name: "=HYPERLINK(...)",
			Amount: core.Money{Cents: 100}, Category: "Otros", Date: "2026-08-06",
		},
	}

	out := CSV(records, "user-1")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Fecha,Concepto,Categoria,Monto,Quien" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "2026-08-05,Supermercado,Comida,45.50,Yo" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	if lines[2] != `2026-08-06,'=HYPERLINK(...),Otros,1.00,Pareja` {
		t.Fatalf("formula not neutralized: %q", lines[2])
	}
}
