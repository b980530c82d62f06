package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gastos/internal/core"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "prefs.json"))
}

func TestLoadMissingFile(t *testing.T) {
	p, err := tempStore(t).Load()
	if err != nil {
		t.Fatal(err)
	}
	if p.DarkMode || p.Budgets != nil {
		t.Fatalf("expected zero prefs, got %+v", p)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := tempStore(t)
	in := Prefs{
		DarkMode: true,
		Budgets: []core.Budget{
			{Category: "Comida", Limit: core.Money{Cents: 50000}},
			{Category: "Ocio", Limit: core.Money{Cents: 20000}},
		},
	}
	if err := s.Save(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !out.DarkMode {
		t.Error("dark mode flag lost")
	}
	if len(out.Budgets) != 2 || out.Budgets[0].Category != "Comida" || out.Budgets[0].Limit.Cents != 50000 {
		t.Fatalf("budgets lost: %+v", out.Budgets)
	}
}

func TestLoadCorruptFileResets(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if p.DarkMode || p.Budgets != nil {
		t.Fatalf("expected reset prefs, got %+v", p)
	}

	// The file on disk was rewritten clean.
	raw, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "darkMode") {
		t.Fatalf("file not reset: %s", raw)
	}
}

func TestLoadInvalidBudgetDropsWholeList(t *testing.T) {
	s := tempStore(t)
	// One valid entry, one with an unknown category: the whole list goes.
	content := `{"darkMode":true,"budgets":[{"category":"Comida","limit":5000},{"category":"Nope","limit":100}]}`
	if err := os.WriteFile(s.path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if p.Budgets != nil {
		t.Fatalf("invalid entry must drop the whole list, got %+v", p.Budgets)
	}
	if !p.DarkMode {
		t.Error("theme flag must survive the budget reset")
	}

	// The budgets key was cleared on disk too.
	raw, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "budgets") {
		t.Fatalf("budgets key not cleared: %s", raw)
	}
}

func TestSaveBudgetsRejectsDuplicates(t *testing.T) {
	s := tempStore(t)
	err := s.SaveBudgets([]core.Budget{
		{Category: "Comida", Limit: core.Money{Cents: 100}},
		{Category: "Comida", Limit: core.Money{Cents: 200}},
	})
	if err == nil {
		t.Fatal("expected duplicate category error")
	}
}

func TestSaveBudgetsRejectsInvalidEntry(t *testing.T) {
	s := tempStore(t)
	if err := s.SaveBudgets([]core.Budget{{Category: "Comida"}}); err == nil {
		t.Fatal("expected invalid limit error")
	}
}

func TestSetDarkModeKeepsBudgets(t *testing.T) {
	s := tempStore(t)
	if err := s.SaveBudgets([]core.Budget{{Category: "Casa", Limit: core.Money{Cents: 999}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDarkMode(true); err != nil {
		t.Fatal(err)
	}

	p, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !p.DarkMode || len(p.Budgets) != 1 {
		t.Fatalf("expected dark mode with budgets intact, got %+v", p)
	}
}
