// Package prefs is the local preferences store: the dark-theme flag and the
// per-category budget list. It mirrors the two browser localStorage keys of
// the original application as a small JSON file under the XDG config
// directory. Budgets are device-local by design and never synced.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gastos/internal/core"

	"github.com/adrg/xdg"
)

const defaultFileName = "gastos/prefs.json"

// Store reads and writes preferences on disk. Methods are not safe for
// concurrent use; callers serialize access (the HTTP layer does).
type Store struct {
	path string
}

type fileFormat struct {
	DarkMode bool            `json:"darkMode"`
	Budgets  json.RawMessage `json:"budgets,omitempty"`
}

// New returns a store at an explicit path, for tests and overrides.
func New(path string) *Store {
	return &Store{path: path}
}

// NewDefault places the preferences file under the XDG config home.
func NewDefault() (*Store, error) {
	path, err := xdg.ConfigFile(defaultFileName)
	if err != nil {
		return nil, fmt.Errorf("resolve prefs path: %w", err)
	}
	return &Store{path: path}, nil
}

// Prefs is the validated in-memory view of the store.
type Prefs struct {
	DarkMode bool
	Budgets  []core.Budget
}

// Load reads the file and validates the budget list wholesale: if any entry
// is malformed the entire list is discarded and the key cleared on disk.
// A missing file yields zero-value preferences.
func (s *Store) Load() (Prefs, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Prefs{}, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("read prefs: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		// The whole file is corrupt: reset rather than repair.
		slog.Warn("Preferences file corrupt, resetting", "path", s.path, "error", err)
		if err := s.save(fileFormat{}); err != nil {
			return Prefs{}, err
		}
		return Prefs{}, nil
	}

	p := Prefs{DarkMode: f.DarkMode}
	if len(f.Budgets) > 0 {
		budgets, ok := decodeBudgets(f.Budgets)
		if !ok {
			slog.Warn("Stored budgets invalid, clearing key", "path", s.path)
			f.Budgets = nil
			if err := s.save(f); err != nil {
				return Prefs{}, err
			}
		} else {
			p.Budgets = budgets
		}
	}
	return p, nil
}

// SetDarkMode persists the theme flag, leaving budgets untouched.
func (s *Store) SetDarkMode(on bool) error {
	p, err := s.Load()
	if err != nil {
		return err
	}
	p.DarkMode = on
	return s.Save(p)
}

// SaveBudgets validates and persists the budget list. One entry per
// category: a duplicate category is a validation failure.
func (s *Store) SaveBudgets(budgets []core.Budget) error {
	seen := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return err
		}
		if seen[b.Category] {
			return fmt.Errorf("duplicate budget for category %s", b.Category)
		}
		seen[b.Category] = true
	}
	p, err := s.Load()
	if err != nil {
		return err
	}
	p.Budgets = budgets
	return s.Save(p)
}

// Save writes the full preference set.
func (s *Store) Save(p Prefs) error {
	f := fileFormat{DarkMode: p.DarkMode}
	if len(p.Budgets) > 0 {
		raw, err := json.Marshal(p.Budgets)
		if err != nil {
			return fmt.Errorf("encode budgets: %w", err)
		}
		f.Budgets = raw
	}
	return s.save(f)
}

// save writes atomically: temp file in the same directory, then rename.
func (s *Store) save(f fileFormat) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// decodeBudgets parses and validates the stored list. Any bad entry
// invalidates the whole list.
func decodeBudgets(raw json.RawMessage) ([]core.Budget, bool) {
	var budgets []core.Budget
	if err := json.Unmarshal(raw, &budgets); err != nil {
		return nil, false
	}
	seen := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		if !core.ValidCategory(b.Category) || b.Limit.Cents < 0 || seen[b.Category] {
			return nil, false
		}
		seen[b.Category] = true
	}
	return budgets, true
}
