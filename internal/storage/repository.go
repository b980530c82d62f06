// Package storage implements the record store on SQLite. The table is a
// single flat collection of records; the concept/contribution relationship
// is never resolved here but in the report layer, from the full snapshot.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update or delete matches no row owned by
// the given user. Ownership is part of the key: a mismatched owner looks
// identical to a missing record.
var ErrNotFound = errors.New("record not found")

// Repository is the SQLite-backed record store.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, owner_id, name, amount_cents, category, date,
	is_concept, concept_id, concept_total_cents, concept_name`

// ListAll returns every record ordered by date descending, newest first.
// Derived views are always rebuilt from this full snapshot.
func (r *Repository) ListAll(ctx context.Context) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id int64) (core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// Insert stores a new record stamped with its owner and returns the
// assigned id.
func (r *Repository) Insert(ctx context.Context, rec core.Record) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO records
			(owner_id, name, amount_cents, category, date,
			 is_concept, concept_id, concept_total_cents, concept_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.Name, rec.Amount.Cents, rec.Category, string(rec.Date),
		boolToInt(rec.IsConcept), rec.ConceptID, nullCents(rec.ConceptTotal), nullString(rec.ConceptName))
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", id,
		"kind", rec.Kind(),
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"date", rec.Date)
	return id, nil
}

// Update rewrites a record matched by id and owner. A missing row or a
// foreign owner both return ErrNotFound.
func (r *Repository) Update(ctx context.Context, id int64, ownerID string, rec core.Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET
			name = ?, amount_cents = ?, category = ?, date = ?,
			is_concept = ?, concept_id = ?, concept_total_cents = ?, concept_name = ?,
			version = version + 1, synced = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		rec.Name, rec.Amount.Cents, rec.Category, string(rec.Date),
		boolToInt(rec.IsConcept), rec.ConceptID, nullCents(rec.ConceptTotal), nullString(rec.ConceptName),
		id, ownerID)
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record matched by id and owner.
func (r *Repository) Delete(ctx context.Context, id int64, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingRecord identifies a row the sheet mirror has not picked up yet.
type PendingRecord struct {
	ID      int64
	Version int64
}

// ListPending returns up to limit unsynced rows, oldest first. The mirror
// worker drains these during its periodic catch-up pass.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM records WHERE synced = 0 ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced flags a record as mirrored.
func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var (
		rec          core.Record
		date         string
		isConcept    int64
		conceptID    sql.NullInt64
		conceptTotal sql.NullInt64
		conceptName  sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Amount.Cents,
		&rec.Category, &date, &isConcept, &conceptID, &conceptTotal, &conceptName)
	if err != nil {
		return core.Record{}, err
	}
	rec.Date = core.Date(date)
	rec.IsConcept = isConcept != 0
	if conceptID.Valid {
		id := conceptID.Int64
		rec.ConceptID = &id
	}
	if conceptTotal.Valid {
		rec.ConceptTotal = core.Money{Cents: conceptTotal.Int64}
	}
	if conceptName.Valid {
		rec.ConceptName = conceptName.String
	}
	return rec, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullCents(m core.Money) any {
	if m.Cents == 0 {
		return nil
	}
	return m.Cents
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
