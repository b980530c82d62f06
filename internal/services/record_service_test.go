package services

import (
	"context"
	"errors"
	"testing"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/report"
	"gastos/internal/storage"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	records map[int64]core.Record
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[int64]core.Record), nextID: 1}
}

func (m *memRepo) ListAll(_ context.Context) ([]core.Record, error) {
	out := make([]core.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (core.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return core.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) Insert(_ context.Context, rec core.Record) (int64, error) {
	rec.ID = m.nextID
	m.nextID++
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memRepo) Update(_ context.Context, id int64, ownerID string, rec core.Record) error {
	existing, ok := m.records[id]
	if !ok || existing.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	rec.ID = id
	m.records[id] = rec
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64, ownerID string) error {
	existing, ok := m.records[id]
	if !ok || existing.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// capturePublisher records published changes.
type capturePublisher struct {
	changes []*amqp.RecordChange
	failing bool
}

func (p *capturePublisher) PublishChange(_ context.Context, msg *amqp.RecordChange) error {
	if p.failing {
		return errors.New("broker down")
	}
	p.changes = append(p.changes, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func validExpense() core.Record {
	return core.Record{
		Name:     "Supermercado",
		Amount:   core.Money{Cents: 4500},
		Category: "Comida",
		Date:     "2026-08-15",
	}
}

func TestCreateStampsOwnerAndPublishes(t *testing.T) {
	repo := newMemRepo()
	pub := &capturePublisher{}
	svc := NewRecordService(repo, pub, nil)

	res, err := svc.Create(context.Background(), "user-1", validExpense())
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == 0 {
		t.Fatal("expected assigned id")
	}

	stored := repo.records[res.ID]
	if stored.OwnerID != "user-1" {
		t.Fatalf("owner not stamped: %+v", stored)
	}
	if len(pub.changes) != 1 || pub.changes[0].Op != amqp.OpUpsert {
		t.Fatalf("expected one upsert change, got %+v", pub.changes)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc := NewRecordService(newMemRepo(), nil, nil)

	rec := validExpense()
	rec.Amount = core.Money{}
	if _, err := svc.Create(context.Background(), "user-1", rec); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateContributionChecksRemaining(t *testing.T) {
	repo := newMemRepo()
	svc := NewRecordService(repo, nil, nil)
	ctx := context.Background()

	conceptRes, err := svc.Create(ctx, "user-1", core.Record{
		Name: "Sofa", ConceptName: "Sofa", Category: "Casa", Date: "2026-08-01",
		IsConcept: true, ConceptTotal: core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatal(err)
	}

	contribution := func(cents int64) core.Record {
		return core.Record{
			Name: "Cuota", Amount: core.Money{Cents: cents},
			Category: "Casa", Date: "2026-08-10", ConceptID: &conceptRes.ID,
		}
	}

	// Over the target is rejected with the remaining amount attached.
	_, err = svc.Create(ctx, "user-1", contribution(10001))
	var exceeds *report.ExceedsRemainingError
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected ExceedsRemainingError, got %v", err)
	}
	if exceeds.Remaining.Cents != 10000 {
		t.Fatalf("expected remaining 10000, got %d", exceeds.Remaining.Cents)
	}

	// A partial contribution goes through without completing.
	res, err := svc.Create(ctx, "user-1", contribution(4000))
	if err != nil {
		t.Fatal(err)
	}
	if res.Completes {
		t.Fatal("partial contribution must not complete")
	}

	// The exact remaining amount completes the concept.
	res, err = svc.Create(ctx, "user-1", contribution(6000))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completes {
		t.Fatal("exact remaining must complete")
	}
}

func TestCreateContributionUnknownConcept(t *testing.T) {
	svc := NewRecordService(newMemRepo(), nil, nil)
	missing := int64(99)
	rec := validExpense()
	rec.ConceptID = &missing
	if _, err := svc.Create(context.Background(), "user-1", rec); !errors.Is(err, report.ErrConceptNotFound) {
		t.Fatalf("expected ErrConceptNotFound, got %v", err)
	}
}

func TestUpdateExcludesOwnPriorAmount(t *testing.T) {
	repo := newMemRepo()
	svc := NewRecordService(repo, nil, nil)
	ctx := context.Background()

	conceptRes, err := svc.Create(ctx, "user-1", core.Record{
		Name: "Sofa", ConceptName: "Sofa", Category: "Casa", Date: "2026-08-01",
		IsConcept: true, ConceptTotal: core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatal(err)
	}
	contribRes, err := svc.Create(ctx, "user-1", core.Record{
		Name: "Cuota", Amount: core.Money{Cents: 8000},
		Category: "Casa", Date: "2026-08-10", ConceptID: &conceptRes.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Raising the same contribution to the full target must pass: its old
	// amount no longer counts against the remaining balance.
	res, err := svc.Update(ctx, contribRes.ID, "user-1", core.Record{
		Name: "Cuota", Amount: core.Money{Cents: 10000},
		Category: "Casa", Date: "2026-08-10", ConceptID: &conceptRes.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completes {
		t.Fatal("full-target update must complete the concept")
	}
}

func TestUpdateUnknownRecord(t *testing.T) {
	svc := NewRecordService(newMemRepo(), nil, nil)
	if _, err := svc.Update(context.Background(), 42, "user-1", validExpense()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEnforcesOwner(t *testing.T) {
	repo := newMemRepo()
	svc := NewRecordService(repo, nil, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, "user-1", validExpense())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, res.ID, "user-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := svc.Delete(ctx, res.ID, "user-1"); err != nil {
		t.Fatal(err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	repo := newMemRepo()
	svc := NewRecordService(repo, &capturePublisher{failing: true}, nil)

	if _, err := svc.Create(context.Background(), "user-1", validExpense()); err != nil {
		t.Fatalf("write must survive a broker failure: %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatal("record not stored")
	}
}
