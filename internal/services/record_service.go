// Package services orchestrates record writes: validation against the
// current snapshot, owner-stamped persistence, and the change feed for the
// sheet mirror. A write that fails validation never reaches the store.
package services

import (
	"context"
	"fmt"

	"gastos/internal/amqp"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/report"
)

// Repository is the record store the service writes through.
type Repository interface {
	ListAll(ctx context.Context) ([]core.Record, error)
	Get(ctx context.Context, id int64) (core.Record, error)
	Insert(ctx context.Context, rec core.Record) (int64, error)
	Update(ctx context.Context, id int64, ownerID string, rec core.Record) error
	Delete(ctx context.Context, id int64, ownerID string) error
}

// ChangePublisher pushes record changes onto the mirror feed. May be nil
// when the feed is not configured.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.RecordChange) error
	Close() error
}

// WriteResult reports what a successful write did.
type WriteResult struct {
	ID int64
	// Completes is true when the write was a contribution that zeroed out
	// its concept's remaining amount. Callers use it as the completion signal.
	Completes bool
}

type RecordService struct {
	repo      Repository
	publisher ChangePublisher
	lg        *applog.Logger
}

func NewRecordService(repo Repository, publisher ChangePublisher, lg *applog.Logger) *RecordService {
	if lg == nil {
		lg = applog.New(applog.Config{})
	}
	return &RecordService{
		repo:      repo,
		publisher: publisher,
		lg:        lg.WithComponent(applog.ComponentRecord),
	}
}

// List returns the full record snapshot, newest first.
func (s *RecordService) List(ctx context.Context) ([]core.Record, error) {
	return s.repo.ListAll(ctx)
}

// Create validates and stores a new record owned by ownerID. Contributions
// are additionally checked against their concept's remaining amount, which
// only this layer can see; the store has no notion of the relationship.
func (s *RecordService) Create(ctx context.Context, ownerID string, rec core.Record) (WriteResult, error) {
	rec.OwnerID = ownerID
	if err := rec.Validate(); err != nil {
		return WriteResult{}, err
	}

	var completes bool
	if rec.Kind() == core.KindContribution {
		records, err := s.repo.ListAll(ctx)
		if err != nil {
			return WriteResult{}, fmt.Errorf("load records for validation: %w", err)
		}
		if err := report.ValidateContribution(records, *rec.ConceptID, rec.Amount); err != nil {
			return WriteResult{}, err
		}
		if stats, ok := report.Stats(records, *rec.ConceptID); ok {
			completes = stats.Completes(rec.Amount)
		}
	}

	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return WriteResult{}, err
	}

	s.lg.InfoContext(ctx, "Record created",
		applog.FieldRecordID, id,
		applog.FieldRecordKind, string(rec.Kind()),
		applog.FieldCategory, rec.Category,
		applog.FieldAmountCents, rec.Amount.Cents,
		applog.FieldUserID, ownerID,
		applog.FieldOperation, applog.OpCreate)

	s.publish(ctx, id, 1, amqp.OpUpsert)
	return WriteResult{ID: id, Completes: completes}, nil
}

// Update rewrites a record the owner holds. A contribution's amount is
// re-validated with its own previous amount excluded from the running sum.
func (s *RecordService) Update(ctx context.Context, id int64, ownerID string, rec core.Record) (WriteResult, error) {
	rec.OwnerID = ownerID
	if err := rec.Validate(); err != nil {
		return WriteResult{}, err
	}

	var completes bool
	if rec.Kind() == core.KindContribution {
		records, err := s.repo.ListAll(ctx)
		if err != nil {
			return WriteResult{}, fmt.Errorf("load records for validation: %w", err)
		}
		others := make([]core.Record, 0, len(records))
		for _, r := range records {
			if r.ID != id {
				others = append(others, r)
			}
		}
		if err := report.ValidateContribution(others, *rec.ConceptID, rec.Amount); err != nil {
			return WriteResult{}, err
		}
		if stats, ok := report.Stats(others, *rec.ConceptID); ok {
			completes = stats.Completes(rec.Amount)
		}
	}

	if err := s.repo.Update(ctx, id, ownerID, rec); err != nil {
		return WriteResult{}, err
	}

	s.lg.InfoContext(ctx, "Record updated",
		applog.FieldRecordID, id,
		applog.FieldRecordKind, string(rec.Kind()),
		applog.FieldUserID, ownerID,
		applog.FieldOperation, applog.OpUpdate)

	s.publish(ctx, id, 0, amqp.OpUpsert)
	return WriteResult{ID: id, Completes: completes}, nil
}

// Delete removes a record the owner holds.
func (s *RecordService) Delete(ctx context.Context, id int64, ownerID string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.lg.InfoContext(ctx, "Record deleted",
		applog.FieldRecordID, id,
		applog.FieldUserID, ownerID,
		applog.FieldOperation, applog.OpDelete)

	s.publish(ctx, id, 0, amqp.OpDelete)
	return nil
}

// publish pushes a change message, logging and swallowing failures: the
// mirror is best-effort and must never fail the originating write.
func (s *RecordService) publish(ctx context.Context, id, version int64, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewRecordChange(id, version, op)); err != nil {
		s.lg.ErrorContext(ctx, "Failed to publish record change",
			applog.FieldRecordID, id,
			applog.FieldError, err)
	}
}

// Close releases the publisher connection if one is attached.
func (s *RecordService) Close() error {
	if s.publisher != nil {
		return s.publisher.Close()
	}
	return nil
}
