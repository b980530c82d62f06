// Package worker drains the record change feed and mirrors movements to
// the shared spreadsheet. Mirroring is strictly best-effort: the store is
// the system of record and a mirror failure only delays the copy.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/sheets"
	"gastos/internal/storage"

	"golang.org/x/sync/errgroup"
)

type MirrorWorker struct {
	repo      *storage.Repository
	mirror    sheets.RecordMirror
	batchSize int
}

func NewMirrorWorker(repo *storage.Repository, mirror sheets.RecordMirror, batchSize int) *MirrorWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &MirrorWorker{
		repo:      repo,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleChange processes one message from the feed. Deletes have nothing to
// mirror on an append-only sheet and are acknowledged as handled.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.RecordChange) error {
	if msg.Op == amqp.OpDelete {
		slog.InfoContext(ctx, "Skipping delete on append-only mirror", "id", msg.ID)
		return nil
	}
	return w.mirrorRecord(ctx, msg.ID)
}

// CatchUp mirrors every row the feed missed, a batch at a time. Rows are
// pushed concurrently within the batch; any failure stops the pass and the
// remaining rows stay pending for the next one.
func (w *MirrorWorker) CatchUp(ctx context.Context) error {
	for {
		pending, err := w.repo.ListPending(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("list pending records: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		slog.InfoContext(ctx, "Mirroring pending records", "count", len(pending))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, p := range pending {
			g.Go(func() error {
				return w.mirrorRecord(gctx, p.ID)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("mirror batch: %w", err)
		}
	}
}

func (w *MirrorWorker) mirrorRecord(ctx context.Context, id int64) error {
	rec, err := w.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between the message and now; nothing left to mirror.
		slog.InfoContext(ctx, "Record gone before mirroring", "id", id)
		return w.repo.MarkSynced(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("load record %d: %w", id, err)
	}

	ref, err := w.mirror.AppendRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("append record %d to sheet: %w", id, err)
	}
	if err := w.repo.MarkSynced(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Record mirrored", "id", id, "sheet_ref", ref)
	return nil
}
