// Package worker keeps the JSON backup snapshot in sync with the
// database. Change events from AMQP mark the state dirty; the worker
// debounces bursts of mutations into one snapshot write and flushes on
// a timer as a bound on staleness.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paydo/internal/amqp"
	"paydo/internal/snapshot"
)

// StateExporter reads the full tracker state for a snapshot.
type StateExporter interface {
	ExportState(ctx context.Context) (snapshot.State, error)
}

// StateSaver persists a snapshot.
type StateSaver interface {
	Save(snapshot.State) error
}

// SnapshotWorker writes backup snapshots when the tracker state changes.
type SnapshotWorker struct {
	exporter StateExporter
	saver    StateSaver
	debounce time.Duration
	interval time.Duration

	changes chan struct{}
}

func NewSnapshotWorker(exporter StateExporter, saver StateSaver, debounce, interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{
		exporter: exporter,
		saver:    saver,
		debounce: debounce,
		interval: interval,
		changes:  make(chan struct{}, 1),
	}
}

// HandleChange marks the state dirty. It is the AMQP consume handler;
// the message content does not matter beyond proving a mutation
// happened, since snapshots always capture the whole state.
func (w *SnapshotWorker) HandleChange(msg *amqp.ChangeMessage) error {
	slog.Debug("state change received", "entity", msg.Entity, "op", msg.Op, "id", msg.ID)
	select {
	case w.changes <- struct{}{}:
	default: // already pending
	}
	return nil
}

// Run flushes snapshots until ctx is done. A change starts the debounce
// timer; further changes inside the window coalesce into one write. The
// interval ticker bounds staleness when changes never stop arriving. A
// final flush runs on shutdown so no acknowledged change is lost.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	idle := time.NewTimer(w.debounce)
	if !idle.Stop() {
		<-idle.C
	}

	dirty := false
	for {
		select {
		case <-ctx.Done():
			if dirty {
				w.flush(context.WithoutCancel(ctx))
			}
			return ctx.Err()
		case <-w.changes:
			dirty = true
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(w.debounce)
		case <-idle.C:
			if dirty {
				dirty = !w.flush(ctx)
			}
		case <-ticker.C:
			if dirty {
				dirty = !w.flush(ctx)
			}
		}
	}
}

func (w *SnapshotWorker) flush(ctx context.Context) bool {
	if err := w.writeSnapshot(ctx); err != nil {
		// Stay dirty; the next timer fires another attempt.
		slog.ErrorContext(ctx, "snapshot flush failed", "error", err)
		return false
	}
	return true
}

func (w *SnapshotWorker) writeSnapshot(ctx context.Context) error {
	state, err := w.exporter.ExportState(ctx)
	if err != nil {
		return fmt.Errorf("export state: %w", err)
	}
	if err := w.saver.Save(state); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	slog.InfoContext(ctx, "snapshot written",
		"accounts", len(state.Accounts),
		"transactions", len(state.Transactions),
		"loans", len(state.Loans),
		"assets", len(state.Assets))
	return nil
}
