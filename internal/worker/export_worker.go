// Package worker drains the ledger export pipeline: AMQP sync messages in
// steady state, plus a startup sweep over rows still marked pending so a
// lost message or worker downtime never strands a transaction.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error)
	ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkTransactionSynced(ctx context.Context, id int64) error
	MarkTransactionSyncError(ctx context.Context, id int64) error
}

type ExportWorker struct {
	store     ExportStore
	appender  sheets.TransactionAppender
	logger    *log.Logger
	batchSize int
}

func NewExportWorker(store ExportStore, appender sheets.TransactionAppender, logger *log.Logger, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     store,
		appender:  appender,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports the row named by one AMQP message. The row is
// re-read from the database so the export always reflects the current state,
// not the state at publish time.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	t, err := w.store.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", msg.TransactionID, err)
	}
	return w.export(ctx, t)
}

// StartupSweep exports everything still marked pending. Failures are marked
// on the row and skipped so one bad row cannot block the sweep.
func (w *ExportWorker) StartupSweep(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "no pending exports on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "sweeping pending exports", log.FieldCount, len(pending))
	synced, failed := 0, 0
	for _, t := range pending {
		if err := w.export(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "failed to export transaction",
				log.FieldTransactionID, t.ID,
				log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "startup sweep finished", "synced", synced, "failed", failed)
	return nil
}

// ExportPending drains one batch of pending rows. Used by the periodic
// fallback ticker.
func (w *ExportWorker) ExportPending(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	for _, t := range pending {
		if err := w.export(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "failed to export transaction",
				log.FieldTransactionID, t.ID,
				log.FieldError, err)
		}
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, t core.Transaction) error {
	ref, err := w.appender.Append(ctx, t)
	if err != nil {
		if markErr := w.store.MarkTransactionSyncError(ctx, t.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark sync error",
				log.FieldTransactionID, t.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkTransactionSynced(ctx, t.ID); err != nil {
		// The append succeeded, only the bookkeeping failed. The next
		// sweep retries the row.
		w.logger.ErrorContext(ctx, "failed to mark synced",
			log.FieldTransactionID, t.ID,
			log.FieldError, err)
		return nil
	}

	w.logger.DebugContext(ctx, "exported transaction",
		log.FieldTransactionID, t.ID,
		"row_ref", ref)
	return nil
}
