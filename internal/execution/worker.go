package execution

import (
	"context"
	"log/slog"
	"time"

	"payguard/internal/platform/config"
)

// Worker drains the outbox and hands signals to the publisher. It polls on a
// fixed interval; rows that keep failing are parked once they exhaust
// MaxAttempts so one poisoned signal cannot wedge the queue.
type Worker struct {
	store     OutboxStore
	publisher Publisher
	dedupe    Dedupe
	cfg       config.Execution
	logger    *slog.Logger
}

func NewWorker(store OutboxStore, publisher Publisher, dedupe Dedupe, cfg config.Execution, logger *slog.Logger) *Worker {
	if dedupe == nil {
		dedupe = NoopDedupe{}
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		dedupe:    dedupe,
		cfg:       cfg,
		logger:    logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending signals. It is exported so tests and
// the orchestrator's post-commit nudge can run a pass without the ticker.
func (w *Worker) Drain(ctx context.Context) error {
	rows, err := w.store.NextBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.Attempts >= w.cfg.MaxAttempts {
			w.logger.Warn("execution signal parked after repeated failures",
				"entity_id", row.Signal.EntityID,
				"attempts", row.Attempts,
			)
			if err := w.store.MarkPublished(ctx, row.ID, time.Now()); err != nil {
				return err
			}
			continue
		}

		first, err := w.dedupe.FirstSeen(ctx, row.Signal.Key())
		if err != nil {
			// Dedupe is advisory: publish anyway, downstream is idempotent.
			w.logger.Warn("dedupe check failed, publishing anyway", "error", err)
			first = true
		}

		if first {
			if err := w.publisher.Publish(ctx, row.Signal); err != nil {
				w.logger.Error("publish execution signal failed",
					"entity_id", row.Signal.EntityID,
					"error", err,
				)
				if err := w.store.MarkFailed(ctx, row.ID); err != nil {
					return err
				}
				continue
			}
		}

		if err := w.store.MarkPublished(ctx, row.ID, time.Now()); err != nil {
			return err
		}
		w.logger.Info("execution signal published",
			"entity_id", row.Signal.EntityID,
			"resulting_status", row.Signal.ResultingStatus,
		)
	}
	return nil
}
