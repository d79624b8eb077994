package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N batch runner goroutines
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop runs one batch per trigger until stopped
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case t := <-w.triggers:
			w.handleTrigger(ctx, workerName, t)
		}
	}
}

// handleTrigger runs a batch and settles the delivery. A failed batch is
// dropped without requeue; the next trigger or cron tick retries the backlog.
func (w *Worker) handleTrigger(ctx context.Context, workerName string, t *trigger) {
	limit := t.message.Limit
	if limit <= 0 {
		limit = w.batchLimit
	}

	w.logger.Info("Worker received batch trigger",
		slog.String("worker_name", workerName),
		slog.String("reason", t.message.Reason),
		slog.String("job_id", t.message.JobID),
		slog.Int("limit", limit),
	)

	batchCtx := ctx
	if w.batchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, w.batchTimeout)
		defer cancel()
	}

	report, err := w.runner.RunBatch(batchCtx, limit)
	if err != nil {
		w.logger.Error("Batch failed",
			slog.String("worker_name", workerName),
			slog.String("error", err.Error()),
		)
		if nackErr := t.delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("worker_name", workerName),
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	if ackErr := t.delivery.Ack(false); ackErr != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("worker_name", workerName),
			slog.String("error", ackErr.Error()),
		)
		return
	}

	w.logger.Info("Batch trigger handled",
		slog.String("worker_name", workerName),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
}
