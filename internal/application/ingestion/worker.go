package ingestion

import (
	"context"
	"time"

	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is how often the worker looks for pending jobs.
	DefaultPollInterval = 10 * time.Second
	// DefaultBatchSize bounds how many jobs one poll picks up.
	DefaultBatchSize = 10
)

// Worker polls for pending import jobs and runs them through the import
// service. Jobs that lose the per-establishment lock stay pending and are
// retried on a later poll; every other failure is terminal for that job and
// already recorded by the coordinator.
type Worker struct {
	scope        costing.TransactionScope
	service      *ImportService
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

// NewWorker creates a new polling worker.
func NewWorker(scope costing.TransactionScope, service *ImportService, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		scope:        scope,
		service:      service,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("import worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("import worker stopped")
			return
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				w.logger.Error("import poll failed", zap.Error(err))
			}
		}
	}
}

// Poll processes one batch of pending jobs.
func (w *Worker) Poll(ctx context.Context) error {
	var pending []purchasing.ImportJob
	err := w.scope.Execute(ctx, func(repos costing.TransactionalRepositories) error {
		var err error
		pending, err = repos.ImportJobRepo().FindPending(ctx, w.batchSize)
		return err
	})
	if err != nil {
		return err
	}

	for i := range pending {
		job := pending[i]
		outcome, err := w.service.ProcessJob(ctx, &job)
		if err != nil {
			if shared.IsRetryable(err) {
				// Lock contention: the job stays pending for the next poll.
				w.logger.Debug("import deferred on lock contention",
					zap.String("import_job_id", job.ID.String()),
				)
				continue
			}
			w.logger.Error("import job failed",
				zap.String("import_job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("import job processed",
			zap.String("import_job_id", job.ID.String()),
			zap.String("state", string(outcome.State)),
		)
	}
	return nil
}
