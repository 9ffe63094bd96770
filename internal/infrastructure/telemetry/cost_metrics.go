// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CostMetrics provides domain metrics for the cost engine.
// It tracks cost events, invoice imports, and the import backlog.
type CostMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	costEventTotal       *Counter
	importJobTotal       *Counter
	invoiceRejectedTotal *Counter
	historySnapshotTotal *Counter

	// Histogram metrics
	costEventDuration *Histogram

	// Gauge metrics (point-in-time values)
	importJobsPending *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	backlogProvider ImportBacklogProvider
}

// ImportBacklogProvider provides import queue data for periodic metrics
// collection. The interface keeps the telemetry layer from depending on the
// purchasing domain directly.
type ImportBacklogProvider interface {
	// CountPendingImportJobs returns the number of import jobs waiting to run
	// for an establishment.
	CountPendingImportJobs(ctx context.Context, establishmentID uuid.UUID) (int64, error)
}

// EstablishmentProvider provides establishment IDs for periodic metrics collection.
type EstablishmentProvider interface {
	GetActiveEstablishmentIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CostMetricsConfig holds configuration for cost engine metrics.
type CostMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BacklogProvider ImportBacklogProvider
}

// NewCostMetrics creates a new CostMetrics instance.
func NewCostMetrics(cfg CostMetricsConfig) (*CostMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CostMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	var err error

	cm.costEventTotal, err = NewCounter(
		cfg.Meter,
		"restocost_cost_event_total",
		"Total number of cost events processed",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	cm.importJobTotal, err = NewCounter(
		cfg.Meter,
		"restocost_import_job_total",
		"Total number of import jobs that reached a terminal status",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	cm.invoiceRejectedTotal, err = NewCounter(
		cfg.Meter,
		"restocost_invoice_rejected_total",
		"Total number of invoices rejected during import",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	cm.historySnapshotTotal, err = NewCounter(
		cfg.Meter,
		"restocost_history_snapshot_total",
		"Total number of history snapshot versions written",
		"{snapshots}",
	)
	if err != nil {
		return nil, err
	}

	cm.costEventDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "restocost_cost_event_duration_seconds",
		Description: "Duration of cost event processing including propagation",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.importJobsPending, err = NewGauge(
		cfg.Meter,
		"restocost_import_jobs_pending",
		"Number of import jobs waiting to run",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// =============================================================================
// Cost Event Metrics
// =============================================================================

// EventOutcome represents the outcome of a cost event for metrics labeling.
type EventOutcome string

const (
	EventOutcomeApplied  EventOutcome = "applied"
	EventOutcomeRejected EventOutcome = "rejected"
	EventOutcomeRetried  EventOutcome = "retried"
)

// RecordCostEvent records a processed cost event with its outcome and duration.
// This should be called from the transaction coordinator after each event.
func (cm *CostMetrics) RecordCostEvent(ctx context.Context, establishmentID uuid.UUID, eventType string, outcome EventOutcome, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		AttrEstablishmentID.String(establishmentID.String()),
		AttrEventType.String(eventType),
		AttrEventOutcome.String(string(outcome)),
	}
	cm.costEventTotal.Inc(ctx, attrs...)
	cm.costEventDuration.RecordDuration(ctx, elapsed, attrs...)
}

// =============================================================================
// Import Metrics
// =============================================================================

// RecordImportJob records an import job reaching a terminal status
// (completed, error or ocr_failed).
func (cm *CostMetrics) RecordImportJob(ctx context.Context, establishmentID uuid.UUID, status string) {
	cm.importJobTotal.Inc(ctx,
		AttrEstablishmentID.String(establishmentID.String()),
		AttrImportStatus.String(status),
	)
}

// RecordInvoiceRejected records an invoice rejected during import.
func (cm *CostMetrics) RecordInvoiceRejected(ctx context.Context, establishmentID uuid.UUID, supplierID uuid.UUID) {
	cm.invoiceRejectedTotal.Inc(ctx,
		AttrEstablishmentID.String(establishmentID.String()),
		AttrSupplierID.String(supplierID.String()),
	)
}

// RecordHistorySnapshot records one or more history snapshot versions written.
func (cm *CostMetrics) RecordHistorySnapshot(ctx context.Context, establishmentID uuid.UUID, count int64) {
	if count <= 0 {
		return
	}
	cm.historySnapshotTotal.Add(ctx, count,
		AttrEstablishmentID.String(establishmentID.String()),
	)
}

// RecordPendingImportJobs records the current import backlog for an establishment.
// This is a gauge metric that should be updated periodically.
func (cm *CostMetrics) RecordPendingImportJobs(ctx context.Context, establishmentID uuid.UUID, count int64) {
	cm.importJobsPending.Record(ctx, count,
		AttrEstablishmentID.String(establishmentID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects the import backlog every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (cm *CostMetrics) StartPeriodicCollection(ctx context.Context, establishments EstablishmentProvider, interval time.Duration) {
	cm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go cm.runPeriodicCollection(ctx, establishments, interval)
	})
}

func (cm *CostMetrics) runPeriodicCollection(ctx context.Context, establishments EstablishmentProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	cm.collectBacklogMetrics(ctx, establishments)

	for {
		select {
		case <-cm.stopChan:
			cm.logger.Info("Stopping periodic cost metrics collection")
			return
		case <-ctx.Done():
			cm.logger.Info("Context cancelled, stopping periodic cost metrics collection")
			return
		case <-ticker.C:
			cm.collectBacklogMetrics(ctx, establishments)
		}
	}
}

func (cm *CostMetrics) collectBacklogMetrics(ctx context.Context, establishments EstablishmentProvider) {
	if cm.backlogProvider == nil {
		cm.logger.Debug("No backlog provider configured, skipping import backlog collection")
		return
	}

	establishmentIDs, err := establishments.GetActiveEstablishmentIDs(ctx)
	if err != nil {
		cm.logger.Error("Failed to get establishment IDs for metrics collection", zap.Error(err))
		return
	}

	for _, establishmentID := range establishmentIDs {
		pending, err := cm.backlogProvider.CountPendingImportJobs(ctx, establishmentID)
		if err != nil {
			cm.logger.Warn("Failed to count pending import jobs",
				zap.String("establishment_id", establishmentID.String()),
				zap.Error(err),
			)
			continue
		}
		cm.RecordPendingImportJobs(ctx, establishmentID, pending)
	}
}

// Stop stops the periodic collection.
func (cm *CostMetrics) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCostMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
