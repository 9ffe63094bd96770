package ingestion

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/purchasing"
	"go.uber.org/zap"
)

// ImportService accepts normalized OCR payloads, queues them as import jobs
// and hands them to the transaction coordinator.
type ImportService struct {
	scope       costing.TransactionScope
	coordinator *costing.Coordinator
	logger      *zap.Logger
}

// NewImportService creates a new import service.
func NewImportService(scope costing.TransactionScope, coordinator *costing.Coordinator, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		scope:       scope,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Submit queues a new pending import job holding the raw OCR payload.
// The job is picked up by the polling worker, or processed immediately via
// ProcessJob for synchronous API calls.
func (s *ImportService) Submit(ctx context.Context, establishmentID uuid.UUID, filePath string, rawPayload []byte) (uuid.UUID, error) {
	job := purchasing.NewImportJob(establishmentID, filePath, string(rawPayload))
	err := s.scope.Execute(ctx, func(repos costing.TransactionalRepositories) error {
		return repos.ImportJobRepo().Save(ctx, job)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("import job queued",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("import_job_id", job.ID.String()),
		zap.String("file_path", filePath),
	)
	return job.ID, nil
}

// ProcessJob runs one queued job through the coordinator. An unreadable
// payload is rejected as an extraction failure; every other outcome is the
// coordinator's.
func (s *ImportService) ProcessJob(ctx context.Context, job *purchasing.ImportJob) (*costing.EventOutcome, error) {
	var payload costing.ImportPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return s.coordinator.RejectUnparsablePayload(ctx, job.EstablishmentID, job.ID, err.Error())
	}
	return s.coordinator.ProcessImport(ctx, job.EstablishmentID, job.ID, &payload)
}
