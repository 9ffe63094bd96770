package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// ImportJobStatus represents the lifecycle state of an import job
type ImportJobStatus string

const (
	ImportJobStatusPending   ImportJobStatus = "pending"
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusCompleted ImportJobStatus = "completed"
	ImportJobStatusError     ImportJobStatus = "error"
	ImportJobStatusOCRFailed ImportJobStatus = "ocr_failed"
)

// ImportJob drives one invoice ingestion pass.
// Lifecycle: pending -> running -> completed | error | ocr_failed (terminal).
type ImportJob struct {
	shared.EstablishmentAggregateRoot
	Status       ImportJobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	FilePath     string          `gorm:"type:varchar(500);not null"`
	Payload      string          `gorm:"type:jsonb"`
	ErrorMessage string          `gorm:"type:text"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// TableName returns the table name for GORM
func (ImportJob) TableName() string {
	return "import_jobs"
}

// NewImportJob creates a pending import job holding the normalized OCR payload.
func NewImportJob(establishmentID uuid.UUID, filePath, payload string) *ImportJob {
	return &ImportJob{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(establishmentID),
		Status:                     ImportJobStatusPending,
		FilePath:                   filePath,
		Payload:                    payload,
	}
}

// Start transitions the job to running.
func (j *ImportJob) Start() error {
	if j.Status != ImportJobStatusPending {
		return shared.ErrInvalidState
	}
	now := time.Now()
	j.Status = ImportJobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Complete transitions the job to its success terminal state.
func (j *ImportJob) Complete() error {
	if j.Status != ImportJobStatusRunning {
		return shared.ErrInvalidState
	}
	return j.finish(ImportJobStatusCompleted, "")
}

// Fail transitions the job to the error terminal state.
func (j *ImportJob) Fail(reason string) error {
	return j.finish(ImportJobStatusError, reason)
}

// FailOCR transitions the job to the ocr_failed terminal state, used when the
// extraction payload itself is unusable.
func (j *ImportJob) FailOCR(reason string) error {
	return j.finish(ImportJobStatusOCRFailed, reason)
}

func (j *ImportJob) finish(status ImportJobStatus, reason string) error {
	if j.IsTerminal() {
		return shared.ErrInvalidState
	}
	now := time.Now()
	j.Status = status
	j.ErrorMessage = reason
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

// IsTerminal reports whether the job reached a terminal state.
func (j *ImportJob) IsTerminal() bool {
	switch j.Status {
	case ImportJobStatusCompleted, ImportJobStatusError, ImportJobStatusOCRFailed:
		return true
	}
	return false
}
