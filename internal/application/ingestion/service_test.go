package ingestion

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The ingestion tests exercise queueing and the rejection paths; the happy
// propagation path is covered by the coordinator tests.

type memJobRepo struct {
	jobs map[uuid.UUID]purchasing.ImportJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]purchasing.ImportJob)}
}

func (r *memJobRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.ImportJob, error) {
	j, ok := r.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &j, nil
}

func (r *memJobRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*purchasing.ImportJob, error) {
	j, err := r.FindByID(ctx, id)
	if err != nil || j.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return j, nil
}

func (r *memJobRepo) FindPending(_ context.Context, limit int) ([]purchasing.ImportJob, error) {
	var out []purchasing.ImportJob
	for _, j := range r.jobs {
		if j.Status == purchasing.ImportJobStatusPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) Save(_ context.Context, job *purchasing.ImportJob) error {
	r.jobs[job.ID] = *job
	return nil
}

type memRejectedRepo struct {
	rows []purchasing.RejectedInvoice
}

func (r *memRejectedRepo) FindByImportJob(_ context.Context, importJobID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var out []purchasing.RejectedInvoice
	for _, row := range r.rows {
		if row.ImportJobID == importJobID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRejectedRepo) FindAllForEstablishment(_ context.Context, establishmentID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var out []purchasing.RejectedInvoice
	for _, row := range r.rows {
		if row.EstablishmentID == establishmentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRejectedRepo) Save(_ context.Context, rejected *purchasing.RejectedInvoice) error {
	r.rows = append(r.rows, *rejected)
	return nil
}

type noopLocker struct{}

func (noopLocker) Acquire(_ context.Context, _ uuid.UUID) (func(), error) {
	return func() {}, nil
}

type silentNotifier struct{}

func (silentNotifier) Notify(_ context.Context, _ uuid.UUID, _ string) {}

func newTestService(jobs *memJobRepo, rejected *memRejectedRepo) *ImportService {
	scope := &costing.NoOpTransactionScope{
		ImportJobs:       jobs,
		RejectedInvoices: rejected,
	}
	coordinator := costing.NewCoordinator(scope, noopLocker{}, silentNotifier{}, nil, nil)
	return NewImportService(scope, coordinator, nil)
}

func TestImportService_Submit(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobRepo()
	service := newTestService(jobs, &memRejectedRepo{})
	establishmentID := uuid.New()

	jobID, err := service.Submit(ctx, establishmentID, "/invoices/facture.pdf", []byte(`{"invoice":{}}`))
	require.NoError(t, err)

	stored, err := jobs.FindByID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, purchasing.ImportJobStatusPending, stored.Status)
	assert.Equal(t, "/invoices/facture.pdf", stored.FilePath)
	assert.Equal(t, `{"invoice":{}}`, stored.Payload)
}

func TestImportService_ProcessJob(t *testing.T) {
	ctx := context.Background()
	establishmentID := uuid.New()

	t.Run("unreadable payload goes to ocr_failed", func(t *testing.T) {
		jobs := newMemJobRepo()
		rejected := &memRejectedRepo{}
		service := newTestService(jobs, rejected)

		job := purchasing.NewImportJob(establishmentID, "/invoices/garbage.pdf", "{not json")
		require.NoError(t, jobs.Save(ctx, job))

		outcome, err := service.ProcessJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, costing.EventStateRejected, outcome.State)

		stored, err := jobs.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, purchasing.ImportJobStatusOCRFailed, stored.Status)
		require.Len(t, rejected.rows, 1)
		assert.Equal(t, "/invoices/garbage.pdf", rejected.rows[0].FilePath)
	})

	t.Run("missing invoice date goes to error", func(t *testing.T) {
		jobs := newMemJobRepo()
		rejected := &memRejectedRepo{}
		service := newTestService(jobs, rejected)

		payload := `{"invoice":{"reference":"F-1"},"supplier":{"id":"` + uuid.NewString() + `"},"lines":[{"name":"Veau","unit_price":"6"}]}`
		job := purchasing.NewImportJob(establishmentID, "/invoices/sans-date.pdf", payload)
		require.NoError(t, jobs.Save(ctx, job))

		outcome, err := service.ProcessJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, costing.EventStateRejected, outcome.State)
		assert.Contains(t, outcome.RejectionReason, "date")

		stored, err := jobs.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, purchasing.ImportJobStatusError, stored.Status)
	})
}

func TestWorker_Poll(t *testing.T) {
	ctx := context.Background()
	establishmentID := uuid.New()
	jobs := newMemJobRepo()
	rejected := &memRejectedRepo{}
	service := newTestService(jobs, rejected)
	scope := &costing.NoOpTransactionScope{ImportJobs: jobs, RejectedInvoices: rejected}

	worker := NewWorker(scope, service, 0, 0, nil)

	first := purchasing.NewImportJob(establishmentID, "/invoices/a.pdf", "{bad")
	second := purchasing.NewImportJob(establishmentID, "/invoices/b.pdf", "{also bad")
	require.NoError(t, jobs.Save(ctx, first))
	require.NoError(t, jobs.Save(ctx, second))

	require.NoError(t, worker.Poll(ctx))

	pending, err := jobs.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Len(t, rejected.rows, 2)
}
