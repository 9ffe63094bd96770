package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/application/ingestion"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/interfaces/http/dto"
)

// ImportHandler handles invoice import API endpoints
type ImportHandler struct {
	BaseHandler
	importService *ingestion.ImportService
	scope         costing.TransactionScope
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *ingestion.ImportService, scope costing.TransactionScope) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		scope:         scope,
	}
}

// Submit godoc
// @ID           submitImport
// @Summary      Queue an invoice extraction for import
// @Description  Stores the OCR-extracted payload as a pending import job. The job is validated and propagated asynchronously by the import worker.
// @Tags         imports
// @Accept       json
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        request body dto.ImportSubmitRequest true "Extraction payload"
// @Success      202 {object} APIResponse[dto.ImportSubmitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /imports [post]
func (h *ImportHandler) Submit(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	var req dto.ImportSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	jobID, err := h.importService.Submit(c.Request.Context(), establishmentID, req.FilePath, req.Payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.ImportSubmitResponse{ImportJobID: jobID.String()})
}

// GetJob godoc
// @ID           getImportJob
// @Summary      Get one import job
// @Description  Returns the status of an import job, including the error message when it failed.
// @Tags         imports
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Import job ID"
// @Success      200 {object} APIResponse[dto.ImportJobResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /imports/{id} [get]
func (h *ImportHandler) GetJob(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	jobID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid import job ID")
		return
	}

	var job *purchasing.ImportJob
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		job, err = repos.ImportJobRepo().FindByIDForEstablishment(c.Request.Context(), establishmentID, jobID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toImportJobResponse(job))
}

// ListRejected godoc
// @ID           listRejectedInvoices
// @Summary      List rejected invoices
// @Description  Lists every invoice the import pipeline rejected, with the rejection reason and the archived source document.
// @Tags         imports
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Success      200 {object} APIResponse[[]dto.RejectedInvoiceResponse]
// @Router       /imports/rejected [get]
func (h *ImportHandler) ListRejected(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	var rejected []purchasing.RejectedInvoice
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		rejected, err = repos.RejectedInvoiceRepo().FindAllForEstablishment(c.Request.Context(), establishmentID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.RejectedInvoiceResponse, 0, len(rejected))
	for i := range rejected {
		responses = append(responses, toRejectedInvoiceResponse(&rejected[i]))
	}

	h.Success(c, responses)
}

func toImportJobResponse(job *purchasing.ImportJob) dto.ImportJobResponse {
	return dto.ImportJobResponse{
		ID:           job.GetID().String(),
		FilePath:     job.FilePath,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
		CreatedAt:    job.GetCreatedAt(),
	}
}

func toRejectedInvoiceResponse(r *purchasing.RejectedInvoice) dto.RejectedInvoiceResponse {
	return dto.RejectedInvoiceResponse{
		ID:          r.GetID().String(),
		ImportJobID: r.ImportJobID.String(),
		FilePath:    r.FilePath,
		Reason:      r.Reason,
		ArchiveURL:  r.ArchiveURL,
		CreatedAt:   r.GetCreatedAt(),
	}
}
