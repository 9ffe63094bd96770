package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice and invoice line API endpoints. Every
// mutation goes through the transaction coordinator so corrections repropagate
// costs the same way an import does.
type InvoiceHandler struct {
	BaseHandler
	coordinator *costing.Coordinator
	scope       costing.TransactionScope
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(coordinator *costing.Coordinator, scope costing.TransactionScope) *InvoiceHandler {
	return &InvoiceHandler{
		coordinator: coordinator,
		scope:       scope,
	}
}

// GetByID godoc
// @ID           getInvoice
// @Summary      Get one invoice with its lines
// @Tags         invoices
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[dto.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var invoice *purchasing.Invoice
	var lines []purchasing.Article
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		invoice, err = repos.InvoiceRepo().FindByIDForEstablishment(c.Request.Context(), establishmentID, invoiceID)
		if err != nil {
			return err
		}
		lines, err = repos.ArticleRepo().FindByInvoice(c.Request.Context(), invoiceID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice, lines))
}

// Delete godoc
// @ID           deleteInvoice
// @Summary      Delete an invoice and repropagate costs
// @Description  Removes the invoice with all its lines, recomputes the affected current prices, and repropagates ingredient and recipe costs.
// @Tags         invoices
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	outcome, err := h.coordinator.DeleteInvoice(c.Request.Context(), establishmentID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

// UpdateArticle godoc
// @ID           updateArticle
// @Summary      Correct the unit price of one invoice line
// @Description  Applies a manual price correction and repropagates it through current prices, ingredient costs, recipe costs, history, and margins.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Article ID"
// @Param        request body dto.ArticleEditRequest true "Price correction"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /articles/{id} [put]
func (h *InvoiceHandler) UpdateArticle(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	articleID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid article ID")
		return
	}

	var req dto.ArticleEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.coordinator.EditArticle(c.Request.Context(), &costing.ArticleEditInput{
		EstablishmentID: establishmentID,
		ArticleID:       articleID,
		UnitPrice:       req.UnitPrice,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

// DeleteArticle godoc
// @ID           deleteArticle
// @Summary      Delete one invoice line and repropagate costs
// @Tags         invoices
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Article ID"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /articles/{id} [delete]
func (h *InvoiceHandler) DeleteArticle(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	articleID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid article ID")
		return
	}

	outcome, err := h.coordinator.DeleteArticle(c.Request.Context(), establishmentID, articleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

func toInvoiceResponse(invoice *purchasing.Invoice, lines []purchasing.Article) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:           invoice.GetID().String(),
		SupplierID:   invoice.SupplierID.String(),
		SupplierName: invoice.SupplierName,
		Reference:    invoice.Reference,
		InvoiceDate:  invoice.InvoiceDate,
		TotalExclTax: invoice.TotalExclTax,
		TotalInclTax: invoice.TotalInclTax,
		FilePath:     invoice.FilePath,
		Lines:        make([]dto.ArticleResponse, 0, len(lines)),
	}
	for i := range lines {
		resp.Lines = append(resp.Lines, toArticleResponse(&lines[i]))
	}
	return resp
}

func toArticleResponse(article *purchasing.Article) dto.ArticleResponse {
	return dto.ArticleResponse{
		ID:              article.GetID().String(),
		MasterArticleID: article.MasterArticleID.String(),
		Name:            article.Name,
		Quantity:        article.Quantity,
		Unit:            article.Unit,
		UnitPrice:       article.UnitPrice,
		InvoiceDate:     article.InvoiceDate,
	}
}
