package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/interfaces/http/dto"
)

// marginDateLayout is the query parameter date format.
const marginDateLayout = "2006-01-02"

// MarginHandler handles margin aggregate API endpoints
type MarginHandler struct {
	BaseHandler
	scope costing.TransactionScope
}

// NewMarginHandler creates a new MarginHandler
func NewMarginHandler(scope costing.TransactionScope) *MarginHandler {
	return &MarginHandler{scope: scope}
}

// parseDateQuery reads the "date" query parameter, defaulting to today.
func parseDateQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(marginDateLayout, raw)
}

// GetDaily godoc
// @ID           getDailyMargin
// @Summary      Get the establishment-wide margin aggregate for one day
// @Tags         margins
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        date query string false "Day to read (YYYY-MM-DD, defaults to today)"
// @Success      200 {object} APIResponse[dto.MarginResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /margins/daily [get]
func (h *MarginHandler) GetDaily(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	date, err := parseDateQuery(c)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	var row *margin.RecipeMargin
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		row, err = repos.MarginRepo().FindRecipeMargin(c.Request.Context(), establishmentID, date)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MarginResponse{
		Date:          row.Date,
		AverageMargin: row.AverageMargin,
		RecipeCount:   row.RecipeCount,
	})
}

// GetLiveScore godoc
// @ID           getLiveScore
// @Summary      Get one live score reading for a day
// @Tags         margins
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        date query string false "Day to read (YYYY-MM-DD, defaults to today)"
// @Param        type query string false "Score type: purchase, recipe, financial, global (defaults to global)"
// @Success      200 {object} APIResponse[dto.LiveScoreResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /margins/live-score [get]
func (h *MarginHandler) GetLiveScore(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	date, err := parseDateQuery(c)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	scoreType := margin.ScoreType(c.DefaultQuery("type", string(margin.ScoreTypeGlobal)))
	switch scoreType {
	case margin.ScoreTypePurchase, margin.ScoreTypeRecipe, margin.ScoreTypeFinancial, margin.ScoreTypeGlobal:
	default:
		h.BadRequest(c, "Invalid score type")
		return
	}

	var row *margin.LiveScore
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		row, err = repos.MarginRepo().FindLiveScore(c.Request.Context(), establishmentID, date, scoreType)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.LiveScoreResponse{
		Date:  row.Date,
		Type:  string(row.Type),
		Score: row.Score,
	})
}
