package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/history"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/interfaces/http/dto"
)

// RecipeHandler handles recipe and ingredient API endpoints
type RecipeHandler struct {
	BaseHandler
	coordinator *costing.Coordinator
	scope       costing.TransactionScope
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(coordinator *costing.Coordinator, scope costing.TransactionScope) *RecipeHandler {
	return &RecipeHandler{
		coordinator: coordinator,
		scope:       scope,
	}
}

// List godoc
// @ID           listRecipes
// @Summary      List active recipes
// @Tags         recipes
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Success      200 {object} APIResponse[[]dto.RecipeResponse]
// @Router       /recipes [get]
func (h *RecipeHandler) List(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	var recipes []recipe.Recipe
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		recipes, err = repos.RecipeRepo().FindActiveForEstablishment(c.Request.Context(), establishmentID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		responses = append(responses, toRecipeResponse(&recipes[i], nil))
	}

	h.Success(c, responses)
}

// GetByID godoc
// @ID           getRecipe
// @Summary      Get one recipe with its ingredients
// @Tags         recipes
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Recipe ID"
// @Success      200 {object} APIResponse[dto.RecipeResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id} [get]
func (h *RecipeHandler) GetByID(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid recipe ID")
		return
	}

	var rec *recipe.Recipe
	var ingredients []recipe.Ingredient
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		rec, err = repos.RecipeRepo().FindByIDForEstablishment(c.Request.Context(), establishmentID, recipeID)
		if err != nil {
			return err
		}
		ingredients, err = repos.IngredientRepo().FindByRecipe(c.Request.Context(), recipeID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRecipeResponse(rec, ingredients))
}

// Update godoc
// @ID           updateRecipe
// @Summary      Update a recipe's selling price or portion count
// @Description  Either field triggers a cost recompute; a portion change cascades through recipes that use this one as a sub-recipe.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Recipe ID"
// @Param        request body dto.RecipeEditRequest true "Recipe edit"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id} [put]
func (h *RecipeHandler) Update(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid recipe ID")
		return
	}

	var req dto.RecipeEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.coordinator.EditRecipe(c.Request.Context(), &costing.RecipeEditInput{
		EstablishmentID: establishmentID,
		RecipeID:        recipeID,
		PriceExclTax:    req.PriceExclTax,
		Portions:        req.Portions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

// Delete godoc
// @ID           deleteRecipe
// @Summary      Soft-delete a recipe
// @Description  Deactivates the recipe and writes its closing history snapshot. Fails while other recipes still use it as a sub-recipe.
// @Tags         recipes
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Recipe ID"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /recipes/{id} [delete]
func (h *RecipeHandler) Delete(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid recipe ID")
		return
	}

	outcome, err := h.coordinator.DeleteRecipe(c.Request.Context(), establishmentID, recipeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

// Duplicate godoc
// @ID           duplicateRecipe
// @Summary      Duplicate a recipe under a new name
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Recipe ID"
// @Param        request body dto.RecipeDuplicateRequest true "New recipe name"
// @Success      201 {object} APIResponse[dto.RecipeDuplicateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id}/duplicate [post]
func (h *RecipeHandler) Duplicate(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid recipe ID")
		return
	}

	var req dto.RecipeDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	newID, outcome, err := h.coordinator.DuplicateRecipe(c.Request.Context(), &costing.RecipeDuplicateInput{
		EstablishmentID: establishmentID,
		RecipeID:        recipeID,
		Name:            req.Name,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.RecipeDuplicateResponse{
		RecipeID: newID.String(),
		Outcome:  toOutcomeResponse(outcome),
	})
}

// UpdateIngredient godoc
// @ID           updateIngredient
// @Summary      Edit one recipe ingredient
// @Description  Updates quantity, loss percentage, or the unit cost of a fixed-cost ingredient, then repropagates recipe costs.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Ingredient ID"
// @Param        request body dto.IngredientEditRequest true "Ingredient edit"
// @Success      200 {object} APIResponse[dto.OutcomeResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /ingredients/{id} [put]
func (h *RecipeHandler) UpdateIngredient(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	ingredientID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ingredient ID")
		return
	}

	var req dto.IngredientEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.coordinator.EditIngredient(c.Request.Context(), &costing.IngredientEditInput{
		EstablishmentID: establishmentID,
		IngredientID:    ingredientID,
		Quantity:        req.Quantity,
		PercentageLoss:  req.PercentageLoss,
		UnitCost:        req.UnitCost,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutcomeResponse(outcome))
}

// History godoc
// @ID           getRecipeHistory
// @Summary      List the immutable version history of a recipe
// @Description  Returns every committed snapshot in version order, including the closing snapshot of a deleted recipe.
// @Tags         recipes
// @Produce      json
// @Param        X-Establishment-ID header string true "Establishment ID"
// @Param        id path string true "Recipe ID"
// @Success      200 {object} APIResponse[[]dto.RecipeHistoryEntry]
// @Router       /recipes/{id}/history [get]
func (h *RecipeHandler) History(c *gin.Context) {
	establishmentID, err := getEstablishmentID(c)
	if err != nil {
		h.Unauthorized(c, "Establishment identification required")
		return
	}

	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid recipe ID")
		return
	}

	var snapshots []history.RecipeSnapshot
	err = h.scope.Execute(c.Request.Context(), func(repos costing.TransactionalRepositories) error {
		snapshots, err = repos.RecipeSnapshotRepo().FindByRecipe(c.Request.Context(), recipeID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	// History outlives the recipe itself, so scope is checked per snapshot
	// instead of through the recipes table.
	entries := make([]dto.RecipeHistoryEntry, 0, len(snapshots))
	for i := range snapshots {
		if snapshots[i].EstablishmentID != establishmentID {
			continue
		}
		entries = append(entries, toRecipeHistoryEntry(&snapshots[i]))
	}

	h.Success(c, entries)
}

func toRecipeResponse(rec *recipe.Recipe, ingredients []recipe.Ingredient) dto.RecipeResponse {
	resp := dto.RecipeResponse{
		ID:                     rec.GetID().String(),
		Name:                   rec.Name,
		Category:               rec.Category,
		Subcategory:            rec.Subcategory,
		Portions:               rec.Portions,
		PriceExclTax:           rec.PriceExclTax,
		PurchaseCostTotal:      rec.PurchaseCostTotal,
		PurchaseCostPerPortion: rec.PurchaseCostPerPortion,
		CurrentMargin:          rec.CurrentMargin,
		Active:                 rec.Active,
	}
	for i := range ingredients {
		resp.Ingredients = append(resp.Ingredients, toIngredientResponse(&ingredients[i]))
	}
	return resp
}

func toIngredientResponse(ing *recipe.Ingredient) dto.IngredientResponse {
	resp := dto.IngredientResponse{
		ID:                 ing.GetID().String(),
		Type:               string(ing.Type),
		Name:               ing.Name,
		Quantity:           ing.Quantity,
		Unit:               ing.Unit,
		UnitCost:           ing.UnitCost,
		PercentageLoss:     ing.PercentageLoss,
		UnitCostPerPortion: ing.UnitCostPerPortion,
		SortOrder:          ing.SortOrder,
	}
	if ing.MasterArticleID != nil {
		resp.MasterArticleID = ing.MasterArticleID.String()
	}
	if ing.SubRecipeID != nil {
		resp.SubRecipeID = ing.SubRecipeID.String()
	}
	return resp
}

func toRecipeHistoryEntry(s *history.RecipeSnapshot) dto.RecipeHistoryEntry {
	return dto.RecipeHistoryEntry{
		VersionNumber:          s.VersionNumber,
		EffectiveDate:          s.EffectiveDate,
		Name:                   s.Name,
		Portions:               s.Portions,
		PriceExclTax:           s.PriceExclTax,
		PurchaseCostTotal:      s.PurchaseCostTotal,
		PurchaseCostPerPortion: s.PurchaseCostPerPortion,
		Margin:                 s.Margin,
		Closing:                s.Closing,
	}
}
