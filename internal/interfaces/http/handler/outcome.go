package handler

import (
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/interfaces/http/dto"
)

// toOutcomeResponse maps a coordinator event outcome to its API shape.
func toOutcomeResponse(outcome *costing.EventOutcome) dto.OutcomeResponse {
	resp := dto.OutcomeResponse{
		State:           string(outcome.State),
		RejectionReason: outcome.RejectionReason,
		PriceChanges:    outcome.PriceChanges,
		ChangedRecipes:  outcome.ChangedRecipes,
	}
	for _, s := range outcome.Suggestions {
		if s.Article == nil {
			continue
		}
		resp.Suggestions = append(resp.Suggestions, dto.SuggestionResponse{
			MasterArticleID: s.Article.GetID().String(),
			Name:            s.Article.Name,
			Score:           s.Score,
		})
	}
	return resp
}
