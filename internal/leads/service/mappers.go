package service

import (
	"encoding/json"

	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/internal/leads/transport"

	"github.com/google/uuid"
)

func toLeadResponse(c repository.Customer) transport.LeadResponse {
	return transport.LeadResponse{
		ID:               c.ID,
		AssignedRepID:    c.AssignedRepID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Phone:            c.Phone,
		Status:           c.Status,
		StockNumber:      c.StockNumber,
		FinancingType:    c.FinancingType,
		Applied:          c.Applied,
		HasAppliedCredit: c.HasAppliedCredit,
		Source:           c.Source,
		LastActivityAt:   c.LastActivityAt,
		Score: transport.ScoreResponse{
			Score:       c.LeadScore,
			Temperature: c.Temperature,
			Priority:    c.Priority,
			DaysInStage: c.DaysInStage,
			Factors:     json.RawMessage(c.ScoreFactors),
			Version:     c.ScoreVersion,
			UpdatedAt:   c.ScoreUpdatedAt,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// withResult overlays a fresh recalculation onto a response built from the
// row as it was before the score was written.
func withResult(resp transport.LeadResponse, result *scoring.Result) transport.LeadResponse {
	if result == nil {
		return resp
	}
	version := result.Version
	updatedAt := result.UpdatedAt
	resp.Score = transport.ScoreResponse{
		Score:       result.Score,
		Temperature: string(result.Temperature),
		Priority:    string(result.Priority),
		DaysInStage: result.DaysInStage,
		Factors:     json.RawMessage(result.FactorsJSON),
		Version:     &version,
		UpdatedAt:   &updatedAt,
	}
	return resp
}

func toActivityResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:        a.ID,
		Kind:      a.Kind,
		Body:      a.Body,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
	}
}

func toAssessmentResponse(id uuid.UUID, a scoring.Assessment) transport.AssessmentResponse {
	factors, _ := json.Marshal(a.Factors)
	return transport.AssessmentResponse{
		LeadID:      id,
		Score:       a.Score,
		Temperature: string(a.Temperature),
		Priority:    string(a.Priority),
		DaysInStage: a.DaysInStage,
		NextAction:  a.NextAction,
		Factors:     factors,
	}
}
