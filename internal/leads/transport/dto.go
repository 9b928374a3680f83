package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName        string       `json:"firstName" validate:"required,min=1,max=100"`
	LastName         string       `json:"lastName" validate:"max=100"`
	Email            string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string       `json:"phone,omitempty" validate:"omitempty,min=3,max=25"`
	StockNumber      string       `json:"stockNumber,omitempty" validate:"max=50"`
	FinancingType    string       `json:"financingType,omitempty" validate:"omitempty,oneof=finance rto cash"`
	HasAppliedCredit bool         `json:"hasAppliedCredit"`
	Source           string       `json:"source,omitempty" validate:"max=100"`
	AssignedRepID    OptionalUUID `json:"assignedRepId,omitempty" validate:"-"`
}

type UpdateLeadRequest struct {
	FirstName        *string        `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName         *string        `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email            OptionalString `json:"email,omitempty" validate:"omitempty,email"`
	Phone            OptionalString `json:"phone,omitempty" validate:"omitempty,min=3,max=25"`
	StockNumber      OptionalString `json:"stockNumber,omitempty" validate:"omitempty,max=50"`
	FinancingType    *string        `json:"financingType,omitempty" validate:"omitempty,oneof=finance rto cash"`
	HasAppliedCredit *bool          `json:"hasAppliedCredit,omitempty"`
	Source           *string        `json:"source,omitempty" validate:"omitempty,max=100"`
	AssignedRepID    OptionalUUID   `json:"assignedRepId,omitempty" validate:"-"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,leadstatus"`
}

type BulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=200"`
	Status string      `json:"status" validate:"required,leadstatus"`
}

type CreateActivityRequest struct {
	Kind string `json:"kind" validate:"required,activitykind"`
	Body string `json:"body" validate:"max=4000"`
}

type ListLeadsRequest struct {
	Status        string `form:"status" validate:"omitempty,leadstatus"`
	Temperature   string `form:"temperature" validate:"omitempty,oneof=hot warm cold dead"`
	Priority      string `form:"priority" validate:"omitempty,oneof=urgent high medium low"`
	AssignedRepID string `form:"assignedRepId" validate:"omitempty,uuid"`
	Search        string `form:"search" validate:"max=100"`
	Page          int    `form:"page" validate:"min=1"`
	PageSize      int    `form:"pageSize" validate:"min=1,max=100"`
	SortBy        string `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt lastActivityAt score lastName"`
	SortOrder     string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Response DTOs
type ScoreResponse struct {
	Score       int             `json:"score"`
	Temperature string          `json:"temperature"`
	Priority    string          `json:"priority"`
	DaysInStage int             `json:"daysInStage"`
	Factors     json.RawMessage `json:"factors,omitempty"`
	Version     *string         `json:"version,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

type LeadResponse struct {
	ID               uuid.UUID     `json:"id"`
	AssignedRepID    *uuid.UUID    `json:"assignedRepId,omitempty"`
	FirstName        string        `json:"firstName"`
	LastName         string        `json:"lastName"`
	Email            *string       `json:"email,omitempty"`
	Phone            *string       `json:"phone,omitempty"`
	Status           string        `json:"status"`
	StockNumber      *string       `json:"stockNumber,omitempty"`
	FinancingType    *string       `json:"financingType,omitempty"`
	Applied          bool          `json:"applied"`
	HasAppliedCredit bool          `json:"hasAppliedCredit"`
	Source           *string       `json:"source,omitempty"`
	LastActivityAt   *time.Time    `json:"lastActivityAt,omitempty"`
	Score            ScoreResponse `json:"score"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ActivityResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Body      string     `json:"body"`
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
}

// AssessmentResponse is a live evaluation of a stored lead.
type AssessmentResponse struct {
	LeadID      uuid.UUID       `json:"leadId"`
	Score       int             `json:"score"`
	Temperature string          `json:"temperature"`
	Priority    string          `json:"priority"`
	DaysInStage int             `json:"daysInStage"`
	NextAction  string          `json:"nextAction"`
	Factors     json.RawMessage `json:"factors"`
}

type BulkStatusResult struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type BulkStatusResponse struct {
	Updated int                `json:"updated"`
	Failed  int                `json:"failed"`
	Results []BulkStatusResult `json:"results"`
}

type RescoreEnqueuedResponse struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}
