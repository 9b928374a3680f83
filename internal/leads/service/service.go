// Package service implements lead workflows around the scoring engine:
// intake, updates, status changes and activity logging. Every write that
// can affect the score recalculates it before returning.
package service

import (
	"context"
	"fmt"
	"strings"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/phone"
	"dealer_crm_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultActivityLimit = 100
	bulkConcurrency      = 8
)

// Repository defines the data access interface needed by the leads service.
type Repository interface {
	repository.CustomerReader
	repository.CustomerWriter
	repository.ActivityStore
}

// Scorer recalculates and persists lead scores.
type Scorer interface {
	Recalculate(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (*scoring.Result, error)
	RecalculateRecord(ctx context.Context, customer repository.Customer) (*scoring.Result, error)
	Assess(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (scoring.Assessment, error)
}

// Service handles lead operations.
type Service struct {
	repo   Repository
	scorer Scorer
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new leads service.
func New(repo Repository, scorer Scorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, scorer: scorer, bus: bus, log: log}
}

// Create stores a new lead and scores it.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateCustomerParams{
		OrganizationID:   tenantID,
		FirstName:        sanitize.Line(req.FirstName),
		LastName:         sanitize.Line(req.LastName),
		Email:            optionalEmail(req.Email),
		Phone:            optionalPhone(req.Phone),
		Status:           domain.StatusNew,
		StockNumber:      sanitize.LinePtr(&req.StockNumber),
		FinancingType:    optionalLower(req.FinancingType),
		HasAppliedCredit: req.HasAppliedCredit,
		Source:           sanitize.LinePtr(&req.Source),
	}
	if params.FirstName == "" {
		return transport.LeadResponse{}, apperr.Validation("first name is required").WithOp("leads.Create")
	}
	if req.AssignedRepID.Set {
		params.AssignedRepID = req.AssignedRepID.Value
	}

	customer, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	result, err := s.scorer.RecalculateRecord(ctx, customer)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.publish(ctx, events.LeadCreated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        customer.ID,
		TenantID:      tenantID,
		AssignedRepID: customer.AssignedRepID,
		Source:        valueOrEmpty(customer.Source),
		CustomerName:  customer.FullName(),
	})

	return withResult(toLeadResponse(customer), result), nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.LeadResponse, error) {
	customer, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(customer), nil
}

// List returns one page of leads.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	params := repository.ListParams{
		OrganizationID: tenantID,
		Search:         strings.TrimSpace(req.Search),
		Offset:         (req.Page - 1) * req.PageSize,
		Limit:          req.PageSize,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
	}
	if req.Status != "" {
		status := domain.NormalizeStatus(req.Status)
		params.Status = &status
	}
	if req.Temperature != "" {
		params.Temperature = &req.Temperature
	}
	if req.Priority != "" {
		params.Priority = &req.Priority
	}
	if req.AssignedRepID != "" {
		repID, err := uuid.Parse(req.AssignedRepID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.BadRequest("invalid assignedRepId")
		}
		params.AssignedRepID = &repID
	}

	customers, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(customers))
	for _, c := range customers {
		items = append(items, toLeadResponse(c))
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}, nil
}

// Update applies a partial update and rescores.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateDetailsParams{
		FirstName:        sanitize.LinePtr(req.FirstName),
		LastName:         sanitize.LinePtr(req.LastName),
		HasAppliedCredit: req.HasAppliedCredit,
		Source:           sanitize.LinePtr(req.Source),
	}
	if req.Email.Set {
		params.Email = optionalEmail(valueOrEmpty(req.Email.Value))
		params.ClearEmail = params.Email == nil
	}
	if req.Phone.Set {
		params.Phone = optionalPhone(valueOrEmpty(req.Phone.Value))
		params.ClearPhone = params.Phone == nil
	}
	if req.StockNumber.Set {
		params.StockNumber = sanitize.LinePtr(req.StockNumber.Value)
		params.ClearStockNumber = params.StockNumber == nil
	}
	if req.FinancingType != nil {
		params.FinancingType = optionalLower(*req.FinancingType)
	}
	if req.AssignedRepID.Set {
		params.AssignedRepID = req.AssignedRepID.Value
		params.ClearAssignedRep = req.AssignedRepID.Value == nil
	}

	customer, err := s.repo.UpdateDetails(ctx, id, tenantID, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	result, err := s.scorer.RecalculateRecord(ctx, customer)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return withResult(toLeadResponse(customer), result), nil
}

// UpdateStatus moves a lead to another stage and rescores it. Days in stage
// is evaluated against the record as loaded, so it reports how long the
// lead sat in the stage it is leaving.
func (s *Service) UpdateStatus(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, actorID *uuid.UUID, status string) (transport.LeadResponse, error) {
	status = domain.NormalizeStatus(status)
	if !domain.IsKnownStatus(status) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown status %q", status)).WithOp("leads.UpdateStatus")
	}

	current, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:             id,
		OrganizationID: tenantID,
		Status:         status,
		MarkApplied:    domain.MarksCreditApplication(status),
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	scoreInput := updated
	scoreInput.UpdatedAt = current.UpdatedAt

	result, err := s.scorer.RecalculateRecord(ctx, scoreInput)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if current.Status != status {
		s.publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			TenantID:  tenantID,
			ActorID:   actorID,
			OldStatus: current.Status,
			NewStatus: status,
		})
	}

	return withResult(toLeadResponse(updated), result), nil
}

// BulkUpdateStatus applies UpdateStatus to many leads with bounded
// parallelism. One failing lead does not stop the others.
func (s *Service) BulkUpdateStatus(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, ids []uuid.UUID, status string) (transport.BulkStatusResponse, error) {
	status = domain.NormalizeStatus(status)
	if !domain.IsKnownStatus(status) {
		return transport.BulkStatusResponse{}, apperr.Validation(fmt.Sprintf("unknown status %q", status)).WithOp("leads.BulkUpdateStatus")
	}

	results := make([]transport.BulkStatusResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = transport.BulkStatusResult{ID: id}
			lead, err := s.UpdateStatus(gctx, tenantID, id, actorID, status)
			if err != nil {
				results[i].Error = err.Error()
				if s.log != nil {
					s.log.Warn("bulk status update failed", "leadId", id, "error", err)
				}
				return nil
			}
			results[i].Status = lead.Status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transport.BulkStatusResponse{}, err
	}

	resp := transport.BulkStatusResponse{Results: results}
	for _, r := range results {
		if r.Error != "" {
			resp.Failed++
		} else {
			resp.Updated++
		}
	}
	return resp, nil
}

// LogActivity records an interaction and rescores the lead.
func (s *Service) LogActivity(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, actorID *uuid.UUID, req transport.CreateActivityRequest) (transport.ActivityResponse, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if !domain.IsKnownActivityKind(kind) {
		return transport.ActivityResponse{}, apperr.Validation(fmt.Sprintf("unknown activity kind %q", kind)).WithOp("leads.LogActivity")
	}

	activity, err := s.repo.AddActivity(ctx, repository.AddActivityParams{
		OrganizationID: tenantID,
		CustomerID:     leadID,
		Kind:           kind,
		Body:           sanitize.Text(req.Body),
		CreatedBy:      actorID,
	})
	if err != nil {
		return transport.ActivityResponse{}, err
	}

	if _, err := s.scorer.Recalculate(ctx, leadID, tenantID); err != nil {
		return transport.ActivityResponse{}, err
	}
	return toActivityResponse(activity), nil
}

// ListActivities returns recent activities, newest first.
func (s *Service) ListActivities(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID) (transport.ActivityListResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return transport.ActivityListResponse{}, err
	}
	activities, err := s.repo.ListActivities(ctx, leadID, tenantID, defaultActivityLimit)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}
	items := make([]transport.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityResponse(a))
	}
	return transport.ActivityListResponse{Items: items}, nil
}

// Recalculate rescores one lead on demand.
func (s *Service) Recalculate(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.LeadResponse, error) {
	customer, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	result, err := s.scorer.RecalculateRecord(ctx, customer)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return withResult(toLeadResponse(customer), result), nil
}

// Assess evaluates a lead live, including the suggested next action,
// without persisting.
func (s *Service) Assess(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.AssessmentResponse, error) {
	assessment, err := s.scorer.Assess(ctx, id, tenantID)
	if err != nil {
		return transport.AssessmentResponse{}, err
	}
	return toAssessmentResponse(id, assessment), nil
}

// RescoreTenant recalculates every lead of a tenant. It returns the number
// of leads rescored; individual failures are logged and skipped.
func (s *Service) RescoreTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	ids, err := s.repo.ListIDsForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	scored := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.scorer.Recalculate(gctx, id, tenantID); err != nil {
				if s.log != nil {
					s.log.Warn("tenant rescore skipped lead", "leadId", id, "tenantId", tenantID, "error", err)
				}
				return nil
			}
			scored[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, ok := range scored {
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func optionalEmail(value string) *string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalPhone(value string) *string {
	normalized := phone.NormalizeE164(value)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func optionalLower(value string) *string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
