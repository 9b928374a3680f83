package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic.
	scoreVersion = "2026-rto-v1"

	// activityWindow is how many recent activities feed a recalculation.
	activityWindow = 50
)

// Repository is the subset of the leads repository the scorer needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Customer, error)
	ListActivities(ctx context.Context, customerID uuid.UUID, organizationID uuid.UUID, limit int) ([]repository.Activity, error)
	ApplyScore(ctx context.Context, params repository.ApplyScoreParams) error
}

// Result holds a persisted recalculation.
type Result struct {
	Assessment
	LeadID      uuid.UUID
	FactorsJSON []byte
	Version     string
	UpdatedAt   time.Time
	Changed     bool
}

// Service loads a customer, runs the engine and writes the score back.
type Service struct {
	repo    Repository
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records every recalculation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a new scoring service. bus may be nil.
func New(repo Repository, bus events.Bus, log *logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess evaluates a stored customer without persisting anything.
func (s *Service) Assess(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Assessment, error) {
	customer, activities, err := s.load(ctx, leadID, tenantID)
	if err != nil {
		return Assessment{}, err
	}
	return Evaluate(FromRecord(customer), activities, s.now()), nil
}

// Recalculate scores a lead, persists the score columns and publishes
// LeadScoreChanged when the temperature or priority moved.
func (s *Service) Recalculate(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (*Result, error) {
	customer, activities, err := s.load(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, customer, activities)
}

// RecalculateRecord is Recalculate for a customer the caller already loaded,
// for example right after a status update returned the new row.
func (s *Service) RecalculateRecord(ctx context.Context, customer repository.Customer) (*Result, error) {
	activities, err := s.listActivities(ctx, customer.ID, customer.OrganizationID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, customer, activities)
}

func (s *Service) load(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (repository.Customer, []Activity, error) {
	customer, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return repository.Customer{}, nil, err
	}
	activities, err := s.listActivities(ctx, leadID, tenantID)
	if err != nil {
		return repository.Customer{}, nil, err
	}
	return customer, activities, nil
}

func (s *Service) listActivities(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]Activity, error) {
	records, err := s.repo.ListActivities(ctx, leadID, tenantID, activityWindow)
	if err != nil {
		return nil, err
	}
	activities := make([]Activity, 0, len(records))
	for _, a := range records {
		activities = append(activities, Activity{Kind: a.Kind, CreatedAt: a.CreatedAt})
	}
	return activities, nil
}

func (s *Service) apply(ctx context.Context, customer repository.Customer, activities []Activity) (*Result, error) {
	now := s.now()
	assessment := Evaluate(FromRecord(customer), activities, now)

	factorsJSON, err := json.Marshal(assessment.Factors)
	if err != nil {
		return nil, fmt.Errorf("marshal score factors: %w", err)
	}

	if err := s.repo.ApplyScore(ctx, repository.ApplyScoreParams{
		ID:             customer.ID,
		OrganizationID: customer.OrganizationID,
		Score:          assessment.Score,
		Temperature:    string(assessment.Temperature),
		Priority:       string(assessment.Priority),
		DaysInStage:    assessment.DaysInStage,
		FactorsJSON:    factorsJSON,
		Version:        scoreVersion,
		UpdatedAt:      now,
	}); err != nil {
		return nil, err
	}

	previousTemperature, previousPriority := "", ""
	if customer.ScoreUpdatedAt != nil {
		previousTemperature, previousPriority = customer.Temperature, customer.Priority
	}
	changed := previousTemperature != string(assessment.Temperature) || previousPriority != string(assessment.Priority)

	if s.log != nil {
		s.log.LeadScored(customer.ID.String(), customer.OrganizationID.String(), assessment.Score,
			string(assessment.Temperature), string(assessment.Priority))
	}
	s.metrics.ObserveLeadScore(assessment.Score, string(assessment.Temperature))

	if changed && s.bus != nil {
		s.bus.Publish(ctx, events.LeadScoreChanged{
			BaseEvent:           events.NewBaseEvent(),
			LeadID:              customer.ID,
			TenantID:            customer.OrganizationID,
			AssignedRepID:       customer.AssignedRepID,
			CustomerName:        customer.FullName(),
			Score:               assessment.Score,
			PreviousTemperature: previousTemperature,
			Temperature:         string(assessment.Temperature),
			PreviousPriority:    previousPriority,
			Priority:            string(assessment.Priority),
			NextAction:          assessment.NextAction,
		})
	}

	return &Result{
		Assessment:  assessment,
		LeadID:      customer.ID,
		FactorsJSON: factorsJSON,
		Version:     scoreVersion,
		UpdatedAt:   now,
		Changed:     changed,
	}, nil
}

// FromRecord maps a stored customer to engine input.
func FromRecord(c repository.Customer) Customer {
	financingType := ""
	if c.FinancingType != nil {
		financingType = *c.FinancingType
	}
	return Customer{
		Applied:          c.Applied,
		HasAppliedCredit: c.HasAppliedCredit,
		LastActivityAt:   c.LastActivityAt,
		StockNumber:      c.StockNumber,
		FinancingType:    financingType,
		Email:            c.Email,
		Phone:            c.Phone,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
