// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"dealer_crm_backend/internal/events"
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/internal/leads/handler"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/internal/leads/service"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"
	"dealer_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// rescorer may be nil when background jobs are disabled.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, m *metrics.Metrics, rescorer handler.RescoreEnqueuer, log *logger.Logger) (*Module, error) {
	if err := handler.RegisterValidations(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	scorer := scoring.New(repo, eventBus, log, scoring.WithMetrics(m))
	svc := service.New(repo, scorer, eventBus, log)

	return &Module{
		handler: handler.New(svc, rescorer, val),
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service for the scheduler's tenant rescore.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the reporting queries used by the scheduler.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
