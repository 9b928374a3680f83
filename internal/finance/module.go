// Package finance provides the RTO and installment calculator module.
package finance

import (
	"dealer_crm_backend/internal/finance/handler"
	"dealer_crm_backend/internal/finance/service"
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"
	"dealer_crm_backend/platform/validator"
)

// Module represents the finance calculator module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	limiter *httpkit.IPRateLimiter
}

// NewModule wires the calculator routes. The routes are public so the
// storefront payment widgets can call them; perMinute caps each client IP.
func NewModule(val *validator.Validator, m *metrics.Metrics, perMinute int, log *logger.Logger) *Module {
	svc := service.New(log, m)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		limiter: httpkit.NewPerMinuteRateLimiter(perMinute, log),
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "finance"
}

// Service returns the calculator service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Public.Group("/finance", m.limiter.RateLimit())
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
