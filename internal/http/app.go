// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"
	"net/http"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.MetricsConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (e.g., DB ping). Nil skips the check.
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Metrics serves /metrics when set and metrics are enabled.
	Metrics http.Handler
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
