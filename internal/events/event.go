// Package events defines the CRM domain events. The bus itself lives in
// platform/events; its types are aliased here so modules import one package.
package events

import (
	"time"

	"dealer_crm_backend/platform/events"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event        = events.Event
	Bus          = events.Bus
	Handler      = events.Handler
	HandlerFunc  = events.HandlerFunc
	BaseEvent    = events.BaseEvent
	InMemoryBus  = events.InMemoryBus
	TenantScoped = events.TenantScoped
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a customer record is created.
type LeadCreated struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	TenantID      uuid.UUID  `json:"tenantId"`
	AssignedRepID *uuid.UUID `json:"assignedRepId,omitempty"`
	Source        string     `json:"source,omitempty"`
	CustomerName  string     `json:"customerName"`
}

func (e LeadCreated) EventName() string      { return "leads.customer.created" }
func (e LeadCreated) EventTenant() uuid.UUID { return e.TenantID }

// LeadStatusChanged is published when a lead moves to another workflow stage.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	TenantID  uuid.UUID  `json:"tenantId"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string      { return "leads.status.changed" }
func (e LeadStatusChanged) EventTenant() uuid.UUID { return e.TenantID }

// LeadScoreChanged is published after a recalculation moved the lead's
// temperature or priority. Previous values are empty for never-scored leads.
type LeadScoreChanged struct {
	BaseEvent
	LeadID              uuid.UUID  `json:"leadId"`
	TenantID            uuid.UUID  `json:"tenantId"`
	AssignedRepID       *uuid.UUID `json:"assignedRepId,omitempty"`
	CustomerName        string     `json:"customerName"`
	Score               int        `json:"score"`
	PreviousTemperature string     `json:"previousTemperature,omitempty"`
	Temperature         string     `json:"temperature"`
	PreviousPriority    string     `json:"previousPriority,omitempty"`
	Priority            string     `json:"priority"`
	NextAction          string     `json:"nextAction"`
}

func (e LeadScoreChanged) EventName() string      { return "leads.score.changed" }
func (e LeadScoreChanged) EventTenant() uuid.UUID { return e.TenantID }

// =============================================================================
// Scheduler Domain Events
// =============================================================================

// StaleLead is one entry of a StaleLeadsDetected batch.
type StaleLead struct {
	LeadID         uuid.UUID  `json:"leadId"`
	AssignedRepID  *uuid.UUID `json:"assignedRepId,omitempty"`
	CustomerName   string     `json:"customerName"`
	Status         string     `json:"status"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// StaleLeadsDetected is published per tenant by the stale-lead detector
// with the leads that were not already alerted within the dedupe window.
type StaleLeadsDetected struct {
	BaseEvent
	TenantID  uuid.UUID     `json:"tenantId"`
	Threshold time.Duration `json:"threshold"`
	Leads     []StaleLead   `json:"leads"`
}

func (e StaleLeadsDetected) EventName() string      { return "scheduler.leads.stale_detected" }
func (e StaleLeadsDetected) EventTenant() uuid.UUID { return e.TenantID }

// DigestBucket counts open leads per temperature.
type DigestBucket struct {
	Temperature string `json:"temperature"`
	Count       int    `json:"count"`
}

// DailyDigestReady is published by the daily digest task for each tenant.
type DailyDigestReady struct {
	BaseEvent
	TenantID         uuid.UUID      `json:"tenantId"`
	OrganizationName string         `json:"organizationName"`
	DigestEmail      string         `json:"digestEmail,omitempty"`
	Date             time.Time      `json:"date"`
	NewLeads         int            `json:"newLeads"`
	OpenLeads        int            `json:"openLeads"`
	StaleLeads       int            `json:"staleLeads"`
	UrgentLeads      int            `json:"urgentLeads"`
	Temperatures     []DigestBucket `json:"temperatures"`
}

func (e DailyDigestReady) EventName() string      { return "scheduler.digest.ready" }
func (e DailyDigestReady) EventTenant() uuid.UUID { return e.TenantID }

var (
	_ TenantScoped = LeadCreated{}
	_ TenantScoped = LeadStatusChanged{}
	_ TenantScoped = LeadScoreChanged{}
	_ TenantScoped = StaleLeadsDetected{}
	_ TenantScoped = DailyDigestReady{}
)
