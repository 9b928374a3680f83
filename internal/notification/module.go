// Package notification provides event handlers for sending notifications
// in response to domain events. Domain modules publish events; this module
// owns email addressing and templates.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"dealer_crm_backend/internal/email"
	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/notification/reps"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	kindHotLead     = "hot_lead"
	kindStaleLeads  = "stale_leads"
	kindDailyDigest = "daily_digest"

	temperatureHot = "hot"
	priorityUrgent = "urgent"
)

// RepDirectory resolves notification recipients.
type RepDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (reps.Rep, error)
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]reps.Rep, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	reps    RepDirectory
	sender  email.Sender
	cfg     config.NotificationConfig
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a new notification module. m may be nil.
func New(directory RepDirectory, sender email.Sender, cfg config.NotificationConfig, m *metrics.Metrics, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Module{reps: directory, sender: sender, cfg: cfg, metrics: m, log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadScoreChanged{}.EventName(), m)
	bus.Subscribe(events.StaleLeadsDetected{}.EventName(), m)
	bus.Subscribe(events.DailyDigestReady{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadScoreChanged:
		return m.handleLeadScoreChanged(ctx, e)
	case events.StaleLeadsDetected:
		return m.handleStaleLeadsDetected(ctx, e)
	case events.DailyDigestReady:
		return m.handleDailyDigestReady(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// becameActionable reports whether a lead just turned hot or urgent.
func becameActionable(e events.LeadScoreChanged) bool {
	turnedHot := e.Temperature == temperatureHot && e.PreviousTemperature != temperatureHot
	turnedUrgent := e.Priority == priorityUrgent && e.PreviousPriority != priorityUrgent
	return turnedHot || turnedUrgent
}

func (m *Module) handleLeadScoreChanged(ctx context.Context, e events.LeadScoreChanged) error {
	if !becameActionable(e) {
		return nil
	}
	if e.AssignedRepID == nil {
		m.log.Info("actionable lead has no assigned rep", "leadId", e.LeadID, "tenantId", e.TenantID)
		return nil
	}

	rep, err := m.reps.GetByID(ctx, *e.AssignedRepID, e.TenantID)
	if apperr.Is(err, apperr.KindNotFound) {
		m.log.Warn("assigned rep not found or inactive", "repId", *e.AssignedRepID, "leadId", e.LeadID)
		return nil
	}
	if err != nil {
		return err
	}

	err = m.sender.SendHotLeadAlert(ctx, rep.Email, email.HotLeadAlert{
		RepName:      rep.DisplayName(),
		CustomerName: e.CustomerName,
		Score:        e.Score,
		Temperature:  e.Temperature,
		Priority:     e.Priority,
		NextAction:   e.NextAction,
		LeadURL:      m.leadURL(e.LeadID),
	})
	m.record(kindHotLead, err, "leadId", e.LeadID, "repId", rep.ID)
	return err
}

func (m *Module) handleStaleLeadsDetected(ctx context.Context, e events.StaleLeadsDetected) error {
	byRep := make(map[uuid.UUID][]events.StaleLead)
	unassigned := 0
	for _, lead := range e.Leads {
		if lead.AssignedRepID == nil {
			unassigned++
			continue
		}
		byRep[*lead.AssignedRepID] = append(byRep[*lead.AssignedRepID], lead)
	}
	if unassigned > 0 {
		m.log.Info("stale leads without assigned rep", "tenantId", e.TenantID, "count", unassigned)
	}

	thresholdDays := int(e.Threshold / (24 * time.Hour))
	var errs []error
	for repID, leads := range byRep {
		rep, err := m.reps.GetByID(ctx, repID, e.TenantID)
		if apperr.Is(err, apperr.KindNotFound) {
			m.log.Warn("stale lead rep not found or inactive", "repId", repID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		err = m.sender.SendStaleLeadsReminder(ctx, rep.Email, email.StaleLeadsReminder{
			RepName:       rep.DisplayName(),
			ThresholdDays: thresholdDays,
			Leads:         m.staleLines(leads),
			DashboardURL:  m.dashboardURL(),
		})
		m.record(kindStaleLeads, err, "repId", rep.ID, "count", len(leads))
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) handleDailyDigestReady(ctx context.Context, e events.DailyDigestReady) error {
	recipients, err := m.digestRecipients(ctx, e)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		m.log.Info("daily digest has no recipients", "tenantId", e.TenantID)
		return nil
	}

	temps := make([]email.TemperatureCount, 0, len(e.Temperatures))
	for _, b := range e.Temperatures {
		temps = append(temps, email.TemperatureCount{Temperature: b.Temperature, Count: b.Count})
	}
	digest := email.DailyDigest{
		OrganizationName: e.OrganizationName,
		Date:             e.Date.Format("2006-01-02"),
		NewLeads:         e.NewLeads,
		OpenLeads:        e.OpenLeads,
		StaleLeads:       e.StaleLeads,
		UrgentLeads:      e.UrgentLeads,
		Temperatures:     temps,
		DashboardURL:     m.dashboardURL(),
	}

	var errs []error
	for _, to := range recipients {
		err := m.sender.SendDailyDigest(ctx, to, digest)
		m.record(kindDailyDigest, err, "tenantId", e.TenantID)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// digestRecipients uses the organization's digest address when set and the
// active reps otherwise.
func (m *Module) digestRecipients(ctx context.Context, e events.DailyDigestReady) ([]string, error) {
	if addr := strings.TrimSpace(e.DigestEmail); addr != "" {
		return []string{addr}, nil
	}
	active, err := m.reps.ListActive(ctx, e.TenantID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(active))
	for _, rep := range active {
		recipients = append(recipients, rep.Email)
	}
	return recipients, nil
}

func (m *Module) staleLines(leads []events.StaleLead) []email.StaleLead {
	sort.Slice(leads, func(i, j int) bool { return olderFirst(leads[i].LastActivityAt, leads[j].LastActivityAt) })
	lines := make([]email.StaleLead, 0, len(leads))
	for _, lead := range leads {
		last := "never"
		if lead.LastActivityAt != nil {
			last = lead.LastActivityAt.Format("2006-01-02")
		}
		lines = append(lines, email.StaleLead{
			CustomerName: lead.CustomerName,
			Status:       lead.Status,
			LastActivity: last,
			LeadURL:      m.leadURL(lead.LeadID),
		})
	}
	return lines
}

// olderFirst orders leads with no activity first, then by oldest activity.
func olderFirst(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

func (m *Module) record(kind string, err error, args ...any) {
	m.metrics.ObserveNotification(kind, err)
	if err != nil {
		m.log.Error("notification send failed", append([]any{"kind", kind, "error", err}, args...)...)
		return
	}
	m.log.Info("notification sent", append([]any{"kind", kind}, args...)...)
}

func (m *Module) baseURL() string {
	if m.cfg == nil {
		return ""
	}
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
}

func (m *Module) leadURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/leads/%s", m.baseURL(), id)
}

func (m *Module) dashboardURL() string {
	return m.baseURL() + "/leads"
}
