package scheduler

import (
	"context"
	"strings"
	"time"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/domain"
	leadsrepo "dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	defaultStaleScanInterval = time.Hour
	defaultStaleThreshold    = 7 * 24 * time.Hour
	staleScanBatch           = 500
)

// IsStale reports whether an open lead has gone quiet. A lead that never
// had any activity is stale. This differs from the scoring engine, which
// neither rewards nor penalizes a missing last activity.
func IsStale(status string, lastActivityAt *time.Time, now time.Time, threshold time.Duration) bool {
	if domain.IsClosedStatus(status) {
		return false
	}
	if lastActivityAt == nil {
		return true
	}
	return lastActivityAt.Before(now.Add(-threshold))
}

// StaleLeadSource pages through stale candidates across tenants, ordered by
// id and starting after the given id.
type StaleLeadSource interface {
	ListStaleCandidates(ctx context.Context, cutoff time.Time, after uuid.UUID, limit int) ([]leadsrepo.StaleCandidate, error)
}

// Deduper suppresses repeated alerts for the same lead.
type Deduper interface {
	Claim(ctx context.Context, leadID uuid.UUID) (bool, error)
	Release(ctx context.Context, leadID uuid.UUID) error
}

// StaleLeadDetector periodically publishes StaleLeadsDetected per tenant.
type StaleLeadDetector struct {
	source    StaleLeadSource
	dedupe    Deduper
	bus       events.Bus
	metrics   *metrics.Metrics
	log       *logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

func NewStaleLeadDetector(source StaleLeadSource, dedupe Deduper, bus events.Bus, m *metrics.Metrics, log *logger.Logger, interval, threshold time.Duration) *StaleLeadDetector {
	if interval <= 0 {
		interval = defaultStaleScanInterval
	}
	if threshold <= 0 {
		threshold = defaultStaleThreshold
	}
	if log == nil {
		log = logger.Nop()
	}

	return &StaleLeadDetector{
		source:    source,
		dedupe:    dedupe,
		bus:       bus,
		metrics:   m,
		log:       log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

// SetClock overrides the wall clock.
func (d *StaleLeadDetector) SetClock(now func() time.Time) { d.now = now }

func (d *StaleLeadDetector) Run(ctx context.Context) {
	if d == nil || d.source == nil {
		return
	}

	d.runOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *StaleLeadDetector) runOnce(ctx context.Context) {
	alerted, err := d.Scan(ctx)
	if err != nil {
		d.log.Warn("stale lead scan failed", "error", err)
		return
	}
	if alerted > 0 {
		d.log.Info("stale lead scan alerted leads", "alerted", alerted)
	}
}

// Scan publishes one StaleLeadsDetected per tenant for leads not alerted
// within the dedupe window and returns how many leads were alerted. It pages
// through every candidate; claims taken before a failure are released.
func (d *StaleLeadDetector) Scan(ctx context.Context) (int, error) {
	now := d.now().UTC()
	cutoff := now.Add(-d.threshold)

	byTenant := make(map[uuid.UUID][]events.StaleLead)
	var order []uuid.UUID
	var claimed []events.StaleLead
	after := uuid.Nil
	for {
		batch, err := d.source.ListStaleCandidates(ctx, cutoff, after, staleScanBatch)
		if err != nil {
			d.release(ctx, claimed)
			return 0, err
		}

		for _, c := range batch {
			if !IsStale(c.Status, c.LastActivityAt, now, d.threshold) {
				continue
			}
			if d.dedupe != nil {
				ok, err := d.dedupe.Claim(ctx, c.ID)
				if err != nil {
					d.release(ctx, claimed)
					return 0, err
				}
				if !ok {
					continue
				}
			}
			lead := events.StaleLead{
				LeadID:         c.ID,
				AssignedRepID:  c.AssignedRepID,
				CustomerName:   strings.TrimSpace(c.FirstName + " " + c.LastName),
				Status:         c.Status,
				LastActivityAt: c.LastActivityAt,
			}
			claimed = append(claimed, lead)
			if _, seen := byTenant[c.OrganizationID]; !seen {
				order = append(order, c.OrganizationID)
			}
			byTenant[c.OrganizationID] = append(byTenant[c.OrganizationID], lead)
		}

		if len(batch) < staleScanBatch {
			break
		}
		after = batch[len(batch)-1].ID
	}

	alerted := 0
	for _, tenantID := range order {
		leads := byTenant[tenantID]
		if d.bus != nil {
			if err := d.bus.PublishSync(ctx, events.StaleLeadsDetected{
				BaseEvent: events.NewBaseEvent(),
				TenantID:  tenantID,
				Threshold: d.threshold,
				Leads:     leads,
			}); err != nil {
				d.log.Warn("stale lead alert failed, releasing claims", "tenantId", tenantID, "error", err)
				d.release(ctx, leads)
				continue
			}
		}
		alerted += len(leads)
	}

	d.metrics.AddStaleLeads(alerted)
	return alerted, nil
}

func (d *StaleLeadDetector) release(ctx context.Context, leads []events.StaleLead) {
	if d.dedupe == nil {
		return
	}
	for _, lead := range leads {
		if err := d.dedupe.Release(ctx, lead.LeadID); err != nil {
			d.log.Warn("stale alert release failed", "leadId", lead.LeadID, "error", err)
		}
	}
}
