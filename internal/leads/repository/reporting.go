package repository

import (
	"context"
	"fmt"
	"time"

	"dealer_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// StaleCandidate is an open customer whose last activity is missing or
// older than the detector cutoff.
type StaleCandidate struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	AssignedRepID  *uuid.UUID
	FirstName      string
	LastName       string
	Status         string
	LastActivityAt *time.Time
}

// Organization is a dealership tenant.
type Organization struct {
	ID          uuid.UUID
	Name        string
	DigestEmail *string
}

// TenantSummary backs the daily digest.
type TenantSummary struct {
	NewLeads     int
	OpenLeads    int
	StaleLeads   int
	UrgentLeads  int
	Temperatures map[string]int
}

// ListStaleCandidates returns up to limit open customers across all tenants
// with no activity since cutoff, ordered by id. Pass the last id of the
// previous page as after (uuid.Nil for the first page). A NULL
// last_activity_at counts as stale.
func (r *Repository) ListStaleCandidates(ctx context.Context, cutoff time.Time, after uuid.UUID, limit int) ([]StaleCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, assigned_rep_id, first_name, last_name, status, last_activity_at
		FROM crm_customers
		WHERE status <> ALL($1)
			AND (last_activity_at IS NULL OR last_activity_at < $2)
			AND id > $3
		ORDER BY id
		LIMIT $4
	`, domain.ClosedStatuses, cutoff, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale candidates: %w", err)
	}
	defer rows.Close()

	items := make([]StaleCandidate, 0)
	for rows.Next() {
		var c StaleCandidate
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.AssignedRepID, &c.FirstName, &c.LastName, &c.Status, &c.LastActivityAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ListOrganizations returns every tenant.
func (r *Repository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, digest_email FROM crm_organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	items := make([]Organization, 0)
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.DigestEmail); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// SummarizeTenant counts open leads for one organization. New leads are
// those created since the given time; stale uses the same rule as
// ListStaleCandidates.
func (r *Repository) SummarizeTenant(ctx context.Context, organizationID uuid.UUID, since time.Time, staleCutoff time.Time) (TenantSummary, error) {
	summary := TenantSummary{Temperatures: make(map[string]int)}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $3),
			COUNT(*),
			COUNT(*) FILTER (WHERE last_activity_at IS NULL OR last_activity_at < $4),
			COUNT(*) FILTER (WHERE priority = 'urgent')
		FROM crm_customers
		WHERE organization_id = $1 AND status <> ALL($2)
	`, organizationID, domain.ClosedStatuses, since, staleCutoff).Scan(
		&summary.NewLeads, &summary.OpenLeads, &summary.StaleLeads, &summary.UrgentLeads,
	)
	if err != nil {
		return TenantSummary{}, fmt.Errorf("summarize tenant: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT temperature, COUNT(*)
		FROM crm_customers
		WHERE organization_id = $1 AND status <> ALL($2)
		GROUP BY temperature
	`, organizationID, domain.ClosedStatuses)
	if err != nil {
		return TenantSummary{}, fmt.Errorf("summarize temperatures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var temperature string
		var count int
		if err := rows.Scan(&temperature, &count); err != nil {
			return TenantSummary{}, err
		}
		summary.Temperatures[temperature] = count
	}
	return summary, rows.Err()
}
