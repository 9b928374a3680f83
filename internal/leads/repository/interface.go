package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CustomerReader provides read-only access to customer data.
type CustomerReader interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Customer, error)
	List(ctx context.Context, params ListParams) ([]Customer, int, error)
	ListIDsForTenant(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
}

// CustomerWriter provides write operations for customer management.
type CustomerWriter interface {
	Create(ctx context.Context, params CreateCustomerParams) (Customer, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (Customer, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateDetailsParams) (Customer, error)
}

// ScoreWriter persists scoring output onto the customer row.
type ScoreWriter interface {
	ApplyScore(ctx context.Context, params ApplyScoreParams) error
}

// ActivityStore records and lists customer interactions.
type ActivityStore interface {
	AddActivity(ctx context.Context, params AddActivityParams) (Activity, error)
	ListActivities(ctx context.Context, customerID uuid.UUID, organizationID uuid.UUID, limit int) ([]Activity, error)
}

// ReportingReader backs the scheduler's stale detector and digest.
type ReportingReader interface {
	ListStaleCandidates(ctx context.Context, cutoff time.Time, after uuid.UUID, limit int) ([]StaleCandidate, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	SummarizeTenant(ctx context.Context, organizationID uuid.UUID, since time.Time, staleCutoff time.Time) (TenantSummary, error)
}

// LeadsRepository is the full repository surface.
type LeadsRepository interface {
	CustomerReader
	CustomerWriter
	ScoreWriter
	ActivityStore
	ReportingReader
}

var _ LeadsRepository = (*Repository)(nil)
