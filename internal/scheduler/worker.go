package scheduler

import (
	"context"
	"fmt"
	"time"

	"dealer_crm_backend/internal/events"
	leadsrepo "dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const digestWindow = 24 * time.Hour

// digestOrder fixes the temperature rows of the digest.
var digestOrder = []string{"hot", "warm", "cold", "dead"}

// TenantRescorer rescores every lead of a tenant.
type TenantRescorer interface {
	RescoreTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// DigestReporter provides the per-tenant digest numbers.
type DigestReporter interface {
	ListOrganizations(ctx context.Context) ([]leadsrepo.Organization, error)
	SummarizeTenant(ctx context.Context, organizationID uuid.UUID, since time.Time, staleCutoff time.Time) (leadsrepo.TenantSummary, error)
}

// Processor runs task payloads. It is separate from Worker so the handlers
// can run without a Redis server.
type Processor struct {
	rescorer       TenantRescorer
	reports        DigestReporter
	bus            events.Bus
	log            *logger.Logger
	staleThreshold time.Duration
	location       *time.Location
	now            func() time.Time
}

// NewProcessor creates the task handlers. location defaults to UTC.
func NewProcessor(rescorer TenantRescorer, reports DigestReporter, bus events.Bus, staleThreshold time.Duration, location *time.Location, log *logger.Logger) *Processor {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		rescorer:       rescorer,
		reports:        reports,
		bus:            bus,
		log:            log,
		staleThreshold: staleThreshold,
		location:       location,
		now:            time.Now,
	}
}

// SetClock overrides the wall clock.
func (p *Processor) SetClock(now func() time.Time) { p.now = now }

func (p *Processor) HandleRescoreTenant(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRescoreTenantPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("%w: invalid tenant id: %v", asynq.SkipRetry, err)
	}

	started := time.Now()
	count, err := p.rescorer.RescoreTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	p.log.Info("tenant rescore finished",
		"tenantId", tenantID,
		"leads", count,
		"durationMs", time.Since(started).Milliseconds(),
	)
	return nil
}

func (p *Processor) HandleDailyDigest(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDailyDigestPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	orgs, err := p.reports.ListOrganizations(ctx)
	if err != nil {
		return err
	}

	now := p.now().In(p.location)
	sent := 0
	for _, org := range orgs {
		if payload.TenantID != "" && org.ID.String() != payload.TenantID {
			continue
		}
		if err := p.publishDigest(ctx, org, now); err != nil {
			// no task error: a retry would resend every other tenant's digest
			p.log.Error("daily digest failed", "tenantId", org.ID, "error", err)
			continue
		}
		sent++
	}

	p.log.Info("daily digest finished", "tenants", sent)
	return nil
}

func (p *Processor) publishDigest(ctx context.Context, org leadsrepo.Organization, now time.Time) error {
	summary, err := p.reports.SummarizeTenant(ctx, org.ID, now.Add(-digestWindow), now.Add(-p.staleThreshold))
	if err != nil {
		return err
	}

	buckets := make([]events.DigestBucket, 0, len(digestOrder))
	for _, temperature := range digestOrder {
		buckets = append(buckets, events.DigestBucket{Temperature: temperature, Count: summary.Temperatures[temperature]})
	}

	digestEmail := ""
	if org.DigestEmail != nil {
		digestEmail = *org.DigestEmail
	}

	if p.bus == nil {
		return nil
	}
	return p.bus.PublishSync(ctx, events.DailyDigestReady{
		BaseEvent:        events.NewBaseEvent(),
		TenantID:         org.ID,
		OrganizationName: org.Name,
		DigestEmail:      digestEmail,
		Date:             now,
		NewLeads:         summary.NewLeads,
		OpenLeads:        summary.OpenLeads,
		StaleLeads:       summary.StaleLeads,
		UrgentLeads:      summary.UrgentLeads,
		Temperatures:     buckets,
	})
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor *Processor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error("scheduler task failed", "task", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRescoreTenant, processor.HandleRescoreTenant)
	mux.HandleFunc(TaskDailyDigest, processor.HandleDailyDigest)

	return &Worker{server: server, mux: mux, log: log}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// LoadLocation resolves the digest timezone, falling back to UTC.
func LoadLocation(name string, log *logger.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if log != nil {
			log.Warn("unknown digest timezone, using UTC", "timezone", name, "error", err)
		}
		return time.UTC
	}
	return loc
}
