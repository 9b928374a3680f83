package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// memoryRepo is an in-memory stand-in for the pgx repository.
type memoryRepo struct {
	mu          sync.Mutex
	customers   map[uuid.UUID]repository.Customer
	activities  map[uuid.UUID][]repository.Activity
	lastDetails repository.UpdateDetailsParams
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers:  make(map[uuid.UUID]repository.Customer),
		activities: make(map[uuid.UUID][]repository.Activity),
	}
}

func (m *memoryRepo) seed(c repository.Customer) repository.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.customers[c.ID] = c
	return c
}

func (m *memoryRepo) get(id uuid.UUID) repository.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customers[id]
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok || c.OrganizationID != organizationID {
		return repository.Customer{}, apperr.NotFound("lead not found")
	}
	return c, nil
}

func (m *memoryRepo) List(_ context.Context, params repository.ListParams) ([]repository.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]repository.Customer, 0)
	for _, c := range m.customers {
		if c.OrganizationID == params.OrganizationID {
			items = append(items, c)
		}
	}
	return items, len(items), nil
}

func (m *memoryRepo) ListIDsForTenant(_ context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, c := range m.customers {
		if c.OrganizationID == organizationID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryRepo) Create(_ context.Context, params repository.CreateCustomerParams) (repository.Customer, error) {
	c := repository.Customer{
		OrganizationID:   params.OrganizationID,
		AssignedRepID:    params.AssignedRepID,
		FirstName:        params.FirstName,
		LastName:         params.LastName,
		Email:            params.Email,
		Phone:            params.Phone,
		Status:           params.Status,
		StockNumber:      params.StockNumber,
		FinancingType:    params.FinancingType,
		HasAppliedCredit: params.HasAppliedCredit,
		Source:           params.Source,
		Temperature:      "dead",
		Priority:         "low",
		CreatedAt:        fixedNow,
		UpdatedAt:        fixedNow,
	}
	return m.seed(c), nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, params repository.UpdateStatusParams) (repository.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[params.ID]
	if !ok || c.OrganizationID != params.OrganizationID {
		return repository.Customer{}, apperr.NotFound("lead not found")
	}
	c.Status = params.Status
	if params.MarkApplied {
		c.Applied = true
		c.HasAppliedCredit = true
	}
	c.UpdatedAt = fixedNow
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) UpdateDetails(_ context.Context, id uuid.UUID, organizationID uuid.UUID, params repository.UpdateDetailsParams) (repository.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok || c.OrganizationID != organizationID {
		return repository.Customer{}, apperr.NotFound("lead not found")
	}
	if params.StockNumber != nil {
		c.StockNumber = params.StockNumber
	}
	if params.Phone != nil {
		c.Phone = params.Phone
	}
	if params.Email != nil {
		c.Email = params.Email
	}
	if params.AssignedRepID != nil {
		c.AssignedRepID = params.AssignedRepID
	}
	if params.ClearStockNumber {
		c.StockNumber = nil
	}
	if params.ClearPhone {
		c.Phone = nil
	}
	if params.ClearEmail {
		c.Email = nil
	}
	if params.ClearAssignedRep {
		c.AssignedRepID = nil
	}
	m.lastDetails = params
	m.customers[id] = c
	return c, nil
}

func (m *memoryRepo) ApplyScore(_ context.Context, params repository.ApplyScoreParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[params.ID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	c.LeadScore = params.Score
	c.Temperature = params.Temperature
	c.Priority = params.Priority
	c.DaysInStage = params.DaysInStage
	c.ScoreFactors = params.FactorsJSON
	updatedAt := params.UpdatedAt
	c.ScoreUpdatedAt = &updatedAt
	m.customers[c.ID] = c
	return nil
}

func (m *memoryRepo) AddActivity(_ context.Context, params repository.AddActivityParams) (repository.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[params.CustomerID]
	if !ok || c.OrganizationID != params.OrganizationID {
		return repository.Activity{}, apperr.NotFound("lead not found")
	}
	a := repository.Activity{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		CustomerID:     params.CustomerID,
		Kind:           params.Kind,
		Body:           params.Body,
		CreatedBy:      params.CreatedBy,
		CreatedAt:      fixedNow,
	}
	m.activities[params.CustomerID] = append(m.activities[params.CustomerID], a)
	at := fixedNow
	c.LastActivityAt = &at
	m.customers[c.ID] = c
	return a, nil
}

func (m *memoryRepo) ListActivities(_ context.Context, customerID uuid.UUID, _ uuid.UUID, _ int) ([]repository.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Activity(nil), m.activities[customerID]...), nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.EventName())
	}
	return names
}

func newTestService() (*Service, *memoryRepo, *recordingBus) {
	repo := newMemoryRepo()
	bus := &recordingBus{}
	scorer := scoring.New(repo, bus, logger.Nop(), scoring.WithClock(func() time.Time { return fixedNow }))
	return New(repo, scorer, bus, logger.Nop()), repo, bus
}

func strPtr(s string) *string { return &s }

func TestCreateSanitizesNormalizesAndScores(t *testing.T) {
	svc, repo, bus := newTestService()
	tenantID := uuid.New()

	resp, err := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{
		FirstName:     "  <b>Dana</b> ",
		LastName:      "Ortiz",
		Email:         "Dana@Example.com ",
		Phone:         "(650) 253-0000",
		StockNumber:   "ST 77",
		FinancingType: "RTO",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.get(resp.ID)
	if stored.FirstName != "Dana" {
		t.Fatalf("expected sanitized first name, got %q", stored.FirstName)
	}
	if stored.Phone == nil || *stored.Phone != "+16502530000" {
		t.Fatalf("expected E.164 phone, got %v", stored.Phone)
	}
	if stored.Email == nil || *stored.Email != "dana@example.com" {
		t.Fatalf("expected lowercased email, got %v", stored.Email)
	}

	// 15 stock + 10 rto + 5 contact + 3 email + 5 new lead
	if resp.Score.Score != 38 || stored.LeadScore != 38 {
		t.Fatalf("expected score 38, got response %d stored %d", resp.Score.Score, stored.LeadScore)
	}
	if resp.Score.Priority != "high" {
		t.Fatalf("expected new lead to be high priority, got %s", resp.Score.Priority)
	}

	names := bus.names()
	if len(names) != 2 {
		t.Fatalf("expected score changed and created events, got %v", names)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{FirstName: "<i></i>"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusRescoresAndMarksApplication(t *testing.T) {
	svc, repo, bus := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{
		OrganizationID: tenantID,
		FirstName:      "Pat",
		Status:         "contacted",
		Email:          strPtr("pat@example.com"),
		Temperature:    "dead",
		Priority:       "low",
		CreatedAt:      fixedNow.Add(-10 * 24 * time.Hour),
		UpdatedAt:      fixedNow.Add(-4 * 24 * time.Hour),
	})

	resp, err := svc.UpdateStatus(context.Background(), tenantID, lead.ID, nil, " Applied ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "applied" || !resp.HasAppliedCredit {
		t.Fatalf("expected applied status with credit flag, got %+v", resp)
	}
	if resp.Score.Score != 33 || resp.Score.Priority != "urgent" {
		t.Fatalf("expected 33/urgent, got %d/%s", resp.Score.Score, resp.Score.Priority)
	}
	if resp.Score.DaysInStage != 4 {
		t.Fatalf("expected 4 days in the stage being left, got %d", resp.Score.DaysInStage)
	}

	found := false
	for _, name := range bus.names() {
		if name == (events.LeadStatusChanged{}).EventName() {
			found = true
		}
	}
	if !found {
		t.Fatal("expected LeadStatusChanged event")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{OrganizationID: tenantID, FirstName: "Pat", Status: "new"})

	_, err := svc.UpdateStatus(context.Background(), tenantID, lead.ID, nil, "archived")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBulkUpdateStatusReportsPerLeadResults(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	first := repo.seed(repository.Customer{OrganizationID: tenantID, FirstName: "A", Status: "new"})
	second := repo.seed(repository.Customer{OrganizationID: tenantID, FirstName: "B", Status: "new"})
	missing := uuid.New()

	resp, err := svc.BulkUpdateStatus(context.Background(), tenantID, nil, []uuid.UUID{first.ID, missing, second.ID}, "contacted")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Updated != 2 || resp.Failed != 1 {
		t.Fatalf("expected 2 updated and 1 failed, got %d/%d", resp.Updated, resp.Failed)
	}
	if resp.Results[1].ID != missing || !strings.Contains(resp.Results[1].Error, "not found") {
		t.Fatalf("expected ordered not-found result, got %+v", resp.Results[1])
	}
	if repo.get(second.ID).Status != "contacted" {
		t.Fatal("expected second lead to be updated")
	}
}

func TestLogActivityBumpsRecency(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{
		OrganizationID: tenantID,
		FirstName:      "Lee",
		Status:         "contacted",
		CreatedAt:      fixedNow.Add(-20 * 24 * time.Hour),
		UpdatedAt:      fixedNow.Add(-20 * 24 * time.Hour),
	})

	activity, err := svc.LogActivity(context.Background(), tenantID, lead.ID, nil, transport.CreateActivityRequest{
		Kind: "Call",
		Body: "Left voicemail <script>x</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activity.Kind != "call" || activity.Body != "Left voicemail x" {
		t.Fatalf("unexpected activity: %+v", activity)
	}
	if got := repo.get(lead.ID).LeadScore; got != 20 {
		t.Fatalf("expected recency bonus after activity, got %d", got)
	}
}

func TestLogActivityRejectsUnknownKind(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{OrganizationID: tenantID, FirstName: "Lee", Status: "new"})

	_, err := svc.LogActivity(context.Background(), tenantID, lead.ID, nil, transport.CreateActivityRequest{Kind: "fax"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRescoreTenantCountsLeads(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	for i := 0; i < 5; i++ {
		repo.seed(repository.Customer{OrganizationID: tenantID, FirstName: "X", Status: "new"})
	}
	repo.seed(repository.Customer{OrganizationID: uuid.New(), FirstName: "Other", Status: "new"})

	count, err := svc.RescoreTenant(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 rescored leads, got %d", count)
	}
}

func TestAssessReturnsNextAction(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{
		OrganizationID: tenantID,
		FirstName:      "Sam",
		Status:         "new",
		StockNumber:    strPtr("ST9"),
		CreatedAt:      fixedNow.Add(-72 * time.Hour),
	})

	resp, err := svc.Assess(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NextAction != scoring.ActionSendUnitDetails {
		t.Fatalf("expected unit details action, got %q", resp.NextAction)
	}
	if repo.get(lead.ID).ScoreUpdatedAt != nil {
		t.Fatal("Assess must not persist")
	}
}

func TestUpdateClearsContactFields(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	repID := uuid.New()
	lead := repo.seed(repository.Customer{
		OrganizationID: tenantID,
		AssignedRepID:  &repID,
		FirstName:      "Dana",
		Email:          strPtr("dana@example.com"),
		Phone:          strPtr("+16502530000"),
		StockNumber:    strPtr("ST 77"),
		Status:         "new",
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	})

	_, err := svc.Update(context.Background(), tenantID, lead.ID, transport.UpdateLeadRequest{
		Email:         transport.OptionalString{Set: true, Value: strPtr("")},
		Phone:         transport.OptionalString{Set: true},
		StockNumber:   transport.OptionalString{Set: true, Value: strPtr("  ")},
		AssignedRepID: transport.OptionalUUID{Set: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := repo.lastDetails
	if !params.ClearEmail || !params.ClearPhone || !params.ClearStockNumber || !params.ClearAssignedRep {
		t.Fatalf("expected every clear flag, got %+v", params)
	}
	stored := repo.get(lead.ID)
	if stored.Email != nil || stored.Phone != nil || stored.StockNumber != nil || stored.AssignedRepID != nil {
		t.Fatalf("expected cleared fields, got %+v", stored)
	}
}

func TestUpdateLeavesAbsentFieldsAlone(t *testing.T) {
	svc, repo, _ := newTestService()
	tenantID := uuid.New()
	lead := repo.seed(repository.Customer{
		OrganizationID: tenantID,
		FirstName:      "Dana",
		Email:          strPtr("dana@example.com"),
		StockNumber:    strPtr("ST 77"),
		Status:         "new",
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	})

	_, err := svc.Update(context.Background(), tenantID, lead.ID, transport.UpdateLeadRequest{
		Phone: transport.OptionalString{Set: true, Value: strPtr("(650) 253-0000")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := repo.lastDetails
	if params.ClearEmail || params.ClearPhone || params.ClearStockNumber || params.ClearAssignedRep {
		t.Fatalf("expected no clear flags, got %+v", params)
	}
	stored := repo.get(lead.ID)
	if stored.Phone == nil || *stored.Phone != "+16502530000" {
		t.Fatalf("expected E.164 phone, got %v", stored.Phone)
	}
	if stored.Email == nil || stored.StockNumber == nil {
		t.Fatalf("expected untouched email and stock number, got %+v", stored)
	}
}
