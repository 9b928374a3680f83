package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealer_crm_backend/internal/email"
	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/notification/reps"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://crm.example.com/" }

type testDirectory struct {
	reps map[uuid.UUID]reps.Rep
}

func (d *testDirectory) GetByID(_ context.Context, id uuid.UUID, orgID uuid.UUID) (reps.Rep, error) {
	rep, ok := d.reps[id]
	if !ok || rep.OrganizationID != orgID {
		return reps.Rep{}, apperr.NotFound("sales rep not found")
	}
	return rep, nil
}

func (d *testDirectory) ListActive(_ context.Context, orgID uuid.UUID) ([]reps.Rep, error) {
	var result []reps.Rep
	for _, rep := range d.reps {
		if rep.OrganizationID == orgID {
			result = append(result, rep)
		}
	}
	return result, nil
}

type testSender struct {
	email.NoopSender
	hot     []email.HotLeadAlert
	hotTo   []string
	stale   map[string]email.StaleLeadsReminder
	digests []string
	failFor string
}

func (s *testSender) SendHotLeadAlert(_ context.Context, to string, data email.HotLeadAlert) error {
	s.hotTo = append(s.hotTo, to)
	s.hot = append(s.hot, data)
	return nil
}

func (s *testSender) SendStaleLeadsReminder(_ context.Context, to string, data email.StaleLeadsReminder) error {
	if s.stale == nil {
		s.stale = map[string]email.StaleLeadsReminder{}
	}
	s.stale[to] = data
	return nil
}

func (s *testSender) SendDailyDigest(_ context.Context, to string, _ email.DailyDigest) error {
	if to == s.failFor {
		return errors.New("smtp unavailable")
	}
	s.digests = append(s.digests, to)
	return nil
}

func newTestModule(sender *testSender, directory *testDirectory, m *metrics.Metrics) *Module {
	return New(directory, sender, testNotificationConfig{}, m, logger.Nop())
}

func TestLeadTurningHotEmailsAssignedRep(t *testing.T) {
	orgID := uuid.New()
	rep := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "dana@lakeside.example", FirstName: "Dana"}
	sender := &testSender{}
	m := metrics.New()
	mod := newTestModule(sender, &testDirectory{reps: map[uuid.UUID]reps.Rep{rep.ID: rep}}, m)

	leadID := uuid.New()
	err := mod.Handle(context.Background(), events.LeadScoreChanged{
		LeadID:              leadID,
		TenantID:            orgID,
		AssignedRepID:       &rep.ID,
		CustomerName:        "Jordan Miles",
		Score:               83,
		PreviousTemperature: "warm",
		Temperature:         "hot",
		PreviousPriority:    "urgent",
		Priority:            "urgent",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(sender.hot) != 1 || sender.hotTo[0] != rep.Email {
		t.Fatalf("expected 1 alert to %s, got %v", rep.Email, sender.hotTo)
	}
	if sender.hot[0].LeadURL != "https://crm.example.com/leads/"+leadID.String() {
		t.Fatalf("unexpected lead url %s", sender.hot[0].LeadURL)
	}
	if got := testutil.ToFloat64(m.NotificationSent.WithLabelValues(kindHotLead, "sent")); got != 1 {
		t.Fatalf("expected 1 sent metric, got %v", got)
	}
}

func TestLeadStayingHotDoesNotAlert(t *testing.T) {
	orgID := uuid.New()
	rep := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "dana@lakeside.example"}
	sender := &testSender{}
	mod := newTestModule(sender, &testDirectory{reps: map[uuid.UUID]reps.Rep{rep.ID: rep}}, nil)

	err := mod.Handle(context.Background(), events.LeadScoreChanged{
		TenantID:            orgID,
		AssignedRepID:       &rep.ID,
		PreviousTemperature: "hot",
		Temperature:         "hot",
		PreviousPriority:    "high",
		Priority:            "medium",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.hot) != 0 {
		t.Fatalf("expected no alert, got %d", len(sender.hot))
	}
}

func TestUnknownRepIsSkipped(t *testing.T) {
	sender := &testSender{}
	mod := newTestModule(sender, &testDirectory{}, nil)
	repID := uuid.New()

	err := mod.Handle(context.Background(), events.LeadScoreChanged{
		TenantID:      uuid.New(),
		AssignedRepID: &repID,
		Temperature:   "hot",
		Priority:      "urgent",
	})
	if err != nil {
		t.Fatalf("expected missing rep to be skipped, got %v", err)
	}
	if len(sender.hot) != 0 {
		t.Fatalf("expected no alert")
	}
}

func TestStaleLeadsAreGroupedPerRep(t *testing.T) {
	orgID := uuid.New()
	a := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "a@lakeside.example"}
	b := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "b@lakeside.example"}
	sender := &testSender{}
	mod := newTestModule(sender, &testDirectory{reps: map[uuid.UUID]reps.Rep{a.ID: a, b.ID: b}}, nil)

	old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := mod.Handle(context.Background(), events.StaleLeadsDetected{
		TenantID:  orgID,
		Threshold: 7 * 24 * time.Hour,
		Leads: []events.StaleLead{
			{LeadID: uuid.New(), AssignedRepID: &a.ID, CustomerName: "Old", LastActivityAt: &old},
			{LeadID: uuid.New(), AssignedRepID: &a.ID, CustomerName: "Never"},
			{LeadID: uuid.New(), AssignedRepID: &b.ID, CustomerName: "Other"},
			{LeadID: uuid.New(), CustomerName: "Unassigned"},
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(sender.stale) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(sender.stale))
	}
	reminder := sender.stale[a.Email]
	if reminder.ThresholdDays != 7 || len(reminder.Leads) != 2 {
		t.Fatalf("expected 2 leads at 7 days for rep a, got %+v", reminder)
	}
	if reminder.Leads[0].CustomerName != "Never" || reminder.Leads[0].LastActivity != "never" {
		t.Fatalf("expected never-contacted lead first, got %+v", reminder.Leads[0])
	}
}

func TestDigestUsesOrganizationAddressFirst(t *testing.T) {
	orgID := uuid.New()
	rep := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "rep@lakeside.example"}
	sender := &testSender{}
	mod := newTestModule(sender, &testDirectory{reps: map[uuid.UUID]reps.Rep{rep.ID: rep}}, nil)

	if err := mod.Handle(context.Background(), events.DailyDigestReady{TenantID: orgID, DigestEmail: "gm@lakeside.example"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.digests) != 1 || sender.digests[0] != "gm@lakeside.example" {
		t.Fatalf("expected digest to gm address, got %v", sender.digests)
	}

	if err := mod.Handle(context.Background(), events.DailyDigestReady{TenantID: orgID}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.digests) != 2 || sender.digests[1] != rep.Email {
		t.Fatalf("expected fallback to active reps, got %v", sender.digests)
	}
}

func TestDigestSendFailureIsReturnedAndCounted(t *testing.T) {
	sender := &testSender{failFor: "gm@lakeside.example"}
	m := metrics.New()
	mod := newTestModule(sender, &testDirectory{}, m)

	err := mod.Handle(context.Background(), events.DailyDigestReady{TenantID: uuid.New(), DigestEmail: "gm@lakeside.example"})
	if err == nil {
		t.Fatalf("expected send error")
	}
	if got := testutil.ToFloat64(m.NotificationSent.WithLabelValues(kindDailyDigest, "failed")); got != 1 {
		t.Fatalf("expected 1 failed metric, got %v", got)
	}
}

func TestRegisterHandlersSubscribesToBus(t *testing.T) {
	orgID := uuid.New()
	rep := reps.Rep{ID: uuid.New(), OrganizationID: orgID, Email: "rep@lakeside.example"}
	sender := &testSender{}
	mod := newTestModule(sender, &testDirectory{reps: map[uuid.UUID]reps.Rep{rep.ID: rep}}, nil)

	bus := events.NewInMemoryBus(logger.Nop())
	mod.RegisterHandlers(bus)
	if err := bus.PublishSync(context.Background(), events.LeadScoreChanged{
		TenantID:      orgID,
		AssignedRepID: &rep.ID,
		Temperature:   "hot",
		Priority:      "urgent",
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.hot) != 1 {
		t.Fatalf("expected alert through bus, got %d", len(sender.hot))
	}
}
