package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"dealer_crm_backend/internal/events"
	leadsrepo "dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var staleNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// fakeStaleSource pages like the SQL query: ordered by id, strictly after
// the cursor, truncated to limit.
type fakeStaleSource struct {
	candidates []leadsrepo.StaleCandidate
	cutoff     time.Time
	calls      int
	failOnCall int
}

func (f *fakeStaleSource) ListStaleCandidates(_ context.Context, cutoff time.Time, after uuid.UUID, limit int) ([]leadsrepo.StaleCandidate, error) {
	f.calls++
	f.cutoff = cutoff
	if f.failOnCall != 0 && f.calls == f.failOnCall {
		return nil, errors.New("connection reset")
	}

	sorted := append([]leadsrepo.StaleCandidate(nil), f.candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })

	page := make([]leadsrepo.StaleCandidate, 0, limit)
	for _, c := range sorted {
		if c.ID.String() <= after.String() {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, c)
	}
	return page, nil
}

// failingDeduper claims through the real store but fails the nth claim.
type failingDeduper struct {
	*AlertDeduper
	claims int
	failAt int
}

func (d *failingDeduper) Claim(ctx context.Context, leadID uuid.UUID) (bool, error) {
	d.claims++
	if d.claims == d.failAt {
		return false, errors.New("redis timeout")
	}
	return d.AlertDeduper.Claim(ctx, leadID)
}

func neverContacted(n int, tenant uuid.UUID) []leadsrepo.StaleCandidate {
	leads := make([]leadsrepo.StaleCandidate, 0, n)
	for i := 0; i < n; i++ {
		leads = append(leads, leadsrepo.StaleCandidate{ID: uuid.New(), OrganizationID: tenant, Status: "new"})
	}
	return leads
}

type recordingBus struct {
	published []events.Event
	err       error
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func TestIsStaleTreatsMissingActivityAsStale(t *testing.T) {
	if !IsStale("contacted", nil, staleNow, 7*24*time.Hour) {
		t.Fatalf("expected null last activity to be stale")
	}
}

// The scoring engine gives a lead with no recorded activity neither bonus
// nor penalty, while the detector flags the same lead as stale.
func TestNullActivityDivergesFromScoring(t *testing.T) {
	created := staleNow.Add(-72 * time.Hour)
	result := scoring.CalculateLeadScoreAt(scoring.Customer{Status: "contacted", CreatedAt: created, UpdatedAt: created}, nil, staleNow)
	if result.Factors.ActivityRecency != 0 {
		t.Fatalf("expected no recency factor for null activity, got %d", result.Factors.ActivityRecency)
	}
	if !IsStale("contacted", nil, staleNow, 7*24*time.Hour) {
		t.Fatalf("expected the detector to flag the same lead")
	}
}

func TestIsStaleRules(t *testing.T) {
	threshold := 7 * 24 * time.Hour
	recent := staleNow.Add(-2 * 24 * time.Hour)
	old := staleNow.Add(-8 * 24 * time.Hour)

	if IsStale("qualified", &recent, staleNow, threshold) {
		t.Fatalf("expected recent activity not to be stale")
	}
	if !IsStale("qualified", &old, staleNow, threshold) {
		t.Fatalf("expected old activity to be stale")
	}
	if IsStale("sold", nil, staleNow, threshold) || IsStale("lost", &old, staleNow, threshold) {
		t.Fatalf("expected closed leads never to be stale")
	}
}

func TestScanGroupsByTenantAndDedupes(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	old := staleNow.Add(-10 * 24 * time.Hour)
	recent := staleNow.Add(-time.Hour)
	source := &fakeStaleSource{candidates: []leadsrepo.StaleCandidate{
		{ID: uuid.New(), OrganizationID: tenantA, FirstName: "Pat", LastName: "Doe", Status: "new"},
		{ID: uuid.New(), OrganizationID: tenantA, FirstName: "Sam", Status: "contacted", LastActivityAt: &old},
		{ID: uuid.New(), OrganizationID: tenantB, FirstName: "Lee", Status: "qualified", LastActivityAt: &old},
		{ID: uuid.New(), OrganizationID: tenantB, FirstName: "Closed", Status: "sold"},
		{ID: uuid.New(), OrganizationID: tenantB, FirstName: "Fresh", Status: "new", LastActivityAt: &recent},
	}}
	deduper, _ := newTestDeduper(t, time.Hour)
	bus := &recordingBus{}
	m := metrics.New()

	d := NewStaleLeadDetector(source, deduper, bus, m, logger.Nop(), time.Hour, 7*24*time.Hour)
	d.SetClock(func() time.Time { return staleNow })

	alerted, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if alerted != 3 {
		t.Fatalf("expected 3 alerted leads, got %d", alerted)
	}
	if !source.cutoff.Equal(staleNow.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", source.cutoff)
	}
	if len(bus.published) != 2 {
		t.Fatalf("expected 2 tenant events, got %d", len(bus.published))
	}
	perTenant := map[uuid.UUID]int{}
	names := map[string]bool{}
	for _, e := range bus.published {
		detected := e.(events.StaleLeadsDetected)
		perTenant[detected.TenantID] += len(detected.Leads)
		for _, lead := range detected.Leads {
			names[lead.CustomerName] = true
		}
	}
	if perTenant[tenantA] != 2 || perTenant[tenantB] != 1 {
		t.Fatalf("expected 2 leads for tenant a and 1 for tenant b, got %v", perTenant)
	}
	if !names["Pat Doe"] {
		t.Fatalf("expected joined customer name, got %v", names)
	}
	if got := testutil.ToFloat64(m.StaleLeads); got != 3 {
		t.Fatalf("expected 3 stale metric, got %v", got)
	}

	again, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if again != 0 || len(bus.published) != 2 {
		t.Fatalf("expected repeated scan to be deduplicated, got %d alerts", again)
	}
}

func TestScanReleasesClaimsWhenPublishFails(t *testing.T) {
	tenant := uuid.New()
	lead := leadsrepo.StaleCandidate{ID: uuid.New(), OrganizationID: tenant, Status: "new"}
	source := &fakeStaleSource{candidates: []leadsrepo.StaleCandidate{lead}}
	deduper, _ := newTestDeduper(t, time.Hour)
	bus := &recordingBus{err: errors.New("smtp down")}

	d := NewStaleLeadDetector(source, deduper, bus, nil, logger.Nop(), time.Hour, 7*24*time.Hour)
	d.SetClock(func() time.Time { return staleNow })

	alerted, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if alerted != 0 {
		t.Fatalf("expected 0 alerted, got %d", alerted)
	}

	ok, err := deduper.Claim(context.Background(), lead.ID)
	if err != nil || !ok {
		t.Fatalf("expected claim to be released, got %v %v", ok, err)
	}
}

func TestScanPagesPastFirstBatch(t *testing.T) {
	tenant := uuid.New()
	total := staleScanBatch + 10
	source := &fakeStaleSource{candidates: neverContacted(total, tenant)}
	deduper, _ := newTestDeduper(t, time.Hour)
	bus := &recordingBus{}

	d := NewStaleLeadDetector(source, deduper, bus, nil, logger.Nop(), time.Hour, 7*24*time.Hour)
	d.SetClock(func() time.Time { return staleNow })

	alerted, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if alerted != total {
		t.Fatalf("expected %d alerted leads, got %d", total, alerted)
	}
	if source.calls != 2 {
		t.Fatalf("expected 2 pages, got %d", source.calls)
	}

	seen := map[uuid.UUID]bool{}
	for _, e := range bus.published {
		for _, lead := range e.(events.StaleLeadsDetected).Leads {
			seen[lead.LeadID] = true
		}
	}
	if len(seen) != total {
		t.Fatalf("expected every lead alerted once, got %d distinct", len(seen))
	}

	again, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if again != 0 {
		t.Fatalf("expected repeated scan to be deduplicated, got %d", again)
	}
}

func TestScanReleasesClaimsWhenClaimFails(t *testing.T) {
	tenant := uuid.New()
	source := &fakeStaleSource{candidates: neverContacted(3, tenant)}
	store, _ := newTestDeduper(t, time.Hour)
	deduper := &failingDeduper{AlertDeduper: store, failAt: 3}
	bus := &recordingBus{}

	d := NewStaleLeadDetector(source, deduper, bus, nil, logger.Nop(), time.Hour, 7*24*time.Hour)
	d.SetClock(func() time.Time { return staleNow })

	if _, err := d.Scan(context.Background()); err == nil {
		t.Fatalf("expected claim error")
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected nothing published, got %d", len(bus.published))
	}
	for _, c := range source.candidates {
		ok, err := store.Claim(context.Background(), c.ID)
		if err != nil || !ok {
			t.Fatalf("expected lead %s to be claimable again, got %v %v", c.ID, ok, err)
		}
	}
}

func TestScanReleasesClaimsWhenLaterPageFails(t *testing.T) {
	tenant := uuid.New()
	source := &fakeStaleSource{candidates: neverContacted(staleScanBatch+1, tenant), failOnCall: 2}
	deduper, _ := newTestDeduper(t, time.Hour)
	bus := &recordingBus{}

	d := NewStaleLeadDetector(source, deduper, bus, nil, logger.Nop(), time.Hour, 7*24*time.Hour)
	d.SetClock(func() time.Time { return staleNow })

	if _, err := d.Scan(context.Background()); err == nil {
		t.Fatalf("expected page error")
	}
	for _, c := range source.candidates {
		ok, err := deduper.Claim(context.Background(), c.ID)
		if err != nil || !ok {
			t.Fatalf("expected lead %s to be claimable again, got %v %v", c.ID, ok, err)
		}
	}
}
