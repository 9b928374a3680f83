package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	m := New()
	m.ObserveLeadScore(88, "hot")
	m.ObserveLeadScore(75, "hot")
	m.ObserveQuote("current", true)
	m.AddStaleLeads(3)
	m.AddStaleLeads(0)
	m.ObserveNotification("stale_leads", errors.New("smtp down"))

	if got := testutil.ToFloat64(m.LeadScores.WithLabelValues("hot")); got != 2 {
		t.Fatalf("expected 2 hot scores, got %v", got)
	}
	if got := testutil.ToFloat64(m.RTOQuotes.WithLabelValues("current", "true")); got != 1 {
		t.Fatalf("expected 1 defaulted quote, got %v", got)
	}
	if got := testutil.ToFloat64(m.StaleLeads); got != 3 {
		t.Fatalf("expected 3 stale leads, got %v", got)
	}
	if got := testutil.ToFloat64(m.NotificationSent.WithLabelValues("stale_leads", "failed")); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLeadScore(10, "dead")
	m.ObserveQuote("legacy", false)
	m.AddStaleLeads(1)
	m.ObserveNotification("digest", nil)
}
