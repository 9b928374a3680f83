package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"dealer_crm_backend/internal/finance/transport"
	"dealer_crm_backend/internal/leads/scoring"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteTextOutput(t *testing.T) {
	out, err := runCmd(t, "", "quote", "--price", "10000", "--down", "1000", "--tax", "6", "--term", "36")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "576.49") || !strings.Contains(out, "2082.50") {
		t.Fatalf("expected monthly total and due at signing in output, got:\n%s", out)
	}
}

func TestQuoteJSONOutput(t *testing.T) {
	out, err := runCmd(t, "", "quote", "--price", "10000", "--down", "1000", "--tax", "6", "-o", "json")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var resp transport.RTOQuoteResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected json output, got %v", err)
	}
	if resp.MonthlyTotal != 576.49 {
		t.Fatalf("expected monthlyTotal 576.49, got %v", resp.MonthlyTotal)
	}
}

func TestQuoteYAMLOutput(t *testing.T) {
	out, err := runCmd(t, "", "quote", "--price", "10000", "--down", "1000", "--tax", "6", "-o", "yaml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "monthlyTotal: 576.49") {
		t.Fatalf("expected yaml monthlyTotal, got:\n%s", out)
	}
}

func TestQuoteRejectsUnknownFormula(t *testing.T) {
	if _, err := runCmd(t, "", "quote", "--price", "10000", "--formula", "balloon"); err == nil {
		t.Fatalf("expected unknown formula error")
	}
}

func TestQuoteRejectsUnknownOutput(t *testing.T) {
	if _, err := runCmd(t, "", "quote", "--price", "10000", "-o", "xml"); err == nil {
		t.Fatalf("expected unknown output error")
	}
}

func TestMatrixUsesDefaultFactor(t *testing.T) {
	out, err := runCmd(t, "", "matrix", "--price", "10000", "--downs", "0", "--terms", "36")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// 10000*2.32/36
	if !strings.Contains(out, "644.44") {
		t.Fatalf("expected 644.44 in output, got:\n%s", out)
	}
}

func TestScoreReadsStdin(t *testing.T) {
	doc := `{
  "customer": {
    "applied": true,
    "lastActivityAt": "2026-03-10T15:00:00Z",
    "stockNumber": "ST1",
    "financingType": "finance",
    "email": "a@b.com",
    "phone": "555",
    "createdAt": "2026-03-10T15:00:00Z"
  }
}`
	out, err := runCmd(t, doc, "score", "--at", "2026-03-10T15:00:00Z", "-o", "json")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var a scoring.Assessment
	if err := json.Unmarshal([]byte(out), &a); err != nil {
		t.Fatalf("expected json output, got %v", err)
	}
	if a.Score != 88 || a.Temperature != scoring.TemperatureHot {
		t.Fatalf("expected hot 88, got %s %d", a.Temperature, a.Score)
	}
}

func TestScoreRejectsBadDocument(t *testing.T) {
	if _, err := runCmd(t, "{", "score"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRescoreRequiresTenantID(t *testing.T) {
	if _, err := runCmd(t, "", "rescore", "--tenant", "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid tenant error")
	}
}
