package email

import "context"

// Sender delivers CRM notification emails.
type Sender interface {
	SendHotLeadAlert(ctx context.Context, toEmail string, data HotLeadAlert) error
	SendStaleLeadsReminder(ctx context.Context, toEmail string, data StaleLeadsReminder) error
	SendDailyDigest(ctx context.Context, toEmail string, data DailyDigest) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// HotLeadAlert tells a rep that one of their leads needs attention now.
type HotLeadAlert struct {
	RepName      string
	CustomerName string
	Score        int
	Temperature  string
	Priority     string
	NextAction   string
	LeadURL      string
}

// StaleLead is one row of a stale-leads reminder.
type StaleLead struct {
	CustomerName string
	Status       string
	LastActivity string
	LeadURL      string
}

// StaleLeadsReminder lists a rep's leads without recent activity.
type StaleLeadsReminder struct {
	RepName       string
	ThresholdDays int
	Leads         []StaleLead
	DashboardURL  string
}

// TemperatureCount is one bucket of the pipeline breakdown.
type TemperatureCount struct {
	Temperature string
	Count       int
}

// DailyDigest summarizes a dealership's pipeline for the day.
type DailyDigest struct {
	OrganizationName string
	Date             string
	NewLeads         int
	OpenLeads        int
	StaleLeads       int
	UrgentLeads      int
	Temperatures     []TemperatureCount
	DashboardURL     string
}

const (
	subjectHotLeadFmt     = "%s lead: %s"
	subjectStaleLeadsFmt  = "%d leads need a follow-up"
	subjectDailyDigestFmt = "Pipeline digest for %s, %s"
)

type NoopSender struct{}

func (NoopSender) SendHotLeadAlert(ctx context.Context, toEmail string, data HotLeadAlert) error {
	return nil
}

func (NoopSender) SendStaleLeadsReminder(ctx context.Context, toEmail string, data StaleLeadsReminder) error {
	return nil
}

func (NoopSender) SendDailyDigest(ctx context.Context, toEmail string, data DailyDigest) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}
