package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type hotLeadEmailData struct {
	baseEmailData
	HotLeadAlert
}

type staleLeadsEmailData struct {
	baseEmailData
	StaleLeadsReminder
}

type dailyDigestEmailData struct {
	baseEmailData
	DailyDigest
}

var templateFuncs = template.FuncMap{
	"title": titleCase,
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderHotLead(data HotLeadAlert) (subject, content string, err error) {
	subject = fmt.Sprintf(subjectHotLeadFmt, titleCase(data.Temperature), data.CustomerName)
	content, err = renderEmailTemplate("hot_lead.html", hotLeadEmailData{
		baseEmailData: baseEmailData{
			Title:      "Lead needs attention",
			Heading:    data.CustomerName,
			Subheading: fmt.Sprintf("Score %d, %s priority", data.Score, data.Priority),
			CTALabel:   "Open lead",
			CTAURL:     data.LeadURL,
		},
		HotLeadAlert: data,
	})
	return subject, content, err
}

func renderStaleLeads(data StaleLeadsReminder) (subject, content string, err error) {
	subject = fmt.Sprintf(subjectStaleLeadsFmt, len(data.Leads))
	content, err = renderEmailTemplate("stale_leads.html", staleLeadsEmailData{
		baseEmailData: baseEmailData{
			Title:    "Stale leads",
			Heading:  "Leads waiting on you",
			CTALabel: "Open pipeline",
			CTAURL:   data.DashboardURL,
		},
		StaleLeadsReminder: data,
	})
	return subject, content, err
}

func renderDailyDigest(data DailyDigest) (subject, content string, err error) {
	subject = fmt.Sprintf(subjectDailyDigestFmt, data.OrganizationName, data.Date)
	content, err = renderEmailTemplate("daily_digest.html", dailyDigestEmailData{
		baseEmailData: baseEmailData{
			Title:      "Daily digest",
			Heading:    data.OrganizationName,
			Subheading: data.Date,
			CTALabel:   "Open dashboard",
			CTAURL:     data.DashboardURL,
		},
		DailyDigest: data,
	})
	return subject, content, err
}
