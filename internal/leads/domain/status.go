package domain

import "strings"

// Workflow stages a customer moves through. The scoring engine reads the
// status but never changes it.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusApplied   = "applied"
	StatusApproved  = "approved"
	StatusQuoted    = "quoted"
	StatusSold      = "sold"
	StatusLost      = "lost"
)

var knownStatuses = map[string]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusQualified: {},
	StatusApplied:   {},
	StatusApproved:  {},
	StatusQuoted:    {},
	StatusSold:      {},
	StatusLost:      {},
}

// ClosedStatuses are terminal stages; closed leads are never reported stale.
var ClosedStatuses = []string{StatusSold, StatusLost}

// NormalizeStatus lowercases and trims a status value.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[NormalizeStatus(status)]
	return ok
}

func IsClosedStatus(status string) bool {
	s := NormalizeStatus(status)
	return s == StatusSold || s == StatusLost
}

// MarksCreditApplication reports whether moving into status implies the
// customer submitted a credit application.
func MarksCreditApplication(status string) bool {
	switch NormalizeStatus(status) {
	case StatusApplied, StatusApproved:
		return true
	default:
		return false
	}
}

// Activity kinds logged against a customer.
const (
	ActivityCall         = "call"
	ActivityEmail        = "email"
	ActivityText         = "text"
	ActivityVisit        = "visit"
	ActivityNote         = "note"
	ActivityStatusChange = "status_change"
)

var knownActivityKinds = map[string]struct{}{
	ActivityCall:         {},
	ActivityEmail:        {},
	ActivityText:         {},
	ActivityVisit:        {},
	ActivityNote:         {},
	ActivityStatusChange: {},
}

func IsKnownActivityKind(kind string) bool {
	_, ok := knownActivityKinds[kind]
	return ok
}
