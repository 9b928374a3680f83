// Package scoring converts a customer record and its activity history into
// a bounded lead score, a temperature bucket, a priority tier, days in stage
// and a suggested next action.
//
// The engine functions in this file are pure. The only non-input they read
// is the wall clock, and every one of them has an *At variant taking "now"
// explicitly.
package scoring

import (
	"strings"
	"time"
)

// Temperature is a coarse triage bucket derived from the score alone.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureWarm Temperature = "warm"
	TemperatureCold Temperature = "cold"
	TemperatureDead Temperature = "dead"
)

// Priority is derived from the score and the raw customer fields.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Suggested next actions. SuggestNextAction always returns one of these.
const (
	ActionFollowUpApplication = "Follow up on credit application status"
	ActionSendCheckIn         = "Send a check-in message - no contact in over a week"
	ActionSendUnitDetails     = "Send trailer details and availability for the unit of interest"
	ActionGetContactInfo      = "Get missing contact information (email or phone)"
	ActionMakeContact         = "Make initial contact to qualify the lead"
)

// NextActions lists every template SuggestNextAction can return.
var NextActions = []string{
	ActionFollowUpApplication,
	ActionSendCheckIn,
	ActionSendUnitDetails,
	ActionGetContactInfo,
	ActionMakeContact,
}

// Point values of the additive scoring model.
const (
	pointsCreditApplication = 30
	pointsRecentActivity    = 20
	pointsCoolingActivity   = -10
	pointsColdActivity      = -15
	pointsStockNumber       = 15
	pointsFinancingType     = 10
	pointsCompleteContact   = 5
	pointsEmail             = 3
	pointsNewLead           = 5

	minScore = 0
	maxScore = 100

	recentActivityDays  = 7
	coolingActivityDays = 14
	coldActivityDays    = 30
	staleActionDays     = 7

	newLeadWindow = 24 * time.Hour
	day           = 24 * time.Hour
)

// Customer holds the fields the engine reads. Nil pointers and zero times
// contribute nothing.
type Customer struct {
	Applied          bool       `json:"applied"`
	HasAppliedCredit bool       `json:"hasAppliedCredit"`
	LastActivityAt   *time.Time `json:"lastActivityAt,omitempty"`
	StockNumber      *string    `json:"stockNumber,omitempty"`
	FinancingType    string     `json:"financingType,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Status           string     `json:"status,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Activity is one logged interaction.
type Activity struct {
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// Factors is the named breakdown of a score. Total is the clamped score, so
// the parts do not necessarily sum to Total when clamping applied; Raw is
// the unclamped sum.
type Factors struct {
	CreditApplication int `json:"creditApplication"`
	ActivityRecency   int `json:"activityRecency"`
	StockNumber       int `json:"stockNumber"`
	FinancingType     int `json:"financingType"`
	CompleteContact   int `json:"completeContact"`
	Email             int `json:"email"`
	NewLead           int `json:"newLead"`
	Raw               int `json:"raw"`
	Total             int `json:"total"`
}

// ScoreResult is the output of CalculateLeadScore.
type ScoreResult struct {
	Score   int     `json:"score"`
	Factors Factors `json:"factors"`
}

// CalculateLeadScore scores c against the current time.
func CalculateLeadScore(c Customer, activities []Activity) ScoreResult {
	return CalculateLeadScoreAt(c, activities, time.Now().UTC())
}

// CalculateLeadScoreAt scores c as of now. When activities are given, the
// most recent one counts as the last activity if it is newer than
// c.LastActivityAt.
func CalculateLeadScoreAt(c Customer, activities []Activity, now time.Time) ScoreResult {
	c.LastActivityAt = effectiveLastActivity(c.LastActivityAt, activities)

	var f Factors
	if hasAppliedForCredit(c) {
		f.CreditApplication = pointsCreditApplication
	}
	if c.LastActivityAt != nil {
		f.ActivityRecency = activityRecencyPoints(daysBetween(*c.LastActivityAt, now))
	}
	if present(c.StockNumber) {
		f.StockNumber = pointsStockNumber
	}
	if isFinanced(c.FinancingType) {
		f.FinancingType = pointsFinancingType
	}
	if present(c.Email) && present(c.Phone) {
		f.CompleteContact = pointsCompleteContact
	}
	if present(c.Email) {
		f.Email = pointsEmail
	}
	if isNewLead(c, now) {
		f.NewLead = pointsNewLead
	}

	f.Raw = f.CreditApplication + f.ActivityRecency + f.StockNumber + f.FinancingType +
		f.CompleteContact + f.Email + f.NewLead
	f.Total = clampScore(f.Raw)

	return ScoreResult{Score: f.Total, Factors: f}
}

// LeadTemperature buckets a score. Lower bounds are inclusive.
func LeadTemperature(score int) Temperature {
	switch {
	case score >= 70:
		return TemperatureHot
	case score >= 40:
		return TemperatureWarm
	case score >= 20:
		return TemperatureCold
	default:
		return TemperatureDead
	}
}

// DeterminePriority ranks c against the current time.
func DeterminePriority(c Customer, score int) Priority {
	return DeterminePriorityAt(c, score, time.Now().UTC())
}

// DeterminePriorityAt applies the priority rules in order; the first match
// wins. A credit application is urgent regardless of score, and a lead
// created within the last day is at least high.
func DeterminePriorityAt(c Customer, score int, now time.Time) Priority {
	switch {
	case hasAppliedForCredit(c) || score >= 80:
		return PriorityUrgent
	case score >= 60 || isNewLead(c, now):
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// CalculateDaysInStage returns whole days since c.UpdatedAt.
func CalculateDaysInStage(c Customer) int {
	return CalculateDaysInStageAt(c, time.Now().UTC())
}

// CalculateDaysInStageAt returns whole days since c.UpdatedAt as of now, or
// 0 when UpdatedAt is unset.
func CalculateDaysInStageAt(c Customer, now time.Time) int {
	if c.UpdatedAt.IsZero() {
		return 0
	}
	return daysBetween(c.UpdatedAt, now)
}

// SuggestNextAction picks a next step against the current time.
func SuggestNextAction(c Customer) string {
	return SuggestNextActionAt(c, time.Now().UTC())
}

// SuggestNextActionAt returns the first matching template. A missing last
// activity is not treated as stale here.
func SuggestNextActionAt(c Customer, now time.Time) string {
	switch {
	case hasAppliedForCredit(c):
		return ActionFollowUpApplication
	case c.LastActivityAt != nil && daysBetween(*c.LastActivityAt, now) > staleActionDays:
		return ActionSendCheckIn
	case present(c.StockNumber):
		return ActionSendUnitDetails
	case !present(c.Email) || !present(c.Phone):
		return ActionGetContactInfo
	default:
		return ActionMakeContact
	}
}

func activityRecencyPoints(days int) int {
	switch {
	case days <= recentActivityDays:
		return pointsRecentActivity
	case days > coldActivityDays:
		return pointsColdActivity
	case days >= coolingActivityDays:
		return pointsCoolingActivity
	default:
		return 0
	}
}

func effectiveLastActivity(last *time.Time, activities []Activity) *time.Time {
	latest := last
	for i := range activities {
		at := activities[i].CreatedAt
		if at.IsZero() {
			continue
		}
		if latest == nil || at.After(*latest) {
			latest = &at
		}
	}
	return latest
}

// daysBetween floors the elapsed time to whole days. Timestamps in the
// future count as zero days.
func daysBetween(from, now time.Time) int {
	elapsed := now.Sub(from)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}

func hasAppliedForCredit(c Customer) bool {
	return c.Applied || c.HasAppliedCredit
}

func isNewLead(c Customer, now time.Time) bool {
	if c.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(c.CreatedAt) < newLeadWindow
}

func isFinanced(financingType string) bool {
	switch strings.ToLower(strings.TrimSpace(financingType)) {
	case "finance", "rto":
		return true
	default:
		return false
	}
}

func present(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

func clampScore(value int) int {
	if value < minScore {
		return minScore
	}
	if value > maxScore {
		return maxScore
	}
	return value
}
