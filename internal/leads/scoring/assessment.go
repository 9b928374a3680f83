package scoring

import "time"

// Assessment bundles every engine output for one customer.
type Assessment struct {
	Score       int         `json:"score"`
	Factors     Factors     `json:"factors"`
	Temperature Temperature `json:"temperature"`
	Priority    Priority    `json:"priority"`
	DaysInStage int         `json:"daysInStage"`
	NextAction  string      `json:"nextAction"`
}

// Evaluate runs the whole engine as of now. The activity list, when given,
// feeds the last-activity timestamp of both the score and the next action.
func Evaluate(c Customer, activities []Activity, now time.Time) Assessment {
	c.LastActivityAt = effectiveLastActivity(c.LastActivityAt, activities)
	result := CalculateLeadScoreAt(c, nil, now)
	return Assessment{
		Score:       result.Score,
		Factors:     result.Factors,
		Temperature: LeadTemperature(result.Score),
		Priority:    DeterminePriorityAt(c, result.Score, now),
		DaysInStage: CalculateDaysInStageAt(c, now),
		NextAction:  SuggestNextActionAt(c, now),
	}
}
