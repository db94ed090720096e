// Package advisor recommends when to send the next follow-up for an
// application. It is calendar arithmetic over the application's status, its
// applied date and the employer size tables; nothing is stored.
package advisor

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"jobmate/tracker-service/internal/heuristics"
	"jobmate/tracker-service/internal/kanban"
)

// Urgency of a follow-up.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

const (
	largeEmployerExtraDays = 3
	startupFewerDays       = 2
	minDelayDays           = 1
)

// Timing is a follow-up recommendation.
type Timing struct {
	ApplicationID    string                  `json:"application_id"`
	RecommendedDate  civil.Date              `json:"recommended_date"`
	Urgency          Urgency                 `json:"urgency"`
	Reasoning        string                  `json:"reasoning"`
	DelayDays        int                     `json:"delay_days"`
	EmployerSize     heuristics.EmployerSize `json:"employer_size"`
	DaysSinceApplied int                     `json:"days_since_applied"`
}

// RecommendFollowUpTiming computes the recommendation for app as of today.
// DelayDays is the delay after the employer-size adjustment and before the
// date is moved off weekends, Mondays and Fridays.
func RecommendFollowUpTiming(app kanban.Application, today civil.Date, rules *heuristics.Rules) Timing {
	if rules == nil {
		rules = heuristics.Default()
	}

	daysSince := 0
	if app.AppliedDate != nil {
		daysSince = today.DaysSince(*app.AppliedDate)
	}
	if daysSince < 0 {
		daysSince = 0
	}

	delay, urgency, reason := baseDelay(app.Status, daysSince)

	match := rules.ClassifyEmployer(app.Company)
	var sizeClause string
	switch match.Size {
	case heuristics.SizeLarge:
		delay += largeEmployerExtraDays
		sizeClause = fmt.Sprintf("%s is a large employer (%s list), so allow %d extra days for slower hiring loops.",
			app.Company, tableLabel(match.Table), largeEmployerExtraDays)
	case heuristics.SizeStartup:
		delay -= startupFewerDays
		if delay < minDelayDays {
			delay = minDelayDays
		}
		sizeClause = fmt.Sprintf("%s looks like a startup, which tends to move fast, so follow up sooner.", app.Company)
	default:
		sizeClause = "No employer size adjustment applied."
	}

	date := avoidEdgesOfWeek(today.AddDays(delay))

	return Timing{
		ApplicationID:    app.ID,
		RecommendedDate:  date,
		Urgency:          urgency,
		Reasoning:        reason + " " + sizeClause,
		DelayDays:        delay,
		EmployerSize:     match.Size,
		DaysSinceApplied: daysSince,
	}
}

func baseDelay(status kanban.Status, daysSince int) (int, Urgency, string) {
	switch status {
	case kanban.StatusApplied:
		switch {
		case daysSince >= 14:
			return 1, UrgencyHigh, fmt.Sprintf("It has been %d days since you applied with no update; follow up now.", daysSince)
		case daysSince >= 7:
			return 3, UrgencyMedium, fmt.Sprintf("It has been %d days since you applied; a polite check-in is appropriate soon.", daysSince)
		default:
			return 7 - daysSince, UrgencyLow, fmt.Sprintf("You applied %d days ago; give the team a full week before checking in.", daysSince)
		}
	case kanban.StatusInterviewing:
		return 2, UrgencyHigh, "You are interviewing; send a thank-you or status check within two days."
	case kanban.StatusOffer:
		return 1, UrgencyHigh, "You have an offer; respond or follow up on open questions promptly."
	default:
		if kanban.IsClosed(status) {
			return 14, UrgencyLow, fmt.Sprintf("The application is closed (%s); a courtesy note in two weeks keeps the contact warm.", status)
		}
		return 14, UrgencyLow, fmt.Sprintf("The application is %s; a light check-in in two weeks is enough.", status)
	}
}

// avoidEdgesOfWeek moves a date that falls on Friday through Monday to the
// following Tuesday.
func avoidEdgesOfWeek(d civil.Date) civil.Date {
	switch d.In(time.UTC).Weekday() {
	case time.Sunday:
		return d.AddDays(2)
	case time.Saturday:
		return d.AddDays(3)
	case time.Monday:
		return d.AddDays(1)
	case time.Friday:
		return d.AddDays(4)
	default:
		return d
	}
}

func tableLabel(table string) string {
	switch table {
	case heuristics.TableBigTech:
		return "big tech"
	case heuristics.TableEnterprise:
		return "enterprise"
	default:
		return table
	}
}
