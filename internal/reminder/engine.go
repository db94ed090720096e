// Package reminder derives actionable reminders from the application list.
//
// ComputeReminders is a pure function of (applications, today, dismissed):
// nothing is stored, and the same inputs always yield the same list. Reminder
// ids are deterministic (rule + application id) so a dismissal survives
// recomputation; the id deliberately does not encode how overdue a reminder
// is, so a dismissed overdue reminder stays dismissed while it grows older.
package reminder

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"jobmate/tracker-service/internal/kanban"
)

// StaleAfterDays is the inactivity threshold for an APPLIED application.
const StaleAfterDays = 14

// Type classifies a reminder.
type Type string

const (
	TypeOverdue     Type = "overdue"
	TypeDueToday    Type = "due-today"
	TypeDueTomorrow Type = "due-tomorrow"
	TypeStale       Type = "stale"
)

// Priority orders reminders; high sorts first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Id prefixes; the application id is appended.
const (
	prefixFollowUpOverdue    = "follow-up-overdue-"
	prefixFollowUpToday      = "follow-up-due-today-"
	prefixFollowUpTomorrow   = "follow-up-due-tomorrow-"
	prefixNextActionOverdue  = "next-action-overdue-"
	prefixNextActionDueToday = "next-action-due-today-"
	prefixStale              = "stale-"
)

// Reminder is a derived, non-persistent notice.
type Reminder struct {
	ID                string      `json:"id"`
	Type              Type        `json:"type"`
	Priority          Priority    `json:"priority"`
	ApplicationID     string      `json:"application_id"`
	Title             string      `json:"title"`
	Message           string      `json:"message"`
	DueDate           *civil.Date `json:"due_date,omitempty"`
	DaysOverdue       int         `json:"days_overdue,omitempty"`
	DaysSinceActivity int         `json:"days_since_activity,omitempty"`
}

// Dismissed is a set of reminder ids hidden by the user.
type Dismissed map[string]struct{}

// NewDismissed builds a set from ids.
func NewDismissed(ids ...string) Dismissed {
	d := make(Dismissed, len(ids))
	for _, id := range ids {
		d[id] = struct{}{}
	}
	return d
}

// Has reports whether id is dismissed. A nil set dismisses nothing.
func (d Dismissed) Has(id string) bool {
	_, ok := d[id]
	return ok
}

// ComputeReminders evaluates the reminder rules for every application with
// reminders enabled and returns the non-dismissed results ordered high →
// medium → low, keeping input order within a priority.
func ComputeReminders(apps []kanban.Application, today civil.Date, dismissed Dismissed) []Reminder {
	out := make([]Reminder, 0)
	emit := func(r Reminder) {
		if dismissed.Has(r.ID) {
			return
		}
		out = append(out, r)
	}

	tomorrow := today.AddDays(1)
	for i := range apps {
		a := &apps[i]
		if !a.ReminderEnabled {
			continue
		}

		if d := a.FollowUpDate; d != nil {
			switch {
			case d.Before(today):
				days := today.DaysSince(*d)
				emit(Reminder{
					ID:            prefixFollowUpOverdue + a.ID,
					Type:          TypeOverdue,
					Priority:      PriorityHigh,
					ApplicationID: a.ID,
					Title:         fmt.Sprintf("Follow-up overdue: %s", a.Company),
					Message: fmt.Sprintf("Your follow-up for %s at %s is %s overdue.",
						a.Role, a.Company, plural(days, "day")),
					DueDate:     dateCopy(*d),
					DaysOverdue: days,
				})
			case *d == today:
				emit(Reminder{
					ID:            prefixFollowUpToday + a.ID,
					Type:          TypeDueToday,
					Priority:      PriorityHigh,
					ApplicationID: a.ID,
					Title:         fmt.Sprintf("Follow-up due today: %s", a.Company),
					Message:       fmt.Sprintf("Send your follow-up for %s at %s today.", a.Role, a.Company),
					DueDate:       dateCopy(*d),
				})
			case *d == tomorrow:
				emit(Reminder{
					ID:            prefixFollowUpTomorrow + a.ID,
					Type:          TypeDueTomorrow,
					Priority:      PriorityMedium,
					ApplicationID: a.ID,
					Title:         fmt.Sprintf("Follow-up due tomorrow: %s", a.Company),
					Message:       fmt.Sprintf("Prepare your follow-up for %s at %s; it is due tomorrow.", a.Role, a.Company),
					DueDate:       dateCopy(*d),
				})
			}
		}

		if d := a.NextActionDate; d != nil {
			switch {
			case d.Before(today):
				days := today.DaysSince(*d)
				emit(Reminder{
					ID:            prefixNextActionOverdue + a.ID,
					Type:          TypeOverdue,
					Priority:      PriorityHigh,
					ApplicationID: a.ID,
					Title:         fmt.Sprintf("Next action overdue: %s", a.Company),
					Message: fmt.Sprintf("The next step for %s at %s was due %s ago.",
						a.Role, a.Company, plural(days, "day")),
					DueDate:     dateCopy(*d),
					DaysOverdue: days,
				})
			case *d == today:
				emit(Reminder{
					ID:            prefixNextActionDueToday + a.ID,
					Type:          TypeDueToday,
					Priority:      PriorityHigh,
					ApplicationID: a.ID,
					Title:         fmt.Sprintf("Next action due today: %s", a.Company),
					Message:       fmt.Sprintf("The next step for %s at %s is due today.", a.Role, a.Company),
					DueDate:       dateCopy(*d),
				})
			}
		}

		if a.Status == kanban.StatusApplied {
			last := a.LastContactDate
			if last == nil {
				last = a.AppliedDate
			}
			if last != nil {
				if days := today.DaysSince(*last); days >= StaleAfterDays {
					emit(Reminder{
						ID:            prefixStale + a.ID,
						Type:          TypeStale,
						Priority:      PriorityLow,
						ApplicationID: a.ID,
						Title:         fmt.Sprintf("No response from %s", a.Company),
						Message: fmt.Sprintf("No activity on %s at %s for %s. Consider following up.",
							a.Role, a.Company, plural(days, "day")),
						DaysSinceActivity: days,
					})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.rank() < out[j].Priority.rank()
	})
	return out
}

// IDs returns the reminder ids in order.
func IDs(rs []Reminder) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// Filter drops dismissed reminders, preserving order.
func Filter(rs []Reminder, dismissed Dismissed) []Reminder {
	out := make([]Reminder, 0, len(rs))
	for _, r := range rs {
		if !dismissed.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

func dateCopy(d civil.Date) *civil.Date { return &d }

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
