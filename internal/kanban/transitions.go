// Package kanban defines the application lifecycle for the tracker.
//
// Status board (every card can move to every other column):
//
//	APPLIED  INTERVIEWING  OFFER  ACCEPTED  REJECTED  ON_HOLD
//
// There is no transition graph: the user picks any of the six statuses
// directly from the card, and only a move onto the card's current status is
// refused.
package kanban

import "fmt"

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusApplied      Status = "APPLIED"
	StatusInterviewing Status = "INTERVIEWING"
	StatusOffer        Status = "OFFER"
	StatusAccepted     Status = "ACCEPTED"
	StatusRejected     Status = "REJECTED"
	StatusOnHold       Status = "ON_HOLD"
)

// Statuses lists every board column in display order.
var Statuses = []Status{
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusAccepted,
	StatusRejected,
	StatusOnHold,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusInterviewing, StatusOffer, StatusAccepted, StatusRejected, StatusOnHold:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when a card may move from → to: both
// statuses are known and differ.
func IsTransitionAllowed(from, to Status) bool {
	if _, err := ParseStatus(string(from)); err != nil {
		return false
	}
	if _, err := ParseStatus(string(to)); err != nil {
		return false
	}
	return from != to
}

// IsClosed returns true for statuses where the search for this role is over.
func IsClosed(s Status) bool { return s == StatusAccepted || s == StatusRejected }
