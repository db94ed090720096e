package kanban

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// MinFieldLength is the minimum trimmed length of company, role and location.
const MinFieldLength = 2

// Application is the JSON shape returned to the web client.
type Application struct {
	ID              string        `json:"id"`
	UserID          string        `json:"-"`
	Company         string        `json:"company"`
	Role            string        `json:"role"`
	Location        string        `json:"location"`
	Status          Status        `json:"status"`
	Source          string        `json:"source"`
	AppliedDate     *civil.Date   `json:"applied_date"`
	LastContactDate *civil.Date   `json:"last_contact_date"`
	NextActionDate  *civil.Date   `json:"next_action_date"`
	FollowUpDate    *civil.Date   `json:"follow_up_date"`
	FollowUpSent    int           `json:"follow_up_sent"`
	ReminderEnabled bool          `json:"reminder_enabled"`
	Notes           string        `json:"notes"`
	History         []HistoryItem `json:"history"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// Version is bumped by every stored update; a write carrying a stale
	// version is refused with ErrConflict.
	Version int `json:"-"`
}

// HistoryItem records one status move.
type HistoryItem struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
}

// Input is the body of POST /applications/.
type Input struct {
	Company         string      `json:"company"`
	Role            string      `json:"role"`
	Location        string      `json:"location"`
	Status          string      `json:"status,omitempty"`
	Source          string      `json:"source,omitempty"`
	AppliedDate     *civil.Date `json:"applied_date,omitempty"`
	LastContactDate *civil.Date `json:"last_contact_date,omitempty"`
	NextActionDate  *civil.Date `json:"next_action_date,omitempty"`
	FollowUpDate    *civil.Date `json:"follow_up_date,omitempty"`
	FollowUpSent    *int        `json:"follow_up_sent,omitempty"`
	ReminderEnabled *bool       `json:"reminder_enabled,omitempty"`
	Notes           string      `json:"notes,omitempty"`
}

// Patch is the body of PATCH /applications/{id}. Nil fields are left alone;
// date fields distinguish "absent" from an explicit null that clears them.
type Patch struct {
	Company         *string      `json:"company,omitempty"`
	Role            *string      `json:"role,omitempty"`
	Location        *string      `json:"location,omitempty"`
	Status          *string      `json:"status,omitempty"`
	Source          *string      `json:"source,omitempty"`
	AppliedDate     NullableDate `json:"applied_date"`
	LastContactDate NullableDate `json:"last_contact_date"`
	NextActionDate  NullableDate `json:"next_action_date"`
	FollowUpDate    NullableDate `json:"follow_up_date"`
	FollowUpSent    *int         `json:"follow_up_sent,omitempty"`
	ReminderEnabled *bool        `json:"reminder_enabled,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
}

// NullableDate is a tri-state date for partial updates.
type NullableDate struct {
	Set  bool
	Date *civil.Date
}

// SetDate returns a NullableDate that sets d.
func SetDate(d civil.Date) NullableDate { return NullableDate{Set: true, Date: &d} }

// ClearDate returns a NullableDate that clears the field.
func ClearDate() NullableDate { return NullableDate{Set: true} }

// UnmarshalJSON marks the field as present; JSON null clears it.
func (n *NullableDate) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Date = nil
		return nil
	}
	var d civil.Date
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	n.Date = &d
	return nil
}

// MarshalJSON writes null for an unset or cleared date.
func (n NullableDate) MarshalJSON() ([]byte, error) {
	if n.Date == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Date)
}

func (n NullableDate) apply(dst **civil.Date) {
	if !n.Set {
		return
	}
	if n.Date == nil {
		*dst = nil
		return
	}
	d := *n.Date
	*dst = &d
}

// ─── Validation ──────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when an application is missing or does not belong to the user.
	ErrNotFound = errors.New("application not found")
	// ErrConflict is returned when the application changed between read and write.
	ErrConflict = errors.New("application was modified concurrently, reload and try again")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// ValidateRequired checks one of the required text fields.
func ValidateRequired(field, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return &ValidationError{Field: field, Msg: fmt.Sprintf("%s is required", field)}
	}
	if len([]rune(v)) < MinFieldLength {
		return &ValidationError{
			Field: field,
			Msg:   fmt.Sprintf("%s must be at least %d characters", field, MinFieldLength),
		}
	}
	return nil
}

// Validate checks a create request before anything touches storage.
func (in Input) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"company", in.Company},
		{"role", in.Role},
		{"location", in.Location},
	} {
		if err := ValidateRequired(f.name, f.value); err != nil {
			return err
		}
	}
	if in.Status != "" {
		if _, err := ParseStatus(in.Status); err != nil {
			return &ValidationError{Field: "status", Msg: err.Error()}
		}
	}
	if in.FollowUpSent != nil && *in.FollowUpSent < 0 {
		return &ValidationError{Field: "follow_up_sent", Msg: "follow_up_sent must not be negative"}
	}
	return nil
}

// newApplication builds the record to insert from a validated Input.
func newApplication(userID string, in Input) *Application {
	a := &Application{
		UserID:          userID,
		Company:         strings.TrimSpace(in.Company),
		Role:            strings.TrimSpace(in.Role),
		Location:        strings.TrimSpace(in.Location),
		Status:          StatusApplied,
		Source:          strings.TrimSpace(in.Source),
		AppliedDate:     in.AppliedDate,
		LastContactDate: in.LastContactDate,
		NextActionDate:  in.NextActionDate,
		FollowUpDate:    in.FollowUpDate,
		ReminderEnabled: true,
		Notes:           in.Notes,
		History:         []HistoryItem{},
	}
	if in.Status != "" {
		a.Status = Status(in.Status)
	}
	if in.FollowUpSent != nil {
		a.FollowUpSent = *in.FollowUpSent
	}
	if in.ReminderEnabled != nil {
		a.ReminderEnabled = *in.ReminderEnabled
	}
	return a
}

// apply validates p against a and writes the changes into a. It returns the
// previous status when the patch moved the card.
func (p Patch) apply(a *Application) (moved bool, from Status, err error) {
	text := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"company", p.Company, &a.Company},
		{"role", p.Role, &a.Role},
		{"location", p.Location, &a.Location},
	}
	for _, f := range text {
		if f.src == nil {
			continue
		}
		if err := ValidateRequired(f.name, *f.src); err != nil {
			return false, "", err
		}
	}

	var newStatus Status
	if p.Status != nil {
		newStatus, err = ParseStatus(*p.Status)
		if err != nil {
			return false, "", &ValidationError{Field: "status", Msg: err.Error()}
		}
	}
	if p.FollowUpSent != nil {
		if *p.FollowUpSent < 0 {
			return false, "", &ValidationError{Field: "follow_up_sent", Msg: "follow_up_sent must not be negative"}
		}
		if *p.FollowUpSent < a.FollowUpSent {
			return false, "", &ValidationError{
				Field: "follow_up_sent",
				Msg:   fmt.Sprintf("follow_up_sent cannot decrease (currently %d)", a.FollowUpSent),
			}
		}
	}

	for _, f := range text {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
		}
	}
	if p.Source != nil {
		a.Source = strings.TrimSpace(*p.Source)
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.FollowUpSent != nil {
		a.FollowUpSent = *p.FollowUpSent
	}
	if p.ReminderEnabled != nil {
		a.ReminderEnabled = *p.ReminderEnabled
	}
	p.AppliedDate.apply(&a.AppliedDate)
	p.LastContactDate.apply(&a.LastContactDate)
	p.NextActionDate.apply(&a.NextActionDate)
	p.FollowUpDate.apply(&a.FollowUpDate)

	if p.Status != nil && newStatus != a.Status {
		from = a.Status
		a.Status = newStatus
		return true, from, nil
	}
	return false, "", nil
}
