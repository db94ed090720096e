package ingest

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"

	"jobmate/tracker-service/internal/heuristics"
	"jobmate/tracker-service/internal/kanban"
)

// Creator is the part of kanban.Service the ingester needs.
type Creator interface {
	Create(ctx context.Context, userID string, in kanban.Input) (*kanban.Application, error)
	Today() civil.Date
}

// Ingester parses e-mails and creates applications from them.
type Ingester struct {
	apps  Creator
	rules *heuristics.Rules
}

// New returns an Ingester.
func New(apps Creator, rules *heuristics.Rules) *Ingester {
	if rules == nil {
		rules = heuristics.Default()
	}
	return &Ingester{apps: apps, rules: rules}
}

// Ingest creates an application for userID from a pasted e-mail.
func (i *Ingester) Ingest(ctx context.Context, userID, emailText string) (*kanban.Application, error) {
	if strings.TrimSpace(emailText) == "" {
		return nil, &kanban.ValidationError{Field: "email_text", Msg: "email_text is required"}
	}

	p := Parse(emailText, i.rules)
	if p.Company == "" {
		return nil, &kanban.ValidationError{Field: "company", Msg: "could not find the company in the e-mail"}
	}
	if p.Role == "" {
		return nil, &kanban.ValidationError{Field: "role", Msg: "could not find the role in the e-mail"}
	}
	return i.apps.Create(ctx, userID, p.Input(i.apps.Today()))
}
