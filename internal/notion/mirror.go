// Package notion mirrors newly created applications into a Notion database.
package notion

import (
	"context"
	"fmt"
	"time"

	gnt "github.com/dstotijn/go-notion"
	"github.com/rs/zerolog/log"

	"jobmate/tracker-service/internal/kanban"
)

// PageCreator is the slice of the go-notion client the mirror calls.
type PageCreator interface {
	CreatePage(ctx context.Context, params gnt.CreatePageParams) (gnt.Page, error)
}

// Mirror writes one database row per application.
type Mirror struct {
	api        PageCreator
	databaseID string
}

// New returns a Mirror using the Notion API with token.
func New(token, databaseID string) *Mirror {
	return NewWithClient(gnt.NewClient(token), databaseID)
}

// NewWithClient returns a Mirror on an existing client.
func NewWithClient(api PageCreator, databaseID string) *Mirror {
	return &Mirror{api: api, databaseID: databaseID}
}

// MirrorApplication creates the Notion page for a.
func (m *Mirror) MirrorApplication(ctx context.Context, a *kanban.Application) error {
	props := pageProperties(a)
	page, err := m.api.CreatePage(ctx, gnt.CreatePageParams{
		ParentType:             gnt.ParentTypeDatabase,
		ParentID:               m.databaseID,
		DatabasePageProperties: &props,
	})
	if err != nil {
		return fmt.Errorf("notion create page: %w", err)
	}
	log.Debug().Str("applicationId", a.ID).Str("pageId", page.ID).Msg("application mirrored to notion")
	return nil
}

// richText builds a Notion rich_text slice from a plain string.
func richText(s string) []gnt.RichText {
	if s == "" {
		return nil
	}
	return []gnt.RichText{{Text: &gnt.Text{Content: s}}}
}

func pageProperties(a *kanban.Application) gnt.DatabasePageProperties {
	props := gnt.DatabasePageProperties{
		// Title property, required by Notion.
		"Position": gnt.DatabasePageProperty{Title: richText(a.Role)},
		"Company":  gnt.DatabasePageProperty{RichText: richText(a.Company)},
		"Stage":    gnt.DatabasePageProperty{Select: &gnt.SelectOptions{Name: string(a.Status)}},
	}
	if a.Location != "" {
		props["location"] = gnt.DatabasePageProperty{RichText: richText(a.Location)}
	}
	if a.Source != "" {
		props["Source"] = gnt.DatabasePageProperty{Select: &gnt.SelectOptions{Name: a.Source}}
	}
	if a.Notes != "" {
		props["Notes"] = gnt.DatabasePageProperty{RichText: richText(a.Notes)}
	}
	if a.AppliedDate != nil {
		props["Applied"] = gnt.DatabasePageProperty{
			Date: &gnt.Date{Start: gnt.NewDateTime(a.AppliedDate.In(time.UTC), false)},
		}
	}
	if a.FollowUpDate != nil {
		props["Follow-up"] = gnt.DatabasePageProperty{
			Date: &gnt.Date{Start: gnt.NewDateTime(a.FollowUpDate.In(time.UTC), false)},
		}
	}
	return props
}
