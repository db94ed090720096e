// Package coverletter drafts cover letters for the /ai/cover-letter route.
//
// The default generator fills a text template; nothing is inferred. When a
// Gemini key is configured an LLM generator is used instead, falling back to
// the template whenever the model errors or returns nothing.
package coverletter

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"jobmate/tracker-service/internal/kanban"
)

// Request is the body of POST /ai/cover-letter.
type Request struct {
	YourName       string `json:"your_name"`
	ResumeSummary  string `json:"resume_summary"`
	JobDescription string `json:"job_description"`
	Company        string `json:"company"`
	Role           string `json:"role"`
}

// Validate checks the fields a letter cannot be written without.
func (r Request) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"your_name", r.YourName},
		{"company", r.Company},
		{"role", r.Role},
	} {
		if err := kanban.ValidateRequired(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (r Request) trimmed() Request {
	return Request{
		YourName:       strings.TrimSpace(r.YourName),
		ResumeSummary:  strings.TrimSpace(r.ResumeSummary),
		JobDescription: strings.TrimSpace(r.JobDescription),
		Company:        strings.TrimSpace(r.Company),
		Role:           strings.TrimSpace(r.Role),
	}
}

// Generator turns a validated request into letter text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Service validates requests and delegates to a Generator.
type Service struct {
	gen Generator
}

// NewService returns a Service using gen, or the template when gen is nil.
func NewService(gen Generator) *Service {
	if gen == nil {
		gen = NewTemplateGenerator()
	}
	return &Service{gen: gen}
}

// Write produces the cover letter for req.
func (s *Service) Write(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	letter, err := s.gen.Generate(ctx, req.trimmed())
	if err != nil {
		return "", fmt.Errorf("generate cover letter: %w", err)
	}
	return strings.TrimSpace(letter), nil
}

const letterTemplate = `Dear {{.Company}} Hiring Team,

I am writing to apply for the {{.Role}} position at {{.Company}}.
{{- with .ResumeSummary}}

{{.}}
{{- end}}
{{- with .JobDescription}}

Your posting stood out to me: {{excerpt .}} I am confident my experience
lines up with what the role asks for, and I would enjoy contributing from day one.
{{- else}}

I am confident my experience lines up with what the role asks for, and I would
enjoy contributing from day one.
{{- end}}

Thank you for your time and consideration. I would welcome the chance to
discuss how I can help {{.Company}}.

Sincerely,
{{.YourName}}
`

const excerptRunes = 200

// TemplateGenerator fills a fixed letter template.
type TemplateGenerator struct {
	tmpl *template.Template
}

// NewTemplateGenerator parses the built-in template.
func NewTemplateGenerator() *TemplateGenerator {
	tmpl := template.Must(template.New("cover-letter").Funcs(template.FuncMap{
		"excerpt": excerpt,
	}).Parse(letterTemplate))
	return &TemplateGenerator{tmpl: tmpl}
}

func (g *TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// excerpt returns the first sentence of s, capped at excerptRunes.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		s = s[:i+1]
	}
	r := []rune(s)
	if len(r) > excerptRunes {
		s = strings.TrimSpace(string(r[:excerptRunes])) + "..."
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") && !strings.HasSuffix(s, "...") {
		s += "."
	}
	return s
}
