// Package heuristics holds the named keyword tables behind the tracker's
// "smart" features: employer-size classification for follow-up timing and
// status detection for ingested recruiter e-mails.
//
// The tables ship embedded (defaults.yaml) and can be replaced at startup
// with HEURISTICS_FILE.
package heuristics

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jobmate/tracker-service/internal/kanban"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EmployerSize buckets a company for follow-up timing.
type EmployerSize string

const (
	SizeLarge   EmployerSize = "large"
	SizeMedium  EmployerSize = "medium"
	SizeStartup EmployerSize = "startup"
)

// Table names reported in an EmployerMatch.
const (
	TableBigTech    = "big_tech"
	TableEnterprise = "enterprise"
	TableStartup    = "startup_markers"
)

// Rules models heuristics YAML.
type Rules struct {
	Version      int               `yaml:"version"`
	EmployerSize EmployerSizeRules `yaml:"employer_size"`
	EmailStatus  []EmailStatusRule `yaml:"email_status"`
}

// EmployerSizeRules are the company name lists.
type EmployerSizeRules struct {
	BigTech        []string `yaml:"big_tech"`
	Enterprise     []string `yaml:"enterprise"`
	StartupMarkers []string `yaml:"startup_markers"`
}

// EmailStatusRule maps keywords to the status an e-mail implies.
type EmailStatusRule struct {
	Status   kanban.Status `yaml:"status"`
	Keywords []string      `yaml:"keywords"`
}

// EmployerMatch explains a ClassifyEmployer result.
type EmployerMatch struct {
	Size    EmployerSize
	Table   string // empty for SizeMedium
	Keyword string
}

// Default returns the embedded tables.
func Default() *Rules {
	r, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("heuristics: embedded defaults: %v", err))
	}
	return r
}

// Load reads a YAML file; an empty path yields the defaults.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("heuristics: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("heuristics: %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate rejects empty tables and unknown statuses.
func (r *Rules) Validate() error {
	if len(r.EmployerSize.BigTech) == 0 {
		return fmt.Errorf("employer_size.big_tech must not be empty")
	}
	if len(r.EmployerSize.Enterprise) == 0 {
		return fmt.Errorf("employer_size.enterprise must not be empty")
	}
	if len(r.EmployerSize.StartupMarkers) == 0 {
		return fmt.Errorf("employer_size.startup_markers must not be empty")
	}
	if len(r.EmailStatus) == 0 {
		return fmt.Errorf("email_status must not be empty")
	}
	for i, rule := range r.EmailStatus {
		if _, err := kanban.ParseStatus(string(rule.Status)); err != nil {
			return fmt.Errorf("email_status[%d]: %w", i, err)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("email_status[%d] (%s): keywords must not be empty", i, rule.Status)
		}
	}
	return nil
}

// ClassifyEmployer checks company against big tech, then enterprise, then
// the startup markers. Anything else is medium.
func (r *Rules) ClassifyEmployer(company string) EmployerMatch {
	if kw, ok := matchAny(company, r.EmployerSize.BigTech); ok {
		return EmployerMatch{Size: SizeLarge, Table: TableBigTech, Keyword: kw}
	}
	if kw, ok := matchAny(company, r.EmployerSize.Enterprise); ok {
		return EmployerMatch{Size: SizeLarge, Table: TableEnterprise, Keyword: kw}
	}
	if kw, ok := matchAny(company, r.EmployerSize.StartupMarkers); ok {
		return EmployerMatch{Size: SizeStartup, Table: TableStartup, Keyword: kw}
	}
	return EmployerMatch{Size: SizeMedium}
}

// ClassifyEmail returns the status of the first email_status rule with a
// keyword present in text.
func (r *Rules) ClassifyEmail(text string) (kanban.Status, bool) {
	for _, rule := range r.EmailStatus {
		if _, ok := matchAny(text, rule.Keywords); ok {
			return rule.Status, true
		}
	}
	return "", false
}

// matchAny returns the first keyword that appears (case-insensitive) in text.
func matchAny(text string, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}
