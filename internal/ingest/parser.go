// Package ingest turns a pasted recruiter e-mail into a new application.
//
// Parsing is keyword and pattern based: headers when the text carries them,
// "Label: value" lines, a few common phrasings for company and role, and the
// heuristics e-mail table for the status. Anything it cannot find is reported
// as a validation error so the user can fill it in by hand.
package ingest

import (
	"bufio"
	"io"
	"net/mail"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"

	"jobmate/tracker-service/internal/heuristics"
	"jobmate/tracker-service/internal/kanban"
)

// Source is stored on every ingested application.
const Source = "Email"

// DefaultLocation is used when the e-mail names no location.
const DefaultLocation = "Remote"

// Parsed is what the parser could read from an e-mail.
type Parsed struct {
	Subject  string
	From     string
	Company  string
	Role     string
	Location string
	Status   kanban.Status
	Date     *civil.Date
}

var (
	rolePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)application (?:for|to) (?:the |our )?(?:position of |role of )?([^\n.,!;:]+?) (?:position|role|opening|job)\b`),
		regexp.MustCompile(`(?i)application (?:for|to) (?:the |our )?(?:position of |role of )?([^\n.,!;:]+?) (?:at|with)\s`),
		regexp.MustCompile(`(?i)(?:interest|applying) (?:in|for) (?:the |our )?([^\n.,!;:]+?) (?:position|role|opening)\b`),
		regexp.MustCompile(`(?i)\bfor (?:the |our |a |an )?([^\n.,!;:]{2,60}?) (?:position|role|opening) (?:at|with)\s`),
	}
	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:position|role|opening|job) (?:at|with) ([A-Z0-9][\w&'\- ]{0,40}?[\w&])(?:[\s]*[.,!;:\n]|\s+(?:and|for|has|is|we)\b|$)`),
		regexp.MustCompile(`(?i)\b(?:applying|application) (?:to|with) ([A-Z0-9][\w&'\- ]{0,40}?[\w&])(?:[\s]*[.,!;:\n]|\s+(?:and|for|has|is|we)\b|$)`),
		regexp.MustCompile(`(?i)\binterest in (?:joining |working at )?([A-Z0-9][\w&'\- ]{0,40}?[\w&])(?:[\s]*[.,!;:\n]|$)`),
	}
	senderNoise = regexp.MustCompile(`(?i)\b(?:recruiting|recruitment|careers?|talent(?: acquisition)?|hiring|hr|jobs|team|no-?reply|notifications?)\b`)
)

// Sender domains that say nothing about the employer.
var genericDomains = map[string]bool{
	"gmail": true, "googlemail": true, "outlook": true, "hotmail": true, "yahoo": true,
	"icloud": true, "proton": true, "protonmail": true, "greenhouse": true, "lever": true,
	"workday": true, "myworkday": true, "smartrecruiters": true, "ashbyhq": true,
	"linkedin": true, "indeed": true, "workable": true, "teamtailor": true, "bamboohr": true,
}

// Parse reads text and fills what it can.
func Parse(text string, rules *heuristics.Rules) Parsed {
	if rules == nil {
		rules = heuristics.Default()
	}
	header, body := splitMessage(text)

	p := Parsed{
		Subject: strings.TrimSpace(header.Get("Subject")),
		From:    strings.TrimSpace(header.Get("From")),
	}
	if t, err := header.Date(); err == nil {
		d := civil.DateOf(t)
		p.Date = &d
	}

	labels := labelLines(body)
	haystack := p.Subject + "\n" + body

	p.Role = firstNonEmpty(labels["role"], labels["position"], labels["job title"], labels["title"],
		matchFirst(rolePatterns, haystack))
	p.Company = firstNonEmpty(labels["company"], labels["employer"],
		matchFirst(companyPatterns, haystack), companyFromSender(p.From))
	p.Location = firstNonEmpty(labels["location"], DefaultLocation)

	p.Status = kanban.StatusApplied
	if st, ok := rules.ClassifyEmail(haystack); ok {
		p.Status = st
	}
	return p
}

// Input converts the parse result into a create request. today is the applied
// date when the message carries no Date header.
func (p Parsed) Input(today civil.Date) kanban.Input {
	applied := today
	if p.Date != nil {
		applied = *p.Date
	}
	notes := "Imported from e-mail"
	if p.Subject != "" {
		notes += ": " + p.Subject
	}
	return kanban.Input{
		Company:     p.Company,
		Role:        p.Role,
		Location:    p.Location,
		Status:      string(p.Status),
		Source:      Source,
		AppliedDate: &applied,
		Notes:       notes,
	}
}

// splitMessage parses RFC 5322 headers when the text starts with them;
// otherwise the whole text is the body.
func splitMessage(text string) (mail.Header, string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	trimmed := strings.TrimLeft(text, " \t\n")
	msg, err := mail.ReadMessage(strings.NewReader(trimmed))
	if err == nil && (msg.Header.Get("From") != "" || msg.Header.Get("Subject") != "") {
		body, err := io.ReadAll(msg.Body)
		if err == nil {
			return msg.Header, string(body)
		}
	}
	return mail.Header{}, text
}

// labelLines collects "Label: value" lines, keyed by lower-case label.
func labelLines(body string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(body))
	// No line can be longer than the body itself.
	sc.Buffer(make([]byte, 0, 4096), len(body)+1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if value == "" || len(label) > 20 {
			continue
		}
		if _, seen := out[label]; !seen {
			out[label] = value
		}
	}
	return out
}

func matchFirst(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// companyFromSender uses the display name without recruiting words, then the
// sender's domain.
func companyFromSender(from string) string {
	if from == "" {
		return ""
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return ""
	}
	if name := strings.Join(strings.Fields(senderNoise.ReplaceAllString(addr.Name, " ")), " "); name != "" {
		name = strings.Trim(name, " -|@,")
		if name != "" {
			return name
		}
	}

	_, domain, ok := strings.Cut(addr.Address, "@")
	if !ok {
		return ""
	}
	labels := strings.Split(strings.ToLower(domain), ".")
	if len(labels) < 2 {
		return ""
	}
	org := labels[len(labels)-2]
	if len(labels) >= 3 && len(org) <= 3 && (org == "co" || org == "com") {
		org = labels[len(labels)-3]
	}
	if genericDomains[org] || org == "" {
		return ""
	}
	return strings.ToUpper(org[:1]) + org[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
