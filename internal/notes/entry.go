package notes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "<description> by @<author> in <#n | pull url>"
	attributionRegex = regexp.MustCompile(`^(.*?)\s+by\s+@(\S+)\s+in\s+(\S+)$`)
	prRefRegex       = regexp.MustCompile(`^(?:#|\S*/pull/)(\d+)/?$`)

	leadingLinkRegex  = regexp.MustCompile(`^\[([A-Z][A-Z0-9]*-\d+)\](?:\([^)]*\))?(?:\s*[:\-]\s*|\s+|$)`)
	leadingTokenRegex = regexp.MustCompile(`^([A-Z][A-Z0-9]*-\d+)(?:\s*[:\-]\s*|\s+|$)`)

	newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// Entry is one parsed note line.
type Entry struct {
	Ticket      TicketRef
	HasTicket   bool
	Description string
	Author      string
	PR          int

	// Line is the rendered Markdown line, filled in by the Formatter.
	Line string
}

func (e Entry) hasAttribution() bool {
	return e.Author != "" && e.PR > 0
}

func parseEntry(raw string, m *Matcher) Entry {
	// one note line renders as one list item
	text := stripBullet(strings.TrimSpace(newlineReplacer.Replace(raw)))

	var e Entry
	e.Ticket, e.HasTicket = m.Find(text)

	desc := text
	if match := attributionRegex.FindStringSubmatch(text); match != nil {
		if pr, ok := parsePRRef(match[3]); ok {
			desc = match[1]
			e.Author = match[2]
			e.PR = pr
		}
	}
	if e.HasTicket {
		desc = stripLeadingTicket(desc, e.Ticket)
	}
	e.Description = strings.TrimSpace(desc)
	return e
}

func (e Entry) render(trackerURL string) string {
	var b strings.Builder
	if e.HasTicket {
		t := e.Ticket.String()
		fmt.Fprintf(&b, "[%s](%s/%s)", t, trackerURL, t)
		if e.Description != "" {
			b.WriteString(" ")
		}
	}
	b.WriteString(e.Description)
	if e.hasAttribution() {
		fmt.Fprintf(&b, " by @%s in #%d", e.Author, e.PR)
	}
	return strings.TrimSpace(b.String())
}

func stripBullet(s string) string {
	for _, bullet := range []string{"* ", "- ", "+ "} {
		if strings.HasPrefix(s, bullet) {
			return strings.TrimSpace(s[len(bullet):])
		}
	}
	return s
}

// stripLeadingTicket removes a ticket marker for t from the start of desc.
// Markers for other tickets are part of the description and stay.
func stripLeadingTicket(desc string, t TicketRef) string {
	for _, re := range []*regexp.Regexp{leadingLinkRegex, leadingTokenRegex} {
		loc := re.FindStringSubmatchIndex(desc)
		if loc == nil {
			continue
		}
		if desc[loc[2]:loc[3]] == t.String() {
			return desc[loc[1]:]
		}
	}
	return desc
}

func parsePRRef(ref string) (int, bool) {
	match := prRefRegex.FindStringSubmatch(ref)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
