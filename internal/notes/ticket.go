package notes

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TicketRef identifies an issue-tracker ticket such as PDE-3441.
type TicketRef struct {
	Prefix string
	Number int
	// Digits is the number as written, so PD-007 keeps its leading zeros.
	Digits string
}

func (t TicketRef) String() string {
	if t.Digits != "" {
		return t.Prefix + "-" + t.Digits
	}
	return fmt.Sprintf("%s-%d", t.Prefix, t.Number)
}

// Matcher finds ticket tokens in note lines.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher builds a matcher for the given ticket prefixes.
// With no prefixes any upper-case alphabetic code is accepted.
func NewMatcher(prefixes []string) *Matcher {
	alt := `[A-Z]+`
	if known := normalizePrefixes(prefixes); len(known) > 0 {
		quoted := make([]string, len(known))
		for i, p := range known {
			quoted[i] = regexp.QuoteMeta(p)
		}
		alt = strings.Join(quoted, "|")
	}
	return &Matcher{re: regexp.MustCompile(`\b(` + alt + `)-(\d+)\b`)}
}

// Find returns the first ticket token in line.
func (m *Matcher) Find(line string) (TicketRef, bool) {
	for _, match := range m.re.FindAllStringSubmatch(line, -1) {
		n, err := strconv.Atoi(match[2])
		if err != nil {
			// digits too long for an int, keep looking
			continue
		}
		return TicketRef{Prefix: match[1], Number: n, Digits: match[2]}, true
	}
	return TicketRef{}, false
}

var defaultMatcher = NewMatcher(DefaultPrefixes)

// ParseTicket finds the first ticket token using the default prefixes.
func ParseTicket(line string) (TicketRef, bool) {
	return defaultMatcher.Find(line)
}

// normalizePrefixes dedupes prefixes and orders them longest first so that
// alternation never prefers PD over PDE.
func normalizePrefixes(prefixes []string) []string {
	seen := make(map[string]bool, len(prefixes))
	var out []string
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
