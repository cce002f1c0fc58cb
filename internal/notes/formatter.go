package notes

import (
	"bytes"
	_ "embed"
	"sort"
	"strings"
	"text/template"
)

const (
	DefaultTrackerURL     = "https://onezelis.atlassian.net/browse"
	DefaultUngroupedTitle = "Other Changes"
	DefaultEmptyMessage   = "No changes in this release."
)

// DefaultPrefixes are the ticket types the release notes are grouped by.
var DefaultPrefixes = []string{"PD", "PDE", "PRDY"}

var (
	//go:embed RELEASE_NOTES.tpl.md
	releaseNotesTplFile string

	releaseNotesTemplate = template.Must(template.New("release_notes").Parse(releaseNotesTplFile))
)

// Options configures a Formatter.
type Options struct {
	// TrackerURL is the issue-tracker base; ticket links are TrackerURL/<ticket>.
	TrackerURL string
	// Prefixes restricts which ticket prefixes are recognized. Empty accepts any.
	Prefixes []string
	// Titles maps a prefix to its section heading. Unmapped prefixes use the prefix.
	Titles         map[string]string
	UngroupedTitle string
	EmptyMessage   string
}

// DefaultOptions returns the options used by the release pipeline when
// nothing is configured.
func DefaultOptions() Options {
	return Options{
		TrackerURL:     DefaultTrackerURL,
		Prefixes:       DefaultPrefixes,
		UngroupedTitle: DefaultUngroupedTitle,
		EmptyMessage:   DefaultEmptyMessage,
	}
}

// Group is one rendered section. The ungrouped bucket has an empty Prefix.
type Group struct {
	Prefix  string
	Title   string
	Entries []Entry
}

type releaseNotes struct {
	Tag          string
	Groups       []*Group
	Trailer      string
	EmptyMessage string
}

// Formatter groups note lines by ticket prefix and renders a release body.
// It is pure and safe for concurrent use.
type Formatter struct {
	opts    Options
	matcher *Matcher
}

func NewFormatter(opts Options) *Formatter {
	if opts.TrackerURL == "" {
		opts.TrackerURL = DefaultTrackerURL
	}
	opts.TrackerURL = strings.TrimRight(opts.TrackerURL, "/")
	if opts.UngroupedTitle == "" {
		opts.UngroupedTitle = DefaultUngroupedTitle
	}
	if opts.EmptyMessage == "" {
		opts.EmptyMessage = DefaultEmptyMessage
	}
	return &Formatter{
		opts:    opts,
		matcher: NewMatcher(opts.Prefixes),
	}
}

// TrackerURL returns the normalized tracker base URL.
func (f *Formatter) TrackerURL() string {
	return f.opts.TrackerURL
}

// Prefixes returns the configured ticket prefixes in display order.
func (f *Formatter) Prefixes() []string {
	prefixes := make([]string, 0, len(f.opts.Prefixes))
	seen := make(map[string]bool)
	for _, p := range f.opts.Prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Group parses rawLines and returns the ticket groups in display order
// (ascending prefix) followed by the ungrouped bucket, if any.
// Whitespace-only lines are not notes and are skipped.
func (f *Formatter) Group(rawLines []string) []*Group {
	byPrefix := make(map[string]*Group)
	var ungrouped *Group

	for _, raw := range rawLines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		e := parseEntry(raw, f.matcher)
		e.Line = e.render(f.opts.TrackerURL)

		if !e.HasTicket {
			if ungrouped == nil {
				ungrouped = &Group{Title: f.opts.UngroupedTitle}
			}
			ungrouped.Entries = append(ungrouped.Entries, e)
			continue
		}

		group, ok := byPrefix[e.Ticket.Prefix]
		if !ok {
			group = &Group{Prefix: e.Ticket.Prefix, Title: f.title(e.Ticket.Prefix)}
			byPrefix[e.Ticket.Prefix] = group
		}
		group.Entries = append(group.Entries, e)
	}

	prefixes := make([]string, 0, len(byPrefix))
	for p := range byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	groups := make([]*Group, 0, len(prefixes)+1)
	for _, p := range prefixes {
		group := byPrefix[p]
		sort.SliceStable(group.Entries, func(i, j int) bool {
			return group.Entries[i].Ticket.Number < group.Entries[j].Ticket.Number
		})
		groups = append(groups, group)
	}
	if ungrouped != nil {
		groups = append(groups, ungrouped)
	}
	return groups
}

// Format renders rawLines into a release body for tag.
func (f *Formatter) Format(tag string, rawLines []string) string {
	return f.render(tag, rawLines, "")
}

// FormatBody renders a parsed release body, keeping its trailer.
func (f *Formatter) FormatBody(tag string, body Body) string {
	lines := make([]string, 0, len(body.Lines))
	for _, line := range body.Lines {
		// a previously rendered empty body carries only the placeholder
		if strings.TrimSpace(line) == f.opts.EmptyMessage {
			continue
		}
		lines = append(lines, line)
	}
	return f.render(tag, lines, body.Trailer)
}

func (f *Formatter) render(tag string, rawLines []string, trailer string) string {
	data := releaseNotes{
		Tag:          tag,
		Groups:       f.Group(rawLines),
		Trailer:      strings.TrimSpace(trailer),
		EmptyMessage: f.opts.EmptyMessage,
	}
	buf := bytes.NewBufferString("")
	if err := releaseNotesTemplate.Execute(buf, data); err != nil {
		// the template is embedded and only reads plain strings
		panic(err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n"
}

func (f *Formatter) title(prefix string) string {
	if t, ok := f.opts.Titles[prefix]; ok && t != "" {
		return t
	}
	return prefix
}

// Entries parses the list items of a rendered body. Headings and the
// trailer are skipped.
func (f *Formatter) Entries(rendered string) []Entry {
	var entries []Entry
	for _, line := range ParseBody(rendered).Lines {
		if !strings.HasPrefix(line, "* ") && !strings.HasPrefix(line, "- ") {
			continue
		}
		e := parseEntry(line, f.matcher)
		e.Line = e.render(f.opts.TrackerURL)
		entries = append(entries, e)
	}
	return entries
}

// TicketLinks returns the ticket link markers ("[PD-1](...)") present in a
// rendered body, in order of appearance.
func (f *Formatter) TicketLinks(rendered string) []string {
	var links []string
	for _, line := range strings.Split(rendered, "\n") {
		e := parseEntry(line, f.matcher)
		if !e.HasTicket {
			continue
		}
		t := e.Ticket.String()
		link := "[" + t + "](" + f.opts.TrackerURL + "/" + t + ")"
		if strings.Contains(line, link) {
			links = append(links, link)
		}
	}
	return links
}
