package notes

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tracker = "https://onezelis.atlassian.net/browse"

func TestFormatGroupsByPrefix(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	got := f.Format("v1.2.3", []string{
		"[PDE-2](https://onezelis.atlassian.net/browse/PDE-2) Fix B by @x in #10",
		"[PD-1](https://onezelis.atlassian.net/browse/PD-1) Fix A by @y in #9",
		"No ticket here by @z in #11",
	})

	want := `## What's Changed in v1.2.3

### PD
* [PD-1](https://onezelis.atlassian.net/browse/PD-1) Fix A by @y in #9

### PDE
* [PDE-2](https://onezelis.atlassian.net/browse/PDE-2) Fix B by @x in #10

### Other Changes
* No ticket here by @z in #11
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatEmpty(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	want := "## What's Changed in v0.1.0\n\nNo changes in this release.\n"

	assert.Equal(t, want, f.Format("v0.1.0", nil))
	assert.Equal(t, want, f.Format("v0.1.0", []string{"", "   ", "\t"}))
	assert.Equal(t, "## What's Changed\n\nNo changes in this release.\n", f.Format("", nil))
}

func TestFormatFirstTokenWins(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	groups := f.Group([]string{"PD-1 guard nil config, see PDE-2 by @a in #3"})
	require.Len(t, groups, 1)
	assert.Equal(t, "PD", groups[0].Prefix)
	assert.Equal(t,
		"[PD-1]("+tracker+"/PD-1) guard nil config, see PDE-2 by @a in #3",
		groups[0].Entries[0].Line)
}

func TestGroupSortsByNumberStably(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	groups := f.Group([]string{
		"PDE-5 first five by @a in #1",
		"PDE-1 one by @b in #2",
		"PDE-5 second five by @c in #3",
		"PDE-3 three by @d in #4",
	})
	require.Len(t, groups, 1)

	var descs []string
	for _, e := range groups[0].Entries {
		descs = append(descs, e.Description)
	}
	assert.Equal(t, []string{"one", "three", "first five", "second five"}, descs)
}

func TestGroupOrder(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	groups := f.Group([]string{
		"misc one",
		"PRDY-3 c",
		"PD-2 a",
		"misc two",
		"PDE-1 b",
	})

	var prefixes []string
	for _, g := range groups {
		prefixes = append(prefixes, g.Prefix)
	}
	assert.Equal(t, []string{"PD", "PDE", "PRDY", ""}, prefixes)

	ungrouped := groups[len(groups)-1]
	assert.Equal(t, "Other Changes", ungrouped.Title)
	require.Len(t, ungrouped.Entries, 2)
	assert.Equal(t, "misc one", ungrouped.Entries[0].Line)
	assert.Equal(t, "misc two", ungrouped.Entries[1].Line)
}

func TestGroupKeepsEveryLine(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	input := []string{
		"PD-4 a by @a in #1",
		"PD-4 a by @a in #1",
		"garbage ::: [[[",
		"PRDY-10 x",
		"PRDY-2 y",
		"* PDE-7: z by @q in https://github.com/o/r/pull/5",
		"ABC-1 unknown prefix",
	}
	groups := f.Group(input)

	total := 0
	for _, g := range groups {
		total += len(g.Entries)
		for i := 1; i < len(g.Entries) && g.Prefix != ""; i++ {
			assert.LessOrEqual(t, g.Entries[i-1].Ticket.Number, g.Entries[i].Ticket.Number)
		}
	}
	assert.Equal(t, len(input), total)

	out := f.Format("v1", input)
	assert.Equal(t, len(input), strings.Count(out, "\n* "))
}

func TestFormatIsIdempotent(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	first := f.Format("v2.0.0", []string{
		"* Fixed an issue by @user in https://github.com/o/r/pull/2329",
		"PDE-1234: Fixed bug",
		"[PRDY-5678] Added feature by @dev in #12",
		"PD-3 - tidy by @a in #7",
		"PD-1 other by @b in #8",
	})
	second := f.FormatBody("v2.0.0", ParseBody(first))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reformat changed output (-first +second):\n%s", diff)
	}

	empty := f.Format("v2.0.1", nil)
	assert.Equal(t, empty, f.FormatBody("v2.0.1", ParseBody(empty)))
}

func TestFormatBodyKeepsTrailer(t *testing.T) {
	body := `<!-- Release notes generated using configuration in .github/release.yml at main -->

## What's Changed
* PDE-3441 Fixed an issue by @Human-Glitch in https://github.com/mdx-dev/CostEngine/pull/2329
* Bump deps by @dependabot[bot] in https://github.com/mdx-dev/CostEngine/pull/2330

## New Contributors
* @newbie made their first contribution in https://github.com/mdx-dev/CostEngine/pull/2331

**Full Changelog**: https://github.com/mdx-dev/CostEngine/compare/v1.0.0...v1.1.0`

	parsed := ParseBody(body)
	require.Len(t, parsed.Lines, 2)
	assert.True(t, strings.HasPrefix(parsed.Trailer, "## New Contributors"))

	f := NewFormatter(DefaultOptions())
	got := f.FormatBody("v1.1.0", parsed)
	want := `## What's Changed in v1.1.0

### PDE
* [PDE-3441](https://onezelis.atlassian.net/browse/PDE-3441) Fixed an issue by @Human-Glitch in #2329

### Other Changes
* Bump deps by @dependabot[bot] in #2330

## New Contributors
* @newbie made their first contribution in https://github.com/mdx-dev/CostEngine/pull/2331

**Full Changelog**: https://github.com/mdx-dev/CostEngine/compare/v1.0.0...v1.1.0
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatBody() mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryRendering(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"github generated line", "* Fixed an issue by @user in https://github.com/o/r/pull/2329", "Fixed an issue by @user in #2329"},
		{"colon token", "PDE-1234: Fixed bug", "[PDE-1234](" + tracker + "/PDE-1234) Fixed bug"},
		{"bracket token", "[PRDY-5678] Added feature", "[PRDY-5678](" + tracker + "/PRDY-5678) Added feature"},
		{"token mid sentence", "Fix crash in PD-7 handler by @a in #4", "[PD-7](" + tracker + "/PD-7) Fix crash in PD-7 handler by @a in #4"},
		{"bare token", "PD-9", "[PD-9](" + tracker + "/PD-9)"},
		{"dash bullet", "- PD-9 - tidy up by @a in #2", "[PD-9](" + tracker + "/PD-9) tidy up by @a in #2"},
		{"no ticket no attribution", "random text", "random text"},
		{"unparsable pr ref", "thing by @a in somewhere", "thing by @a in somewhere"},
		{"zero padded number", "PD-007 fix", "[PD-007](" + tracker + "/PD-007) fix"},
		{"zero padded link", "[PD-007](" + tracker + "/PD-007) fix by @a in #1", "[PD-007](" + tracker + "/PD-007) fix by @a in #1"},
		{"embedded newline", "PD-1 a\nPD-2 b", "[PD-1](" + tracker + "/PD-1) a PD-2 b"},
	}

	m := NewMatcher(DefaultPrefixes)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseEntry(tt.raw, m).render(tracker))
		})
	}
}

func TestParseTicket(t *testing.T) {
	tests := []struct {
		line   string
		want   TicketRef
		wantOK bool
	}{
		{"Fix PDE-12 now", TicketRef{"PDE", 12, "12"}, true},
		{"[PRDY-7](https://x/PRDY-7) thing", TicketRef{"PRDY", 7, "7"}, true},
		{"PDE-2 and PD-1", TicketRef{"PDE", 2, "2"}, true},
		{"XPD-1 glued to a word", TicketRef{}, false},
		{"PD- no digits", TicketRef{}, false},
		{"pd-1 lower case", TicketRef{}, false},
		{"ABC-1 unknown prefix", TicketRef{}, false},
		{"PD-99999999999999999999999 then PD-3", TicketRef{"PD", 3, "3"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseTicket(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenPrefixSet(t *testing.T) {
	f := NewFormatter(Options{Prefixes: nil})

	groups := f.Group([]string{"OPS-4 rotate keys", "ABC-1 thing"})
	require.Len(t, groups, 2)
	assert.Equal(t, "ABC", groups[0].Prefix)
	assert.Equal(t, "OPS", groups[1].Prefix)
}

func TestOptions(t *testing.T) {
	f := NewFormatter(Options{
		TrackerURL:     "https://tickets.example.com/browse/",
		Prefixes:       []string{"pd", "PD", " PDE "},
		Titles:         map[string]string{"PD": "Product Defects"},
		UngroupedTitle: "Misc",
	})
	assert.Equal(t, "https://tickets.example.com/browse", f.TrackerURL())

	out := f.Format("v1", []string{"PD-1 a", "PDE-2 b", "c"})
	assert.Contains(t, out, "### Product Defects\n* [PD-1](https://tickets.example.com/browse/PD-1) a")
	assert.Contains(t, out, "### PDE\n")
	assert.Contains(t, out, "### Misc\n* c")
}

func TestTicketLinks(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	out := f.Format("v1", []string{"PDE-2 b", "PD-1 a", "nothing"})

	assert.Equal(t, []string{
		"[PD-1](" + tracker + "/PD-1)",
		"[PDE-2](" + tracker + "/PDE-2)",
	}, f.TicketLinks(out))
}

func TestFormatOneItemPerLine(t *testing.T) {
	f := NewFormatter(DefaultOptions())

	input := []string{"PD-1 a\nPD-2 b", "misc\r\nmore", "PD-010 ten", "PD-9 nine"}
	out := f.Format("v1", input)
	assert.Equal(t, len(input), strings.Count(out, "\n* "))

	groups := f.Group(input)
	require.Len(t, groups, 2)
	var tickets []string
	for _, e := range groups[0].Entries {
		tickets = append(tickets, e.Ticket.String())
	}
	assert.Equal(t, []string{"PD-1", "PD-9", "PD-010"}, tickets)
}

func TestEntries(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	body := f.FormatBody("v1", Body{
		Lines:   []string{"* PD-2 b by @a in #2", "* misc by @c in #3"},
		Trailer: "## New Contributors\n* @c made their first contribution in #3",
	})

	entries := f.Entries(body)
	require.Len(t, entries, 2)
	assert.Equal(t, "PD-2", entries[0].Ticket.String())
	assert.False(t, entries[1].HasTicket)
	assert.Equal(t, "c", entries[1].Author)
	assert.Equal(t, 3, entries[1].PR)
}
