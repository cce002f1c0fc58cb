package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/trace"
)

// Polish runs the completer over the formatted body and returns its answer when
// it still lists every change of body: the same number of items, every ticket
// link, every ungrouped change and ticket numbers ascending within each prefix.
// Otherwise body is returned unchanged.
// The second return value reports whether the model output was accepted.
func Polish(ctx context.Context, c Completer, f *notes.Formatter, body string) (string, bool) {
	log := trace.Logger(ctx)
	if c == nil {
		return body, false
	}

	prompt := BuildPrompt(body, f.TrackerURL(), f.Prefixes())
	out, err := c.Complete(ctx, prompt)
	if err != nil {
		log.Warnf("LLM pass with %s failed, keeping formatted notes: %v", c.Name(), err)
		return body, false
	}
	out = stripCodeFence(out)

	if err := checkPolished(f, body, out); err != nil {
		log.Warnf("LLM pass with %s rejected, keeping formatted notes: %v", c.Name(), err)
		return body, false
	}

	log.Infof("LLM pass with %s accepted", c.Name())
	return strings.TrimRight(out, "\n") + "\n", true
}

func checkPolished(f *notes.Formatter, body, out string) error {
	want, got := f.Entries(body), f.Entries(out)
	if len(got) != len(want) {
		return fmt.Errorf("%d list items instead of %d", len(got), len(want))
	}
	if missing := missingItems(f.TicketLinks(body), f.TicketLinks(out)); len(missing) > 0 {
		return fmt.Errorf("dropped %d ticket link(s), first: %s", len(missing), missing[0])
	}
	if missing := missingItems(ungroupedKeys(want), ungroupedKeys(got)); len(missing) > 0 {
		return fmt.Errorf("dropped %d change(s) without ticket, first: %s", len(missing), missing[0])
	}

	last := make(map[string]notes.TicketRef)
	for _, e := range got {
		if !e.HasTicket {
			continue
		}
		if prev, ok := last[e.Ticket.Prefix]; ok && e.Ticket.Number < prev.Number {
			return fmt.Errorf("%s is listed after %s", e.Ticket, prev)
		}
		last[e.Ticket.Prefix] = e.Ticket
	}
	return nil
}

// ungroupedKeys identifies changes without a ticket by their attribution,
// or by the whole line when there is none.
func ungroupedKeys(entries []notes.Entry) []string {
	var keys []string
	for _, e := range entries {
		if e.HasTicket {
			continue
		}
		if e.Author != "" && e.PR > 0 {
			keys = append(keys, fmt.Sprintf("@%s in #%d", e.Author, e.PR))
		} else {
			keys = append(keys, e.Line)
		}
	}
	return keys
}

// missingItems returns the items of want that have no counterpart in got, counting duplicates.
func missingItems(want, got []string) []string {
	have := make(map[string]int, len(got))
	for _, item := range got {
		have[item]++
	}
	var missing []string
	for _, item := range want {
		if have[item] == 0 {
			missing = append(missing, item)
			continue
		}
		have[item]--
	}
	return missing
}

// stripCodeFence removes a ``` wrapper models like to add around Markdown.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}
