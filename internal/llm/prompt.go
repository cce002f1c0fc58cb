package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt asks the model to keep the grouped layout and the deep links of notes.
// trackerURL is the ticket tracker's browse root, prefixes the ticket types in heading order.
func BuildPrompt(notes, trackerURL string, prefixes []string) string {
	trackerURL = strings.TrimSuffix(trackerURL, "/")
	example := "PD-3441"
	if len(prefixes) > 0 {
		example = prefixes[len(prefixes)-1] + "-3441"
	}
	types := "every ticket prefix found in the notes"
	if len(prefixes) > 0 {
		types = strings.Join(prefixes, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TEMPLATE: %s/[Ticket ID]\n", trackerURL)
	fmt.Fprintf(&b, "EXAMPLE: %s/%s\n", trackerURL, example)
	fmt.Fprintf(&b, "EXPECTED RESULT EXAMPLE: * [%s](%s/%s) Fixed an issue by @octocat in #2329\n\n", example, trackerURL, example)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Follow this template and deep link each item with the ticket url as shown in the example.\n")
	b.WriteString("- Print the answer as raw Markdown that GitHub release notes render as-is. Do not wrap it in a code fence.\n")
	fmt.Fprintf(&b, "- Create a heading for each ticket type: %s.\n", types)
	b.WriteString("- Assign each line item to its heading, ordered by ticket number ascending.\n")
	b.WriteString("- Keep lines without a ticket under their own heading at the end.\n")
	b.WriteString("- Keep every link, author and pull request reference exactly as given. Only fix wording.\n\n")
	b.WriteString(notes)
	return b.String()
}
