package notes

import (
	"strings"
)

const (
	changesHeading  = "## what's changed"
	changelogPrefix = "**Full Changelog**"
)

// Body is a release body split into note lines and the verbatim trailer
// (New Contributors section, Full Changelog link).
type Body struct {
	Lines   []string
	Trailer string
}

// ParseBody splits a release body generated by GitHub (or by this package)
// into note lines. Headings and HTML comments are dropped; everything from the
// first non-"What's Changed" level-2 heading or the Full Changelog line on is
// kept as the trailer.
func ParseBody(body string) Body {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")

	var result Body
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isTrailerStart(trimmed) {
			result.Trailer = strings.TrimSpace(strings.Join(lines[i:], "\n"))
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		result.Lines = append(result.Lines, trimmed)
	}
	return result
}

func isTrailerStart(line string) bool {
	if strings.HasPrefix(line, changelogPrefix) {
		return true
	}
	if strings.HasPrefix(line, "## ") {
		return !strings.HasPrefix(strings.ToLower(line), changesHeading)
	}
	return false
}
