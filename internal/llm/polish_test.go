package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/stretchr/testify/assert"
)

type fakeCompleter struct {
	reply  func(prompt string) string
	err    error
	prompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply(prompt), nil
}

func formattedBody() (*notes.Formatter, string) {
	f := notes.NewFormatter(notes.DefaultOptions())
	body := f.Format("v1.0.0", []string{
		"* PD-2 Fix login by @alice in #10",
		"* PDE-7 Add export by @bob in #11",
		"* Bump deps by @carol in #12",
	})
	return f, body
}

func TestPolishAccepted(t *testing.T) {
	f, body := formattedBody()
	c := &fakeCompleter{reply: func(string) string {
		return strings.Replace(body, "Fix login", "Fixed login", 1)
	}}

	out, ok := Polish(context.Background(), c, f, body)
	assert.True(t, ok)
	assert.Contains(t, out, "Fixed login")
	assert.Contains(t, c.prompt, body)
}

func TestPolishRejectsDroppedLinks(t *testing.T) {
	f, body := formattedBody()
	c := &fakeCompleter{reply: func(string) string {
		return strings.Replace(body, "[PDE-7](https://onezelis.atlassian.net/browse/PDE-7)", "PDE-7", 1)
	}}

	out, ok := Polish(context.Background(), c, f, body)
	assert.False(t, ok)
	assert.Equal(t, body, out)
}

func TestPolishKeepsBodyOnError(t *testing.T) {
	f, body := formattedBody()
	c := &fakeCompleter{err: errors.New("timeout")}

	out, ok := Polish(context.Background(), c, f, body)
	assert.False(t, ok)
	assert.Equal(t, body, out)

	out, ok = Polish(context.Background(), nil, f, body)
	assert.False(t, ok)
	assert.Equal(t, body, out)
}

func TestPolishStripsCodeFence(t *testing.T) {
	f, body := formattedBody()
	c := &fakeCompleter{reply: func(string) string {
		return "```markdown\n" + body + "```"
	}}

	out, ok := Polish(context.Background(), c, f, body)
	assert.True(t, ok)
	assert.Equal(t, body, out)
}

func TestPolishRejectsLostOrReorderedChanges(t *testing.T) {
	f := notes.NewFormatter(notes.DefaultOptions())
	body := f.Format("v1.0.0", []string{
		"* PD-1 Fix logout by @alice in #1",
		"* PD-2 Fix login by @alice in #2",
		"* Bump deps by @bot in #3",
	})
	pd1 := "* [PD-1](https://onezelis.atlassian.net/browse/PD-1) Fix logout by @alice in #1"
	pd2 := "* [PD-2](https://onezelis.atlassian.net/browse/PD-2) Fix login by @alice in #2"
	bump := "* Bump deps by @bot in #3"

	tests := []struct {
		name  string
		reply string
	}{
		{"ungrouped line dropped", "### PD\n" + pd2 + "\n" + pd1 + "\n"},
		{"tickets reordered", "### PD\n" + pd2 + "\n" + pd1 + "\n\n### Other Changes\n" + bump + "\n"},
		{"ungrouped line reattributed", "### PD\n" + pd1 + "\n" + pd2 + "\n\n### Other Changes\n* Bump deps by @bot in #4\n"},
		{"line duplicated", "### PD\n" + pd1 + "\n" + pd2 + "\n" + pd2 + "\n\n### Other Changes\n" + bump + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{reply: func(string) string { return tt.reply }}
			out, ok := Polish(context.Background(), c, f, body)
			assert.False(t, ok)
			assert.Equal(t, body, out)
			assert.Contains(t, out, bump)
		})
	}

	reworded := "### PD\n" + strings.Replace(pd1, "Fix logout", "Fixed logout", 1) + "\n" + pd2 + "\n\n### Other Changes\n* Bumped deps by @bot in #3\n"
	c := &fakeCompleter{reply: func(string) string { return reworded }}
	out, ok := Polish(context.Background(), c, f, body)
	assert.True(t, ok)
	assert.Contains(t, out, "Bumped deps by @bot in #3")
}

func TestMissingItemsCountsDuplicates(t *testing.T) {
	missing := missingItems([]string{"a", "a", "b"}, []string{"a", "b"})
	assert.Equal(t, []string{"a"}, missing)
	assert.Empty(t, missingItems([]string{"a"}, []string{"a", "c"}))
}
