// Package gitlog turns a local git range into release-note lines.
package gitlog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"
	"github.com/tsuyoshiwada/go-gitlog"
)

var (
	// "Fix login (#12)" as produced by squash merges
	squashRefRegex = regexp.MustCompile(`\s*\(#(\d+)\)\s*$`)
	// "Merge pull request #12 from owner/branch"
	mergeRegex = regexp.MustCompile(`^Merge pull request #(\d+) from \S+`)
	// 12345+login@users.noreply.github.com
	noreplyRegex = regexp.MustCompile(`^(?:\d+\+)?([A-Za-z0-9-]+)@users\.noreply\.github\.com$`)
)

// PullRequestFinder resolves the pull request a commit was merged through.
type PullRequestFinder interface {
	PullRequestForCommit(ctx context.Context, sha string) (*models.PullRequest, error)
}

// Collector reads commits with go-gitlog and renders one note line per change.
type Collector struct {
	git gitlog.GitLog
	prs PullRequestFinder
}

// NewCollector reads the repository at repoPath. prs may be nil.
func NewCollector(repoPath string, prs PullRequestFinder) *Collector {
	return &Collector{
		git: gitlog.New(&gitlog.Config{Path: repoPath}),
		prs: prs,
	}
}

// Lines returns note lines for the commits in from..to, oldest first.
// An empty from lists every commit reachable from to.
func (c *Collector) Lines(ctx context.Context, from, to string) ([]string, error) {
	log := trace.Logger(ctx)

	var rev gitlog.RevArgs
	if from == "" {
		rev = &gitlog.Rev{Ref: to}
	} else {
		rev = &gitlog.RevRange{Old: from, New: to}
	}

	commits, err := c.git.Log(rev, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get commits for %s: %w", rev.Args(), err)
	}
	log.Infof("git log %v: %d commits", rev.Args(), len(commits))

	lines := make([]string, 0, len(commits))
	for i := len(commits) - 1; i >= 0; i-- {
		if line, ok := c.line(ctx, commits[i]); ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (c *Collector) line(ctx context.Context, commit *gitlog.Commit) (string, bool) {
	subject := strings.TrimSpace(commit.Subject)
	number := 0

	if m := mergeRegex.FindStringSubmatch(subject); m != nil {
		number, _ = strconv.Atoi(m[1])
		// GitHub puts the PR title on the first body line of merge commits.
		subject = firstLine(commit.Body)
	} else if strings.HasPrefix(subject, "Merge ") {
		return "", false
	}

	if m := squashRefRegex.FindStringSubmatch(subject); m != nil {
		number, _ = strconv.Atoi(m[1])
		subject = strings.TrimSpace(squashRefRegex.ReplaceAllString(subject, ""))
	}
	if subject == "" {
		return "", false
	}

	login := authorLogin(commit)
	if c.prs != nil && commit.Hash != nil {
		pr, err := c.prs.PullRequestForCommit(ctx, commit.Hash.Long)
		if err != nil {
			trace.Logger(ctx).Warnf("pull request lookup for %s failed: %v", commit.Hash.Short, err)
		} else if pr != nil {
			number = pr.Number
			if pr.Author != "" {
				login = pr.Author
			}
		}
	}

	switch {
	case number > 0 && login != "":
		return fmt.Sprintf("%s by @%s in #%d", subject, login, number), true
	case number > 0:
		return fmt.Sprintf("%s (#%d)", subject, number), true
	default:
		return subject, true
	}
}

// authorLogin returns the GitHub login encoded in a noreply author email.
// Other addresses say nothing reliable about the login, so they yield "".
func authorLogin(commit *gitlog.Commit) string {
	if commit.Author == nil {
		return ""
	}
	if m := noreplyRegex.FindStringSubmatch(commit.Author.Email); m != nil {
		return m[1]
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
