package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/human-glitch/github-releaser/pkg/models"
	"github.com/qiniu/x/log"
)

// maxRateLimitWait bounds how long a write waits for the REST window to reset.
const maxRateLimitWait = 5 * time.Minute

// Client wraps the REST API for a single repository.
type Client struct {
	client  *github.Client
	repo    models.Repository
	monitor *RateLimitMonitor
}

func NewClient(client *github.Client, repo models.Repository, monitor *RateLimitMonitor) *Client {
	return &Client{client: client, repo: repo, monitor: monitor}
}

// Repository returns the owner/name this client is bound to.
func (c *Client) Repository() models.Repository {
	return c.repo
}

// GetReleaseByTag returns nil, nil when no release exists for tag.
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*models.Release, error) {
	release, resp, err := c.client.Repositories.GetReleaseByTag(ctx, c.repo.Owner, c.repo.Name, tag)
	c.record(resp)
	if isNotFound(resp, err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release for tag %s: %w", tag, err)
	}
	return toRelease(release), nil
}

func (c *Client) DeleteRelease(ctx context.Context, id int64) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	resp, err := c.client.Repositories.DeleteRelease(ctx, c.repo.Owner, c.repo.Name, id)
	c.record(resp)
	if err != nil {
		return fmt.Errorf("failed to delete release %d: %w", id, err)
	}
	log.Infof("Deleted release %d in %s", id, c.repo)
	return nil
}

// DeleteTag removes refs/tags/<tag>. A missing ref is not an error.
func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	resp, err := c.client.Git.DeleteRef(ctx, c.repo.Owner, c.repo.Name, "tags/"+tag)
	c.record(resp)
	if isNotFound(resp, err) {
		log.Debugf("Tag %s does not exist in %s", tag, c.repo)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", tag, err)
	}
	return nil
}

func (c *Client) BranchExists(ctx context.Context, branch string) (bool, error) {
	_, resp, err := c.client.Git.GetRef(ctx, c.repo.Owner, c.repo.Name, "heads/"+branch)
	c.record(resp)
	if isNotFound(resp, err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up branch %s: %w", branch, err)
	}
	return true, nil
}

// DefaultBranch returns the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	repo, resp, err := c.client.Repositories.Get(ctx, c.repo.Owner, c.repo.Name)
	c.record(resp)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s: %w", c.repo, err)
	}
	return repo.GetDefaultBranch(), nil
}

func (c *Client) GetLatestCommitSHA(ctx context.Context, branch string) (string, error) {
	commit, resp, err := c.client.Repositories.GetCommit(ctx, c.repo.Owner, c.repo.Name, branch, nil)
	c.record(resp)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit of %s: %w", branch, err)
	}
	if commit.GetSHA() == "" {
		return "", fmt.Errorf("branch %s returned a commit without sha", branch)
	}
	return commit.GetSHA(), nil
}

// CreateTagObject creates an annotated tag pointing at commitSHA and returns the tag object's SHA.
func (c *Client) CreateTagObject(ctx context.Context, tag, message, commitSHA string) (string, error) {
	if err := c.throttle(ctx); err != nil {
		return "", err
	}
	created, resp, err := c.client.Git.CreateTag(ctx, c.repo.Owner, c.repo.Name, &github.Tag{
		Tag:     github.String(tag),
		Message: github.String(message),
		Object: &github.GitObject{
			Type: github.String("commit"),
			SHA:  github.String(commitSHA),
		},
	})
	c.record(resp)
	if err != nil {
		return "", fmt.Errorf("failed to create tag object %s: %w", tag, err)
	}
	return created.GetSHA(), nil
}

// CreateTagRef creates refs/tags/<tag> pointing at sha.
func (c *Client) CreateTagRef(ctx context.Context, tag, sha string) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	_, resp, err := c.client.Git.CreateRef(ctx, c.repo.Owner, c.repo.Name, &github.Reference{
		Ref:    github.String("refs/tags/" + tag),
		Object: &github.GitObject{SHA: github.String(sha)},
	})
	c.record(resp)
	if err != nil {
		return fmt.Errorf("failed to create ref for tag %s: %w", tag, err)
	}
	return nil
}

// CreateRelease publishes a release for tag and lets GitHub generate the notes.
func (c *Client) CreateRelease(ctx context.Context, tag string) (*models.Release, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	release, resp, err := c.client.Repositories.CreateRelease(ctx, c.repo.Owner, c.repo.Name, &github.RepositoryRelease{
		TagName:              github.String(tag),
		Name:                 github.String(tag),
		Draft:                github.Bool(false),
		Prerelease:           github.Bool(false),
		GenerateReleaseNotes: github.Bool(true),
	})
	c.record(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create release %s: %w", tag, err)
	}
	return toRelease(release), nil
}

// UpdateRelease replaces the body of release id.
func (c *Client) UpdateRelease(ctx context.Context, id int64, body string) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	_, resp, err := c.client.Repositories.EditRelease(ctx, c.repo.Owner, c.repo.Name, id, &github.RepositoryRelease{
		Body: github.String(body),
	})
	c.record(resp)
	if err != nil {
		return fmt.Errorf("failed to update release %d: %w", id, err)
	}
	return nil
}

// GenerateNotes asks GitHub for the notes it would generate for tag without creating a release.
// previous and target may be empty.
func (c *Client) GenerateNotes(ctx context.Context, tag, previous, target string) (string, error) {
	opts := &github.GenerateNotesOptions{TagName: tag}
	if previous != "" {
		opts.PreviousTagName = github.String(previous)
	}
	if target != "" {
		opts.TargetCommitish = github.String(target)
	}

	notes, resp, err := c.client.Repositories.GenerateReleaseNotes(ctx, c.repo.Owner, c.repo.Name, opts)
	c.record(resp)
	if err != nil {
		return "", fmt.Errorf("failed to generate notes for %s: %w", tag, err)
	}
	return notes.Body, nil
}

// throttle holds a write back while the REST budget is at or below the
// configured threshold and the window resets soon.
func (c *Client) throttle(ctx context.Context) error {
	if err := c.monitor.WaitForRateLimit(ctx, maxRateLimitWait); err != nil {
		return fmt.Errorf("waiting for rate limit reset: %w", err)
	}
	return nil
}

func (c *Client) record(resp *github.Response) {
	if resp == nil {
		return
	}
	c.monitor.RecordRESTAPICall(resp.Rate.Limit, resp.Rate.Remaining, resp.Rate.Reset.Time)
}

func isNotFound(resp *github.Response, err error) bool {
	if err == nil {
		return false
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

func toRelease(r *github.RepositoryRelease) *models.Release {
	return &models.Release{
		ID:          r.GetID(),
		TagName:     r.GetTagName(),
		Name:        r.GetName(),
		Body:        r.GetBody(),
		HTMLURL:     r.GetHTMLURL(),
		Draft:       r.GetDraft(),
		Prerelease:  r.GetPrerelease(),
		PublishedAt: r.GetPublishedAt().Time,
	}
}
