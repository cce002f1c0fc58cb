// Package release drives the publish pipeline: tag, release, generated notes,
// formatting and the final body update.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/human-glitch/github-releaser/internal/llm"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"
)

var (
	// ErrEmptyReleaseNotes is returned when GitHub produced no notes for the release.
	ErrEmptyReleaseNotes = errors.New("no release notes found or notes are empty")
	// ErrNoReleaseBranch is returned when neither a release branch nor a default branch can be determined.
	ErrNoReleaseBranch = errors.New("no branch to release from")
	// ErrReleaseNotFound is returned by Reformat when the tag has no release.
	ErrReleaseNotFound = errors.New("release not found")
)

const maxIncrements = 100

// GitHubAPI is the subset of the repository client the pipeline uses.
type GitHubAPI interface {
	GetReleaseByTag(ctx context.Context, tag string) (*models.Release, error)
	DeleteRelease(ctx context.Context, id int64) error
	DeleteTag(ctx context.Context, tag string) error
	BranchExists(ctx context.Context, branch string) (bool, error)
	DefaultBranch(ctx context.Context) (string, error)
	GetLatestCommitSHA(ctx context.Context, branch string) (string, error)
	CreateTagObject(ctx context.Context, tag, message, commitSHA string) (string, error)
	CreateTagRef(ctx context.Context, tag, sha string) error
	CreateRelease(ctx context.Context, tag string) (*models.Release, error)
	UpdateRelease(ctx context.Context, id int64, body string) error
	GenerateNotes(ctx context.Context, tag, previous, target string) (string, error)
}

type Options struct {
	AutoIncrement       bool
	DefaultBranch       string
	ReleaseBranchFormat string
	TagMessageFormat    string
	// DryRun resolves tag and branch but never mutates the repository.
	DryRun bool
}

// Result describes what a run did.
type Result struct {
	RequestedTag string
	Tag          string
	Incremented  bool
	Branch       string
	CommitSHA    string
	ReleaseID    int64
	ReleaseURL   string
	Body         string
	Polished     bool
	Unchanged    bool
	DryRun       bool
}

type Releaser struct {
	gh        GitHubAPI
	formatter *notes.Formatter
	completer llm.Completer
	opts      Options
}

// New creates a Releaser. completer may be nil to skip the LLM pass.
func New(gh GitHubAPI, formatter *notes.Formatter, completer llm.Completer, opts Options) *Releaser {
	if opts.ReleaseBranchFormat == "" {
		opts.ReleaseBranchFormat = "release/v%d.%d.x"
	}
	if opts.TagMessageFormat == "" {
		opts.TagMessageFormat = "Release %s"
	}
	return &Releaser{gh: gh, formatter: formatter, completer: completer, opts: opts}
}

// Run publishes requested: it recreates (or, when auto-incrementing, reuses) the tag
// and release, then rewrites the generated notes grouped by ticket.
func (r *Releaser) Run(ctx context.Context, requested string) (*Result, error) {
	ctx = trace.Ensure(ctx, trace.ReleasePrefix)
	log := trace.Logger(ctx)

	requested = strings.TrimSpace(requested)
	if requested == "" {
		return nil, fmt.Errorf("release tag is required")
	}

	tag, err := r.resolveTag(ctx, requested)
	if err != nil {
		return nil, err
	}
	res := &Result{RequestedTag: requested, Tag: tag, Incremented: tag != requested, DryRun: r.opts.DryRun}
	if res.Incremented {
		log.Infof("Using incremented version %s instead of %s", tag, requested)
	}

	existing, err := r.gh.GetReleaseByTag(ctx, tag)
	if err != nil {
		return nil, err
	}

	if res.Branch, err = r.resolveBranch(ctx, tag); err != nil {
		return nil, err
	}
	if res.CommitSHA, err = r.gh.GetLatestCommitSHA(ctx, res.Branch); err != nil {
		return nil, fmt.Errorf("failed to get latest commit from branch %q: %w", res.Branch, err)
	}
	log.Infof("Releasing %s from %s at %s", tag, res.Branch, res.CommitSHA)

	if r.opts.DryRun {
		if existing != nil {
			res.ReleaseID = existing.ID
			res.ReleaseURL = existing.HTMLURL
		}
		log.Infof("Dry run, stopping before any change to the repository")
		return res, nil
	}

	if existing != nil && !res.Incremented {
		log.Infof("Found existing release %d for %s, deleting", existing.ID, tag)
		if err := r.gh.DeleteRelease(ctx, existing.ID); err != nil {
			return nil, err
		}
		existing = nil
	}

	if !res.Incremented {
		if err := r.gh.DeleteTag(ctx, tag); err != nil {
			log.Warnf("Tag %s could not be deleted, continuing: %v", tag, err)
		}
	}

	if existing == nil {
		message := fmt.Sprintf(r.opts.TagMessageFormat, tag)
		tagSHA, err := r.gh.CreateTagObject(ctx, tag, message, res.CommitSHA)
		if err != nil {
			return nil, err
		}
		if err := r.gh.CreateTagRef(ctx, tag, tagSHA); err != nil {
			return nil, err
		}

		if existing, err = r.gh.CreateRelease(ctx, tag); err != nil {
			return nil, err
		}
		log.Infof("Created release %d for %s", existing.ID, tag)
	} else {
		log.Infof("Reusing release %d for incremented version %s", existing.ID, tag)
	}

	if err := r.publishBody(ctx, existing, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Reformat rewrites the body of the existing release for tag.
func (r *Releaser) Reformat(ctx context.Context, tag string) (*Result, error) {
	ctx = trace.Ensure(ctx, trace.ReformatPrefix)

	release, err := r.gh.GetReleaseByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, tag)
	}

	res := &Result{RequestedTag: tag, Tag: tag, DryRun: r.opts.DryRun}
	if err := r.publishBody(ctx, release, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Preview formats the notes GitHub would generate for tag without touching the repository.
// previous may be empty to let GitHub pick the prior release.
func (r *Releaser) Preview(ctx context.Context, tag, previous string) (string, error) {
	ctx = trace.Ensure(ctx, trace.ReleasePrefix)

	target, err := r.resolveBranch(ctx, tag)
	if err != nil {
		return "", err
	}
	generated, err := r.gh.GenerateNotes(ctx, tag, previous, target)
	if err != nil {
		return "", err
	}
	return r.formatter.FormatBody(tag, notes.ParseBody(generated)), nil
}

func (r *Releaser) publishBody(ctx context.Context, release *models.Release, res *Result) error {
	log := trace.Logger(ctx)

	res.ReleaseID = release.ID
	res.ReleaseURL = release.HTMLURL
	if strings.TrimSpace(release.Body) == "" {
		return fmt.Errorf("release %s: %w", res.Tag, ErrEmptyReleaseNotes)
	}

	body := r.formatter.FormatBody(res.Tag, notes.ParseBody(release.Body))
	if r.completer != nil {
		body, res.Polished = llm.Polish(ctx, r.completer, r.formatter, body)
	}
	res.Body = body

	if strings.TrimSpace(body) == strings.TrimSpace(release.Body) {
		res.Unchanged = true
		log.Infof("Release %d body already formatted", release.ID)
		return nil
	}
	if r.opts.DryRun {
		return nil
	}
	if err := r.gh.UpdateRelease(ctx, release.ID, body); err != nil {
		return err
	}
	log.Infof("Release notes of %s updated", res.Tag)
	return nil
}

// resolveTag returns requested, or with auto-increment the first patch version
// without a published release.
func (r *Releaser) resolveTag(ctx context.Context, requested string) (string, error) {
	if !r.opts.AutoIncrement {
		return requested, nil
	}
	v, ok := ParseVersion(requested)
	if !ok {
		trace.Logger(ctx).Warnf("Tag %s is not vMAJOR.MINOR.PATCH, auto-increment skipped", requested)
		return requested, nil
	}

	for i := 0; i < maxIncrements; i++ {
		candidate := v.String()
		release, err := r.gh.GetReleaseByTag(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !release.Published() {
			return candidate, nil
		}
		v = v.NextPatch()
	}
	return "", fmt.Errorf("no free patch version after %s within %d increments", requested, maxIncrements)
}

// resolveBranch picks release/vX.Y.x when it exists, else the default branch.
func (r *Releaser) resolveBranch(ctx context.Context, tag string) (string, error) {
	if v, ok := ParseVersion(tag); ok {
		branch := v.Branch(r.opts.ReleaseBranchFormat)
		exists, err := r.gh.BranchExists(ctx, branch)
		if err != nil {
			return "", err
		}
		if exists {
			return branch, nil
		}
		trace.Logger(ctx).Infof("Release branch %s not found, using default branch", branch)
	}

	if r.opts.DefaultBranch != "" {
		return r.opts.DefaultBranch, nil
	}
	branch, err := r.gh.DefaultBranch(ctx)
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", ErrNoReleaseBranch
	}
	return branch, nil
}
