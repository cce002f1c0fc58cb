package models

import (
	"fmt"
	"time"
)

// Release is the slice of a GitHub release this project reads and writes.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Published reports whether the release is a final, publicly visible release.
func (r *Release) Published() bool {
	return r != nil && !r.Draft && !r.Prerelease
}

// PullRequest 描述一条合并到发布范围内的 PR
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// Repository identifies the owner/name pair every client call is scoped to.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r Repository) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}
