package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/human-glitch/github-releaser/pkg/models"
	"github.com/shurcooL/githubv4"

	"github.com/qiniu/x/log"
)

// ErrRateLimitCritical is returned by optional lookups once the remaining budget is under 10%.
var ErrRateLimitCritical = errors.New("GitHub rate limit critically low")

type rateLimitFragment struct {
	Limit     int
	Cost      int
	Remaining int
	ResetAt   githubv4.DateTime
}

// GraphQLClient wraps the GitHub GraphQL API client for one repository.
type GraphQLClient struct {
	client  *githubv4.Client
	repo    models.Repository
	monitor *RateLimitMonitor
}

// NewGraphQLClient creates a GraphQL client that shares the REST client's authenticated transport.
// baseURL is the REST API root; an empty value targets github.com.
func NewGraphQLClient(httpClient *http.Client, baseURL string, repo models.Repository, monitor *RateLimitMonitor) *GraphQLClient {
	var client *githubv4.Client
	if baseURL == "" {
		client = githubv4.NewClient(httpClient)
	} else {
		client = githubv4.NewEnterpriseClient(GraphQLEndpoint(baseURL), httpClient)
	}
	return &GraphQLClient{client: client, repo: repo, monitor: monitor}
}

// GraphQLEndpoint derives the GraphQL URL from a REST API root.
// GitHub Enterprise serves REST under /api/v3 and GraphQL under /api/graphql.
func GraphQLEndpoint(baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(base, "/api/v3") {
		return strings.TrimSuffix(base, "/v3") + "/graphql"
	}
	return base + "/graphql"
}

// PullRequestForCommit returns the first pull request associated with the commit, or nil.
func (gc *GraphQLClient) PullRequestForCommit(ctx context.Context, sha string) (*models.PullRequest, error) {
	// PR lookups are optional, leave the budget to the release itself
	if gc.monitor.IsRateLimitCritical() {
		return nil, ErrRateLimitCritical
	}

	var query struct {
		Repository struct {
			Object struct {
				Commit struct {
					AssociatedPullRequests struct {
						Nodes []struct {
							Number int
							Title  string
							URL    string `graphql:"url"`
							Author struct {
								Login string
							}
						}
					} `graphql:"associatedPullRequests(first: 1)"`
				} `graphql:"... on Commit"`
			} `graphql:"object(oid: $oid)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
		RateLimit rateLimitFragment
	}

	variables := map[string]interface{}{
		"owner": githubv4.String(gc.repo.Owner),
		"name":  githubv4.String(gc.repo.Name),
		"oid":   githubv4.GitObjectID(sha),
	}

	if err := gc.client.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("failed to query pull request for commit %s: %w", shortSHA(sha), err)
	}
	gc.record(query.RateLimit)

	nodes := query.Repository.Object.Commit.AssociatedPullRequests.Nodes
	if len(nodes) == 0 {
		log.Debugf("No pull request associated with commit %s", shortSHA(sha))
		return nil, nil
	}
	pr := nodes[0]
	return &models.PullRequest{
		Number: pr.Number,
		Title:  pr.Title,
		Author: pr.Author.Login,
		URL:    pr.URL,
	}, nil
}

// GetRateLimit returns the current GraphQL rate limit status
func (gc *GraphQLClient) GetRateLimit(ctx context.Context) (*RateLimitStatus, error) {
	var query struct {
		RateLimit rateLimitFragment
	}

	if err := gc.client.Query(ctx, &query, nil); err != nil {
		return nil, fmt.Errorf("failed to query rate limit: %w", err)
	}
	gc.record(query.RateLimit)

	return &RateLimitStatus{
		Limit:     query.RateLimit.Limit,
		Remaining: query.RateLimit.Remaining,
		ResetAt:   query.RateLimit.ResetAt.Time,
	}, nil
}

func (gc *GraphQLClient) record(rl rateLimitFragment) {
	gc.monitor.RecordGraphQLAPICall(rl.Limit, rl.Remaining, rl.Cost, rl.ResetAt.Time)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
