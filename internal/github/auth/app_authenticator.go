package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v58/github"
)

// GitHubAppAuthenticator implements Authenticator with a GitHub App installation.
// ghinstallation mints and refreshes the installation token on demand.
type GitHubAppAuthenticator struct {
	transport      *ghinstallation.Transport
	appID          int64
	installationID int64
	baseURL        string
	repoCount      int
}

// NewGitHubAppAuthenticator wraps an installation transport.
func NewGitHubAppAuthenticator(transport *ghinstallation.Transport, appID, installationID int64, baseURL string) *GitHubAppAuthenticator {
	if transport != nil && baseURL != "" {
		transport.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &GitHubAppAuthenticator{
		transport:      transport,
		appID:          appID,
		installationID: installationID,
		baseURL:        baseURL,
	}
}

func (g *GitHubAppAuthenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	if g.transport == nil {
		return nil, fmt.Errorf("GitHub App transport is not configured")
	}
	return &http.Client{Transport: g.transport}, nil
}

func (g *GitHubAppAuthenticator) GetClient(ctx context.Context) (*github.Client, error) {
	httpClient, err := g.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return newRESTClient(httpClient, g.baseURL)
}

// GetAuthInfo returns authentication information
func (g *GitHubAppAuthenticator) GetAuthInfo() AuthInfo {
	return AuthInfo{
		Type:           AuthTypeApp,
		User:           fmt.Sprintf("app/%d", g.appID),
		AppID:          g.appID,
		InstallationID: g.installationID,
	}
}

func (g *GitHubAppAuthenticator) IsConfigured() bool {
	return g.transport != nil && g.appID > 0 && g.installationID > 0
}

// ValidateAccess fetches an installation token and lists the repositories it can reach.
func (g *GitHubAppAuthenticator) ValidateAccess(ctx context.Context) error {
	if _, err := g.Token(ctx); err != nil {
		return fmt.Errorf("failed to get installation token: %w", err)
	}

	client, err := g.GetClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub App client: %w", err)
	}
	repos, _, err := client.Apps.ListRepos(ctx, &github.ListOptions{PerPage: 1})
	if err != nil {
		return fmt.Errorf("failed to validate GitHub App access: %w", err)
	}
	g.repoCount = repos.GetTotalCount()
	return nil
}

// Token returns the current installation access token, refreshing it if needed.
func (g *GitHubAppAuthenticator) Token(ctx context.Context) (string, error) {
	if g.transport == nil {
		return "", fmt.Errorf("GitHub App transport is not configured")
	}
	return g.transport.Token(ctx)
}

// RepositoryCount is the number of repositories the installation reported during ValidateAccess.
func (g *GitHubAppAuthenticator) RepositoryCount() int {
	return g.repoCount
}
