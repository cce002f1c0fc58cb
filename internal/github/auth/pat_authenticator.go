package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"
)

// PATAuthenticator implements Authenticator using Personal Access Token
type PATAuthenticator struct {
	token    string
	baseURL  string
	userInfo *github.User // Cached user information
}

// NewPATAuthenticator creates a new PAT authenticator
func NewPATAuthenticator(token, baseURL string) *PATAuthenticator {
	return &PATAuthenticator{
		token:   token,
		baseURL: baseURL,
	}
}

// HTTPClient returns an oauth2 client carrying the static token
func (p *PATAuthenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	if p.token == "" {
		return nil, fmt.Errorf("GitHub token is not configured")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.token})
	return oauth2.NewClient(ctx, ts), nil
}

// GetClient returns a GitHub client authenticated with PAT
func (p *PATAuthenticator) GetClient(ctx context.Context) (*github.Client, error) {
	httpClient, err := p.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return newRESTClient(httpClient, p.baseURL)
}

// GetAuthInfo returns authentication information
func (p *PATAuthenticator) GetAuthInfo() AuthInfo {
	authInfo := AuthInfo{Type: AuthTypePAT}
	if p.userInfo != nil {
		authInfo.User = p.userInfo.GetLogin()
	}
	return authInfo
}

// IsConfigured returns whether the PAT authenticator is properly configured
func (p *PATAuthenticator) IsConfigured() bool {
	return p.token != ""
}

// ValidateAccess validates that the PAT can access GitHub
func (p *PATAuthenticator) ValidateAccess(ctx context.Context) error {
	client, err := p.GetClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	// Try to get the authenticated user to validate the token
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to validate GitHub access: %w", err)
	}

	p.userInfo = user
	return nil
}
