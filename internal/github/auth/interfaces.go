package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v58/github"
)

// AuthType represents the type of authentication being used
type AuthType string

const (
	AuthTypePAT AuthType = "pat" // Personal Access Token
	AuthTypeApp AuthType = "app" // GitHub App installation
)

// AuthInfo contains information about the current authentication
type AuthInfo struct {
	Type           AuthType `json:"type"`
	User           string   `json:"user"`                      // PAT user or App name
	AppID          int64    `json:"app_id,omitempty"`          // GitHub App ID (only for App auth)
	InstallationID int64    `json:"installation_id,omitempty"` // only for App auth
}

// Authenticator defines the interface for GitHub authentication
type Authenticator interface {
	// HTTPClient returns an HTTP client that signs every request.
	// The REST and GraphQL clients share it.
	HTTPClient(ctx context.Context) (*http.Client, error)

	// GetClient returns a REST client authenticated with the configured method
	GetClient(ctx context.Context) (*github.Client, error)

	// GetAuthInfo returns information about the current authentication
	GetAuthInfo() AuthInfo

	// IsConfigured returns whether the authenticator is properly configured
	IsConfigured() bool

	// ValidateAccess validates that the authenticator can access GitHub
	ValidateAccess(ctx context.Context) error
}

// newRESTClient points a go-github client at baseURL when one is configured.
func newRESTClient(httpClient *http.Client, baseURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if baseURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
	}
	return client, nil
}
