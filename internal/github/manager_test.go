package github

import (
	"context"
	"testing"

	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/human-glitch/github-releaser/internal/github/auth"
	"github.com/human-glitch/github-releaser/pkg/models"
)

func TestNewClientManager(t *testing.T) {
	tests := []struct {
		name         string
		config       *config.Config
		expectError  bool
		expectedAuth auth.AuthType
	}{
		{
			name:        "nil config should fail",
			config:      nil,
			expectError: true,
		},
		{
			name: "PAT configuration",
			config: &config.Config{
				GitHub: config.GitHubConfig{
					Token: "test-token",
					Owner: "acme",
					Repo:  "widgets",
				},
			},
			expectedAuth: auth.AuthTypePAT,
		},
		{
			name: "GitHub App configuration with missing key file",
			config: &config.Config{
				GitHub: config.GitHubConfig{
					AuthMode: config.AuthModeApp,
					App: config.GitHubAppConfig{
						AppID:          12345,
						InstallationID: 1,
						PrivateKeyPath: "/nonexistent/path",
					},
				},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewClientManager(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if authInfo := manager.GetAuthInfo(); authInfo.Type != tt.expectedAuth {
				t.Errorf("Expected auth type %s, got %s", tt.expectedAuth, authInfo.Type)
			}
		})
	}
}

func TestClientManager_CachesPerRepository(t *testing.T) {
	cfg := &config.Config{
		GitHub: config.GitHubConfig{
			Token: "test-token",
			Owner: "acme",
			Repo:  "widgets",
		},
	}

	manager, err := NewClientManager(cfg)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	ctx := context.Background()

	first, err := manager.GetClient(ctx)
	if err != nil {
		t.Fatalf("Failed to get client: %v", err)
	}
	second, _ := manager.ForRepository(ctx, models.Repository{Owner: "acme", Name: "widgets"})
	if first != second {
		t.Errorf("Expected cached client for the default repository")
	}

	other, err := manager.ForRepository(ctx, models.Repository{Owner: "acme", Name: "gadgets"})
	if err != nil {
		t.Fatalf("Failed to get client: %v", err)
	}
	if other == first {
		t.Errorf("Expected a distinct client for another repository")
	}
	if other.Repository().String() != "acme/gadgets" {
		t.Errorf("Unexpected repository %s", other.Repository())
	}

	if _, err := manager.ForRepository(ctx, models.Repository{Owner: "acme"}); err == nil {
		t.Errorf("Expected error for incomplete repository")
	}

	gql, err := manager.GetGraphQLClient(ctx, manager.DefaultRepository())
	if err != nil || gql == nil {
		t.Fatalf("Failed to get GraphQL client: %v", err)
	}

	if err := manager.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	third, _ := manager.GetClient(ctx)
	if third == first {
		t.Errorf("Expected a fresh client after Close")
	}
}
