package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/human-glitch/github-releaser/internal/github/auth"
	"github.com/human-glitch/github-releaser/pkg/models"
	"github.com/qiniu/x/log"
)

// ClientManager builds authenticated REST and GraphQL clients and caches them per repository.
type ClientManager struct {
	config        *config.Config
	authenticator auth.Authenticator
	monitor       *RateLimitMonitor

	mu      sync.RWMutex
	clients map[string]*Client
	graphql map[string]*GraphQLClient
}

// NewClientManager creates a manager from configuration
func NewClientManager(cfg *config.Config) (*ClientManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	authenticator, err := auth.NewAuthenticatorBuilder(cfg).BuildAuthenticator()
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}
	return NewClientManagerWithAuthenticator(cfg, authenticator), nil
}

// NewClientManagerWithAuthenticator uses a prebuilt authenticator.
func NewClientManagerWithAuthenticator(cfg *config.Config, authenticator auth.Authenticator) *ClientManager {
	authInfo := authenticator.GetAuthInfo()
	log.Infof("Using GitHub authentication: type=%s", authInfo.Type)

	return &ClientManager{
		config:        cfg,
		authenticator: authenticator,
		monitor:       NewRateLimitMonitor(cfg.GitHub.API),
		clients:       make(map[string]*Client),
		graphql:       make(map[string]*GraphQLClient),
	}
}

// DefaultRepository is the repository named by configuration.
func (m *ClientManager) DefaultRepository() models.Repository {
	return models.Repository{Owner: m.config.GitHub.Owner, Name: m.config.GitHub.Repo}
}

// GetClient returns the REST client for the configured repository.
func (m *ClientManager) GetClient(ctx context.Context) (*Client, error) {
	return m.ForRepository(ctx, m.DefaultRepository())
}

// ForRepository returns a cached REST client scoped to repo.
func (m *ClientManager) ForRepository(ctx context.Context, repo models.Repository) (*Client, error) {
	if repo.Owner == "" || repo.Name == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	key := repo.String()

	m.mu.RLock()
	if client, ok := m.clients[key]; ok {
		m.mu.RUnlock()
		return client, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// 双重检查
	if client, ok := m.clients[key]; ok {
		return client, nil
	}

	gh, err := m.authenticator.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client for %s: %w", key, err)
	}
	client := NewClient(gh, repo, m.monitor)
	m.clients[key] = client
	return client, nil
}

// GetGraphQLClient returns the GraphQL client for repo.
func (m *ClientManager) GetGraphQLClient(ctx context.Context, repo models.Repository) (*GraphQLClient, error) {
	key := repo.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.graphql[key]; ok {
		return client, nil
	}

	httpClient, err := m.authenticator.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL client for %s: %w", key, err)
	}
	client := NewGraphQLClient(httpClient, m.config.GitHub.BaseURL, repo, m.monitor)
	m.graphql[key] = client
	return client, nil
}

// GetAuthInfo returns information about the current authentication
func (m *ClientManager) GetAuthInfo() auth.AuthInfo {
	return m.authenticator.GetAuthInfo()
}

// ValidateAccess validates that the current authentication can access GitHub
func (m *ClientManager) ValidateAccess(ctx context.Context) error {
	return m.authenticator.ValidateAccess(ctx)
}

// RateLimitMonitor returns the monitor shared by every client the manager built.
func (m *ClientManager) RateLimitMonitor() *RateLimitMonitor {
	return m.monitor
}

// Close drops cached clients and logs API usage.
func (m *ClientManager) Close() error {
	m.monitor.LogStatistics()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = make(map[string]*Client)
	m.graphql = make(map[string]*GraphQLClient)
	return nil
}
