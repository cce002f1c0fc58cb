package auth

import (
	"fmt"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/qiniu/x/log"
)

// AuthenticatorBuilder helps build authenticators from configuration
type AuthenticatorBuilder struct {
	config    *config.Config
	transport http.RoundTripper
}

// NewAuthenticatorBuilder creates a new authenticator builder
func NewAuthenticatorBuilder(cfg *config.Config) *AuthenticatorBuilder {
	return &AuthenticatorBuilder{config: cfg, transport: http.DefaultTransport}
}

// WithTransport overrides the base round tripper used by the App transport.
func (b *AuthenticatorBuilder) WithTransport(tr http.RoundTripper) *AuthenticatorBuilder {
	b.transport = tr
	return b
}

// BuildAuthenticator builds an authenticator based on the configuration.
// In auto mode a configured GitHub App wins over a PAT; if the App setup
// fails the builder falls back to the PAT.
func (b *AuthenticatorBuilder) BuildAuthenticator() (Authenticator, error) {
	if b.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if err := b.config.ValidateGitHubConfig(); err != nil {
		return nil, fmt.Errorf("invalid GitHub configuration: %w", err)
	}

	switch b.config.GitHub.AuthMode {
	case config.AuthModeToken:
		return b.buildPATAuthenticator()
	case config.AuthModeApp:
		return b.buildAppAuthenticator()
	}

	if b.config.IsGitHubAppConfigured() {
		appAuth, err := b.buildAppAuthenticator()
		if err == nil {
			return appAuth, nil
		}
		if !b.config.IsGitHubTokenConfigured() {
			return nil, err
		}
		log.Warnf("GitHub App configuration failed, falling back to token: %v", err)
	}

	return b.buildPATAuthenticator()
}

func (b *AuthenticatorBuilder) buildPATAuthenticator() (Authenticator, error) {
	if !b.config.IsGitHubTokenConfigured() {
		return nil, fmt.Errorf("GitHub token is not configured")
	}
	return NewPATAuthenticator(b.config.GitHub.Token, b.config.GitHub.BaseURL), nil
}

// buildAppAuthenticator builds a GitHub App authenticator using ghinstallation
func (b *AuthenticatorBuilder) buildAppAuthenticator() (Authenticator, error) {
	if !b.config.IsGitHubAppConfigured() {
		return nil, fmt.Errorf("GitHub App is not configured")
	}

	appConfig := b.config.GitHub.App

	var transport *ghinstallation.Transport
	var err error

	switch {
	case appConfig.PrivateKeyPath != "":
		transport, err = ghinstallation.NewKeyFromFile(b.transport, appConfig.AppID, appConfig.InstallationID, appConfig.PrivateKeyPath)
	case appConfig.PrivateKeyEnv != "":
		privateKeyData := os.Getenv(appConfig.PrivateKeyEnv)
		if privateKeyData == "" {
			return nil, fmt.Errorf("private key environment variable %s is empty", appConfig.PrivateKeyEnv)
		}
		transport, err = ghinstallation.New(b.transport, appConfig.AppID, appConfig.InstallationID, []byte(privateKeyData))
	default:
		transport, err = ghinstallation.New(b.transport, appConfig.AppID, appConfig.InstallationID, []byte(appConfig.PrivateKey))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}

	return NewGitHubAppAuthenticator(transport, appConfig.AppID, appConfig.InstallationID, b.config.GitHub.BaseURL), nil
}
