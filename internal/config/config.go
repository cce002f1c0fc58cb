package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMode selects how the GitHub client authenticates.
type AuthMode string

const (
	AuthModeAuto  AuthMode = "auto"  // App when configured, otherwise token
	AuthModeToken AuthMode = "token" // personal access token only
	AuthModeApp   AuthMode = "app"   // GitHub App installation only
)

const (
	defaultTrackerURL    = "https://onezelis.atlassian.net/browse"
	defaultBranchFormat  = "release/v%d.%d.x"
	defaultTagMessage    = "Release %s"
	defaultOpenAIModel   = "gpt-4o"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultLLMTimeout    = 2 * time.Minute
	defaultServerPort    = 8888
	defaultRateThreshold = 100
)

type Config struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Release ReleaseConfig `yaml:"release"`
	Notes   NotesConfig   `yaml:"notes"`
	LLM     LLMConfig     `yaml:"llm"`
	Server  ServerConfig  `yaml:"server"`
}

type GitHubConfig struct {
	Token    string          `yaml:"token"`
	AuthMode AuthMode        `yaml:"auth_mode"`
	Owner    string          `yaml:"owner"`
	Repo     string          `yaml:"repo"`
	BaseURL  string          `yaml:"base_url"` // GitHub Enterprise API root; empty means api.github.com
	App      GitHubAppConfig `yaml:"app"`
	API      GitHubAPIConfig `yaml:"api"`
}

type GitHubAppConfig struct {
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKeyEnv  string `yaml:"private_key_env"`
	PrivateKey     string `yaml:"private_key"`
}

type GitHubAPIConfig struct {
	EnableRateMonitoring bool `yaml:"enable_rate_monitoring"`
	RateLimitThreshold   int  `yaml:"rate_limit_threshold"`
}

type ReleaseConfig struct {
	// AutoIncrement bumps the patch version instead of replacing a published release.
	AutoIncrement       bool   `yaml:"auto_increment"`
	// DefaultBranch is used when no release branch matches the tag. Empty means the repository default.
	DefaultBranch       string `yaml:"default_branch"`
	ReleaseBranchFormat string `yaml:"release_branch_format"`
	TagMessageFormat    string `yaml:"tag_message_format"`
}

type NotesConfig struct {
	TrackerURL     string            `yaml:"tracker_url"`
	Prefixes       []string          `yaml:"prefixes"`
	Titles         map[string]string `yaml:"titles"`
	UngroupedTitle string            `yaml:"ungrouped_title"`
}

type LLMConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Provider    string        `yaml:"provider"` // openai, gemini
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	OpenAI      OpenAIConfig  `yaml:"openai"`
	Gemini      GeminiConfig  `yaml:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	WebhookSecret string `yaml:"webhook_secret"`
}

func Load(configPath string) (*Config, error) {
	// 首先尝试从文件加载
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var config Config
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// 从环境变量覆盖敏感配置
		config.loadFromEnv()
		config.applyDefaults()

		return &config, nil
	}

	// 如果文件不存在，从环境变量创建配置
	config := &Config{
		LLM: LLMConfig{Enabled: getEnvBoolOrDefault("LLM_ENABLED", true)},
		GitHub: GitHubConfig{
			API: GitHubAPIConfig{EnableRateMonitoring: true},
		},
		Release: ReleaseConfig{
			AutoIncrement: getEnvBoolOrDefault("RELEASE_AUTO_INCREMENT", false),
		},
	}
	config.loadFromEnv()
	config.applyDefaults()
	return config, nil
}

func (c *Config) loadFromEnv() {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if mode := os.Getenv("GITHUB_AUTH_MODE"); mode != "" {
		c.GitHub.AuthMode = AuthMode(mode)
	}
	// GitHub Actions 提供 owner/repo 形式的 GITHUB_REPOSITORY
	if repository := os.Getenv("GITHUB_REPOSITORY"); repository != "" {
		if owner, repo, ok := strings.Cut(repository, "/"); ok {
			c.GitHub.Owner = owner
			c.GitHub.Repo = repo
		}
	}
	if baseURL := os.Getenv("GITHUB_API_URL"); baseURL != "" {
		c.GitHub.BaseURL = baseURL
	}
	if appIDStr := os.Getenv("GITHUB_APP_ID"); appIDStr != "" {
		if appID, err := strconv.ParseInt(appIDStr, 10, 64); err == nil {
			c.GitHub.App.AppID = appID
		}
	}
	if installationStr := os.Getenv("GITHUB_APP_INSTALLATION_ID"); installationStr != "" {
		if installationID, err := strconv.ParseInt(installationStr, 10, 64); err == nil {
			c.GitHub.App.InstallationID = installationID
		}
	}
	if path := os.Getenv("GITHUB_APP_PRIVATE_KEY_PATH"); path != "" {
		c.GitHub.App.PrivateKeyPath = path
	}
	if keyEnv := os.Getenv("GITHUB_APP_PRIVATE_KEY_ENV"); keyEnv != "" {
		c.GitHub.App.PrivateKeyEnv = keyEnv
	}
	if key := os.Getenv("GITHUB_APP_PRIVATE_KEY"); key != "" {
		c.GitHub.App.PrivateKey = key
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		c.LLM.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.LLM.OpenAI.BaseURL = baseURL
	}
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		c.LLM.Gemini.APIKey = apiKey
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if trackerURL := os.Getenv("TICKET_TRACKER_URL"); trackerURL != "" {
		c.Notes.TrackerURL = trackerURL
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		c.Server.WebhookSecret = secret
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.GitHub.AuthMode == "" {
		c.GitHub.AuthMode = AuthModeAuto
	}
	if c.GitHub.API.RateLimitThreshold == 0 {
		c.GitHub.API.RateLimitThreshold = defaultRateThreshold
	}
	if c.Release.ReleaseBranchFormat == "" {
		c.Release.ReleaseBranchFormat = defaultBranchFormat
	}
	if c.Release.TagMessageFormat == "" {
		c.Release.TagMessageFormat = defaultTagMessage
	}
	if c.Notes.TrackerURL == "" {
		c.Notes.TrackerURL = defaultTrackerURL
	}
	if len(c.Notes.Prefixes) == 0 {
		c.Notes.Prefixes = []string{"PD", "PDE", "PRDY"}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == "gemini" {
			c.LLM.Model = defaultGeminiModel
		} else {
			c.LLM.Model = defaultOpenAIModel
		}
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.5
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = defaultLLMTimeout
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
}

// IsGitHubTokenConfigured reports whether a personal access token is set.
func (c *Config) IsGitHubTokenConfigured() bool {
	return c.GitHub.Token != ""
}

// IsGitHubAppConfigured reports whether enough App settings exist to mint installation tokens.
func (c *Config) IsGitHubAppConfigured() bool {
	app := c.GitHub.App
	hasKey := app.PrivateKeyPath != "" || app.PrivateKeyEnv != "" || app.PrivateKey != ""
	return app.AppID > 0 && app.InstallationID > 0 && hasKey
}

// ValidateGitHubConfig checks the auth settings against the selected mode.
func (c *Config) ValidateGitHubConfig() error {
	switch c.GitHub.AuthMode {
	case AuthModeToken:
		if !c.IsGitHubTokenConfigured() {
			return fmt.Errorf("auth mode %q requires github.token", AuthModeToken)
		}
	case AuthModeApp:
		if !c.IsGitHubAppConfigured() {
			return fmt.Errorf("auth mode %q requires github.app.app_id, installation_id and a private key", AuthModeApp)
		}
	case AuthModeAuto, "":
		if !c.IsGitHubTokenConfigured() && !c.IsGitHubAppConfigured() {
			return fmt.Errorf("no GitHub credentials: set GITHUB_TOKEN or configure github.app")
		}
	default:
		return fmt.Errorf("unknown auth mode: %s", c.GitHub.AuthMode)
	}
	return nil
}

// Validate checks everything the release pipeline needs before it talks to GitHub.
func (c *Config) Validate() error {
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("github.owner and github.repo are required (or set GITHUB_REPOSITORY=owner/repo)")
	}
	if err := c.ValidateGitHubConfig(); err != nil {
		return err
	}
	if c.LLM.Enabled {
		switch c.LLM.Provider {
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return fmt.Errorf("llm provider openai requires OPENAI_API_KEY")
			}
		case "gemini":
			if c.LLM.Gemini.APIKey == "" {
				return fmt.Errorf("llm provider gemini requires GOOGLE_API_KEY")
			}
		default:
			return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
		}
	}
	return nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
