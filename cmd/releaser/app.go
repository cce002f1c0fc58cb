package main

import (
	"context"
	"fmt"

	"github.com/human-glitch/github-releaser/internal/config"
	gh "github.com/human-glitch/github-releaser/internal/github"
	"github.com/human-glitch/github-releaser/internal/llm"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/release"

	"github.com/qiniu/x/log"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg      *config.Config
	clients  *gh.ClientManager
	client   *gh.Client
	releaser *release.Releaser
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newFormatter(cfg *config.Config) *notes.Formatter {
	return notes.NewFormatter(notes.Options{
		TrackerURL:     cfg.Notes.TrackerURL,
		Prefixes:       cfg.Notes.Prefixes,
		Titles:         cfg.Notes.Titles,
		UngroupedTitle: cfg.Notes.UngroupedTitle,
	})
}

// newCompleter returns nil when the LLM pass is disabled.
func newCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}
	c, err := llm.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s completer: %w", cfg.LLM.Provider, err)
	}
	return c, nil
}

// newApp validates cfg and wires the GitHub client and release pipeline.
func newApp(ctx context.Context, cfg *config.Config, dryRun bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clients, err := gh.NewClientManager(cfg)
	if err != nil {
		return nil, err
	}
	if err := clients.ValidateAccess(ctx); err != nil {
		return nil, fmt.Errorf("GitHub access check failed: %w", err)
	}
	client, err := clients.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	info := clients.GetAuthInfo()
	log.Infof("GitHub %s: authenticated as %s (%s)", client.Repository(), info.Type, authSubject(info.User, info.AppID))

	releaser := release.New(client, newFormatter(cfg), completer, release.Options{
		AutoIncrement:       cfg.Release.AutoIncrement,
		DefaultBranch:       cfg.Release.DefaultBranch,
		ReleaseBranchFormat: cfg.Release.ReleaseBranchFormat,
		TagMessageFormat:    cfg.Release.TagMessageFormat,
		DryRun:              dryRun,
	})

	return &app{cfg: cfg, clients: clients, client: client, releaser: releaser}, nil
}

func (a *app) Close() {
	if err := a.clients.Close(); err != nil {
		log.Warnf("Failed to close GitHub clients: %v", err)
	}
}

func authSubject(user string, appID int64) string {
	if user != "" {
		return user
	}
	if appID > 0 {
		return fmt.Sprintf("app %d", appID)
	}
	return "token"
}
