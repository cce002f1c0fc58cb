package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/human-glitch/github-releaser/internal/config"
	gh "github.com/human-glitch/github-releaser/internal/github"
	"github.com/human-glitch/github-releaser/internal/mcp"
	"github.com/human-glitch/github-releaser/internal/mcp/servers"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/release"
	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/qiniu/x/log"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	logPath := flag.String("log-file", os.Getenv("MCP_LOG_FILE"), "also write logs to this file")
	flag.Parse()

	// stdout 只用于 MCP 协议，日志写 stderr
	if *logPath != "" {
		logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Warnf("Failed to open log file %s: %v", *logPath, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, logFile))
			defer logFile.Close()
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := trace.NewContext(context.Background(), trace.NewTraceID(trace.MCPPrefix))

	manager, cleanup, err := initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer cleanup()

	mcpCtx := &models.MCPContext{
		Repository:  models.Repository{Owner: cfg.GitHub.Owner, Name: cfg.GitHub.Repo},
		Metadata:    map[string]string{"version": version},
		Permissions: []string{mcp.PermissionGitHubRead},
		Constraints: []string{mcp.ConstraintReadOnly},
	}

	s, err := mcp.NewBridge(manager, mcpCtx).NewServer(ctx, "github-releaser", version)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	fmt.Fprintln(os.Stderr, "github-releaser MCP server running on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("MCP server stopped: %v", err)
	}
}

// initialize 注册 releasenotes 服务器。GitHub 未配置时只提供格式化工具
func initialize(ctx context.Context, cfg *config.Config) (*mcp.Manager, func(), error) {
	formatter := notes.NewFormatter(notes.Options{
		TrackerURL:     cfg.Notes.TrackerURL,
		Prefixes:       cfg.Notes.Prefixes,
		Titles:         cfg.Notes.Titles,
		UngroupedTitle: cfg.Notes.UngroupedTitle,
	})
	manager := mcp.NewManager()
	cleanup := func() {
		if err := manager.Shutdown(ctx); err != nil {
			log.Warnf("MCP manager shutdown: %v", err)
		}
	}

	var (
		releases  servers.ReleaseReader
		previewer servers.NotesPreviewer
	)
	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		log.Warnf("GITHUB_REPOSITORY is not set, release tools disabled")
	} else if err := cfg.ValidateGitHubConfig(); err != nil {
		log.Warnf("GitHub credentials unavailable, release tools disabled: %v", err)
	} else {
		clients, err := gh.NewClientManager(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GitHub client manager: %w", err)
		}
		if err := clients.ValidateAccess(ctx); err != nil {
			return nil, nil, fmt.Errorf("GitHub access check failed: %w", err)
		}
		client, err := clients.GetClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		releases = client
		previewer = release.New(client, formatter, nil, release.Options{
			DefaultBranch:       cfg.Release.DefaultBranch,
			ReleaseBranchFormat: cfg.Release.ReleaseBranchFormat,
			TagMessageFormat:    cfg.Release.TagMessageFormat,
			DryRun:              true,
		})

		shutdownManager := cleanup
		cleanup = func() {
			shutdownManager()
			clients.Close()
		}
		log.Infof("Release tools enabled for %s", client.Repository())
	}

	if err := manager.RegisterServer("releasenotes", servers.NewReleaseNotesServer(formatter, releases, previewer)); err != nil {
		return nil, nil, fmt.Errorf("failed to register release notes server: %w", err)
	}
	log.Infof("Registered %d MCP servers", len(manager.GetServers()))
	return manager, cleanup, nil
}
