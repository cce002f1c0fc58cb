package servers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/human-glitch/github-releaser/internal/mcp"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"
)

// ReleaseReader looks up a release of the served repository.
type ReleaseReader interface {
	GetReleaseByTag(ctx context.Context, tag string) (*models.Release, error)
}

// NotesPreviewer renders the notes GitHub would generate for a tag range.
type NotesPreviewer interface {
	Preview(ctx context.Context, tag, previous string) (string, error)
}

// ReleaseNotesServer exposes the release note formatter and read-only
// release lookups as MCP tools.
type ReleaseNotesServer struct {
	formatter *notes.Formatter
	releases  ReleaseReader
	previewer NotesPreviewer
	info      *models.MCPServerInfo
}

// NewReleaseNotesServer creates the server. releases and previewer may be nil,
// in which case only the format tool is offered.
func NewReleaseNotesServer(formatter *notes.Formatter, releases ReleaseReader, previewer NotesPreviewer) *ReleaseNotesServer {
	tools := []models.Tool{
		{
			Name:        "format",
			Description: "Group release note lines by ticket prefix and render them as a Markdown release body",
			InputSchema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.JSONSchema{
					"tag": {
						Type:        "string",
						Description: "Release tag the notes belong to, e.g. v1.2.3",
					},
					"notes": {
						Type:        "string",
						Description: "Release note lines, one per line",
					},
				},
				Required: []string{"notes"},
			},
		},
	}
	if releases != nil {
		tools = append(tools, models.Tool{
			Name:        "get_release",
			Description: "Fetch a release by tag and return its body, optionally reformatted",
			Permission:  mcp.PermissionGitHubRead,
			InputSchema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.JSONSchema{
					"tag": {
						Type:        "string",
						Description: "Release tag",
					},
					"formatted": {
						Type:        "boolean",
						Description: "Return the body regrouped by ticket, defaults to false",
					},
				},
				Required: []string{"tag"},
			},
		})
	}
	if previewer != nil {
		tools = append(tools, models.Tool{
			Name:        "preview",
			Description: "Preview formatted release notes for a tag without publishing anything",
			Permission:  mcp.PermissionGitHubRead,
			InputSchema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.JSONSchema{
					"tag": {
						Type:        "string",
						Description: "Tag the notes are generated for; it does not need to exist yet",
					},
					"previous_tag": {
						Type:        "string",
						Description: "Tag to compare against; GitHub picks the previous release when empty",
					},
				},
				Required: []string{"tag"},
			},
		})
	}

	return &ReleaseNotesServer{
		formatter: formatter,
		releases:  releases,
		previewer: previewer,
		info: &models.MCPServerInfo{
			Name:         "releasenotes",
			Version:      "1.0.0",
			Description:  "Release note formatting and GitHub release lookups",
			Capabilities: models.MCPServerCapabilities{Tools: tools},
			CreatedAt:    time.Now(),
		},
	}
}

func (s *ReleaseNotesServer) GetInfo() *models.MCPServerInfo {
	return s.info
}

func (s *ReleaseNotesServer) GetTools() []models.Tool {
	return s.info.Capabilities.Tools
}

// IsAvailable 格式化工具不依赖仓库上下文，始终可用
func (s *ReleaseNotesServer) IsAvailable(ctx context.Context, mcpCtx *models.MCPContext) bool {
	return s.formatter != nil
}

func (s *ReleaseNotesServer) HandleToolCall(ctx context.Context, call *models.ToolCall, mcpCtx *models.MCPContext) (*models.ToolResult, error) {
	xl := trace.Logger(ctx)
	xl.Debugf("Executing release notes tool: %s", call.Function.Name)

	switch call.Function.Name {
	case "format":
		return s.format(call)
	case "get_release":
		return s.getRelease(ctx, call)
	case "preview":
		return s.preview(ctx, call)
	default:
		return nil, fmt.Errorf("unknown tool: %s", call.Function.Name)
	}
}

func (s *ReleaseNotesServer) Initialize(ctx context.Context) error {
	if s.formatter == nil {
		return fmt.Errorf("release notes server requires a formatter")
	}
	return nil
}

func (s *ReleaseNotesServer) Shutdown(ctx context.Context) error {
	return nil
}

func (s *ReleaseNotesServer) format(call *models.ToolCall) (*models.ToolResult, error) {
	tag := stringArg(call, "tag")
	raw := stringArg(call, "notes")

	body := s.formatter.Format(tag, strings.Split(raw, "\n"))
	return textResult(call.ID, body), nil
}

func (s *ReleaseNotesServer) getRelease(ctx context.Context, call *models.ToolCall) (*models.ToolResult, error) {
	if s.releases == nil {
		return nil, fmt.Errorf("release lookups are not configured")
	}
	tag := stringArg(call, "tag")

	release, err := s.releases.GetReleaseByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get release %s: %w", tag, err)
	}
	if release == nil {
		return nil, fmt.Errorf("release %s not found", tag)
	}

	body := release.Body
	if formatted, _ := call.Function.Arguments["formatted"].(bool); formatted {
		body = s.formatter.FormatBody(tag, notes.ParseBody(body))
	}

	return &models.ToolResult{
		ID:      call.ID,
		Success: true,
		Type:    "json",
		Content: map[string]interface{}{
			"id":         release.ID,
			"tag":        release.TagName,
			"name":       release.Name,
			"url":        release.HTMLURL,
			"draft":      release.Draft,
			"prerelease": release.Prerelease,
			"body":       body,
		},
	}, nil
}

func (s *ReleaseNotesServer) preview(ctx context.Context, call *models.ToolCall) (*models.ToolResult, error) {
	if s.previewer == nil {
		return nil, fmt.Errorf("release previews are not configured")
	}
	tag := stringArg(call, "tag")

	body, err := s.previewer.Preview(ctx, tag, stringArg(call, "previous_tag"))
	if err != nil {
		return nil, fmt.Errorf("failed to preview notes for %s: %w", tag, err)
	}
	return textResult(call.ID, body), nil
}

func stringArg(call *models.ToolCall, name string) string {
	v, _ := call.Function.Arguments[name].(string)
	return strings.TrimSpace(v)
}

func textResult(id, text string) *models.ToolResult {
	return &models.ToolResult{
		ID:      id,
		Success: true,
		Content: text,
		Type:    "text",
	}
}
