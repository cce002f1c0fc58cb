package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Bridge exposes the tools of a Manager through an mcp-go server.
type Bridge struct {
	manager MCPManager
	mcpCtx  *models.MCPContext
}

func NewBridge(manager MCPManager, mcpCtx *models.MCPContext) *Bridge {
	return &Bridge{manager: manager, mcpCtx: mcpCtx}
}

// NewServer creates an mcp-go server with every available tool registered.
func (b *Bridge) NewServer(ctx context.Context, name, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	if _, err := b.Register(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds the manager's tools to s and returns how many were added.
func (b *Bridge) Register(ctx context.Context, s *server.MCPServer) (int, error) {
	tools, err := b.manager.GetAvailableTools(ctx, b.mcpCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to get available tools: %w", err)
	}

	for _, tool := range tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return 0, fmt.Errorf("failed to encode schema of %s: %w", tool.Name, err)
		}
		s.AddTool(mcpgo.NewToolWithRawSchema(tool.Name, tool.Description, schema), b.handler(tool.Name))
	}
	trace.Logger(ctx).Infof("Registered %d MCP tools", len(tools))
	return len(tools), nil
}

func (b *Bridge) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}
		call := &models.ToolCall{
			ID:       uuid.NewString(),
			Function: models.ToolFunction{Name: name, Arguments: args},
		}

		result, err := b.manager.HandleToolCall(ctx, call, b.mcpCtx)
		if err != nil {
			return nil, err
		}
		return toCallToolResult(result)
	}
}

func toCallToolResult(result *models.ToolResult) (*mcpgo.CallToolResult, error) {
	if !result.Success {
		return mcpgo.NewToolResultError(result.Error), nil
	}

	switch content := result.Content.(type) {
	case nil:
		return mcpgo.NewToolResultText(""), nil
	case string:
		return mcpgo.NewToolResultText(content), nil
	default:
		data, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool result: %w", err)
		}
		return mcpgo.NewToolResultText(string(data)), nil
	}
}
