package mcp

import (
	"context"

	"github.com/human-glitch/github-releaser/pkg/models"
)

// MCPServer MCP服务器接口
type MCPServer interface {
	// GetInfo 获取服务器信息
	GetInfo() *models.MCPServerInfo

	// GetTools 获取服务器提供的工具列表（不带服务器前缀）
	GetTools() []models.Tool

	// IsAvailable 检查服务器是否在当前上下文中可用
	IsAvailable(ctx context.Context, mcpCtx *models.MCPContext) bool

	// HandleToolCall 处理工具调用，call.Function.Name 已去掉服务器前缀
	HandleToolCall(ctx context.Context, call *models.ToolCall, mcpCtx *models.MCPContext) (*models.ToolResult, error)

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// MCPManager MCP管理器接口
type MCPManager interface {
	RegisterServer(name string, server MCPServer) error
	UnregisterServer(name string) error

	// GetAvailableTools 返回带 server_ 前缀的工具列表
	GetAvailableTools(ctx context.Context, mcpCtx *models.MCPContext) ([]models.Tool, error)

	// HandleToolCall 按 server_tool 名称分发工具调用
	HandleToolCall(ctx context.Context, call *models.ToolCall, mcpCtx *models.MCPContext) (*models.ToolResult, error)

	GetServers() map[string]MCPServer
	GetMetrics() map[string]*models.ExecutionMetrics
	Shutdown(ctx context.Context) error
}

// ToolValidator 工具验证器接口
type ToolValidator interface {
	ValidateCall(call *models.ToolCall, tool *models.Tool) error
	ValidatePermissions(tool *models.Tool, mcpCtx *models.MCPContext) error
	ValidateArguments(args map[string]interface{}, schema *models.JSONSchema) error
}
