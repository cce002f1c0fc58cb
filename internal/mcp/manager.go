package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/human-glitch/github-releaser/internal/trace"
	"github.com/human-glitch/github-releaser/pkg/models"

	"github.com/qiniu/x/log"
)

// Manager MCP管理器实现
type Manager struct {
	servers   map[string]MCPServer
	metrics   map[string]*models.ExecutionMetrics
	validator ToolValidator
	mutex     sync.RWMutex
}

// NewManager 创建MCP管理器
func NewManager() *Manager {
	return &Manager{
		servers:   make(map[string]MCPServer),
		metrics:   make(map[string]*models.ExecutionMetrics),
		validator: NewToolValidator(),
	}
}

// RegisterServer 注册MCP服务器，name 不能包含下划线（用作工具名分隔符）
func (m *Manager) RegisterServer(name string, server MCPServer) error {
	if name == "" || strings.Contains(name, "_") {
		return fmt.Errorf("invalid server name %q", name)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.servers[name]; exists {
		return fmt.Errorf("server %s already registered", name)
	}

	if err := server.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize server %s: %w", name, err)
	}

	m.servers[name] = server
	m.metrics[name] = &models.ExecutionMetrics{}

	info := server.GetInfo()
	log.Debugf("Registered MCP server: %s v%s (%d tools)",
		info.Name, info.Version, len(info.Capabilities.Tools))
	return nil
}

// UnregisterServer 取消注册MCP服务器
func (m *Manager) UnregisterServer(name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	server, exists := m.servers[name]
	if !exists {
		return fmt.Errorf("server %s not found", name)
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Warnf("Failed to shutdown server %s: %v", name, err)
	}

	delete(m.servers, name)
	delete(m.metrics, name)

	log.Infof("Unregistered MCP server: %s", name)
	return nil
}

// GetAvailableTools 获取可用工具列表，按名称排序
func (m *Manager) GetAvailableTools(ctx context.Context, mcpCtx *models.MCPContext) ([]models.Tool, error) {
	xl := trace.Logger(ctx)

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var tools []models.Tool
	for serverName, server := range m.servers {
		if !server.IsAvailable(ctx, mcpCtx) {
			xl.Debugf("Server %s not available for current context", serverName)
			continue
		}

		// 为工具名称添加服务器前缀，避免冲突
		for _, tool := range server.GetTools() {
			tool.Name = serverName + "_" + tool.Name
			tools = append(tools, tool)
		}
	}

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	xl.Debugf("Total available tools: %d", len(tools))
	return tools, nil
}

// HandleToolCall 处理工具调用。失败以 ToolResult 形式返回，error 保留给调用方自身的问题
func (m *Manager) HandleToolCall(ctx context.Context, call *models.ToolCall, mcpCtx *models.MCPContext) (*models.ToolResult, error) {
	if call == nil {
		return nil, fmt.Errorf("tool call is nil")
	}
	ctx = trace.Ensure(ctx, trace.MCPPrefix)
	xl := trace.Logger(ctx)
	startTime := time.Now()

	serverName, toolName, err := parseToolName(call.Function.Name)
	if err != nil {
		return errorResult(call.ID, err), nil
	}

	m.mutex.RLock()
	server, exists := m.servers[serverName]
	m.mutex.RUnlock()
	if !exists {
		return errorResult(call.ID, fmt.Errorf("unknown MCP server: %s", serverName)), nil
	}

	targetTool := findTool(server.GetTools(), toolName)
	if targetTool == nil {
		return errorResult(call.ID, fmt.Errorf("tool %s not found in server %s", toolName, serverName)), nil
	}

	if err := m.validator.ValidateCall(call, targetTool); err != nil {
		return errorResult(call.ID, err), nil
	}
	if err := m.validator.ValidatePermissions(targetTool, mcpCtx); err != nil {
		return errorResult(call.ID, err), nil
	}

	xl.Infof("Executing tool call: %s.%s", serverName, toolName)

	local := *call
	local.Function.Name = toolName
	result, err := server.HandleToolCall(ctx, &local, mcpCtx)
	if err != nil {
		xl.Errorf("Tool call %s failed: %v", call.Function.Name, err)
		m.updateMetrics(serverName, startTime, false)
		return errorResult(call.ID, err), nil
	}
	result.ID = call.ID

	m.updateMetrics(serverName, startTime, result.Success)
	xl.Infof("Tool call %s completed in %v", call.Function.Name, time.Since(startTime))
	return result, nil
}

// GetServers 获取已注册的服务器列表
func (m *Manager) GetServers() map[string]MCPServer {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	servers := make(map[string]MCPServer, len(m.servers))
	for name, server := range m.servers {
		servers[name] = server
	}
	return servers
}

// GetMetrics 返回指标副本
func (m *Manager) GetMetrics() map[string]*models.ExecutionMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	metrics := make(map[string]*models.ExecutionMetrics, len(m.metrics))
	for name, metric := range m.metrics {
		copied := *metric
		metrics[name] = &copied
	}
	return metrics
}

// Shutdown 关闭管理器，停止所有服务器
func (m *Manager) Shutdown(ctx context.Context) error {
	xl := trace.Logger(ctx)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []string
	for name, server := range m.servers {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("server %s: %v", name, err))
		}
	}

	m.servers = make(map[string]MCPServer)
	m.metrics = make(map[string]*models.ExecutionMetrics)

	if len(errs) > 0 {
		sort.Strings(errs)
		xl.Warnf("Some servers failed to shutdown: %s", strings.Join(errs, "; "))
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, "; "))
	}

	xl.Debugf("All MCP servers shutdown successfully")
	return nil
}

func (m *Manager) updateMetrics(serverName string, startTime time.Time, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	metrics, ok := m.metrics[serverName]
	if !ok {
		// unregistered while the call was running
		return
	}
	metrics.ToolCalls++
	metrics.Duration += time.Since(startTime)
	metrics.LastExecution = time.Now()
	if success {
		metrics.Success++
	} else {
		metrics.Errors++
	}
}

// parseToolName 解析 server_tool 形式的工具名称
func parseToolName(fullName string) (serverName, toolName string, err error) {
	serverName, toolName, ok := strings.Cut(fullName, "_")
	if !ok || serverName == "" || toolName == "" {
		return "", "", fmt.Errorf("invalid tool name format: %s (expected: server_tool)", fullName)
	}
	return serverName, toolName, nil
}

func findTool(tools []models.Tool, name string) *models.Tool {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}

func errorResult(id string, err error) *models.ToolResult {
	return &models.ToolResult{
		ID:      id,
		Success: false,
		Error:   err.Error(),
		Type:    "error",
	}
}
