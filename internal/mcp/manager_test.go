package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/human-glitch/github-releaser/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer 模拟MCP服务器
type stubServer struct {
	name      string
	tools     []models.Tool
	available bool
	responses map[string]*models.ToolResult
	failWith  error
	calls     []string
}

func newStubServer(name string, tools ...models.Tool) *stubServer {
	return &stubServer{
		name:      name,
		tools:     tools,
		available: true,
		responses: make(map[string]*models.ToolResult),
	}
}

func (s *stubServer) GetInfo() *models.MCPServerInfo {
	return &models.MCPServerInfo{
		Name:         s.name,
		Version:      "1.0.0-test",
		Capabilities: models.MCPServerCapabilities{Tools: s.tools},
	}
}

func (s *stubServer) GetTools() []models.Tool { return s.tools }

func (s *stubServer) IsAvailable(ctx context.Context, mcpCtx *models.MCPContext) bool {
	return s.available
}

func (s *stubServer) HandleToolCall(ctx context.Context, call *models.ToolCall, mcpCtx *models.MCPContext) (*models.ToolResult, error) {
	s.calls = append(s.calls, call.Function.Name)
	if s.failWith != nil {
		return nil, s.failWith
	}
	if result, ok := s.responses[call.Function.Name]; ok {
		return result, nil
	}
	return &models.ToolResult{Success: true, Content: s.name + "/" + call.Function.Name, Type: "text"}, nil
}

func (s *stubServer) Initialize(ctx context.Context) error { return nil }
func (s *stubServer) Shutdown(ctx context.Context) error   { return nil }

func toolCall(id, name string, args map[string]interface{}) *models.ToolCall {
	if args == nil {
		args = map[string]interface{}{}
	}
	return &models.ToolCall{ID: id, Function: models.ToolFunction{Name: name, Arguments: args}}
}

func TestManager_RegisterServer(t *testing.T) {
	manager := NewManager()

	require.NoError(t, manager.RegisterServer("notes", newStubServer("notes")))
	assert.Contains(t, manager.GetServers(), "notes")
	assert.Contains(t, manager.GetMetrics(), "notes")

	err := manager.RegisterServer("notes", newStubServer("again"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	err = manager.RegisterServer("release_notes", newStubServer("bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server name")
}

func TestManager_GetAvailableTools(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterServer("srv2", newStubServer("server2", models.Tool{Name: "preview"})))
	require.NoError(t, manager.RegisterServer("srv1", newStubServer("server1",
		models.Tool{Name: "format"},
		models.Tool{Name: "get_release"},
	)))

	hidden := newStubServer("hidden", models.Tool{Name: "secret"})
	hidden.available = false
	require.NoError(t, manager.RegisterServer("hidden", hidden))

	tools, err := manager.GetAvailableTools(context.Background(), &models.MCPContext{})
	require.NoError(t, err)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.Equal(t, []string{"srv1_format", "srv1_get_release", "srv2_preview"}, names)
}

func TestManager_HandleToolCall(t *testing.T) {
	manager := NewManager()
	server := newStubServer("server", models.Tool{Name: "get_release"})
	require.NoError(t, manager.RegisterServer("srv", server))

	result, err := manager.HandleToolCall(context.Background(), toolCall("call-1", "srv_get_release", nil), nil)
	require.NoError(t, err)

	assert.Equal(t, "call-1", result.ID)
	assert.True(t, result.Success)
	assert.Equal(t, "server/get_release", result.Content)
	// 服务器收到去掉前缀的工具名
	assert.Equal(t, []string{"get_release"}, server.calls)

	metrics := manager.GetMetrics()["srv"]
	assert.Equal(t, 1, metrics.ToolCalls)
	assert.Equal(t, 1, metrics.Success)
	assert.False(t, metrics.LastExecution.IsZero())
}

func TestManager_HandleToolCall_Failures(t *testing.T) {
	manager := NewManager()
	failing := newStubServer("failing", models.Tool{Name: "boom"})
	failing.failWith = errors.New("github unavailable")
	require.NoError(t, manager.RegisterServer("fail", failing))
	require.NoError(t, manager.RegisterServer("srv", newStubServer("server", models.Tool{
		Name: "format",
		InputSchema: &models.JSONSchema{
			Type:       "object",
			Properties: map[string]*models.JSONSchema{"notes": {Type: "string"}},
			Required:   []string{"notes"},
		},
	})))

	tests := []struct {
		name    string
		call    *models.ToolCall
		wantErr string
	}{
		{"invalid name", toolCall("1", "format", nil), "invalid tool name format"},
		{"unknown server", toolCall("2", "nope_format", nil), "unknown MCP server"},
		{"unknown tool", toolCall("3", "srv_publish", nil), "tool publish not found"},
		{"missing argument", toolCall("4", "srv_format", nil), "missing required argument: notes"},
		{"wrong type", toolCall("5", "srv_format", map[string]interface{}{"notes": 42.0}), "must be a string"},
		{"server error", toolCall("6", "fail_boom", nil), "github unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := manager.HandleToolCall(context.Background(), tt.call, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.call.ID, result.ID)
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantErr)
		})
	}

	assert.Equal(t, 1, manager.GetMetrics()["fail"].Errors)
}

func TestManager_HandleToolCall_Permissions(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterServer("srv", newStubServer("server",
		models.Tool{Name: "get_release", Permission: PermissionGitHubRead},
	)))

	call := toolCall("1", "srv_get_release", nil)

	result, err := manager.HandleToolCall(context.Background(), call, &models.MCPContext{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "insufficient permissions")

	result, err = manager.HandleToolCall(context.Background(), call, &models.MCPContext{
		Permissions: []string{PermissionGitHubWrite},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = manager.HandleToolCall(context.Background(), call, &models.MCPContext{
		Permissions: []string{PermissionGitHubRead},
		Constraints: []string{ConstraintNoExternalAccess},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "violates constraint")
}

func TestManager_UnregisterAndShutdown(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterServer("a", newStubServer("a")))
	require.NoError(t, manager.RegisterServer("b", newStubServer("b")))

	require.NoError(t, manager.UnregisterServer("a"))
	assert.Len(t, manager.GetServers(), 1)

	err := manager.UnregisterServer("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, manager.Shutdown(context.Background()))
	assert.Empty(t, manager.GetServers())
	assert.Empty(t, manager.GetMetrics())
}

func TestValidateArguments(t *testing.T) {
	v := NewToolValidator()
	schema := &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.JSONSchema{
			"tag":       {Type: "string"},
			"formatted": {Type: "boolean"},
			"limit":     {Type: "integer"},
			"format":    {Type: "string", Enum: []interface{}{"markdown", "text"}},
			"prefixes":  {Type: "array", Items: &models.JSONSchema{Type: "string"}},
		},
		Required: []string{"tag"},
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"valid", map[string]interface{}{"tag": "v1.0.0", "formatted": true, "limit": 3.0, "prefixes": []interface{}{"PD"}}, ""},
		{"missing", map[string]interface{}{}, "missing required argument: tag"},
		{"null required", map[string]interface{}{"tag": nil}, "missing required argument: tag"},
		{"unexpected", map[string]interface{}{"tag": "v1", "extra": 1}, "unexpected argument: extra"},
		{"bad bool", map[string]interface{}{"tag": "v1", "formatted": "yes"}, "must be a boolean"},
		{"fractional integer", map[string]interface{}{"tag": "v1", "limit": 1.5}, "must be an integer"},
		{"enum", map[string]interface{}{"tag": "v1", "format": "html"}, "must be one of"},
		{"array item", map[string]interface{}{"tag": "v1", "prefixes": []interface{}{"PD", 7}}, "prefixes[1] must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateArguments(tt.args, schema)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
