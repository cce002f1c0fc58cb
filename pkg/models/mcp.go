package models

import (
	"time"
)

// Tool MCP工具定义
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *JSONSchema `json:"inputSchema"`

	// Permission 调用该工具所需的权限，空表示无需权限
	Permission string `json:"-"`
}

// JSONSchema JSON Schema定义
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Enum                 []interface{}          `json:"enum,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

// ToolCall 工具调用
type ToolCall struct {
	ID       string       `json:"id"`
	Function ToolFunction `json:"function"`
}

// ToolFunction 工具函数
type ToolFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult 工具执行结果
type ToolResult struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Content interface{} `json:"content,omitempty"`
	Error   string      `json:"error,omitempty"`
	Type    string      `json:"type,omitempty"` // text, json
}

// MCPServerCapabilities MCP服务器能力声明
type MCPServerCapabilities struct {
	Tools []Tool `json:"tools"`
}

// MCPContext MCP执行上下文
type MCPContext struct {
	Repository Repository        `json:"repository"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// 权限控制
	Permissions []string `json:"permissions,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// MCPServerInfo MCP服务器信息
type MCPServerInfo struct {
	Name         string                `json:"name"`
	Version      string                `json:"version"`
	Description  string                `json:"description"`
	Capabilities MCPServerCapabilities `json:"capabilities"`
	CreatedAt    time.Time             `json:"created_at"`
}

// ExecutionMetrics 执行指标
type ExecutionMetrics struct {
	ToolCalls     int           `json:"tool_calls"`
	Duration      time.Duration `json:"duration"`
	Success       int           `json:"success"`
	Errors        int           `json:"errors"`
	LastExecution time.Time     `json:"last_execution"`
}
