package mcp

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/human-glitch/github-releaser/pkg/models"
)

// 权限
const (
	PermissionGitHubRead  = "github:read"
	PermissionGitHubWrite = "github:write"
)

// 约束
const (
	ConstraintReadOnly         = "read-only"
	ConstraintNoExternalAccess = "no-external-access"
)

// toolValidator 工具验证器实现
type toolValidator struct{}

// NewToolValidator 创建工具验证器
func NewToolValidator() ToolValidator {
	return &toolValidator{}
}

// ValidateCall 验证工具调用
func (v *toolValidator) ValidateCall(call *models.ToolCall, tool *models.Tool) error {
	if call == nil {
		return fmt.Errorf("tool call is nil")
	}
	if tool == nil {
		return fmt.Errorf("tool definition is nil")
	}
	if tool.InputSchema != nil {
		if err := v.ValidateArguments(call.Function.Arguments, tool.InputSchema); err != nil {
			return fmt.Errorf("argument validation failed: %w", err)
		}
	}
	return nil
}

// ValidatePermissions 根据上下文中的权限和约束检查工具是否可调用
func (v *toolValidator) ValidatePermissions(tool *models.Tool, mcpCtx *models.MCPContext) error {
	if mcpCtx == nil || tool == nil {
		return nil // 无上下文时跳过权限检查
	}

	for _, constraint := range mcpCtx.Constraints {
		if violatesConstraint(tool, constraint) {
			return fmt.Errorf("tool %s violates constraint: %s", tool.Name, constraint)
		}
	}

	if !hasPermission(mcpCtx.Permissions, tool.Permission) {
		return fmt.Errorf("insufficient permissions: %s requires %s", tool.Name, tool.Permission)
	}
	return nil
}

// ValidateArguments 验证参数
func (v *toolValidator) ValidateArguments(args map[string]interface{}, schema *models.JSONSchema) error {
	if schema == nil {
		return nil
	}

	for _, required := range schema.Required {
		value, exists := args[required]
		if !exists || value == nil {
			return fmt.Errorf("missing required argument: %s", required)
		}
	}

	for key, value := range args {
		fieldSchema, exists := schema.Properties[key]
		if !exists {
			if !schema.AdditionalProperties {
				return fmt.Errorf("unexpected argument: %s", key)
			}
			continue
		}
		if err := validateValue(value, fieldSchema, key); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(value interface{}, schema *models.JSONSchema, fieldName string) error {
	if value == nil || schema == nil {
		return nil
	}

	switch schema.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %s must be a string, got %T", fieldName, value)
		}
		if len(schema.Enum) > 0 && !slices.Contains(schema.Enum, value) {
			return fmt.Errorf("argument %s must be one of %v, got %v", fieldName, schema.Enum, value)
		}

	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("argument %s must be a number, got %T", fieldName, value)
		}

	case "integer":
		switch n := value.(type) {
		case int, int32, int64:
		case float64:
			// JSON 数字统一解码为 float64
			if n != float64(int64(n)) {
				return fmt.Errorf("argument %s must be an integer, got float %v", fieldName, n)
			}
		default:
			return fmt.Errorf("argument %s must be an integer, got %T", fieldName, value)
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %s must be a boolean, got %T", fieldName, value)
		}

	case "array":
		items := reflect.ValueOf(value)
		if items.Kind() != reflect.Slice && items.Kind() != reflect.Array {
			return fmt.Errorf("argument %s must be an array, got %T", fieldName, value)
		}
		for i := 0; i < items.Len(); i++ {
			if err := validateValue(items.Index(i).Interface(), schema.Items, fmt.Sprintf("%s[%d]", fieldName, i)); err != nil {
				return err
			}
		}

	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("argument %s must be an object, got %T", fieldName, value)
		}
		for key, val := range obj {
			if err := validateValue(val, schema.Properties[key], fieldName+"."+key); err != nil {
				return err
			}
		}
	}
	return nil
}

func violatesConstraint(tool *models.Tool, constraint string) bool {
	switch constraint {
	case ConstraintReadOnly:
		return tool.Permission == PermissionGitHubWrite || isWriteOperation(tool.Name)
	case ConstraintNoExternalAccess:
		return tool.Permission != ""
	default:
		return false
	}
}

func isWriteOperation(toolName string) bool {
	lowerName := strings.ToLower(toolName)
	for _, keyword := range []string{"create", "update", "delete", "publish", "write"} {
		if strings.Contains(lowerName, keyword) {
			return true
		}
	}
	return false
}

// hasPermission 写权限包含读权限
func hasPermission(granted []string, required string) bool {
	switch required {
	case "":
		return true
	case PermissionGitHubRead:
		return slices.Contains(granted, PermissionGitHubRead) || slices.Contains(granted, PermissionGitHubWrite)
	default:
		return slices.Contains(granted, required)
	}
}
