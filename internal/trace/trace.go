package trace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qiniu/x/xlog"
)

// TraceID 表示追踪 ID
type TraceID string

// 为不同的入口定义追踪前缀
const (
	ReleasePrefix  = "release"
	WebhookPrefix  = "webhook"
	MCPPrefix      = "mcp"
	ReformatPrefix = "reformat"
)

// NewTraceID 创建新的追踪 ID，形如 release_<uuid>
func NewTraceID(prefix string) TraceID {
	return TraceID(fmt.Sprintf("%s_%s", prefix, uuid.NewString()))
}

// 使用 context key 来存储追踪日志器
type contextKey string

const traceLoggerKey contextKey = "trace_logger"

// NewContext 创建带有追踪 ID 的上下文
func NewContext(ctx context.Context, traceID TraceID) context.Context {
	logger := xlog.New(string(traceID))
	return context.WithValue(ctx, traceLoggerKey, logger)
}

// FromContext 从上下文中获取追踪日志器
func FromContext(ctx context.Context) *xlog.Logger {
	if logger, ok := ctx.Value(traceLoggerKey).(*xlog.Logger); ok {
		return logger
	}
	return nil
}

// Logger returns the trace logger bound to ctx, or a fresh xlog logger when there is none.
func Logger(ctx context.Context) *xlog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	return xlog.NewWith(ctx)
}

// Ensure binds a new trace id with prefix unless ctx already carries one.
func Ensure(ctx context.Context, prefix string) context.Context {
	if FromContext(ctx) != nil {
		return ctx
	}
	return NewContext(ctx, NewTraceID(prefix))
}

// GetTraceID 从上下文中获取追踪 ID
func GetTraceID(ctx context.Context) TraceID {
	logger := FromContext(ctx)
	if logger == nil {
		return ""
	}
	return TraceID(logger.ReqId)
}
