package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	runIDKey contextKey = "run_id"
	nodeKey  contextKey = "node"
)

// WithRunID 设置 RunID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取 RunID
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithNode 设置当前执行节点路径，如 "historical_court/court_trial/trial_round/judge"
func WithNode(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, nodeKey, path)
}

// Node 获取当前执行节点路径
func Node(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(nodeKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// LogFields returns zap fields for whatever of run_id and node ctx carries.
func LogFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	if id, ok := RunID(ctx); ok {
		out = append(out, zap.String("run_id", id))
	}
	if node, ok := Node(ctx); ok {
		out = append(out, zap.String("node", node))
	}
	return append(out, fields...)
}
