package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段的函数类型
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type playerIDKey struct{}

// WithPlayerID 把玩家 ID 放入 context，日志会自动带上 player_id 字段
func WithPlayerID(ctx context.Context, playerID int64) context.Context {
	return context.WithValue(ctx, playerIDKey{}, playerID)
}

// PlayerIDFromContext 从 context 中取出玩家 ID
func PlayerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(playerIDKey{}).(int64)
	return id, ok
}

// PlayerContextExtractor 提取 player_id
func PlayerContextExtractor(ctx context.Context) []zap.Field {
	if id, ok := PlayerIDFromContext(ctx); ok {
		return []zap.Field{zap.Int64("player_id", id)}
	}
	return nil
}
