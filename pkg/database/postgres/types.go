package postgres

import (
	"time"

	"github.com/Masterminds/squirrel"
)

// PoolStats 连接池统计信息
type PoolStats struct {
	AcquireCount            int64         `json:"acquire_count"`              // 获取连接的总次数
	AcquireDuration         time.Duration `json:"acquire_duration"`           // 获取连接的总时长
	AcquiredConns           int32         `json:"acquired_conns"`             // 当前已获取的连接数
	CanceledAcquireCount    int64         `json:"canceled_acquire_count"`     // 取消获取连接的次数
	ConstructingConns       int32         `json:"constructing_conns"`         // 正在创建的连接数
	EmptyAcquireCount       int64         `json:"empty_acquire_count"`        // 空闲获取的次数
	IdleConns               int32         `json:"idle_conns"`                 // 空闲连接数
	MaxConns                int32         `json:"max_conns"`                  // 最大连接数
	TotalConns              int32         `json:"total_conns"`                // 总连接数
	NewConnsCount           int64         `json:"new_conns_count"`            // 新建连接的次数
	MaxLifetimeDestroyCount int64         `json:"max_lifetime_destroy_count"` // 因超过最大生命周期而销毁的连接数
	MaxIdleDestroyCount     int64         `json:"max_idle_destroy_count"`     // 因超过最大空闲时间而销毁的连接数
}

// QueryBuilder SQL 查询构建器（基于 squirrel）
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
