package redis

// PoolStats 连接池统计信息（隐藏 go-redis 类型）
type PoolStats struct {
	Hits       uint32 `json:"hits"`        // 连接池命中次数
	Misses     uint32 `json:"misses"`      // 连接池未命中次数
	Timeouts   uint32 `json:"timeouts"`    // 超时次数
	TotalConns uint32 `json:"total_conns"` // 总连接数
	IdleConns  uint32 `json:"idle_conns"`  // 空闲连接数
	StaleConns uint32 `json:"stale_conns"` // 过期连接数
}

// Message Pub/Sub 消息（隐藏 go-redis 类型）
type Message struct {
	Channel string // 频道
	Pattern string // 模式（模式订阅时使用）
	Payload string // 消息内容
}
