package redis

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient 内部 Redis 客户端接口（隐藏 go-redis 类型）
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	PoolStats() *redis.PoolStats
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Client Redis 客户端（隐藏 go-redis 类型，支持主从读写分离）
type Client struct {
	master         redisClient   // 主节点（或单机/集群客户端）
	slaves         []redisClient // 从节点列表（主从模式）
	cfg            *Config       // 配置
	slaveIndex     uint64        // 轮询索引（round_robin 策略使用）
	loadBalanceRng *rand.Rand    // 随机数生成器（random 策略使用）
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		cfg:            cfg,
		loadBalanceRng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	switch {
	case cfg.IsStandalone():
		client.master = redis.NewClient(cfg.nodeOptions(cfg.Standalone))
	case cfg.IsMasterSlave():
		client.master = redis.NewClient(cfg.nodeOptions(cfg.Master))
		client.slaves = make([]redisClient, len(cfg.Slaves))
		for i := range cfg.Slaves {
			client.slaves[i] = redis.NewClient(cfg.nodeOptions(&cfg.Slaves[i]))
		}
	case cfg.IsCluster():
		client.master = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           cfg.Cluster.Addrs,
			Password:        cfg.Cluster.Password,
			MaxIdleConns:    cfg.Pool.MaxIdleConns,
			ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Pool.ConnMaxIdleTime,
			DialTimeout:     cfg.Pool.DialTimeout,
			ReadTimeout:     cfg.Pool.ReadTimeout,
			WriteTimeout:    cfg.Pool.WriteTimeout,
			PoolTimeout:     cfg.Pool.PoolTimeout,
		})
	default:
		return nil, ErrInvalidConfig
	}

	return client, nil
}

// nodeOptions 单节点连接参数
func (c *Config) nodeOptions(node *NodeConfig) *redis.Options {
	return &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", node.Host, node.Port),
		Password:        node.Password,
		DB:              node.DB,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		MaxActiveConns:  c.Pool.MaxOpenConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: c.Pool.ConnMaxIdleTime,
		DialTimeout:     c.Pool.DialTimeout,
		ReadTimeout:     c.Pool.ReadTimeout,
		WriteTimeout:    c.Pool.WriteTimeout,
		PoolTimeout:     c.Pool.PoolTimeout,
	}
}

// getMaster 获取主节点（用于写操作）
func (c *Client) getMaster() redisClient {
	return c.master
}

// getSlave 获取从节点（用于读操作，支持负载均衡）
func (c *Client) getSlave() redisClient {
	if len(c.slaves) == 0 {
		return c.master
	}

	switch c.cfg.GetSlaveLoadBalance() {
	case "round_robin":
		index := atomic.AddUint64(&c.slaveIndex, 1) % uint64(len(c.slaves))
		return c.slaves[index]
	default:
		return c.slaves[c.loadBalanceRng.Intn(len(c.slaves))]
	}
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.master.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("master ping failed: %w", err)
	}

	for i, slave := range c.slaves {
		if err := slave.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("slave[%d] ping failed: %w", i, err)
		}
	}

	return nil
}

// PoolStats 获取连接池统计信息（隐藏 go-redis 类型）
func (c *Client) PoolStats() PoolStats {
	stats := c.master.PoolStats()
	return PoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	if err := c.master.Close(); err != nil {
		return fmt.Errorf("failed to close master: %w", err)
	}

	for i, slave := range c.slaves {
		if err := slave.Close(); err != nil {
			return fmt.Errorf("failed to close slave[%d]: %w", i, err)
		}
	}

	return nil
}
