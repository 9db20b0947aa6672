package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Get 获取字符串值（从从库读取），键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.getSlave().Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Set 设置字符串值（写入主库）
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.getMaster().Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.getMaster().Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return n, nil
}

// Publish 发布消息到频道，返回收到消息的订阅者数量
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) (int64, error) {
	n, err := c.getMaster().Publish(ctx, channel, message).Result()
	if err != nil {
		return 0, fmt.Errorf("publish failed: %w", err)
	}
	return n, nil
}
