package redis

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Subscription 频道订阅（隐藏 go-redis 类型）
type Subscription struct {
	pubsub *redis.PubSub
	ch     chan *Message
	done   chan struct{}
	closed atomic.Bool
}

// Subscribe 订阅频道，等待服务端确认后返回
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	pubsub := c.getMaster().Subscribe(ctx, channels...)

	// 等待订阅确认，避免订阅建立前的消息丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		ch:     make(chan *Message, 16),
		done:   make(chan struct{}),
	}
	go sub.forward()

	return sub, nil
}

// forward 把 go-redis 消息转换为 Message
func (s *Subscription) forward() {
	defer close(s.ch)

	for msg := range s.pubsub.Channel() {
		select {
		case s.ch <- &Message{Channel: msg.Channel, Pattern: msg.Pattern, Payload: msg.Payload}:
		case <-s.done:
			return
		}
	}
}

// Channel 消息通道，订阅关闭后通道关闭
func (s *Subscription) Channel() <-chan *Message {
	return s.ch
}

// Close 取消订阅
func (s *Subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSubscriptionClosed
	}
	close(s.done)
	return s.pubsub.Close()
}
